/*
	Copyright 2023 Loophole Labs

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// uring-cat reads a file through the ring and writes it to stdout,
// batching one readv IOCB per ring entry.
package main

import (
	"flag"
	"log"
	"os"
	"syscall"
	"unsafe"

	"github.com/loopholelabs/uring"
	"github.com/loopholelabs/uring/pkg/buffer"
)

const blockSize = 32 * 1024

func main() {
	entries := flag.Uint("entries", 4, "number of ring entries (power of two)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <file>", os.Args[0])
	}

	if !uring.IsAvailable() {
		log.Fatal("ring syscalls are not available on this kernel")
	}

	fd, err := syscall.Open(flag.Arg(0), syscall.O_RDONLY, 0)
	if err != nil {
		log.Fatalf("error while opening %s: %v", flag.Arg(0), err)
	}
	defer func() {
		_ = syscall.Close(fd)
	}()

	var stat syscall.Stat_t
	err = syscall.Fstat(fd, &stat)
	if err != nil {
		log.Fatalf("error while stating %s: %v", flag.Arg(0), err)
	}

	ring, err := uring.NewRing()
	if err != nil {
		log.Fatalf("error while creating ring: %v", err)
	}

	err = ring.QueueInit(uint32(*entries), nil)
	if err != nil {
		log.Fatalf("error while initializing ring: %v", err)
	}
	defer func() {
		_ = ring.Close()
	}()

	chunks := make([]*buffer.Buffer, *entries)
	iovecs := make([]syscall.Iovec, *entries)
	for i := range chunks {
		chunks[i], err = buffer.New(blockSize)
		if err != nil {
			log.Fatalf("error while allocating chunk buffer: %v", err)
		}
	}
	defer func() {
		for _, chunk := range chunks {
			_ = chunk.Close()
		}
	}()

	size := stat.Size
	planned := make([]int32, len(chunks))
	var offset int64
	for offset < size {
		staged := 0
		for staged < len(chunks) && offset < size {
			iocb := ring.GetIOCB()
			if iocb == nil {
				break
			}

			length := size - offset
			if length > blockSize {
				length = blockSize
			}

			iovecs[staged] = chunks[staged].Iovec()
			iovecs[staged].Len = uint64(length)

			iocb.PrepareReadV(fd, uintptr(unsafe.Pointer(&iovecs[staged])), 1, uint64(offset))
			iocb.UserData = uint64(staged)
			planned[staged] = int32(length)

			offset += length
			staged++
		}

		_, err = ring.Submit()
		if err != nil {
			log.Fatalf("error while submitting: %v", err)
		}

		// Completions arrive in kernel order; user data recovers the
		// position of each chunk in the batch. Later chunks were staged at
		// fixed offsets, so a short read cannot be patched up here.
		for done := 0; done < staged; done++ {
			ev, err := ring.GetCompletion()
			if err != nil {
				log.Fatalf("error while waiting for completion: %v", err)
			}
			if ev.Res < 0 {
				log.Fatalf("read failed: %v", syscall.Errno(-ev.Res))
			}
			if ev.Res != planned[ev.UserData] {
				log.Fatalf("short read: got %d bytes, expected %d", ev.Res, planned[ev.UserData])
			}
		}

		for i := 0; i < staged; i++ {
			_, err = os.Stdout.Write(chunks[i].Bytes()[:planned[i]])
			if err != nil {
				log.Fatalf("error while writing to stdout: %v", err)
			}
		}
	}
}
