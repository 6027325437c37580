//go:build linux

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

package buffer

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"github.com/loopholelabs/uring/pkg/linked"
	"golang.org/x/sys/unix"
)

// The anonymous reservation takes no fd.
const (
	emptyFD = -1
)

var (
	pageSize = int64(os.Getpagesize())
)

// Buffer is a growable byte buffer whose memory is allocated outside of the
// Go heap via mmap, so its address stays stable for the lifetime of any
// IOCB that references it.
type Buffer []byte

func New(size int64) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("size cannot be negative")
	}

	bufferAddress, err := allocateBuffer(size)
	if err != nil {
		return nil, fmt.Errorf("error while allocating buffer: %w", err)
	}

	buffer := (Buffer)(unsafe.Slice((*byte)(unsafe.Pointer(bufferAddress)), size))[:0]
	return &buffer, nil
}

func (buf *Buffer) Write(b []byte) (int, error) {
	if cap(*buf)-len(*buf) < len(b) {
		newSize := int64(cap(*buf) + len(b))
		bufferAddress, err := allocateBuffer(newSize)
		if err != nil {
			return 0, fmt.Errorf("error while allocating resized buffer: %w", err)
		}
		buffer := (Buffer)(unsafe.Slice((*byte)(unsafe.Pointer(bufferAddress)), newSize))[:len(*buf)]
		copy(buffer, *buf)

		err = linked.MUnmap(uintptr(unsafe.Pointer(&(*buf)[:cap(*buf)][0])), uintptr(cap(*buf)))
		if err != nil {
			return 0, fmt.Errorf("error while unmapping existing buffer: %w", err)
		}

		*buf = append(buffer, b...)
	} else {
		*buf = (*buf)[:len(*buf)+copy((*buf)[len(*buf):cap(*buf)], b)]
	}
	return len(b), nil
}

func (buf *Buffer) Reset() {
	*buf = (*buf)[:0]
}

func (buf *Buffer) Bytes() []byte {
	return *buf
}

func (buf *Buffer) Len() int {
	return len(*buf)
}

func (buf *Buffer) Cap() int {
	return cap(*buf)
}

// Iovec describes the buffer's full capacity for a vectored IOCB. The
// buffer must stay open until the matching completion is consumed.
func (buf *Buffer) Iovec() syscall.Iovec {
	return syscall.Iovec{
		Base: &(*buf)[:cap(*buf)][0],
		Len:  uint64(cap(*buf)),
	}
}

func (buf *Buffer) Close() error {
	return linked.MUnmap(uintptr(unsafe.Pointer(&(*buf)[:cap(*buf)][0])), uintptr(cap(*buf)))
}

// allocateBuffer reserves an address range, backs it with a memfd and maps
// the memfd over the reservation, keeping the memory shared and page
// aligned.
func allocateBuffer(size int64) (uintptr, error) {
	sizePointer := uintptr(size)
	bufferAddress, err := linked.MMap(0, sizePointer, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_ANONYMOUS, emptyFD, 0)
	if err != nil {
		return 0, fmt.Errorf("error while mmaping buffer memory space: %w", err)
	}

	fd, err := unix.MemfdCreate("buffer", 0)
	if err != nil {
		return 0, fmt.Errorf("error while creating memfd: %w", err)
	}

	err = unix.Ftruncate(fd, size)
	if err != nil {
		return 0, fmt.Errorf("error while truncating memfd: %w", err)
	}

	_, err = linked.MMap(bufferAddress, sizePointer, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_FIXED, fd, 0)
	if err != nil {
		return 0, fmt.Errorf("error while mmaping buffer: %w", err)
	}

	err = syscall.Close(fd)
	if err != nil {
		return 0, fmt.Errorf("error while closing memfd: %w", err)
	}

	return bufferAddress, nil
}
