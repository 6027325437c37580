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

package uring

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Setup asks the kernel to create a ring pair sized for entries in-flight
// requests and fills params with the region offsets and negotiated
// capacities. A non-empty iovecs table is pre-registered for fixed-buffer
// operations. The errno of a failed call is returned unchanged.
func Setup(entries uint32, iovecs []syscall.Iovec, params *Params) (int, error) {
	var iov unsafe.Pointer
	if len(iovecs) > 0 {
		iov = unsafe.Pointer(&iovecs[0])
	}

	fd, _, errno := syscall.Syscall(
		unix.SYS_IO_URING_SETUP,
		uintptr(entries),
		uintptr(iov),
		uintptr(unsafe.Pointer(params)),
	)

	if errno > 0 {
		return 0, errno
	}

	return int(fd), nil
}

// Enter tells the kernel that toSubmit slots are newly published on the SQ
// and/or waits for at least minComplete completions when EnterGetEvents is
// set. It is the only call in the library that can block.
func Enter(fd int, toSubmit uint32, minComplete uint32, flags uint32) (uint, error) {
	res, _, errno := syscall.Syscall6(
		unix.SYS_IO_URING_ENTER,
		uintptr(fd),
		uintptr(toSubmit),
		uintptr(minComplete),
		uintptr(flags),
		0,
		0,
	)

	if errno > 0 {
		return 0, errno
	}

	return uint(res), nil
}

// Indirections over the raw syscalls. Protocol tests substitute an
// in-process peer for the kernel side of the rings.
var (
	setupSyscall  = Setup
	enterSyscall  = Enter
	mmapSyscall   = mmap
	munmapSyscall = munmap
)

func mmap(address uintptr, length uintptr, prot int, flags int, fd int, offset int64) (uintptr, error) {
	ptr, _, errno := syscall.Syscall6(
		syscall.SYS_MMAP,
		address,
		length,
		uintptr(prot),
		uintptr(flags),
		uintptr(fd),
		uintptr(offset),
	)

	if errno > 0 {
		return 0, errno
	}

	return ptr, nil
}

func munmap(address uintptr, length uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MUNMAP, address, length, 0)
	if errno > 0 {
		return errno
	}

	return nil
}
