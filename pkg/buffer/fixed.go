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
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/loopholelabs/uring/pkg/linked"
)

var (
	ErrTooLarge = errors.New("invalid data size")
)

// Fixed is a Buffer with a constant page-aligned size that is never
// reallocated, which makes it safe to hand to the setup syscall as a
// pre-registered iovec target for fixed read/write IOCBs.
type Fixed []byte

func NewFixed(size int64) (*Fixed, error) {
	if size < 0 {
		return nil, fmt.Errorf("size cannot be negative")
	}

	size = (size + pageSize - 1) &^ (pageSize - 1)

	bufferAddress, err := allocateBuffer(size)
	if err != nil {
		return nil, fmt.Errorf("error while allocating buffer: %w", err)
	}

	buffer := (Fixed)(unsafe.Slice((*byte)(unsafe.Pointer(bufferAddress)), size))[:0]
	return &buffer, nil
}

func (buf *Fixed) Write(b []byte) (int, error) {
	if cap(*buf)-len(*buf) < len(b) {
		return 0, ErrTooLarge
	}
	*buf = (*buf)[:len(*buf)+copy((*buf)[len(*buf):cap(*buf)], b)]
	return len(b), nil
}

func (buf *Fixed) Reset() {
	*buf = (*buf)[:0]
}

func (buf *Fixed) Bytes() []byte {
	return *buf
}

func (buf *Fixed) Len() int {
	return len(*buf)
}

func (buf *Fixed) Cap() int {
	return cap(*buf)
}

// Iovec describes the buffer's full capacity, the shape the setup syscall
// expects for registration.
func (buf *Fixed) Iovec() syscall.Iovec {
	return syscall.Iovec{
		Base: &((*buf)[:cap(*buf)])[0],
		Len:  uint64(cap(*buf)),
	}
}

func (buf *Fixed) Close() error {
	return linked.MUnmap(uintptr(unsafe.Pointer(&((*buf)[:cap(*buf)])[0])), uintptr(cap(*buf)))
}

// Iovecs builds the registration table for a set of fixed buffers. The
// position of each buffer is the BufferIndex its fixed IOCBs must carry.
func Iovecs(bufs []*Fixed) []syscall.Iovec {
	iovecs := make([]syscall.Iovec, 0, len(bufs))
	for _, buf := range bufs {
		iovecs = append(iovecs, buf.Iovec())
	}
	return iovecs
}
