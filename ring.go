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
)

var (
	emptyIOCB  IOCB
	emptyEvent Event

	iocbSize   = unsafe.Sizeof(emptyIOCB)
	eventSize  = unsafe.Sizeof(emptyEvent)
	uint32Size = unsafe.Sizeof(uint32(0))
)

// Ring is one SQ/CQ pair. A Ring is single-threaded: the protocol is
// single-producer on the SQ and single-consumer on the CQ, with the kernel
// as the opposite party on each.
type Ring struct {
	SQ SubmissionQueue
	CQ CompletionQueue
	FD int
}

func NewRing() (*Ring, error) {
	return new(Ring), nil
}

// QueueInit creates the kernel facility and maps the shared regions,
// pre-registering iovecs when non-empty.
func (r *Ring) QueueInit(entries uint32, iovecs []syscall.Iovec) error {
	params := new(Params)
	return r.QueueInitParams(entries, params, iovecs)
}

// QueueInitParams is QueueInit with a caller-supplied Params, left holding
// the negotiated capacities and offsets afterwards. On a setup failure the
// handles are untouched and the errno is returned unchanged. On a map
// failure the fd stays open in r.FD so the caller can close it.
func (r *Ring) QueueInitParams(entries uint32, params *Params, iovecs []syscall.Iovec) error {
	fd, err := setupSyscall(entries, iovecs, params)
	if err != nil {
		return err
	}

	r.SQ = SubmissionQueue{}
	r.CQ = CompletionQueue{}
	r.FD = fd

	return MMap(fd, params, &r.SQ, &r.CQ)
}

// Close unmaps the shared regions and closes the fd. The Ring must not be
// used afterwards.
func (r *Ring) Close() error {
	MUnmap(&r.SQ, &r.CQ)
	return syscall.Close(r.FD)
}
