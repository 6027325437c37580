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

import "unsafe"

// GetIOCB returns a vacant IOCB from the staging region for the caller to
// fill in place, or nil when staging already holds KRingEntries unsubmitted
// IOCBs. The slot stays exclusively owned by the caller until the Submit
// call that consumes it. GetIOCB may be called any number of times before a
// Submit; staging cursors are user-local, so no barriers are issued.
func (r *Ring) GetIOCB() *IOCB {
	sq := &r.SQ

	next := sq.IOCBTail + 1
	if next-sq.IOCBHead > *sq.KRingEntries {
		return nil
	}

	iocb := (*IOCB)(unsafe.Add(unsafe.Pointer(sq.IOCBs), uintptr(sq.IOCBTail&*sq.KRingMask)*iocbSize))
	sq.IOCBTail = next
	return iocb
}

// Submit publishes staged IOCBs into the kernel-visible slot array and
// kicks the kernel. If a previous batch is still pending in the kring
// (KHead != KTail), nothing is republished; the kernel is re-kicked for the
// backlog and the staged IOCBs are retried on a later Submit, preserving
// FIFO order between batches. Returns the result of the enter syscall.
func (r *Ring) Submit() (uint, error) {
	sq := &r.SQ
	mask := *sq.KRingMask

	ReadBarrier()
	if *sq.KHead != *sq.KTail {
		return enterSyscall(r.FD, *sq.KRingEntries, 0, uint32(EnterGetEvents))
	}

	if sq.IOCBHead == sq.IOCBTail {
		return 0, nil
	}

	// Publish staged IOCBs one slot at a time, stopping early if the
	// kring fills.
	submitted := uint32(0)
	ktail := *sq.KTail
	ktailNext := ktail
	for sq.IOCBHead != sq.IOCBTail {
		ktailNext++
		ReadBarrier()
		if ktailNext == *sq.KHead {
			break
		}

		*(*uint32)(unsafe.Add(unsafe.Pointer(sq.Array), uintptr(ktail&mask)*uint32Size)) = sq.IOCBHead & mask
		ktail = ktailNext

		sq.IOCBHead++
		submitted++
	}

	if submitted == 0 {
		return 0, nil
	}

	// The first fence orders the Array writes before the tail advance,
	// the second orders the tail advance before the syscall.
	if *sq.KTail != ktail {
		WriteBarrier()
		*sq.KTail = ktail
		WriteBarrier()
	}

	return enterSyscall(r.FD, submitted, 0, uint32(EnterGetEvents))
}

// GetCompletion returns one completion event, blocking on the kernel if
// none is available. The returned pointer references shared memory and is
// valid until the next GetCompletion call, which lets the kernel reuse the
// slot; callers must copy any fields they need before calling again. An
// enter error is surfaced immediately without moving the head.
func (r *Ring) GetCompletion() (*Event, error) {
	cq := &r.CQ
	mask := *cq.KRingMask

	var ev *Event
	head := *cq.KHead
	for {
		ReadBarrier()
		if head != *cq.KTail {
			ev = (*Event)(unsafe.Add(unsafe.Pointer(cq.Events), uintptr(head&mask)*eventSize))
			break
		}

		_, err := enterSyscall(r.FD, 0, 1, uint32(EnterGetEvents))
		if err != nil {
			return nil, err
		}
	}

	*cq.KHead = head + 1
	WriteBarrier()

	return ev, nil
}
