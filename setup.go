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

// MMap maps the three shared regions (SQ ring, IOCB array, CQ ring) and
// populates both ring handles by pointer arithmetic from the mapped bases
// at the offsets the kernel reported in params. On failure the regions
// mapped so far are unmapped in reverse order and the errno is returned
// unchanged. No shared memory is touched by the library before MMap
// succeeds.
func MMap(fd int, params *Params, sq *SubmissionQueue, cq *CompletionQueue) error {
	sq.RingSize = uint(uintptr(params.SQOffsets.Array) + uintptr(params.SQEntries)*uint32Size)

	ringPtr, err := mmapSyscall(0, uintptr(sq.RingSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(SQRingOffset))
	if err != nil {
		return err
	}
	sq.RingPointer = unsafe.Pointer(ringPtr)

	sq.KHead = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.Head)))
	sq.KTail = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.Tail)))
	sq.KRingMask = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.RingMask)))
	sq.KRingEntries = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.RingEntries)))
	sq.KFlags = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.Flags)))
	sq.KDropped = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.Dropped)))
	sq.Array = (*uint32)(unsafe.Pointer(uintptr(sq.RingPointer) + uintptr(params.SQOffsets.Array)))

	iocbPtr, err := mmapSyscall(0, uintptr(params.SQEntries)*iocbSize, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(IOCBOffset))
	if err != nil {
		_ = munmapSyscall(uintptr(sq.RingPointer), uintptr(sq.RingSize))
		return err
	}
	sq.IOCBs = (*IOCB)(unsafe.Pointer(iocbPtr))

	cq.RingSize = uint(uintptr(params.CQOffsets.Events) + uintptr(params.CQEntries)*eventSize)

	ringPtr, err = mmapSyscall(0, uintptr(cq.RingSize), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE, fd, int64(CQRingOffset))
	if err != nil {
		_ = munmapSyscall(iocbPtr, uintptr(params.SQEntries)*iocbSize)
		_ = munmapSyscall(uintptr(sq.RingPointer), uintptr(sq.RingSize))
		return err
	}
	cq.RingPointer = unsafe.Pointer(ringPtr)

	cq.KHead = (*uint32)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.Head)))
	cq.KTail = (*uint32)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.Tail)))
	cq.KRingMask = (*uint32)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.RingMask)))
	cq.KRingEntries = (*uint32)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.RingEntries)))
	cq.KOverflow = (*uint32)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.Overflow)))
	cq.Events = (*Event)(unsafe.Pointer(uintptr(cq.RingPointer) + uintptr(params.CQOffsets.Events)))

	return nil
}

// MUnmap unmaps the three shared regions: IOCB array first, then the SQ
// and CQ rings. The IOCB map size comes from the observed KRingEntries.
func MUnmap(sq *SubmissionQueue, cq *CompletionQueue) {
	if sq.IOCBs != nil {
		_ = munmapSyscall(uintptr(unsafe.Pointer(sq.IOCBs)), uintptr(*sq.KRingEntries)*iocbSize)
	}

	if sq.RingSize > 0 {
		_ = munmapSyscall(uintptr(sq.RingPointer), uintptr(sq.RingSize))
	}

	if cq.RingSize > 0 {
		_ = munmapSyscall(uintptr(cq.RingPointer), uintptr(cq.RingSize))
	}
}
