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

// SQRingOffsets is filled in by the setup syscall with the byte offsets of
// every submission ring field inside the SQ region.
type SQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Flags       uint32
	Dropped     uint32
	Array       uint32
	ResV1       uint32
	ResV2       uint64
}

// CQRingOffsets is filled in by the setup syscall with the byte offsets of
// every completion ring field inside the CQ region.
type CQRingOffsets struct {
	Head        uint32
	Tail        uint32
	RingMask    uint32
	RingEntries uint32
	Overflow    uint32
	Events      uint32
	ResV1       uint32
	ResV2       uint64
}

// Params is passed to the setup syscall and comes back with the negotiated
// ring capacities and the offsets of every field inside the two shared
// regions.
type Params struct {
	SQEntries    uint32
	CQEntries    uint32
	Flags        uint32
	SQThreadCPU  uint32
	SQThreadIdle uint32
	ResV         [5]uint32
	SQOffsets    SQRingOffsets
	CQOffsets    CQRingOffsets
}

// IOCB is a fixed-size I/O control block describing one asynchronous
// operation. The kernel reads it out of the shared IOCB array; the payload
// is passed through unchanged.
type IOCB struct {
	OpCode      uint8
	Flags       uint8
	IOPriority  uint16
	FD          int32
	Offset      uint64
	Address     uint64
	Length      uint32
	RWFlags     uint32
	UserData    uint64
	BufferIndex uint16
	_Pad        [3]uint16
	_Pad2       [2]uint64
}

// Event is one completion record: the user data of the originating IOCB
// plus its result code.
type Event struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// SubmissionQueue points into the shared SQ region. The K-prefixed fields
// live in kernel-shared memory and are only touched under the barrier
// discipline in queue.go. IOCBHead and IOCBTail are user-local free-running
// cursors over the staging region; their difference is the number of IOCBs
// filled but not yet published into Array.
type SubmissionQueue struct {
	KHead        *uint32
	KTail        *uint32
	KRingMask    *uint32
	KRingEntries *uint32
	KFlags       *uint32
	KDropped     *uint32
	Array        *uint32
	IOCBs        *IOCB

	IOCBHead uint32
	IOCBTail uint32

	RingSize    uint
	RingPointer unsafe.Pointer
}

// CompletionQueue points into the shared CQ region.
type CompletionQueue struct {
	KHead        *uint32
	KTail        *uint32
	KRingMask    *uint32
	KRingEntries *uint32
	KOverflow    *uint32
	Events       *Event

	RingSize    uint
	RingPointer unsafe.Pointer
}

// OpCode selects the operation an IOCB describes.
type OpCode uint8

const (
	OpCodeNOP OpCode = iota
	OpCodeReadV
	OpCodeWriteV
	OpCodeFsync
	OpCodeReadFixed
	OpCodeWriteFixed
	OpCodePollAdd
	OpCodePollRemove
)

// EnterFlags holds the flag bits of the enter syscall.
type EnterFlags uint32

const (
	EnterGetEvents EnterFlags = 1 << iota
)

// FsyncDatasync downgrades an OpCodeFsync to fdatasync semantics.
const FsyncDatasync uint32 = 1 << 0
