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

// PrepareRW resets the IOCB and fills in the fields shared by every
// read/write style operation. Staged IOCB slots recycle, so every field is
// written.
func (i *IOCB) PrepareRW(opCode OpCode, fd int, addressPointer uintptr, length uint32, offset uint64) {
	i.OpCode = uint8(opCode)
	i.Flags = 0
	i.IOPriority = 0
	i.FD = int32(fd)
	i.Offset = offset
	i.Address = uint64(addressPointer)
	i.Length = length
	i.RWFlags = 0
	i.UserData = 0
	i.BufferIndex = 0
	i._Pad = [3]uint16{}
	i._Pad2 = [2]uint64{}
}

func (i *IOCB) PrepareReadV(fd int, iovecsPointer uintptr, nrVecs uint32, offset uint64) {
	i.PrepareRW(OpCodeReadV, fd, iovecsPointer, nrVecs, offset)
}

func (i *IOCB) PrepareWriteV(fd int, iovecsPointer uintptr, nrVecs uint32, offset uint64) {
	i.PrepareRW(OpCodeWriteV, fd, iovecsPointer, nrVecs, offset)
}

// PrepareReadFixed reads into a buffer pre-registered with Setup;
// bufferIndex selects the iovec table entry.
func (i *IOCB) PrepareReadFixed(fd int, addressPointer uintptr, length uint32, offset uint64, bufferIndex uint16) {
	i.PrepareRW(OpCodeReadFixed, fd, addressPointer, length, offset)
	i.BufferIndex = bufferIndex
}

// PrepareWriteFixed writes from a buffer pre-registered with Setup.
func (i *IOCB) PrepareWriteFixed(fd int, addressPointer uintptr, length uint32, offset uint64, bufferIndex uint16) {
	i.PrepareRW(OpCodeWriteFixed, fd, addressPointer, length, offset)
	i.BufferIndex = bufferIndex
}

func (i *IOCB) PrepareFsync(fd int, fsyncFlags uint32) {
	i.PrepareRW(OpCodeFsync, fd, 0, 0, 0)
	i.RWFlags = fsyncFlags
}

func (i *IOCB) PrepareNOP() {
	i.PrepareRW(OpCodeNOP, -1, 0, 0, 0)
}
