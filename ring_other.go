//go:build !linux

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

import "syscall"

type Ring struct{}

func NewRing() (*Ring, error) {
	return nil, ErrNotAvailable
}

func (r *Ring) QueueInit(uint32, []syscall.Iovec) error {
	return ErrNotAvailable
}

func (r *Ring) QueueInitParams(uint32, *Params, []syscall.Iovec) error {
	return ErrNotAvailable
}

func (r *Ring) GetIOCB() *IOCB {
	return nil
}

func (r *Ring) Submit() (uint, error) {
	return 0, ErrNotAvailable
}

func (r *Ring) GetCompletion() (*Event, error) {
	return nil, ErrNotAvailable
}

func (r *Ring) Close() error {
	return ErrNotAvailable
}

func Setup(uint32, []syscall.Iovec, *Params) (int, error) {
	return 0, ErrNotAvailable
}

func Enter(int, uint32, uint32, uint32) (uint, error) {
	return 0, ErrNotAvailable
}

func MMap(int, *Params, *SubmissionQueue, *CompletionQueue) error {
	return ErrNotAvailable
}

func MUnmap(*SubmissionQueue, *CompletionQueue) {}

func IsAvailable() bool {
	return false
}
