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
	"testing"

	"github.com/stretchr/testify/require"
)

type enterCall struct {
	toSubmit    uint32
	minComplete uint32
	flags       uint32
}

// fakeKernel owns the kernel side of a heap-backed ring pair and stands in
// for the enter syscall. Newly published slots are snapshotted on every
// kick, the way the kernel reads IOCBs when it accepts them. With holdSQ
// set the head advance and the completions are withheld until a waiting
// enter arrives, which is how a slow kernel looks to the submission engine.
type fakeKernel struct {
	sqHead, sqTail, sqMask, sqEntries, sqFlags, sqDropped uint32
	cqHead, cqTail, cqMask, cqEntries, cqOverflow         uint32

	array  []uint32
	iocbs  []IOCB
	events []Event

	holdSQ   bool
	enterErr error

	seen    uint32
	pending []Event
	enters  []enterCall
}

func newFakeRing(t *testing.T, entries uint32) (*Ring, *fakeKernel) {
	t.Helper()

	k := &fakeKernel{
		sqMask:    entries - 1,
		sqEntries: entries,
		cqMask:    entries - 1,
		cqEntries: entries,
		array:     make([]uint32, entries),
		iocbs:     make([]IOCB, entries),
		events:    make([]Event, entries),
	}

	r := &Ring{FD: -1}
	r.SQ = SubmissionQueue{
		KHead:        &k.sqHead,
		KTail:        &k.sqTail,
		KRingMask:    &k.sqMask,
		KRingEntries: &k.sqEntries,
		KFlags:       &k.sqFlags,
		KDropped:     &k.sqDropped,
		Array:        &k.array[0],
		IOCBs:        &k.iocbs[0],
	}
	r.CQ = CompletionQueue{
		KHead:        &k.cqHead,
		KTail:        &k.cqTail,
		KRingMask:    &k.cqMask,
		KRingEntries: &k.cqEntries,
		KOverflow:    &k.cqOverflow,
		Events:       &k.events[0],
	}

	prev := enterSyscall
	enterSyscall = k.enter
	t.Cleanup(func() {
		enterSyscall = prev
	})

	return r, k
}

func (k *fakeKernel) post(ev Event) {
	if k.cqTail-k.cqHead == k.cqEntries {
		k.cqOverflow++
		return
	}
	k.events[k.cqTail&k.cqMask] = ev
	k.cqTail++
}

func (k *fakeKernel) enter(fd int, toSubmit uint32, minComplete uint32, flags uint32) (uint, error) {
	k.enters = append(k.enters, enterCall{toSubmit, minComplete, flags})

	if k.enterErr != nil {
		return 0, k.enterErr
	}

	backlog := k.sqTail - k.sqHead
	accepted := uint(toSubmit)
	if uint32(accepted) > backlog {
		accepted = uint(backlog)
	}

	for k.seen != k.sqTail {
		idx := k.array[k.seen&k.sqMask]
		iocb := k.iocbs[idx]
		k.pending = append(k.pending, Event{UserData: iocb.UserData, Res: int32(iocb.Length)})
		k.seen++
	}

	if !k.holdSQ || minComplete > 0 {
		for _, ev := range k.pending {
			k.post(ev)
		}
		k.pending = nil
		k.sqHead = k.seen
	}

	return accepted, nil
}

func TestGetIOCBSaturation(t *testing.T) {
	r, _ := newFakeRing(t, 4)

	seen := make(map[*IOCB]bool)
	for i := 0; i < 4; i++ {
		iocb := r.GetIOCB()
		require.NotNil(t, iocb)
		require.False(t, seen[iocb])
		seen[iocb] = true
	}

	tail := r.SQ.IOCBTail
	require.Nil(t, r.GetIOCB())
	require.Equal(t, tail, r.SQ.IOCBTail)
	require.Equal(t, uint32(4), r.SQ.IOCBTail-r.SQ.IOCBHead)
}

func TestSubmitEmpty(t *testing.T) {
	r, k := newFakeRing(t, 4)

	n, err := r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(0), n)
	require.Empty(t, k.enters)
}

func TestSubmitPublishesInOrder(t *testing.T) {
	r, k := newFakeRing(t, 4)

	for i := 0; i < 4; i++ {
		iocb := r.GetIOCB()
		require.NotNil(t, iocb)
		iocb.PrepareNOP()
		iocb.UserData = uint64(i + 1)
	}
	require.Nil(t, r.GetIOCB())

	n, err := r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(4), n)

	require.Len(t, k.enters, 1)
	require.Equal(t, enterCall{4, 0, uint32(EnterGetEvents)}, k.enters[0])
	require.Equal(t, []uint32{0, 1, 2, 3}, k.array)
	require.Equal(t, uint32(4), k.sqTail)
	require.Equal(t, uint32(0), r.SQ.IOCBTail-r.SQ.IOCBHead)

	for i := 0; i < 4; i++ {
		ev, err := r.GetCompletion()
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), ev.UserData)
	}
	require.Equal(t, uint32(4), k.cqHead)
}

func TestRoundTripUserData(t *testing.T) {
	r, _ := newFakeRing(t, 8)

	for _, u := range []uint64{10, 20, 30} {
		iocb := r.GetIOCB()
		require.NotNil(t, iocb)
		iocb.PrepareNOP()
		iocb.UserData = u
	}

	n, err := r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(3), n)

	seen := make(map[uint64]int)
	for i := 0; i < 3; i++ {
		ev, err := r.GetCompletion()
		require.NoError(t, err)
		seen[ev.UserData]++
	}
	require.Equal(t, map[uint64]int{10: 1, 20: 1, 30: 1}, seen)
}

func TestSubmitBacklogReKick(t *testing.T) {
	r, k := newFakeRing(t, 2)
	k.holdSQ = true

	for i := 0; i < 2; i++ {
		iocb := r.GetIOCB()
		require.NotNil(t, iocb)
		iocb.PrepareNOP()
		iocb.UserData = uint64(i + 1)
	}

	n, err := r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(2), n)
	require.Equal(t, uint32(2), k.sqTail)

	iocb := r.GetIOCB()
	require.NotNil(t, iocb)
	iocb.PrepareNOP()
	iocb.UserData = 3

	// The backlog is still unconsumed, so this Submit must re-kick with
	// the ring capacity sentinel and republish nothing.
	n, err = r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(2), n)

	require.Len(t, k.enters, 2)
	require.Equal(t, enterCall{2, 0, uint32(EnterGetEvents)}, k.enters[1])
	require.Equal(t, uint32(2), k.sqTail)
	require.Equal(t, uint32(1), r.SQ.IOCBTail-r.SQ.IOCBHead)
}

func TestSubmitAfterBacklogDrains(t *testing.T) {
	r, k := newFakeRing(t, 1)
	k.holdSQ = true

	iocb := r.GetIOCB()
	require.NotNil(t, iocb)
	iocb.PrepareNOP()
	iocb.UserData = 1

	n, err := r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(1), n)

	iocb = r.GetIOCB()
	require.NotNil(t, iocb)
	iocb.PrepareNOP()
	iocb.UserData = 2

	n, err = r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(1), n)
	require.Equal(t, uint32(1), k.sqTail)

	// The waiting enter lets the fake kernel drain the backlog and post
	// the first completion.
	ev, err := r.GetCompletion()
	require.NoError(t, err)
	require.Equal(t, uint64(1), ev.UserData)

	n, err = r.Submit()
	require.NoError(t, err)
	require.Equal(t, uint(1), n)
	require.Equal(t, uint32(2), k.sqTail)
	require.Equal(t, uint32(0), r.SQ.IOCBTail-r.SQ.IOCBHead)

	ev, err = r.GetCompletion()
	require.NoError(t, err)
	require.Equal(t, uint64(2), ev.UserData)
}

func TestGetCompletionWaits(t *testing.T) {
	r, k := newFakeRing(t, 4)
	k.holdSQ = true

	iocb := r.GetIOCB()
	require.NotNil(t, iocb)
	iocb.PrepareNOP()
	iocb.UserData = 7

	_, err := r.Submit()
	require.NoError(t, err)

	ev, err := r.GetCompletion()
	require.NoError(t, err)
	require.Equal(t, uint64(7), ev.UserData)

	// The second enter is the waiting one.
	require.Len(t, k.enters, 2)
	require.Equal(t, enterCall{0, 1, uint32(EnterGetEvents)}, k.enters[1])
}

func TestGetCompletionError(t *testing.T) {
	r, k := newFakeRing(t, 4)
	k.enterErr = syscall.EINTR

	ev, err := r.GetCompletion()
	require.Nil(t, ev)
	require.Equal(t, syscall.EINTR, err)
	require.Equal(t, uint32(0), k.cqHead)
}

func TestStagingRecycles(t *testing.T) {
	r, _ := newFakeRing(t, 4)

	var next uint64
	for round := 0; round < 3; round++ {
		for i := 0; i < 4; i++ {
			iocb := r.GetIOCB()
			require.NotNil(t, iocb)
			iocb.PrepareNOP()
			next++
			iocb.UserData = next
		}
		require.Nil(t, r.GetIOCB())
		require.LessOrEqual(t, r.SQ.IOCBTail-r.SQ.IOCBHead, uint32(4))

		n, err := r.Submit()
		require.NoError(t, err)
		require.Equal(t, uint(4), n)

		for i := 0; i < 4; i++ {
			ev, err := r.GetCompletion()
			require.NoError(t, err)
			require.Equal(t, next-3+uint64(i), ev.UserData)
		}
	}

	require.Equal(t, uint32(12), r.SQ.IOCBHead)
	require.Equal(t, uint32(12), r.SQ.IOCBTail)
}

func BenchmarkGetIOCBSubmit(b *testing.B) {
	k := &fakeKernel{
		sqMask:    63,
		sqEntries: 64,
		cqMask:    63,
		cqEntries: 64,
		array:     make([]uint32, 64),
		iocbs:     make([]IOCB, 64),
		events:    make([]Event, 64),
	}

	r := &Ring{FD: -1}
	r.SQ = SubmissionQueue{
		KHead:        &k.sqHead,
		KTail:        &k.sqTail,
		KRingMask:    &k.sqMask,
		KRingEntries: &k.sqEntries,
		KFlags:       &k.sqFlags,
		KDropped:     &k.sqDropped,
		Array:        &k.array[0],
		IOCBs:        &k.iocbs[0],
	}
	r.CQ = CompletionQueue{
		KHead:        &k.cqHead,
		KTail:        &k.cqTail,
		KRingMask:    &k.cqMask,
		KRingEntries: &k.cqEntries,
		KOverflow:    &k.cqOverflow,
		Events:       &k.events[0],
	}

	prev := enterSyscall
	enterSyscall = func(int, uint32, uint32, uint32) (uint, error) {
		k.sqHead = k.sqTail
		k.cqHead = k.cqTail
		return 0, nil
	}
	b.Cleanup(func() {
		enterSyscall = prev
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		iocb := r.GetIOCB()
		if iocb == nil {
			b.Fatal("staging full")
		}
		iocb.PrepareNOP()
		if _, err := r.Submit(); err != nil {
			b.Fatal(err)
		}
	}
}
