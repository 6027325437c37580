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
	"crypto/rand"
	"testing"

	"github.com/loopholelabs/polyglot"
	"github.com/stretchr/testify/require"
)

func TestBufferWriteAndResize(t *testing.T) {
	buf, err := New(8)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, buf.Close())
	})

	n, err := buf.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, 4, buf.Len())

	// Overflows the initial capacity and forces a remap.
	n, err = buf.Write([]byte{5, 6, 7, 8, 9, 10, 11, 12})
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, buf.Bytes())

	buf.Reset()
	require.Equal(t, 0, buf.Len())
}

func TestBufferIovec(t *testing.T) {
	buf, err := New(64)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, buf.Close())
	})

	iovec := buf.Iovec()
	require.Equal(t, uint64(buf.Cap()), iovec.Len)
	require.Equal(t, &buf.Bytes()[:buf.Cap()][0], iovec.Base)
}

func TestPoolResetsOnPut(t *testing.T) {
	p := NewPool(64)

	buf, err := p.Get()
	require.NoError(t, err)
	require.Equal(t, 64, buf.Cap())

	_, err = buf.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, buf.Len())

	p.Put(buf)

	recycled, err := p.Get()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, recycled.Close())
	})
	require.Equal(t, 0, recycled.Len())
	require.Equal(t, 64, recycled.Cap())
}

func BenchmarkBufferAllocationsNoResize(b *testing.B) {
	randomBytes := make([]byte, 512)
	_, err := rand.Read(randomBytes)
	if err != nil {
		b.Fatalf("failed to read random bytes: %v", err)
	}

	buf, err := New(512)
	if err != nil {
		b.Fatalf("failed to create buffer: %v", err)
	}

	b.Cleanup(func() {
		err = buf.Close()
		if err != nil {
			b.Fatalf("failed to close buffer: %v", err)
		}
	})

	var num int

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		num, err = buf.Write(randomBytes)
		if err != nil {
			b.Fatalf("failed to write bytes: %v", err)
		}
		if num != len(randomBytes) {
			b.Fatalf("number of bytes written is not correct: %d", num)
		}
		buf.Reset()
	}
}

func BenchmarkBufferAllocationsNoResizePool(b *testing.B) {
	randomBytes := make([]byte, 512)
	_, err := rand.Read(randomBytes)
	if err != nil {
		b.Fatalf("failed to read random bytes: %v", err)
	}

	var num int
	var buf *Buffer

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err = GetBuffer()
		if err != nil {
			b.Fatalf("failed to get buffer: %v", err)
		}
		num, err = buf.Write(randomBytes)
		if err != nil {
			b.Fatalf("failed to write bytes: %v", err)
		}
		if num != len(randomBytes) {
			b.Fatalf("number of bytes written is not correct: %d", num)
		}
		PutBuffer(buf)
	}
}

func BenchmarkPolyglotAllocationsNoResize(b *testing.B) {
	randomBytes := make([]byte, 512)
	_, err := rand.Read(randomBytes)
	if err != nil {
		b.Fatalf("failed to read random bytes: %v", err)
	}

	buf := polyglot.GetBuffer()
	b.Cleanup(func() {
		polyglot.PutBuffer(buf)
	})

	var num int

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		num = buf.Write(randomBytes)
		if num != len(randomBytes) {
			b.Fatalf("number of bytes written is not correct: %d", num)
		}
		buf.Reset()
	}
}
