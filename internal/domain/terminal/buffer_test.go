package terminal

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferAppendWithinCapacity(t *testing.T) {
	b := NewBuffer(16)

	b.Append([]byte("hello "))
	b.Append([]byte("world"))

	assert.Equal(t, "hello world", string(b.Snapshot()))
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, 16, b.Cap())
}

func TestBufferFrontTrim(t *testing.T) {
	b := NewBuffer(8)

	b.Append([]byte("abcdef"))
	b.Append([]byte("ghij"))

	assert.Equal(t, "cdefghij", string(b.Snapshot()))
	assert.Equal(t, 8, b.Len())
}

func TestBufferOversizedAppend(t *testing.T) {
	b := NewBuffer(4)
	b.Append([]byte("xy"))

	b.Append([]byte("0123456789"))

	assert.Equal(t, "6789", string(b.Snapshot()))
}

func TestBufferKeepsMostRecentSuffix(t *testing.T) {
	b := NewBuffer(DefaultBufferSize)

	var all bytes.Buffer
	chunk := make([]byte, 4096)
	for i := 0; i < 40; i++ {
		for j := range chunk {
			chunk[j] = byte(i*31 + j)
		}
		b.Append(chunk)
		all.Write(chunk)

		assert.LessOrEqual(t, b.Len(), DefaultBufferSize)
	}

	want := all.Bytes()[all.Len()-DefaultBufferSize:]
	assert.True(t, bytes.Equal(want, b.Snapshot()), "retained bytes should be the most recent 100 KiB")
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	b := NewBuffer(8)
	b.Append([]byte("abc"))

	snap := b.Snapshot()
	snap[0] = 'z'

	assert.Equal(t, "abc", string(b.Snapshot()))
}

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer(0)

	assert.Equal(t, DefaultBufferSize, b.Cap())
	assert.NotNil(t, b.Snapshot())
	assert.Empty(t, b.Snapshot())

	b.Append(nil)
	assert.Equal(t, 0, b.Len())
}

func TestBufferConcurrentReaders(t *testing.T) {
	b := NewBuffer(1024)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_, _ = b.Write([]byte("0123456789"))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.LessOrEqual(t, len(b.Snapshot()), 1024)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1024, b.Len())
}
