package terminal

import "sync"

// DefaultBufferSize is the retained output ceiling per session (100 KiB).
const DefaultBufferSize = 100 * 1024

// Buffer is a bounded byte store that keeps the most recent output.
// When an append would exceed capacity the oldest bytes are evicted first.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	capacity int
}

// NewBuffer creates an empty buffer holding at most capacity bytes.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Buffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Append adds p to the end of the buffer, trimming from the front as needed.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) >= b.capacity {
		b.data = append(b.data[:0], p[len(p)-b.capacity:]...)
		return
	}

	if excess := len(b.data) + len(p) - b.capacity; excess > 0 {
		n := copy(b.data, b.data[excess:])
		b.data = b.data[:n]
	}
	b.data = append(b.data, p...)
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// Snapshot returns a copy of the current contents.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Cap returns the capacity ceiling.
func (b *Buffer) Cap() int {
	return b.capacity
}
