package term

import "sync"

// Buffer is the append-only output buffer of a PTY session. The reader
// goroutine appends as bytes arrive; UI consumers poll incrementally with
// a from-index. Appends are atomic with respect to readers, so a reader
// never observes a torn write.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds output bytes to the end of the buffer.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
}

// ReadFrom returns a copy of the buffer contents starting at from, together
// with the index to pass on the next call. A from beyond the current length
// (or negative) is clamped.
func (b *Buffer) ReadFrom(from int) ([]byte, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if from > len(b.data) {
		from = len(b.data)
	}
	out := make([]byte, len(b.data)-from)
	copy(out, b.data[from:])
	return out, len(b.data)
}

// Len returns the number of bytes buffered so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
