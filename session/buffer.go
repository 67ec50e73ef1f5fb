package session

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned when the buffer exceeds its maximum size
var ErrBufferFull = errors.New("utterance buffer full")

// UtteranceBuffer accumulates the synthesized PCM chunks of one utterance and
// caps how much audio a single utterance may hold in memory.
type UtteranceBuffer struct {
	chunks    [][]byte
	totalSize int
	maxSize   int
	mu        sync.Mutex
}

// NewUtteranceBuffer creates a buffer with the specified maximum size in bytes
func NewUtteranceBuffer(maxSize int) *UtteranceBuffer {
	return &UtteranceBuffer{
		chunks:  make([][]byte, 0),
		maxSize: maxSize,
	}
}

// MaxSize returns the maximum buffer size
func (ub *UtteranceBuffer) MaxSize() int {
	return ub.maxSize
}

// Append adds a synthesized chunk to the buffer
// Returns ErrBufferFull if adding the chunk would exceed maxSize
func (ub *UtteranceBuffer) Append(chunk []byte) error {
	ub.mu.Lock()
	defer ub.mu.Unlock()

	newSize := ub.totalSize + len(chunk)
	if newSize > ub.maxSize {
		return ErrBufferFull
	}

	ub.chunks = append(ub.chunks, chunk)
	ub.totalSize = newSize
	return nil
}

// Flush concatenates all chunks in order and clears the buffer
// Returns the complete utterance audio
func (ub *UtteranceBuffer) Flush() []byte {
	ub.mu.Lock()
	defer ub.mu.Unlock()

	if len(ub.chunks) == 0 {
		return nil
	}

	result := make([]byte, 0, ub.totalSize)
	for _, chunk := range ub.chunks {
		result = append(result, chunk...)
	}

	ub.chunks = make([][]byte, 0)
	ub.totalSize = 0

	return result
}

// Clear empties the buffer without returning data
func (ub *UtteranceBuffer) Clear() {
	ub.mu.Lock()
	defer ub.mu.Unlock()

	ub.chunks = make([][]byte, 0)
	ub.totalSize = 0
}

// Size returns the current total buffered bytes
func (ub *UtteranceBuffer) Size() int {
	ub.mu.Lock()
	defer ub.mu.Unlock()
	return ub.totalSize
}

// IsEmpty returns true if no chunks are buffered
func (ub *UtteranceBuffer) IsEmpty() bool {
	ub.mu.Lock()
	defer ub.mu.Unlock()
	return len(ub.chunks) == 0
}

// ChunkCount returns the number of chunks in the buffer
func (ub *UtteranceBuffer) ChunkCount() int {
	ub.mu.Lock()
	defer ub.mu.Unlock()
	return len(ub.chunks)
}
