// Package pool provides reusable chunk buffers for streaming request bodies.
package pool

import (
	"sync"
)

// ChunkSize is the size of one body chunk written to the connection.
const ChunkSize = 1024

// BufferPool hands out fixed-size buffers backed by a sync.Pool.
type BufferPool struct {
	size int
	pool *sync.Pool
}

// NewBufferPool creates a pool of buffers of the given size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the length of the buffers handed out by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a buffer of length Size.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:bp.size]
}

// Put returns a buffer to the pool.
// Buffers of a foreign capacity are dropped.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:bp.size]
	bp.pool.Put(&buf)
}

// Global chunk pool instance for use throughout the module.
var chunkPool = NewBufferPool(ChunkSize)

// GetChunk returns a ChunkSize buffer from the global pool.
func GetChunk() []byte {
	return chunkPool.Get()
}

// PutChunk returns a chunk buffer to the global pool.
func PutChunk(buf []byte) {
	chunkPool.Put(buf)
}
