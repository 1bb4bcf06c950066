// Package pool provides reusable buffers for token payloads, encoded tiles and
// coordinate batches.
package pool

import (
	"io"
	"sync"
)

const (
	TokenBufferDefaultSize  = 1024 * 4        // 4KiB
	TokenBufferMaxThreshold = 1024 * 64       // 64KiB
	TileBufferDefaultSize   = 1024 * 64       // 64KiB
	TileBufferMaxThreshold  = 1024 * 1024 * 4 // 4MiB
)

// ByteBuffer is a growable byte slice.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer but keeps its memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Truncate shrinks the buffer to n bytes. It panics if n is out of range.
func (bb *ByteBuffer) Truncate(n int) {
	if n < 0 || n > len(bb.B) {
		panic("Truncate: invalid length")
	}
	bb.B = bb.B[:n]
}

// Write appends data to the buffer. It never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteString appends s to the buffer. It never fails.
func (bb *ByteBuffer) WriteString(s string) (int, error) {
	bb.B = append(bb.B, s...)
	return len(s), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a sync.Pool of ByteBuffers.
//
// Buffers that grew beyond maxThreshold are dropped on Put instead of being
// retained, so one huge feature does not pin its memory for the process lifetime.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize capacity.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	tokenPool = NewByteBufferPool(TokenBufferDefaultSize, TokenBufferMaxThreshold)
	tilePool  = NewByteBufferPool(TileBufferDefaultSize, TileBufferMaxThreshold)
)

// GetTokenBuffer returns a buffer for buffered token payloads.
func GetTokenBuffer() *ByteBuffer {
	return tokenPool.Get()
}

// PutTokenBuffer returns a token payload buffer to its pool.
func PutTokenBuffer(bb *ByteBuffer) {
	tokenPool.Put(bb)
}

// GetTileBuffer returns a buffer for encoded tiles and compressed documents.
func GetTileBuffer() *ByteBuffer {
	return tilePool.Get()
}

// PutTileBuffer returns a tile buffer to its pool.
func PutTileBuffer(bb *ByteBuffer) {
	tilePool.Put(bb)
}
