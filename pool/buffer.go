package pool

import "sync"

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

// AcquireBuffer gets an empty byte buffer from the pool.
func AcquireBuffer() *[]byte {
	b := bufferPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// ReleaseBuffer returns a buffer to the pool. Oversized buffers are dropped.
func ReleaseBuffer(b *[]byte) {
	if b == nil {
		return
	}
	if cap(*b) <= 16384 {
		bufferPool.Put(b)
	}
}
