package bson

import "sync"

// scratchPool reuses byte slices for staging element bytes before they are
// spliced into a builder's buffer, and for whole-document encoding in
// Marshal. This keeps appends atomic without paying an allocation per call.
var scratchPool = sync.Pool{
	New: func() any {
		// 256 bytes covers typical elements without growing.
		b := make([]byte, 0, 256)
		return &b
	},
}

func getScratch() *[]byte {
	b := scratchPool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

func putScratch(b *[]byte) {
	// Oversized one-off buffers are dropped rather than pinned in the pool.
	if cap(*b) <= 1<<16 {
		scratchPool.Put(b)
	}
}
