package tile

import (
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BufferPool is the process-wide free list of reusable 256×256 RGBA tile
// buffers, protected by a mutex for pop/push only. It sits in front of
// rgbapool's raw allocator: a hit here is free; a miss falls back to a
// fresh allocation via GetRGBA.
//
// Backed by golang-lru rather than a plain slice so the free list itself
// is bounded — an unbounded backlog of flushed tile buffers from a large
// run would otherwise defeat the point of a bounded resident-image budget.
// Eviction order doesn't matter for a pure pool of same-sized buffers, so
// the LRU discipline is incidental, not load-bearing.
type BufferPool struct {
	mu  sync.Mutex
	lru *lru.Cache[int, *image.RGBA]
	seq int
}

// NewBufferPool creates a free list capped at capacity buffers, shared
// across every zoom level's Cache in a run.
func NewBufferPool(capacity int) *BufferPool {
	c, err := lru.New[int, *image.RGBA](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0.
		c, _ = lru.New[int, *image.RGBA](1)
	}
	return &BufferPool{lru: c}
}

// get pops a buffer from the pool, cleared to fully transparent, or nil if
// the pool is empty.
func (p *BufferPool) get() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, buf, ok := p.lru.RemoveOldest()
	if !ok {
		return nil
	}
	clear(buf.Pix)
	return buf
}

// put returns a buffer to the pool for later reuse.
func (p *BufferPool) put(buf *image.RGBA) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.lru.Add(p.seq, buf)
}
