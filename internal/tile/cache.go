// Package tile implements the per-zoom tile cache: tile metadata, the
// resident-image buffer free list, and PNG flush/load. The zoom-level
// worker pipeline built on top of it lives in internal/pipeline.
package tile

import (
	"fmt"
	"image"
	"log"
	"sync"

	"gpx2tiles/internal/coord"
	"gpx2tiles/internal/persist"
)

// bucketCount is fixed: the cache has 256 buckets and is never resized.
const bucketCount = 256

// NWCorner is the lat/lon of a tile's north-west corner.
type NWCorner struct {
	Lat, Lon float64
}

// Tile is one resident or evicted tile. Close does not release Img: a tile
// with Refcnt==0 and a resident Img is eligible for eviction, which flushes
// it and sets Img to nil; the tile stays in the cache as metadata until the
// zoom level is freed.
type Tile struct {
	XY            coord.TileXY
	Loc           NWCorner
	PointCnt      int32
	Refcnt        int32
	HasSpeedAnnot bool
	Img           *image.RGBA

	next *Tile // bucket chain link
}

// Cache is one zoom level's tile store: each zoom level uses its own cache
// instance. The image-buffer free list, by contrast, is shared across
// every Cache in the run — see BufferPool.
type Cache struct {
	Z      int
	OutDir string

	mu               sync.Mutex
	buckets          [bucketCount]*Tile
	tileCnt          int
	residentImageCnt int
	maxResident      int // 0 = unbounded

	pool    *BufferPool
	verbose bool
}

// NewCache creates the tile store for zoom level z. pool is the
// process-wide global free list of reusable tile image buffers;
// maxResident is the resident-image budget (0 = unbounded).
func NewCache(z int, outDir string, pool *BufferPool, maxResident int, verbose bool) *Cache {
	return &Cache{
		Z:           z,
		OutDir:      outDir,
		pool:        pool,
		maxResident: maxResident,
		verbose:     verbose,
	}
}

// hash computes the bucket index: hash(x,y) = ((y<<3)|(x&7)) mod 256.
func hash(x, y int) int {
	return ((y << 3) | (x & 7)) % bucketCount
}

// GetOrCreate returns the tile metadata for xy, allocating it on first
// mention. The caller is responsible for only requesting zoom levels
// within the configured [zmin,zmax] range — this Cache instance is itself
// already scoped to one zoom, so there is no separate range check here.
// Tile indices are not range-checked either.
func (c *Cache) GetOrCreate(xy coord.TileXY) *Tile {
	b := hash(xy.X, xy.Y)

	c.mu.Lock()
	defer c.mu.Unlock()

	for t := c.buckets[b]; t != nil; t = t.next {
		if t.XY == xy {
			return t
		}
	}

	rect := coord.TileRect(xy, c.Z)
	t := &Tile{
		XY:   xy,
		Loc:  NWCorner{Lat: rect.N, Lon: rect.W},
		next: c.buckets[b],
	}
	c.buckets[b] = t
	c.tileCnt++
	return t
}

// Open makes t.Img resident: loading the existing on-disk PNG if present,
// else allocating a fresh transparent 256×256 RGBA image, drawn from the
// shared buffer pool when one is available.
func (c *Cache) Open(t *Tile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t.Refcnt++
	if t.Img != nil {
		return nil
	}

	img, found, err := persist.Load(c.OutDir, c.Z, t.XY.X, t.XY.Y)
	if err != nil {
		if c.verbose {
			log.Printf("tile z%d/%d/%d: reading existing PNG failed, starting fresh: %v", c.Z, t.XY.X, t.XY.Y, err)
		}
		found = false
	}
	if found {
		t.Img = img
	} else if buf := c.pool.get(); buf != nil {
		t.Img = buf
	} else {
		t.Img = GetRGBA()
	}

	c.residentImageCnt++
	c.evictLocked()
	return nil
}

// Close releases one reference on t. refcnt going negative is an
// invariant breach — a bug in the rasterizer's open/close pairing — and
// aborts the process rather than being silently tolerated.
func (c *Cache) Close(t *Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t.Refcnt--
	if t.Refcnt < 0 {
		log.Fatalf("tile cache invariant breach: refcnt went negative for z%d/%d/%d", c.Z, t.XY.X, t.XY.Y)
	}
	c.evictLocked()
}

// Flush writes t.Img to PNG and frees the buffer back to the pool. The work
// is done by flushLocked, which evictLocked (budget pressure) and FlushAll
// (end-of-run save) call with c.mu already held; Flush takes the lock
// itself for a direct call.
func (c *Cache) Flush(t *Tile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(t)
}

func (c *Cache) flushLocked(t *Tile) error {
	if t.Img == nil {
		return nil
	}
	if err := persist.Save(c.OutDir, c.Z, t.XY.X, t.XY.Y, t.Img); err != nil {
		log.Printf("tile z%d/%d/%d: write failed, tile lost for this run: %v", c.Z, t.XY.X, t.XY.Y, err)
	}
	c.pool.put(t.Img)
	t.Img = nil
	c.residentImageCnt--
	return nil
}

// evictLocked honors the resident-image budget: while over budget, flush
// the first closed (img!=nil, refcnt==0) tile a bucket scan finds. Soft
// budget: if nothing is evictable, log and continue.
func (c *Cache) evictLocked() {
	if c.maxResident <= 0 || c.residentImageCnt <= c.maxResident {
		return
	}
	for c.residentImageCnt > c.maxResident {
		victim := c.findEvictionCandidateLocked()
		if victim == nil {
			if c.verbose {
				log.Printf("zoom %d: resident image budget exceeded (%d > %d) with no evictable tile",
					c.Z, c.residentImageCnt, c.maxResident)
			}
			return
		}
		c.flushLocked(victim)
	}
}

func (c *Cache) findEvictionCandidateLocked() *Tile {
	for _, head := range c.buckets {
		for t := head; t != nil; t = t.next {
			if t.Img != nil && t.Refcnt == 0 {
				return t
			}
		}
	}
	return nil
}

// FreeZoom returns this zoom level's tiles to garbage collection: the
// tile *metadata* free list is a C-idiom this rewrite doesn't need (Go's
// GC reclaims abandoned Tile structs on its own); only the
// expensive-to-allocate image buffers flow through the real free list,
// and by the time FreeZoom runs every tile has already been flushed
// (state machine: populated -> flushed -> freed), so there is nothing left
// to push to the pool here.
func (c *Cache) FreeZoom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.buckets {
		c.buckets[i] = nil
	}
	c.tileCnt = 0
	c.residentImageCnt = 0
}

// TileCnt returns the number of tiles known to this zoom level (including
// closed ones still held as metadata).
func (c *Cache) TileCnt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tileCnt
}

// ResidentImageCnt returns the number of tiles with a resident Img.
func (c *Cache) ResidentImageCnt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.residentImageCnt
}

// FlushAll walks every tile still holding a resident image and flushes it;
// used by save_zoom_level once a zoom level finishes drawing.
func (c *Cache) FlushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, head := range c.buckets {
		for t := head; t != nil; t = t.next {
			if t.Img != nil {
				if err := c.flushLocked(t); err != nil {
					return fmt.Errorf("flushing z%d/%d/%d: %w", c.Z, t.XY.X, t.XY.Y, err)
				}
			}
		}
	}
	return nil
}
