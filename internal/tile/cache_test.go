package tile

import (
	"testing"

	"gpx2tiles/internal/coord"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(10, t.TempDir(), NewBufferPool(8), 0, false)
}

func TestCache_OpenCloseBalancesRefcnt(t *testing.T) {
	c := newTestCache(t)
	xy := coord.TileXY{X: 3, Y: 4}
	tl := c.GetOrCreate(xy)

	if tl.Refcnt != 0 {
		t.Fatalf("fresh tile refcnt = %d, want 0", tl.Refcnt)
	}
	c.Open(tl)
	if tl.Refcnt != 1 {
		t.Fatalf("after Open refcnt = %d, want 1", tl.Refcnt)
	}
	c.Close(tl)
	if tl.Refcnt != 0 {
		t.Fatalf("after Close refcnt = %d, want 0", tl.Refcnt)
	}
}

func TestCache_GetOrCreateReturnsSameTile(t *testing.T) {
	c := newTestCache(t)
	xy := coord.TileXY{X: 5, Y: 5}
	a := c.GetOrCreate(xy)
	b := c.GetOrCreate(xy)
	if a != b {
		t.Error("GetOrCreate for the same (x,y) should return the same *Tile")
	}
	if c.TileCnt() != 1 {
		t.Errorf("TileCnt() = %d, want 1", c.TileCnt())
	}
}

func TestCache_FreeZoomResetsTileCnt(t *testing.T) {
	c := newTestCache(t)
	for i := 0; i < 5; i++ {
		c.GetOrCreate(coord.TileXY{X: i, Y: i})
	}
	if c.TileCnt() != 5 {
		t.Fatalf("TileCnt() = %d, want 5", c.TileCnt())
	}
	c.FreeZoom()
	if c.TileCnt() != 0 {
		t.Errorf("after FreeZoom, TileCnt() = %d, want 0", c.TileCnt())
	}
}

func TestCache_EvictionPreservesPointCnt(t *testing.T) {
	c := newTestCache(t)
	c.maxResident = 1

	a := c.GetOrCreate(coord.TileXY{X: 0, Y: 0})
	c.Open(a)
	a.PointCnt = 42
	c.Close(a) // refcnt 0, still within budget (1 resident <= max 1)

	b := c.GetOrCreate(coord.TileXY{X: 1, Y: 0})
	c.Open(b) // pushes resident count to 2, over budget; evicts `a`
	c.Close(b)

	if a.Img != nil {
		t.Error("tile a should have been evicted (Img flushed to nil)")
	}
	if a.PointCnt != 42 {
		t.Errorf("evicted tile PointCnt = %d, want 42 (metadata preserved)", a.PointCnt)
	}
}

func TestCache_HashBucketing(t *testing.T) {
	if got := hash(0, 0); got != 0 {
		t.Errorf("hash(0,0) = %d, want 0", got)
	}
	if got, want := hash(1, 0), 1; got != want {
		t.Errorf("hash(1,0) = %d, want %d", got, want)
	}
	if got, want := hash(0, 1), 8; got != want {
		t.Errorf("hash(0,1) = %d, want %d", got, want)
	}
}
