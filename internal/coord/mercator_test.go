package coord

import (
	"math"
	"testing"
)

func TestToTileXY(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zoom     int
		wantX    int
		wantY    int
	}{
		{"origin z1", 0, 0, 1, 1, 1},
		{"origin z0", 0, 0, 0, 0, 0},
		{"london z10", 51.5074, -0.1278, 10, 511, 340},
		{"zurich z10", 47.3769, 8.5417, 10, 536, 358},
		{"nyc z10", 40.7128, -74.0060, 10, 301, 385},
		{"tokyo z10", 35.6895, 139.6917, 10, 909, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xy := ToTileXY(tt.lat, tt.lon, tt.zoom)
			if xy.X != tt.wantX || xy.Y != tt.wantY {
				t.Errorf("ToTileXY(%.4f, %.4f, %d) = (%d, %d), want (%d, %d)",
					tt.lat, tt.lon, tt.zoom, xy.X, xy.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

// TestProjectionRoundTrip checks that ToTileXY(TileYToLat(y,z),
// TileXToLon(x,z), z) == (x, y) — a tile's own NW corner belongs to it.
func TestProjectionRoundTrip(t *testing.T) {
	for z := 0; z <= 19; z++ {
		n := 1 << uint(z)
		// Sampling every tile at high zooms is wasteful; step through a
		// spread of x/y instead of the full 2^z × 2^z grid.
		step := n/8 + 1
		for x := 0; x < n; x += step {
			for y := 0; y < n; y += step {
				lat := TileYToLat(y, z)
				lon := TileXToLon(x, z)
				got := ToTileXY(lat, lon, z)
				if got.X != x || got.Y != y {
					t.Errorf("z=%d (x=%d,y=%d): NW corner (%.8f,%.8f) -> ToTileXY = (%d,%d)",
						z, x, y, lat, lon, got.X, got.Y)
				}
			}
		}
	}
}

// TestPixelBounds checks that for any in-range (lat,lon), the chosen tile's
// pixel position lands within [0,256).
func TestPixelBounds(t *testing.T) {
	points := [][2]float64{
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{40.7128, -74.0060},
		{0, 0},
		{85.0, 179.999},
		{-85.0, -179.999},
	}
	for z := 0; z <= 19; z++ {
		for _, pt := range points {
			lat, lon := pt[0], pt[1]
			xy := ToTileXY(lat, lon, z)
			px := PixelPos(lat, lon, xy, z)
			if px.X < 0 || px.X >= TileSize || px.Y < 0 || px.Y >= TileSize {
				t.Errorf("z=%d (%.4f,%.4f): pixel (%d,%d) out of [0,256)", z, lat, lon, px.X, px.Y)
			}
		}
	}
}

func TestTileRect_AdjacentTilesShare(t *testing.T) {
	r0 := TileRect(TileXY{X: 0, Y: 0}, 2)
	r1 := TileRect(TileXY{X: 1, Y: 0}, 2)
	if math.Abs(r0.E-r1.W) > 1e-10 {
		t.Errorf("adjacent tile edge mismatch: E(0)=%v, W(1)=%v", r0.E, r1.W)
	}

	rTop := TileRect(TileXY{X: 0, Y: 0}, 2)
	rBot := TileRect(TileXY{X: 0, Y: 1}, 2)
	if math.Abs(rTop.S-rBot.N) > 1e-10 {
		t.Errorf("adjacent tile edge mismatch: S(row0)=%v, N(row1)=%v", rTop.S, rBot.N)
	}
}

func TestTileRect_WorldCoversZoom0(t *testing.T) {
	r := TileRect(TileXY{X: 0, Y: 0}, 0)
	if math.Abs(r.W-(-180)) > 1e-9 || math.Abs(r.E-180) > 1e-9 {
		t.Errorf("z0 tile lon bounds = [%v, %v], want [-180, 180]", r.W, r.E)
	}
	if r.N < 85.0 || r.N > 85.1 {
		t.Errorf("z0 tile N = %v, want ~85.05", r.N)
	}
	if r.S > -85.0 || r.S < -85.1 {
		t.Errorf("z0 tile S = %v, want ~-85.05", r.S)
	}
}
