package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"gpx2tiles/internal/coord"
	"gpx2tiles/internal/persist"
	"gpx2tiles/internal/raster"
	"gpx2tiles/internal/track"
)

func mkTrack(points ...track.Point) *track.Track {
	return &track.Track{
		Segments:  []track.Segment{{Src: track.SrcGPS, Points: points}},
		PointsCnt: len(points),
	}
}

func mkPoint(lat, lon float64) track.Point {
	return track.Point{Flags: track.FlagLatLon, Lat: lat, Lon: lon}
}

func baseConfig(outDir string) Config {
	return Config{
		MinZoom:               10,
		MaxZoom:               10,
		OutDir:                outDir,
		Parallelism:           2,
		LineZoomThreshold:     0,
		WaypointZoomThreshold: 0,
		RasterOpts: raster.Options{
			LineThickness: func(int) int { return 1 },
		},
	}
}

func TestGenerate_EmptyInputProducesNoTiles(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)
	cfg.MinZoom, cfg.MaxZoom = 1, 1

	stats, err := Generate(cfg, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if stats.TilesWritten != 0 {
		t.Errorf("TilesWritten = %d, want 0", stats.TilesWritten)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no output directories, got %v", entries)
	}
}

func TestGenerate_ThreeAdjacentTilesAtZ10(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)

	trk := mkTrack(mkPoint(0.0, 0.01), mkPoint(0.0, 1.0))
	stats, err := Generate(cfg, []*track.Track{trk})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if stats.TilesWritten != 3 {
		t.Fatalf("TilesWritten = %d, want 3", stats.TilesWritten)
	}

	for _, x := range []int{512, 513, 514} {
		p := persist.Path(dir, 10, x, 512)
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected tile %s to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "10", "511")); !os.IsNotExist(err) {
		t.Errorf("tile column 511 should not have been produced")
	}
}

func TestGenerate_SingleTileLineAtZ18(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)
	cfg.MinZoom, cfg.MaxZoom = 18, 18

	trk := mkTrack(mkPoint(47.0, 8.0), mkPoint(47.0001, 8.0001))
	stats, err := Generate(cfg, []*track.Track{trk})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if stats.TilesWritten != 1 {
		t.Errorf("TilesWritten = %d, want 1 (both endpoints in the same tile)", stats.TilesWritten)
	}
}

// TestGenerate_SinglePointNearNWCorner checks that a lone point near the
// world's north-west corner lands in exactly the one tile that contains it,
// with no cross-tile spill.
func TestGenerate_SinglePointNearNWCorner(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)
	cfg.MinZoom, cfg.MaxZoom = 8, 8

	trk := mkTrack(mkPoint(85.0, -179.9))
	stats, err := Generate(cfg, []*track.Track{trk})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if stats.TilesWritten != 1 {
		t.Fatalf("TilesWritten = %d, want 1", stats.TilesWritten)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "8"))
	if err != nil {
		t.Fatalf("reading zoom dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one tile column, got %v", entries)
	}
	if entries[0].Name() != "0" {
		t.Errorf("expected column 0 (NW corner), got %q", entries[0].Name())
	}
}

// TestGenerate_HeatmapCoincidentPoints checks that ten coincident points in
// heatmap mode at z=16 (at and above the 3×3 block threshold) resolve to
// exactly one tile, write a solid 3×3 opaque block centered on the point,
// and do not spill beyond it.
func TestGenerate_HeatmapCoincidentPoints(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)
	cfg.MinZoom, cfg.MaxZoom = 16, 16
	cfg.RasterOpts.Heatmap = true

	const lat, lon = 47.0, 8.0
	pts := make([]track.Point, 10)
	for i := range pts {
		pts[i] = mkPoint(lat, lon)
	}
	trk := mkTrack(pts...)
	stats, err := Generate(cfg, []*track.Track{trk})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if stats.TilesWritten != 1 {
		t.Fatalf("TilesWritten = %d, want 1", stats.TilesWritten)
	}

	xy := coord.ToTileXY(lat, lon, 16)
	pix := coord.PixelPos(lat, lon, xy, 16)
	img, found, err := persist.Load(dir, 16, xy.X, xy.Y)
	if err != nil || !found {
		t.Fatalf("loading tile z16/%d/%d: found=%v err=%v", xy.X, xy.Y, found, err)
	}

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if img.RGBAAt(pix.X+dx, pix.Y+dy).A == 0 {
				t.Errorf("expected 3x3 block pixel (%+d,%+d) to be opaque", dx, dy)
			}
		}
	}
	if img.RGBAAt(pix.X+2, pix.Y).A != 0 {
		t.Error("expected heatmap write to stay within the 3x3 block, found spill at +2")
	}
}

// TestGenerate_ReinitRemovesWithoutRecreating checks that -I (reinit)
// removes an existing zoom's tile tree, and that running Generate with no
// tracks afterward does not recreate it.
func TestGenerate_ReinitRemovesWithoutRecreating(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig(dir)

	trk := mkTrack(mkPoint(47.0, 8.0), mkPoint(47.0001, 8.0001))
	if _, err := Generate(cfg, []*track.Track{trk}); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "10")); err != nil {
		t.Fatalf("expected zoom 10 tree to exist after first run: %v", err)
	}

	if err := persist.RemoveZoomTree(dir, 10); err != nil {
		t.Fatalf("RemoveZoomTree() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "10")); !os.IsNotExist(err) {
		t.Fatalf("expected zoom 10 tree removed, stat err = %v", err)
	}

	stats, err := Generate(cfg, nil)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if stats.TilesWritten != 0 {
		t.Errorf("TilesWritten = %d, want 0 (no tracks to draw)", stats.TilesWritten)
	}
	if _, err := os.Stat(filepath.Join(dir, "10")); !os.IsNotExist(err) {
		t.Error("zoom 10 tree should not have been recreated by an empty-track run")
	}
}

func TestInterleavedZooms(t *testing.T) {
	got := interleavedZooms(1, 6)
	want := []int{1, 6, 2, 5, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("interleavedZooms(1,6) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interleavedZooms(1,6)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestInterleavedZooms_SingleZoom(t *testing.T) {
	got := interleavedZooms(5, 5)
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("interleavedZooms(5,5) = %v, want [5]", got)
	}
}
