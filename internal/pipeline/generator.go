// Package pipeline implements the zoom-worker pipeline: for each zoom
// level in [zmin,zmax], make_tiles (draw every track's segments and
// waypoints), save_zoom_level (flush), free_zoom_level (reset), spread
// across P worker goroutines. It sits above internal/tile (the cache) and
// internal/raster (the per-point walk) rather than inside either, since
// both are lower-level collaborators this package wires together.
package pipeline

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"gpx2tiles/internal/raster"
	"gpx2tiles/internal/tile"
	"gpx2tiles/internal/track"
)

// bufferPoolCapacity bounds the process-wide image-buffer free list.
// Sized generously enough that a typical run's working set of
// recently-flushed tiles gets reused rather than reallocated, without
// pinning an unbounded amount of memory behind the free list itself.
const bufferPoolCapacity = 4096

// Config holds the zoom-worker pipeline configuration.
type Config struct {
	MinZoom, MaxZoom      int
	OutDir                string
	Parallelism           int // P: also caps zoom workers (-j)
	LineZoomThreshold     int // -L: zoom below which no lines are drawn
	WaypointZoomThreshold int // -P: zoom below which waypoints are not drawn
	MaxResidentImages     int // -T: 0 = unbounded
	Verbose               bool
	RasterOpts            raster.Options // template; ForceNoLines is set per zoom
}

// Stats summarizes one Generate call for the final elapsed-time summary.
type Stats struct {
	ZoomsProcessed int64
	TilesWritten   int64
}

// interleavedZooms orders [zmin,zmax] as zmin, zmax, zmin+1, zmax-1, ...
// so that P workers draining this order from a shared queue each get a
// mix of cheap (small z) and expensive (large z) levels.
func interleavedZooms(zmin, zmax int) []int {
	var out []int
	lo, hi := zmin, zmax
	for lo <= hi {
		out = append(out, lo)
		if hi != lo {
			out = append(out, hi)
		}
		lo++
		hi--
	}
	return out
}

// Generate runs make_tiles -> save_zoom_level -> free_zoom_level for every
// zoom in [cfg.MinZoom, cfg.MaxZoom], spread across cfg.Parallelism worker
// goroutines.
func Generate(cfg Config, tracks []*track.Track) (Stats, error) {
	if cfg.MaxZoom < cfg.MinZoom {
		cfg.MaxZoom = cfg.MinZoom
	}
	p := cfg.Parallelism
	if p < 1 {
		p = 1
	}

	pool := tile.NewBufferPool(bufferPoolCapacity)
	zooms := interleavedZooms(cfg.MinZoom, cfg.MaxZoom)

	jobs := make(chan int, len(zooms))
	for _, z := range zooms {
		jobs <- z
	}
	close(jobs)

	var wg sync.WaitGroup
	var zoomsDone, tilesWritten atomic.Int64
	errCh := make(chan error, p)

	for w := 0; w < p; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range jobs {
				n, err := makeZoomLevel(cfg, z, tracks, pool)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("zoom %d: %w", z, err):
					default:
					}
					continue
				}
				tilesWritten.Add(int64(n))
				zoomsDone.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		return Stats{}, err
	}

	return Stats{
		ZoomsProcessed: zoomsDone.Load(),
		TilesWritten:   tilesWritten.Load(),
	}, nil
}

// makeZoomLevel implements one zoom level's state-machine transition
// empty -> populated -> flushed -> freed: draw every track's segments and
// waypoints into a fresh Cache, flush all touched tiles to disk, then free
// the zoom's metadata.
func makeZoomLevel(cfg Config, z int, tracks []*track.Track, pool *tile.BufferPool) (int, error) {
	cache := tile.NewCache(z, cfg.OutDir, pool, cfg.MaxResidentImages, cfg.Verbose)

	opts := cfg.RasterOpts
	opts.ForceNoLines = opts.ForceNoLines || z < cfg.LineZoomThreshold

	walker := raster.NewWalker(cache, z, opts)
	drawWaypoints := z >= cfg.WaypointZoomThreshold

	total := int64(0)
	for _, trk := range tracks {
		total += int64(trk.PointsCnt)
	}
	bar := tile.NewZoomProgressBar(z, total)

	for _, trk := range tracks {
		for _, seg := range trk.Segments {
			walker.DrawSegment(seg)
			bar.Add(len(seg.Points))
		}
		if drawWaypoints {
			walker.DrawWaypoints(trk.Waypoints)
			bar.Add(len(trk.Waypoints))
		}
	}
	bar.Close()

	tileCnt := cache.TileCnt()
	if err := cache.FlushAll(); err != nil {
		return 0, err
	}
	cache.FreeZoom()

	if cfg.Verbose {
		log.Printf("zoom %d: %d tiles flushed", z, tileCnt)
	}
	return tileCnt, nil
}
