// Package raster implements the per-point rasterizer walk and the
// cross-tile line algorithm.
package raster

import (
	"image/color"

	"gpx2tiles/internal/coord"
	"gpx2tiles/internal/tile"
	"gpx2tiles/internal/track"
)

// defaultNoLinesSpeedKPH is the hardcoded no_lines_speed threshold: below
// this speed, no line is drawn to the previous point even when lines are
// otherwise enabled for the zoom.
const defaultNoLinesSpeedKPH = 1.0

// heatmapBlockZoom is the zoom level at and above which a heatmap point
// widens from a single pixel to a 3×3 block, keeping dense tracks visible
// once tile-relative pixels start covering less ground.
const heatmapBlockZoom = 15

// Flags mirror the per-call flag set a draw operation can carry.
type Flags uint8

const (
	NoLines Flags = 1 << iota
	BadSrc
	Circle
)

// Options configures a Walker from the CLI surface.
type Options struct {
	Heatmap          bool
	LineThickness    func(z int) int
	WaypointDiameter int
	FixedColor       *color.RGBA
	FixedSpeedKPH    *float64
	DiagMask         uint8
	Verbose          bool

	// ForceNoLines disables line drawing for every segment regardless of
	// per-point speed, for zoom levels below -L.
	ForceNoLines bool
}

// Walker draws one zoom level's worth of segments/waypoints into a shared
// tile.Cache.
type Walker struct {
	cache *tile.Cache
	z     int
	opts  Options
}

// NewWalker builds a Walker for zoom z against cache.
func NewWalker(cache *tile.Cache, z int, opts Options) *Walker {
	return &Walker{cache: cache, z: z, opts: opts}
}

// DrawSegment rasterizes seg, honoring NoLines per the caller's zoom-level
// policy (below -L) and BadSrc for "network" sources.
func (w *Walker) DrawSegment(seg track.Segment) {
	flags := Flags(0)
	if seg.Src == track.SrcNetwork {
		flags |= BadSrc
	}
	if w.opts.ForceNoLines {
		flags |= NoLines
	}

	var have bool
	var prev track.Point

	for _, pt := range seg.Points {
		if !pt.Flags.Has(track.FlagLatLon) {
			continue
		}
		if !have {
			prev = pt
			have = true
		}
		w.step(prev, pt, flags)
		prev = pt
	}
}

// DrawWaypoints rasterizes standalone waypoint markers (-P). Each waypoint
// is drawn independently: no connecting line.
func (w *Walker) DrawWaypoints(points []track.Point) {
	for _, pt := range points {
		if !pt.Flags.Has(track.FlagLatLon) {
			continue
		}
		w.step(pt, pt, Circle|NoLines)
	}
}

// step implements one iteration of the per-point walk: pt is the current
// point, prev is the previous point in the segment (or pt itself for the
// first point / a standalone waypoint).
func (w *Walker) step(prev, pt track.Point, flags Flags) {
	curXY := coord.ToTileXY(pt.Lat, pt.Lon, w.z)
	curTile := w.cache.GetOrCreate(curXY)
	w.cache.Open(curTile)
	curTile.PointCnt++
	curPix := coord.PixelPos(pt.Lat, pt.Lon, curXY, w.z)

	prevXY := coord.ToTileXY(prev.Lat, prev.Lon, w.z)
	prevTile := w.cache.GetOrCreate(prevXY)
	w.cache.Open(prevTile)
	prevPix := coord.PixelPos(prev.Lat, prev.Lon, prevXY, w.z)

	c := w.pixelColor(curTile, curPix, pt, flags)

	switch {
	case flags&Circle != 0 && w.opts.WaypointDiameter > 0:
		w.drawSpilledDisc(curXY, curPix, w.opts.WaypointDiameter, c)
	case w.opts.Heatmap && w.z >= heatmapBlockZoom:
		setSquare(curTile.Img, curPix.X, curPix.Y, 3, c)
	default:
		setPixel(curTile.Img, curPix.X, curPix.Y, c)
	}

	w.drawDiagnostics(curTile, curPix, pt, c)

	if flags&NoLines == 0 && segmentSpeedKPH(prev, pt, flags) >= defaultNoLinesSpeedKPH {
		w.drawCrossTileLine(prevXY, curXY, prevPix, curPix, c)
	}

	w.cache.Close(prevTile)
	w.cache.Close(curTile)
}

// segmentSpeedKPH is the speed used for the no_lines_speed gate: the
// current point's own (already-synthesized) speed, in km/h.
func segmentSpeedKPH(prev, pt track.Point, flags Flags) float64 {
	if flags&BadSrc != 0 {
		return defaultNoLinesSpeedKPH // bad-source segments are never gated out
	}
	if !pt.Flags.Has(track.FlagSpeed) {
		return defaultNoLinesSpeedKPH
	}
	return pt.Speed * 3.6
}

func (w *Walker) pixelColor(t *tile.Tile, pix coord.PixelXY, pt track.Point, flags Flags) color.RGBA {
	if w.opts.Heatmap {
		existing := getPixel(t.Img, pix.X, pix.Y)
		return IntensifyHeatmap(existing)
	}
	return SpeedColor(pt.Speed, flags&BadSrc != 0, w.opts.FixedColor, w.opts.FixedSpeedKPH)
}

// drawDiagnostics applies the DOP/shadow ellipse and once-per-tile speed
// label, gated by w.opts.DiagMask.
func (w *Walker) drawDiagnostics(t *tile.Tile, pix coord.PixelXY, pt track.Point, c color.RGBA) {
	if w.opts.DiagMask == 0 {
		return
	}
	drawDopEllipse(t.Img, pix.X, pix.Y, w.z, pt.PDOP, pt.Flags.Has(track.FlagPDOP), w.opts.DiagMask, c)

	if w.opts.DiagMask&DiagSpeedLabel != 0 && !t.HasSpeedAnnot {
		t.HasSpeedAnnot = true
		drawSpeedLabel(t.Img, pix.X, pix.Y, pt.Speed*3.6, c)
	}
}

// drawSpilledDisc draws a waypoint circle, spilling into any neighbor
// tiles the disc's bounding box overlaps.
func (w *Walker) drawSpilledDisc(centerXY coord.TileXY, centerPix coord.PixelXY, diameter int, c color.RGBA) {
	r := diameter / 2
	minX, maxX := centerPix.X-r, centerPix.X+r
	minY, maxY := centerPix.Y-r, centerPix.Y+r

	tileMinX := floorDiv(minX, coord.TileSize)
	tileMaxX := floorDiv(maxX, coord.TileSize)
	tileMinY := floorDiv(minY, coord.TileSize)
	tileMaxY := floorDiv(maxY, coord.TileSize)

	for ty := tileMinY; ty <= tileMaxY; ty++ {
		for tx := tileMinX; tx <= tileMaxX; tx++ {
			xy := coord.TileXY{X: centerXY.X + tx, Y: centerXY.Y + ty}
			t := w.cache.GetOrCreate(xy)
			w.cache.Open(t)
			localCx := centerPix.X - tx*coord.TileSize
			localCy := centerPix.Y - ty*coord.TileSize
			drawDisc(t.Img, localCx, localCy, diameter, c)
			w.cache.Close(t)
		}
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// drawCrossTileLine enumerates every tile in the bounding rectangle of the
// two endpoint tiles, and for each one whose boundary the segment crosses
// (or that is an endpoint tile), draws the segment clipped to that tile's
// 256×256 box.
func (w *Walker) drawCrossTileLine(prevXY, curXY coord.TileXY, prevPix, curPix coord.PixelXY, c color.RGBA) {
	minX, maxX := minInt(prevXY.X, curXY.X), maxInt(prevXY.X, curXY.X)
	minY, maxY := minInt(prevXY.Y, curXY.Y), maxInt(prevXY.Y, curXY.Y)
	thickness := 1
	if w.opts.LineThickness != nil {
		thickness = w.opts.LineThickness(w.z)
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			xy := coord.TileXY{X: x, Y: y}

			a := Pt{
				X: prevPix.X + (prevXY.X-x)*coord.TileSize,
				Y: prevPix.Y + (prevXY.Y-y)*coord.TileSize,
			}
			b := Pt{
				X: curPix.X + (curXY.X-x)*coord.TileSize,
				Y: curPix.Y + (curXY.Y-y)*coord.TileSize,
			}

			isEndpoint := xy == prevXY || xy == curXY
			if !isEndpoint && !segmentCrossesTile(a, b) {
				continue
			}

			t := w.cache.GetOrCreate(xy)
			w.cache.Open(t)
			drawLine(t.Img, a.X, a.Y, b.X, b.Y, c, thickness)
			if w.opts.DiagMask&DiagTileCrossings != 0 && !isEndpoint {
				highlight := c
				highlight.A = 255
				drawDisc(t.Img, (a.X+b.X)/2, (a.Y+b.Y)/2, 3, highlight)
			}
			w.cache.Close(t)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
