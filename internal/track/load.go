package track

import (
	"fmt"
	"math"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

// earthRadiusMeters is the sphere radius used for the great-circle speed
// synthesis fallback, matching the original tool's constant.
const earthRadiusMeters = 6371000.0

// Load parses path with gpxgo, adapts it into the presence-flagged Point/
// Segment/Track model, merges consecutive duplicate points, and synthesizes
// missing per-point speed.
func Load(path string) (*Track, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	srcByIndex, err := scanSegmentSources(path)
	if err != nil {
		// Segment source is a non-standard extension; its absence is not a
		// parse failure, only a loss of the gps/network distinction.
		srcByIndex = nil
	}

	trk := &Track{Path: path}

	segIdx := 0
	for _, t := range g.Tracks {
		for _, s := range t.Segments {
			points := make([]Point, 0, len(s.Points))
			for _, p := range s.Points {
				points = append(points, convertPoint(p))
			}
			points = mergeDuplicates(points)
			synthesizeSpeeds(points)

			src := SrcUnknown
			if srcByIndex != nil && segIdx < len(srcByIndex) {
				src = srcByIndex[segIdx]
			}
			trk.Segments = append(trk.Segments, Segment{Src: src, Points: points})
			trk.PointsCnt += len(points)
			segIdx++
		}
	}

	for _, wp := range g.Waypoints {
		trk.Waypoints = append(trk.Waypoints, convertPoint(wp))
	}
	trk.PointsCnt += len(trk.Waypoints)

	if len(trk.Segments) > 0 && len(trk.Segments[0].Points) > 0 {
		first := trk.Segments[0].Points[0]
		if first.Flags.Has(FlagTime) {
			trk.Time = first.Time
		}
	}

	return trk, nil
}

func convertPoint(p gpx.GPXPoint) Point {
	var pt Point
	pt.Lat = p.Latitude
	pt.Lon = p.Longitude
	pt.Flags |= FlagLatLon

	if !p.Timestamp.IsZero() {
		pt.Time = p.Timestamp.UTC().Format(time.RFC3339)
		pt.Seconds = float64(p.Timestamp.UTC().UnixNano()) / 1e9
		pt.Flags |= FlagTime
	}

	if p.Elevation.NotNull() {
		pt.Ele = float32(p.Elevation.Value())
		pt.Flags |= FlagEle
	}

	if p.HorizontalDilution.NotNull() {
		pt.HDOP = float32(p.HorizontalDilution.Value())
		pt.Flags |= FlagHDOP
	}
	if p.VerticalDilution.NotNull() {
		pt.VDOP = float32(p.VerticalDilution.Value())
		pt.Flags |= FlagVDOP
	}
	if p.PositionalDilution.NotNull() {
		pt.PDOP = float32(p.PositionalDilution.Value())
		pt.Flags |= FlagPDOP
	}

	return pt
}

// mergeDuplicates drops a point that shares lat/lon/time with its
// predecessor.
func mergeDuplicates(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		prev := out[len(out)-1]
		if p.Lat == prev.Lat && p.Lon == prev.Lon && p.Time == prev.Time {
			continue
		}
		out = append(out, p)
	}
	return out
}

// synthesizeSpeeds fills in Point.Speed (m/s) for points lacking one:
// average the neighbors' speeds when both sides already carry one,
// otherwise fall back to great-circle distance over elapsed time (time
// delta clamped to >=1s to avoid dividing by (near) zero). A point that has
// neither two speed-carrying neighbors nor a timed predecessor (with its
// own time set) is left without a speed; this includes the first point.
func synthesizeSpeeds(points []Point) {
	for i := range points {
		if points[i].Flags.Has(FlagSpeed) {
			continue
		}
		prevOK := i > 0 && points[i-1].Flags.Has(FlagSpeed)
		nextOK := i < len(points)-1 && points[i+1].Flags.Has(FlagSpeed)
		switch {
		case prevOK && nextOK:
			points[i].Speed = (points[i-1].Speed + points[i+1].Speed) / 2
			points[i].Flags |= FlagSpeed
		case i > 0 && points[i-1].Flags.Has(FlagTime) && points[i].Flags.Has(FlagTime):
			dt := points[i].Seconds - points[i-1].Seconds
			if dt < 1 {
				dt = 1
			}
			dist := haversineMeters(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
			points[i].Speed = dist / dt
			points[i].Flags |= FlagSpeed
		}
	}
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	phi1, phi2 := toRad(lat1), toRad(lat2)
	cosTerm := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(toRad(lon2-lon1))
	// Spherical law of cosines; clamp for points that are (numerically)
	// identical, where rounding can push cosTerm slightly past 1.
	if cosTerm > 1 {
		cosTerm = 1
	} else if cosTerm < -1 {
		cosTerm = -1
	}
	return earthRadiusMeters * math.Acos(cosTerm)
}
