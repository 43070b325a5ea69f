// Package track holds the GPS tracklog data model and the loader that
// turns a track file into it. The track-file XML grammar itself is
// handled by github.com/tkrajina/gpxgo, an external collaborator kept out
// of scope here; this package does only the presence-flagging,
// point-merging, and speed-synthesis work layered on top of the parser.
package track

// PointFlags records which optional fields a Point actually carries.
type PointFlags uint16

const (
	FlagLatLon PointFlags = 1 << iota
	FlagTime
	FlagEle
	FlagCourse
	FlagSpeed
	FlagHDOP
	FlagVDOP
	FlagPDOP
	FlagSat
)

func (f PointFlags) Has(bit PointFlags) bool { return f&bit != 0 }

// Known segment sources. Src is otherwise a free-form string.
const (
	SrcGPS     = "gps"
	SrcNetwork = "network"
	SrcUnknown = ""
)

// Point is a single GPS fix. Time is kept as a string (the fix's timestamp
// formatted as RFC3339 in UTC, <=23 bytes) rather than a time value, since nothing
// downstream needs more than ordering and delta-seconds — both of which
// Seconds (below) already provides.
type Point struct {
	Flags PointFlags

	Lat, Lon float64
	Time     string // RFC3339-ish, <=23 bytes
	Seconds  float64 // seconds since Unix epoch, valid iff Flags.Has(FlagTime)

	Speed float64 // m/s
	Ele   float32
	Geoid float32
	Course float32

	HDOP, VDOP, PDOP float32
	Sat              int32
}

// Segment is an ordered run of points sharing one source.
type Segment struct {
	Src    string
	Points []Point
}

// Track is one parsed file: its segments (with connecting lines) and its
// standalone waypoints (markers, no lines).
type Track struct {
	Path      string
	Time      string
	Segments  []Segment
	Waypoints []Point
	PointsCnt int
}
