package track

import (
	"encoding/xml"
	"os"
)

// gpxSrcDoc picks out each <trkseg>'s non-standard <extensions><src> tag
// (used by several trip-logger apps to mark a segment "gps" vs "network"
// fix, or any other app-specific label) without pulling gpxgo's generic
// Extensions plumbing into this package — gpxgo parses the element
// grammar; this is a second, narrow pass over the same bytes for the one
// extension this model cares about.
type gpxSrcDoc struct {
	Tracks []struct {
		Segments []struct {
			Extensions struct {
				Src string `xml:"src"`
			} `xml:"extensions"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

// scanSegmentSources returns one Src string per <trkseg> in file order,
// across all <trk> elements. A segment with no <extensions><src> gets
// SrcUnknown (the empty string); any other value is kept verbatim, since
// Segment.Src is a free-form label and only "network" carries rendering
// significance (BadSrc).
func scanSegmentSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc gpxSrcDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []string
	for _, t := range doc.Tracks {
		for _, s := range t.Segments {
			out = append(out, s.Extensions.Src)
		}
	}
	return out, nil
}
