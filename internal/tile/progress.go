package tile

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// NewZoomProgressBar renders a per-zoom progress line on stderr. The
// rendering loop is schollz/progressbar rather than the teacher's
// hand-rolled ticker; the "Zoom NN" labeling convention is kept from
// teacher's own progress.go.
func NewZoomProgressBar(z int, total int64) *progressbar.ProgressBar {
	return progressbar.Default(total, fmt.Sprintf("Zoom %2d", z))
}
