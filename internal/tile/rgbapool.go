package tile

import (
	"image"
	"sync"

	"gpx2tiles/internal/coord"
)

// rawPool is the raw allocator sitting beneath BufferPool's free list.
// Unlike the teacher's multi-resolution GeoTIFF tile store, this pool has
// exactly one buffer shape to manage: every tile is 256×256.
var rawPool = sync.Pool{
	New: func() any {
		return image.NewRGBA(image.Rect(0, 0, coord.TileSize, coord.TileSize))
	},
}

// GetRGBA returns a zeroed, fully transparent 256×256 *image.RGBA, reusing
// a pooled allocation when one is available.
func GetRGBA() *image.RGBA {
	img := rawPool.Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// PutRGBA returns a buffer to the raw pool. Nil images are ignored.
func PutRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	rawPool.Put(img)
}
