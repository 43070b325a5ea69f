package raster

import (
	"image"
	"image/color"
)

// setPixel writes c into img at (x,y), silently clipping out-of-bounds
// writes — a caller that has already clipped a segment to a tile may still
// land exactly on the tile edge, one pixel short of or past [0,256).
func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	img.SetRGBA(x, y, c)
}

// getPixel reads the pixel at (x,y), or the zero value (fully transparent)
// if out of bounds.
func getPixel(img *image.RGBA, x, y int) color.RGBA {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return color.RGBA{}
	}
	return img.RGBAAt(x, y)
}

// drawLine rasterizes a line segment with Bresenham's algorithm at the
// given pixel thickness (line thickness per zoom is configurable).
// Thickness > 1 is applied by offsetting parallel copies
// of the line along whichever axis is not dominant, which is the original
// tool's own approach to thick lines (true line-width rasterization is
// overkill for a 256px tile).
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	horizontalDominant := dx >= -dy
	x, y := x0, y0
	for {
		drawThickPoint(img, x, y, c, thickness, horizontalDominant)
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// drawThickPoint draws one pixel of a line, replicated perpendicular to the
// line's dominant axis to approximate the requested thickness.
func drawThickPoint(img *image.RGBA, x, y int, c color.RGBA, thickness int, horizontalDominant bool) {
	half := (thickness - 1) / 2
	for o := -half; o <= thickness-1-half; o++ {
		if horizontalDominant {
			setPixel(img, x, y+o, c)
		} else {
			setPixel(img, x+o, y, c)
		}
	}
}

// setSquare writes c into every pixel of a size×size block centered at
// (cx,cy), clipping out-of-bounds writes the same way setPixel does.
func setSquare(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := (size - 1) / 2
	for dy := -half; dy <= size-1-half; dy++ {
		for dx := -half; dx <= size-1-half; dx++ {
			setPixel(img, cx+dx, cy+dy, c)
		}
	}
}

// drawDisc fills a filled circle of the given diameter centered at (cx,cy),
// used for waypoint markers (the CIRCLE flag).
func drawDisc(img *image.RGBA, cx, cy, diameter int, c color.RGBA) {
	r := diameter / 2
	r2 := r * r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r2 {
				setPixel(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
