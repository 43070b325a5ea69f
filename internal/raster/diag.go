package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Diagnostic overlay bits (the -d mask).
const (
	DiagShadows       = 1 << 0
	DiagTileCrossings = 1 << 1
	DiagSpeedLabel    = 1 << 2
)

var (
	labelFontOnce sync.Once
	labelFont     font.Face
)

func loadLabelFont() font.Face {
	labelFontOnce.Do(func() {
		tt, err := truetype.Parse(goregular.TTF)
		if err != nil {
			// gofont/goregular is a compiled-in constant; a parse failure here
			// would mean a corrupt build of the standard library font data.
			panic(err)
		}
		labelFont = truetype.NewFace(tt, &truetype.Options{Size: 10})
	})
	return labelFont
}

// drawDopEllipse draws the DOP-sized diagnostic ellipse at z>=17 when
// pdop>1.8, or otherwise a fixed "shadow" ellipse when the DiagShadows bit
// is set in diag, using gg for the
// secondary annotation layer (the hard per-pixel line/dot work stays
// hand-rolled in draw.go; see DESIGN.md).
func drawDopEllipse(img *image.RGBA, cx, cy int, z int, pdop float32, hasPdop bool, diag uint8, c color.RGBA) {
	dc := gg.NewContextForRGBA(img)
	dc.SetColor(c)
	dc.SetLineWidth(1)

	if z >= 17 && hasPdop && pdop > 1.8 {
		r := float64(pdop) * 2
		dc.DrawEllipse(float64(cx), float64(cy), r, r)
		dc.Stroke()
		return
	}

	if diag&DiagShadows != 0 {
		shadow := c
		shadow.A = 96
		dc.SetColor(shadow)
		dc.DrawEllipse(float64(cx), float64(cy), 3, 3)
		dc.Stroke()
	}
}

// drawSpeedLabel pins a speed label (km/h) to a tile once, at the first
// point drawn on it.
func drawSpeedLabel(img *image.RGBA, x, y int, kph float64, c color.RGBA) {
	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(loadLabelFont())
	dc.SetColor(c)
	dc.DrawStringAnchored(fmt.Sprintf("%.1f km/h", kph), float64(x), float64(y), 0, 0)
}
