package raster

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// SpeedThresholdsKPH is the speed-bucket boundary table.
var SpeedThresholdsKPH = [8]float64{0, 10, 20, 25, 40, 50, 55, 60}

// speedBucketColors is the ascending-speed color ramp: one color per
// SpeedThresholdsKPH entry, slow (stopped, gray) through fast (red). Exact
// RGB values are a deliberate choice, noted in DESIGN.md, following the
// common "cool = slow, hot = fast" convention; only the bucket boundaries
// and monotonic ordering are load-bearing.
var speedBucketColors = [8]color.RGBA{
	{128, 128, 128, 255}, // 0 kph: stationary
	{0, 0, 220, 255},     // <=10
	{0, 140, 220, 255},   // <=20
	{0, 200, 160, 255},   // <=25
	{0, 200, 0, 255},     // <=40
	{200, 200, 0, 255},   // <=50
	{230, 140, 0, 255},   // <=55
	{220, 0, 0, 255},     // <=60 and above
}

// heatmapBaseColor is the intensity-0 color for heatmap mode: red hue, full
// saturation, low value, so repeated visits brighten visibly toward pure
// bright red.
var heatmapBaseColor = colorful.Hsv(0, 1, 0.3)

// heatmapIntensityStep and heatmapMaxIntensity implement the "intensify
// its HSV value by +0.05, capped at 1.0" rule each repeated heatmap visit
// applies to a pixel.
const (
	heatmapIntensityStep = 0.05
	heatmapMaxIntensity  = 1.0
)

// SpeedBucket returns the index of the lowest threshold >= kph in
// SpeedThresholdsKPH. Speeds exceeding every threshold fall into the top
// (fastest) bucket, keeping the mapping total and monotonically
// non-decreasing.
func SpeedBucket(kph float64) int {
	for i, t := range SpeedThresholdsKPH {
		if kph <= t {
			return i
		}
	}
	return len(SpeedThresholdsKPH) - 1
}

// SpeedColor returns the draw color for a segment of the given speed
// (m/s). A fixed-color override wins over everything else; otherwise badSrc
// forces bucket 0 (speed ignored), ahead of a fixed-assumed-speed override.
func SpeedColor(speedMPS float64, badSrc bool, fixedColor *color.RGBA, fixedSpeedKPH *float64) color.RGBA {
	if fixedColor != nil {
		return *fixedColor
	}
	kph := speedMPS * 3.6
	if fixedSpeedKPH != nil {
		kph = *fixedSpeedKPH
	}
	if badSrc {
		kph = 0
	}
	return speedBucketColors[SpeedBucket(kph)]
}

// IntensifyHeatmap reads the existing pixel color and brightens it one
// step in HSV value space, or returns the heatmap base color for a pixel
// that hasn't been visited yet.
func IntensifyHeatmap(existing color.RGBA) color.RGBA {
	if existing.A == 0 {
		return hsvToRGBA(heatmapBaseColor)
	}
	c, _ := colorful.MakeColor(existing)
	h, s, v := c.Hsv()
	v += heatmapIntensityStep
	if v > heatmapMaxIntensity {
		v = heatmapMaxIntensity
	}
	return hsvToRGBA(colorful.Hsv(h, s, v))
}

func hsvToRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
