// Package persist implements tile PNG persistence: path construction,
// directory auto-creation, atomic write via ".tmp" + rename, and loading
// an existing tile image for further drawing.
package persist

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
)

// compressionLevel is the tool's fixed PNG compression level. The stdlib
// image/png package only exposes the four png.CompressionLevel presets
// (not an arbitrary zlib level 0-9), so no numeric mid-range level such as
// 4 can be selected; tiles are encoded with png.BestCompression, which is
// zlib level 9, favoring smaller files for tiles that are written once and
// served long-term rather than regenerated on every request.
const compressionLevel = png.BestCompression

// Path returns the tile's PNG path relative to outDir: "<z>/<x>/<y>.png".
func Path(outDir string, z, x, y int) string {
	return filepath.Join(outDir, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+".png")
}

// Load reads the existing tile PNG at <outDir>/<z>/<x>/<y>.png, if any.
// found is false (with a nil error) when the file simply doesn't exist yet;
// a non-nil error means the file could not be read or decoded, which is
// treated the same way as "no existing tile" — the caller starts fresh
// rather than failing the render.
func Load(outDir string, z, x, y int) (*image.RGBA, bool, error) {
	data, err := os.ReadFile(Path(outDir, z, x, y))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", Path(outDir, z, x, y), err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
	}
	return rgba, true, nil
}

// Save writes img to <outDir>/<z>/<x>/<y>.png via a ".tmp" sibling file
// followed by an atomic rename. Parent directories are created on demand,
// "<z>" then "<z>/<x>", mode 0775; an already-exists error from MkdirAll
// is not an error.
func Save(outDir string, z, x, y int, img *image.RGBA) error {
	zDir := filepath.Join(outDir, strconv.Itoa(z))
	xDir := filepath.Join(zDir, strconv.Itoa(x))
	if err := os.MkdirAll(xDir, 0775); err != nil {
		return fmt.Errorf("creating tile directory %s: %w", xDir, err)
	}

	final := Path(outDir, z, x, y)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	enc := &png.Encoder{CompressionLevel: compressionLevel}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, final, err)
	}
	return nil
}

// RemoveZoomTree recursively removes the "<z>/" tree under outDir, for
// the -I (reinitialize) CLI flag.
func RemoveZoomTree(outDir string, z int) error {
	dir := filepath.Join(outDir, strconv.Itoa(z))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	return nil
}
