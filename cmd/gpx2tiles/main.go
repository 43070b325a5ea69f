// Command gpx2tiles rasterizes GPS tracklogs into a Slippy Map tile pyramid
// of 256×256 PNGs, one zoom level at a time.
package main

import (
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gpx2tiles/internal/loader"
	"gpx2tiles/internal/persist"
	"gpx2tiles/internal/pipeline"
	"gpx2tiles/internal/raster"
	"gpx2tiles/internal/tile"
	"gpx2tiles/internal/track"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// exit codes for the process.
const (
	exitOK     = 0
	exitMisuse = 1
	exitIOErr  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, tracklogPaths, err := parseFlags(args)
	if err != nil {
		if uerr, ok := err.(usageError); ok {
			fmt.Fprintln(os.Stderr, uerr.Error())
			fmt.Fprintln(os.Stderr, "usage: gpx2tiles [-z N] [-Z N] [-C dir] [-I] [-T N] [-j N] [-0] [-L N] [-P N] [-H] [-t z:w[+]] [-c #RRGGBB[AA]] [-S kph] [-p d] [-d mask] [-v] [tracklog ...]")
			return exitMisuse
		}
		log.Printf("%v", err)
		return exitMisuse
	}

	if err := os.MkdirAll(opts.outDir, 0775); err != nil {
		log.Printf("output directory %s: %v", opts.outDir, err)
		return exitIOErr
	}

	if opts.verbose {
		log.Printf("gpx2tiles %s (commit %s)", version, commit)
	}

	start := time.Now()

	if opts.reinit {
		for z := opts.minZoom; z <= opts.maxZoom; z++ {
			if err := persist.RemoveZoomTree(opts.outDir, z); err != nil {
				log.Printf("reinitializing zoom %d: %v", z, err)
			}
		}
	}

	var stdin io.Reader
	if opts.stdinPaths {
		stdin = os.Stdin
	}

	results := loader.Run(opts.parallelism, tracklogPaths, stdin, opts.verbose)

	var tracks []*track.Track
	totalPoints := 0
	for _, r := range results {
		tracks = append(tracks, r.Track)
		totalPoints += r.Track.PointsCnt
	}
	log.Printf("%d files, %d points", len(results), totalPoints)

	// Without -T the resident-image budget is unbounded; in verbose mode a
	// RAM-derived suggestion is only reported, not applied.
	residentBudget := opts.maxResidentImages
	if residentBudget <= 0 && opts.verbose {
		tile.ComputeResidentImageBudget(tile.DefaultMemoryPressurePercent, opts.verbose)
	}

	cfg := pipeline.Config{
		MinZoom:               opts.minZoom,
		MaxZoom:               opts.maxZoom,
		OutDir:                opts.outDir,
		Parallelism:           opts.parallelism,
		LineZoomThreshold:     opts.lineZoomThreshold,
		WaypointZoomThreshold: opts.waypointZoomThreshold,
		MaxResidentImages:     residentBudget,
		Verbose:               opts.verbose,
		RasterOpts: raster.Options{
			Heatmap:          opts.heatmap,
			LineThickness:    opts.thicknessTable.at,
			WaypointDiameter: opts.waypointDiameter,
			FixedColor:       opts.fixedColor,
			FixedSpeedKPH:    opts.fixedSpeedKPH,
			DiagMask:         opts.diagMask,
			Verbose:          opts.verbose,
		},
	}

	stats, err := pipeline.Generate(cfg, tracks)
	if err != nil {
		log.Printf("tile generation: %v", err)
		return exitIOErr
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Fprintf(os.Stderr, "Done: %d zoom level(s), %d tiles, %v\n",
		stats.ZoomsProcessed, stats.TilesWritten, elapsed)
	return exitOK
}

// usageError marks a configuration error that should print a usage message
// and exit 1, as opposed to an ordinary processing error.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// options holds the parsed CLI surface.
type options struct {
	minZoom, maxZoom      int
	outDir                string
	reinit                bool
	maxResidentImages     int
	parallelism           int
	stdinPaths            bool
	lineZoomThreshold     int
	waypointZoomThreshold int
	heatmap               bool
	thicknessTable        thicknessTable
	fixedColor            *color.RGBA
	fixedSpeedKPH         *float64
	waypointDiameter      int
	diagMask              uint8
	verbose               bool
}

func parseFlags(args []string) (options, []string, error) {
	opts := options{
		minZoom:               1,
		maxZoom:               18,
		outDir:                ".",
		parallelism:           4,
		lineZoomThreshold:     7,
		waypointZoomThreshold: 16,
	}

	var positional []string
	i := 0
	next := func(flagName string) (string, error) {
		i++
		if i >= len(args) {
			return "", usageError{fmt.Sprintf("flag %s requires a value", flagName)}
		}
		return args[i], nil
	}

	for ; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-z":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -z value %q", v)}
			}
			opts.minZoom = n
		case "-Z":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -Z value %q", v)}
			}
			opts.maxZoom = n
		case "-C":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			opts.outDir = v
		case "-I":
			opts.reinit = true
		case "-T":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -T value %q", v)}
			}
			opts.maxResidentImages = n
		case "-j":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return opts, nil, usageError{fmt.Sprintf("invalid -j value %q", v)}
			}
			opts.parallelism = n
		case "-0":
			opts.stdinPaths = true
		case "-L":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -L value %q", v)}
			}
			opts.lineZoomThreshold = n
		case "-P":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -P value %q", v)}
			}
			opts.waypointZoomThreshold = n
		case "-H":
			opts.heatmap = true
		case "-t":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			if err := opts.thicknessTable.add(v); err != nil {
				return opts, nil, usageError{err.Error()}
			}
		case "-c":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			c, err := parseHexColor(v)
			if err != nil {
				return opts, nil, usageError{err.Error()}
			}
			opts.fixedColor = &c
		case "-S":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -S value %q", v)}
			}
			opts.fixedSpeedKPH = &f
		case "-p":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -p value %q", v)}
			}
			opts.waypointDiameter = n
		case "-d":
			v, err := next(a)
			if err != nil {
				return opts, nil, err
			}
			n, err := strconv.ParseUint(v, 0, 8)
			if err != nil {
				return opts, nil, usageError{fmt.Sprintf("invalid -d value %q", v)}
			}
			opts.diagMask = uint8(n)
		case "-v":
			opts.verbose = true
		default:
			if strings.HasPrefix(a, "-") {
				return opts, nil, usageError{fmt.Sprintf("unknown flag %q", a)}
			}
			positional = append(positional, a)
		}
	}

	if opts.maxZoom < opts.minZoom {
		opts.maxZoom = opts.minZoom
	}
	if opts.minZoom < 0 || opts.minZoom > 19 || opts.maxZoom < 0 || opts.maxZoom > 19 {
		return opts, nil, usageError{fmt.Sprintf("zoom range [%d,%d] out of [0,19]", opts.minZoom, opts.maxZoom)}
	}

	return opts, positional, nil
}

// thicknessEntry is one "-t z:w[+]" clause.
type thicknessEntry struct {
	zoom   int
	width  int
	extend bool
}

// thicknessTable holds every -t clause and resolves a zoom to a line width.
type thicknessTable struct {
	entries []thicknessEntry
}

func (t *thicknessTable) add(s string) error {
	extend := strings.HasSuffix(s, "+")
	s = strings.TrimSuffix(s, "+")
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid -t syntax %q (want z:w[+])", s)
	}
	z, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid -t zoom %q", parts[0])
	}
	w, err := strconv.Atoi(parts[1])
	if err != nil || w < 1 {
		return fmt.Errorf("invalid -t width %q", parts[1])
	}
	t.entries = append(t.entries, thicknessEntry{zoom: z, width: w, extend: extend})
	return nil
}

// at resolves the configured line thickness at zoom z: the most specific
// exact match wins; failing that, the highest extend-entry at or below z;
// default 1.
func (t *thicknessTable) at(z int) int {
	width := 1
	best := -1
	for _, e := range t.entries {
		if e.zoom == z {
			return e.width
		}
		if e.extend && e.zoom <= z && e.zoom > best {
			best = e.zoom
			width = e.width
		}
	}
	return width
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA", as given to -c.
func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 6:
		s += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("hex color must be #RRGGBB or #RRGGBBAA, got %q", "#"+s)
	}

	r, err := strconv.ParseUint(s[0:2], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color: %w", err)
	}
	g, err := strconv.ParseUint(s[2:4], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color: %w", err)
	}
	b, err := strconv.ParseUint(s[4:6], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color: %w", err)
	}
	a, err := strconv.ParseUint(s[6:8], 16, 8)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color: %w", err)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}
