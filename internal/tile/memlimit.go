package tile

import (
	"log"
	"runtime"

	"gpx2tiles/internal/coord"
)

// DefaultMemoryPressurePercent is the fraction of total RAM used for the
// resident-image budget suggestion that verbose mode reports when -T is not
// given. 0.90 = 90%.
const DefaultMemoryPressurePercent = 0.90

// bytesPerResidentTile is the worst-case footprint of one resident
// image.RGBA tile buffer.
const bytesPerResidentTile = coord.TileSize * coord.TileSize * 4

// ComputeResidentImageBudget converts a fraction (e.g. 0.90 for 90%) of
// total system RAM into a suggested max resident tile image count for -T,
// reserving headroom for the Go runtime and non-tile allocations (GPX
// tracks, free-list buffers, etc.) the way the teacher's ComputeMemoryLimit
// reserved headroom for COG caches and encode buffers.
//
// Returns 0 (no suggestion) if RAM detection fails or the computed budget
// is unreasonably small.
func ComputeResidentImageBudget(fraction float64, verbose bool) int {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("Cannot detect system RAM: %v; resident image budget disabled", err)
		}
		return 0
	}

	if verbose {
		log.Printf("System RAM: %.1f GB", float64(totalRAM)/(1024*1024*1024))
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys + 2*1024*1024*1024 // current usage + 2 GB headroom

	budgetBytes := int64(float64(totalRAM)*fraction) - int64(overhead)
	if budgetBytes < bytesPerResidentTile*64 { // minimum 64 resident tiles
		if verbose {
			log.Printf("Computed resident image budget too small (%.0f MB); disabling budget",
				float64(budgetBytes)/(1024*1024))
		}
		return 0
	}

	count := int(budgetBytes / bytesPerResidentTile)
	if verbose {
		log.Printf("Resident image budget: %d tiles (%.0f%% of RAM minus %.1f GB overhead)",
			count, fraction*100, float64(overhead)/(1024*1024*1024))
	}
	return count
}
