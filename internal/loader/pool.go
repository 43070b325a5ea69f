// Package loader implements the tracklog loader pool: P worker goroutines
// drain a FIFO queue of paths, each producing a parsed track.Track, with
// output preserved in enqueue order regardless of which worker handled
// which file.
package loader

import (
	"bufio"
	"io"
	"log"
	"strings"
	"sync"

	"gpx2tiles/internal/track"
)

// Result pairs a path with its parsed track. Track is never nil — a
// failed parse yields an empty *track.Track.
type Result struct {
	Path  string
	Track *track.Track
}

// streamBatchSize bounds how many stdin-streamed paths are enqueued before
// the pool waits for the queue to drain, so memory held by pending path
// strings stays bounded even for a very long stdin stream.
const streamBatchSize = 100

// Run drains cliPaths (enqueued up front) and, if stdin is non-nil, a
// NUL-terminated stream of additional paths read from it, across
// parallelism workers. verbose logs each parse failure.
func Run(parallelism int, cliPaths []string, stdin io.Reader, verbose bool) []Result {
	if parallelism < 1 {
		parallelism = 1
	}

	var mu sync.Mutex
	paths := append([]string(nil), cliPaths...)
	results := make([]*track.Track, len(paths))

	jobs := make(chan int, parallelism*2)
	var pending sync.WaitGroup
	var workers sync.WaitGroup

	worker := func() {
		defer workers.Done()
		for idx := range jobs {
			mu.Lock()
			path := paths[idx]
			mu.Unlock()

			t, err := track.Load(path)
			if err != nil {
				if verbose {
					log.Printf("loader: %v", err)
				}
				t = &track.Track{Path: path}
			}

			mu.Lock()
			results[idx] = t
			mu.Unlock()
			pending.Done()
		}
	}

	workers.Add(parallelism)
	for i := 0; i < parallelism; i++ {
		go worker()
	}

	enqueue := func(idx int) {
		pending.Add(1)
		jobs <- idx
	}

	for i := range cliPaths {
		enqueue(i)
	}

	if stdin != nil {
		r := bufio.NewReaderSize(stdin, 8*1024)
		sinceDrain := 0
		for {
			name, err := r.ReadString(0)
			name = strings.TrimSuffix(name, "\x00")
			if name != "" {
				mu.Lock()
				idx := len(paths)
				paths = append(paths, name)
				results = append(results, nil)
				mu.Unlock()
				enqueue(idx)
				sinceDrain++
			}
			if sinceDrain >= streamBatchSize {
				pending.Wait()
				sinceDrain = 0
			}
			if err != nil {
				break
			}
		}
	}

	pending.Wait()
	close(jobs)
	workers.Wait()

	out := make([]Result, len(paths))
	for i, p := range paths {
		out[i] = Result{Path: p, Track: results[i]}
	}
	return out
}
