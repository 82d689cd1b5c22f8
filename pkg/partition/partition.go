// Package partition divides a movie's frame into overlapping tiles and
// extracts them in parallel from a materialized movie file.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"mmapmovie/pkg/mmapmovie"
	"mmapmovie/pkg/movie"
)

// ErrInvalidTile is returned for tile sizes the grid cannot honour
var ErrInvalidTile = errors.New("partition: invalid tile configuration")

// Grid covers a numRows x numCols frame with tiles of at most
// tileRows x tileCols, neighbouring tiles sharing overlap rows/columns.
//
// Every tile spans at least two rows and two columns so it is a valid ROI
// for extraction: a one-wide remainder at the frame edge is folded into
// the previous tile. Tiles are ordered row band by row band.
func Grid(numRows, numCols, tileRows, tileCols, overlap int) ([]movie.ROI, error) {
	rowRanges, err := axisRanges(numRows, tileRows, overlap)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	colRanges, err := axisRanges(numCols, tileCols, overlap)
	if err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}

	tiles := make([]movie.ROI, 0, len(rowRanges)*len(colRanges))
	for _, rr := range rowRanges {
		for _, cr := range colRanges {
			tiles = append(tiles, movie.ROI{
				RowStart: rr[0],
				RowEnd:   rr[1],
				ColStart: cr[0],
				ColEnd:   cr[1],
			})
		}
	}
	return tiles, nil
}

// axisRanges splits [0, n) into inclusive ranges of at most size elements
func axisRanges(n, size, overlap int) ([][2]int, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: extent %d is smaller than 2", ErrInvalidTile, n)
	}
	if size < 2 {
		return nil, fmt.Errorf("%w: tile size %d is smaller than 2", ErrInvalidTile, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidTile, overlap, size)
	}

	step := size - overlap
	var ranges [][2]int
	for start := 0; ; start += step {
		end := start + size - 1
		if end < n-1 {
			ranges = append(ranges, [2]int{start, end})
			continue
		}
		end = n - 1
		if end-start < 1 && len(ranges) > 0 {
			ranges[len(ranges)-1][1] = end
		} else {
			ranges = append(ranges, [2]int{start, end})
		}
		break
	}
	return ranges, nil
}

// Extractor pulls many patches out of one materialized movie file
type Extractor struct {
	// Path is the materialized movie file
	Path string

	// Meta describes the file's shape and element type
	Meta mmapmovie.Metadata

	// Workers bounds the number of concurrent extractions.
	// Zero or less uses runtime.NumCPU().
	Workers int
}

// ExtractAll extracts every ROI. Patches are returned in the order of rois.
//
// The first failure stops the remaining work and is returned; ctx
// cancellation is observed between extractions.
func (e *Extractor) ExtractAll(ctx context.Context, rois []movie.ROI) ([]*movie.Patch, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(rois) {
		workers = len(rois)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	patches := make([]*movie.Patch, len(rois))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	setErr := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				patch, err := mmapmovie.ExtractPatchWith(e.Path, e.Meta, rois[i])
				if err != nil {
					setErr(fmt.Errorf("tile %d %s: %w", i, rois[i], err))
					continue
				}
				patches[i] = patch
			}
		}()
	}

feed:
	for i := range rois {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("partition: extracted tiles", "path", e.Path, "tiles", len(rois), "workers", workers)
	return patches, nil
}
