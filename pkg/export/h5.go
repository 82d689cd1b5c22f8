// Package export persists extracted patches to HDF5 files.
package export

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/scigolib/hdf5"

	"mmapmovie/pkg/analysis"
	"mmapmovie/pkg/movie"
)

// Default dataset names used by SavePatchH5
const (
	DefaultPatchKey = "/patch"
	DefaultTraceKey = "/trace"
)

// SavePatchH5 writes the patch and its per-frame mean trace to a new HDF5
// file at path, replacing any existing file.
//
// The patch dataset is float32 with dims [frames, cols, rows], which is the
// memory order of Patch.Data. The trace dataset is float64 with dims [frames].
func SavePatchH5(p *movie.Patch, path, patchKey, traceKey string) (err error) {
	if p.Len() == 0 {
		return fmt.Errorf("cannot export empty patch %dx%dx%d", p.Rows, p.Cols, p.Frames)
	}
	if patchKey == "" {
		patchKey = DefaultPatchKey
	}
	if traceKey == "" {
		traceKey = DefaultTraceKey
	}

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()

	dims := []uint64{uint64(p.Frames), uint64(p.Cols), uint64(p.Rows)}
	ds, err := fw.CreateDataset(patchKey, hdf5.Float32, dims)
	if err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", patchKey, err)
	}
	if err := ds.Write(p.Data); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", patchKey, err)
	}

	trace := analysis.FrameMeans(p)
	ts, err := fw.CreateDataset(traceKey, hdf5.Float64, []uint64{uint64(len(trace))})
	if err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", traceKey, err)
	}
	if err := ts.Write(trace); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", traceKey, err)
	}

	slog.Debug("export: wrote patch", "path", path, "patchKey", patchKey, "traceKey", traceKey)
	return nil
}
