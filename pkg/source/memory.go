// Package source provides movie sources: an in-memory movie and a movie
// read from a directory of grayscale image frames.
package source

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mmapmovie/pkg/movie"
)

// MemoryMovie is a movie whose frames are all held in memory
type MemoryMovie struct {
	rows, cols int
	dataType   movie.DataType
	frames     []*mat.Dense
}

// NewMemoryMovie builds a movie from frames, each of which must be rows x cols
func NewMemoryMovie(rows, cols int, dataType movie.DataType, frames ...*mat.Dense) (*MemoryMovie, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", rows, cols)
	}
	for i, f := range frames {
		if r, c := f.Dims(); r != rows || c != cols {
			return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, r, c, rows, cols)
		}
	}
	return &MemoryMovie{
		rows:     rows,
		cols:     cols,
		dataType: dataType,
		frames:   frames,
	}, nil
}

// Generate builds a rows x cols x numFrames movie whose sample at
// (row, col, frame) is fn(row, col, frame).
func Generate(rows, cols, numFrames int, dataType movie.DataType, fn func(row, col, frame int) float64) *MemoryMovie {
	frames := make([]*mat.Dense, numFrames)
	for t := range frames {
		m := mat.NewDense(rows, cols, nil)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				m.Set(r, c, fn(r, c, t))
			}
		}
		frames[t] = m
	}
	return &MemoryMovie{rows: rows, cols: cols, dataType: dataType, frames: frames}
}

func (m *MemoryMovie) NumRows() int { return m.rows }

func (m *MemoryMovie) NumCols() int { return m.cols }

func (m *MemoryMovie) NumFrames() int { return len(m.frames) }

func (m *MemoryMovie) DataType() movie.DataType { return m.dataType }

// Frame returns a copy of frame t
func (m *MemoryMovie) Frame(t int) (*mat.Dense, error) {
	if t < 0 || t >= len(m.frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", t, len(m.frames))
	}
	return mat.DenseCopyOf(m.frames[t]), nil
}
