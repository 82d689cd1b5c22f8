package movie

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Patch is a float-valued sub-cube of a movie: a region of interest
// across every frame.
type Patch struct {
	// Rows, Cols, Frames are the dimensions of the cube
	Rows, Cols, Frames int

	// Data holds the samples. Element (r, c, t) is stored at
	// t*Rows*Cols + c*Rows + r: column-major within a frame,
	// frames concatenated in order.
	Data []float32
}

// NewPatch allocates a zeroed patch of the given dimensions
func NewPatch(rows, cols, frames int) *Patch {
	return &Patch{
		Rows:   rows,
		Cols:   cols,
		Frames: frames,
		Data:   make([]float32, rows*cols*frames),
	}
}

// Len returns the number of elements in the patch
func (p *Patch) Len() int {
	return p.Rows * p.Cols * p.Frames
}

// Index returns the position of element (r, c, t) in Data
func (p *Patch) Index(r, c, t int) int {
	return t*p.Rows*p.Cols + c*p.Rows + r
}

// At returns element (r, c, t)
func (p *Patch) At(r, c, t int) float32 {
	return p.Data[p.Index(r, c, t)]
}

// Set stores v at element (r, c, t)
func (p *Patch) Set(r, c, t int, v float32) {
	p.Data[p.Index(r, c, t)] = v
}

// Frame returns frame t of the patch as a Rows x Cols matrix
func (p *Patch) Frame(t int) *mat.Dense {
	m := mat.NewDense(p.Rows, p.Cols, nil)
	for c := 0; c < p.Cols; c++ {
		for r := 0; r < p.Rows; r++ {
			m.Set(r, c, float64(p.At(r, c, t)))
		}
	}
	return m
}

// Equal reports whether both patches have the same shape and
// bit-identical contents.
func (p *Patch) Equal(other *Patch) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Rows != other.Rows || p.Cols != other.Cols || p.Frames != other.Frames {
		return false
	}
	if len(p.Data) != len(other.Data) {
		return false
	}
	for i := range p.Data {
		if math.Float32bits(p.Data[i]) != math.Float32bits(other.Data[i]) {
			return false
		}
	}
	return true
}
