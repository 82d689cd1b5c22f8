// Package analysis computes summary statistics over extracted patches.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"mmapmovie/pkg/movie"
)

// Summary holds whole-patch statistics
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
}

// Summarize computes statistics over every element of the patch.
// An empty patch yields a zero Summary.
func Summarize(p *movie.Patch) Summary {
	values := toFloat64(p.Data)
	if len(values) == 0 {
		return Summary{}
	}

	s := Summary{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: stat.Mean(values, nil),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}

	sort.Float64s(values)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	return s
}

// FrameMeans returns the mean of each frame, a temporal trace of the patch
func FrameMeans(p *movie.Patch) []float64 {
	frameLen := p.Rows * p.Cols
	trace := make([]float64, p.Frames)
	if frameLen == 0 {
		return trace
	}
	for t := range trace {
		trace[t] = stat.Mean(toFloat64(p.Data[t*frameLen:(t+1)*frameLen]), nil)
	}
	return trace
}

// PixelMeans returns the temporal mean of every pixel as a Rows x Cols matrix
func PixelMeans(p *movie.Patch) *mat.Dense {
	if p.Rows == 0 || p.Cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(p.Rows, p.Cols, nil)
	if p.Frames == 0 {
		return out
	}
	for t := 0; t < p.Frames; t++ {
		out.Add(out, p.Frame(t))
	}
	out.Scale(1/float64(p.Frames), out)
	return out
}

func toFloat64(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}
