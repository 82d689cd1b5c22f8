package movie

import "gonum.org/v1/gonum/mat"

// Source supplies a movie one frame at a time.
//
// Frames are float-backed matrices of NumRows x NumCols regardless of the
// declared DataType; the DataType only selects the representation used when
// the movie is written to disk.
type Source interface {
	// NumRows is the frame height
	NumRows() int

	// NumCols is the frame width
	NumCols() int

	// NumFrames is the number of frames in the movie
	NumFrames() int

	// DataType is the native element type of the movie's samples
	DataType() DataType

	// Frame returns frame t, 0 <= t < NumFrames
	Frame(t int) (*mat.Dense, error)
}
