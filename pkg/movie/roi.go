package movie

import "fmt"

// ROI is a rectangular region of interest inside a frame.
// All four bounds are zero-based and inclusive.
type ROI struct {
	RowStart int `yaml:"rowStart"`
	RowEnd   int `yaml:"rowEnd"`
	ColStart int `yaml:"colStart"`
	ColEnd   int `yaml:"colEnd"`
}

// Rows returns the number of rows the region spans
func (r ROI) Rows() int {
	return r.RowEnd - r.RowStart + 1
}

// Cols returns the number of columns the region spans
func (r ROI) Cols() int {
	return r.ColEnd - r.ColStart + 1
}

// FullFrame returns the region covering a whole numRows x numCols frame
func FullFrame(numRows, numCols int) ROI {
	return ROI{RowStart: 0, RowEnd: numRows - 1, ColStart: 0, ColEnd: numCols - 1}
}

func (r ROI) String() string {
	return fmt.Sprintf("Roi(%d, %d, %d, %d)", r.RowStart, r.RowEnd, r.ColStart, r.ColEnd)
}
