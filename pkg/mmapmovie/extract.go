package mmapmovie

import (
	"fmt"
	"log/slog"
	"os"

	"mmapmovie/pkg/movie"
)

const opExtract = "extract"

// ValidateROI checks roi against a numRows x numCols frame.
//
// Every bound must lie inside the frame, and each range must span at least
// two rows and two columns: a ROI with RowStart == RowEnd or
// ColStart == ColEnd is rejected as non-increasing.
func ValidateROI(roi movie.ROI, numRows, numCols int) error {
	return validateROI("", roi, numRows, numCols)
}

func validateROI(path string, roi movie.ROI, numRows, numCols int) error {
	if roi.RowStart < 0 || roi.RowEnd < 0 || roi.ColStart < 0 || roi.ColEnd < 0 ||
		roi.RowStart >= numRows || roi.RowEnd >= numRows ||
		roi.ColStart >= numCols || roi.ColEnd >= numCols {
		return roiError(opExtract, path, ErrOutOfRange, roi)
	}
	if roi.RowStart >= roi.RowEnd || roi.ColStart >= roi.ColEnd {
		return roiError(opExtract, path, ErrNonIncreasingRange, roi)
	}
	return nil
}

// ExtractPatch copies roi, across all frames, out of the movie file at path.
//
// numRows, numCols, numFrames and dataType must describe the file exactly as
// it was materialized; the only check available is the total byte count.
// The ROI is validated before the file is touched. The file is opened and
// mapped read-only, so concurrent extractions from one file are safe as long
// as nothing is writing it.
func ExtractPatch(path string, numRows, numCols, numFrames int, dataType movie.DataType, roi movie.ROI) (patch *movie.Patch, err error) {
	if err := validateROI(path, roi, numRows, numCols); err != nil {
		return nil, err
	}

	codec, ok := codecFor(dataType)
	if !ok {
		return nil, unsupportedError(opExtract, path, dataType)
	}

	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, fail(opExtract, path, ErrFileOpenFailed, "", openErr)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = joinRelease(err, fail(opExtract, path, ErrUnmapFailed, "closing file", closeErr))
		}
		if err != nil {
			patch = nil
		}
	}()

	info, statErr := file.Stat()
	if statErr != nil {
		return nil, fail(opExtract, path, ErrFileOpenFailed, "stat", statErr)
	}

	numBytes, ok := movie.CheckedNumBytes(numRows, numCols, numFrames, dataType)
	if !ok {
		e := fail(opExtract, path, ErrSizeMismatch,
			fmt.Sprintf("movie shape %dx%dx%d has no valid size", numRows, numCols, numFrames), nil)
		e.Actual = info.Size()
		return nil, e
	}
	if info.Size() != numBytes {
		e := fail(opExtract, path, ErrSizeMismatch,
			fmt.Sprintf("size of file (%d) does not match size of movie (%d)", info.Size(), numBytes), nil)
		e.Expected = numBytes
		e.Actual = info.Size()
		return nil, e
	}

	patch = movie.NewPatch(roi.Rows(), roi.Cols(), numFrames)
	if numBytes == 0 {
		return patch, nil
	}

	data, mapErr := mapFile(file, numBytes, false)
	if mapErr != nil {
		return nil, fail(opExtract, path, ErrMapFailed, "", mapErr)
	}
	defer func() {
		if relErr := unmapFile(data, false); relErr != nil {
			err = joinRelease(err, fail(opExtract, path, ErrUnmapFailed, "", relErr))
		}
	}()

	copyPatch(data, codec, numRows, numCols, roi, patch)

	slog.Debug("mmapmovie: extracted patch",
		"path", path,
		"roi", roi.String(),
		"frames", numFrames)
	return patch, nil
}

// copyPatch fills patch from the mapped file. The output index advances
// once per element in frame, column, row order, which matches the patch's
// own linearization. Source offsets are computed per element.
func copyPatch(data []byte, codec elementCodec, numRows, numCols int, roi movie.ROI, patch *movie.Patch) {
	frameStride := numRows * numCols
	index := 0
	for t := 0; t < patch.Frames; t++ {
		for col := roi.ColStart; col <= roi.ColEnd; col++ {
			for row := roi.RowStart; row <= roi.RowEnd; row++ {
				offset := (t*frameStride + col*numRows + row) * codec.size
				patch.Data[index] = codec.get(data[offset : offset+codec.size])
				index++
			}
		}
	}
}
