// Package mmapmovie stores movies as flat, headerless, memory-mapped files
// and extracts rectangular patches from them.
//
// A materialized file holds numRows*numCols*numFrames elements in native
// byte order. Frames are concatenated in order; within a frame elements
// are column-major (all rows of column 0, then column 1, ...). The file
// carries no description of itself: readers must be given the same shape
// and element type the writer used, for example through the companion
// metadata record written by MaterializeWithMetadata.
package mmapmovie

import (
	"fmt"
	"log/slog"
	"os"

	"mmapmovie/internal/pathutil"
	"mmapmovie/pkg/movie"
)

const opMaterialize = "materialize"

// Materialize writes every frame of src, in order, to a new file at path.
//
// Any file already at path is removed first. On failure the file may exist
// with undefined contents; callers should delete it.
func Materialize(src movie.Source, path string) (err error) {
	numRows := src.NumRows()
	numCols := src.NumCols()
	numFrames := src.NumFrames()
	dataType := src.DataType()

	codec, ok := codecFor(dataType)
	if !ok {
		return unsupportedError(opMaterialize, path, dataType)
	}
	if numRows < 0 || numCols < 0 || numFrames < 0 {
		return fail(opMaterialize, path, ErrFrameShape,
			fmt.Sprintf("invalid movie dimensions %dx%dx%d", numRows, numCols, numFrames), nil)
	}
	numBytes, ok := movie.CheckedNumBytes(numRows, numCols, numFrames, dataType)
	if !ok {
		return fail(opMaterialize, path, ErrSizeMismatch,
			fmt.Sprintf("movie shape %dx%dx%d has no valid size", numRows, numCols, numFrames), nil)
	}

	// A previous run may have left a stale file behind
	if pathutil.Exists(path) {
		if rmErr := pathutil.RemoveIfExists(path); rmErr != nil {
			return fail(opMaterialize, path, ErrFileOpenFailed, "removing existing file", rmErr)
		}
	}

	file, openErr := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if openErr != nil {
		return fail(opMaterialize, path, ErrFileOpenFailed, "", openErr)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = joinRelease(err, fail(opMaterialize, path, ErrUnmapFailed, "closing file", closeErr))
		}
	}()

	if resizeErr := file.Truncate(numBytes); resizeErr != nil {
		return fail(opMaterialize, path, ErrResizeFailed, fmt.Sprintf("%d bytes", numBytes), resizeErr)
	}
	if numBytes == 0 {
		slog.Warn("mmapmovie: materialized empty movie", "path", path)
		return nil
	}

	data, mapErr := mapFile(file, numBytes, true)
	if mapErr != nil {
		return fail(opMaterialize, path, ErrMapFailed, "", mapErr)
	}
	defer func() {
		if relErr := unmapFile(data, true); relErr != nil {
			err = joinRelease(err, fail(opMaterialize, path, ErrUnmapFailed, "", relErr))
		}
	}()

	frameBytes := numRows * numCols * codec.size
	for t := 0; t < numFrames; t++ {
		frame, frameErr := src.Frame(t)
		if frameErr != nil {
			return fail(opMaterialize, path, ErrFrameUnavailable, fmt.Sprintf("frame %d", t), frameErr)
		}
		if r, c := frame.Dims(); r != numRows || c != numCols {
			return fail(opMaterialize, path, ErrFrameShape,
				fmt.Sprintf("frame %d is %dx%d, movie is %dx%d", t, r, c, numRows, numCols), nil)
		}

		offset := t * frameBytes
		for col := 0; col < numCols; col++ {
			for row := 0; row < numRows; row++ {
				codec.put(data[offset:offset+codec.size], frame.At(row, col))
				offset += codec.size
			}
		}
	}

	slog.Debug("mmapmovie: materialized movie",
		"path", path,
		"rows", numRows,
		"cols", numCols,
		"frames", numFrames,
		"dataType", dataType.String(),
		"bytes", numBytes)
	return nil
}
