package mmapmovie

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mmapmovie/pkg/movie"
)

// Failure kinds. Every error returned by this package is an *Error whose
// Kind is one of these values, so callers can test with errors.Is.
var (
	// ErrUnsupportedConversion indicates an element type with no on-disk representation.
	ErrUnsupportedConversion = errors.New("mmapmovie: no conversion specified for data type")

	// ErrFileOpenFailed indicates the movie file could not be opened (or cleared beforehand).
	ErrFileOpenFailed = errors.New("mmapmovie: unable to open file")

	// ErrResizeFailed indicates the new movie file could not be sized.
	ErrResizeFailed = errors.New("mmapmovie: unable to resize file")

	// ErrMapFailed indicates the file could not be mapped into memory.
	ErrMapFailed = errors.New("mmapmovie: unable to map file into memory")

	// ErrUnmapFailed indicates the mapping or the file could not be released.
	ErrUnmapFailed = errors.New("mmapmovie: unable to unmap file from memory")

	// ErrOutOfRange indicates a ROI bound outside the movie's frame.
	ErrOutOfRange = errors.New("mmapmovie: roi out of range of input movie")

	// ErrNonIncreasingRange indicates a ROI whose start is not before its end.
	ErrNonIncreasingRange = errors.New("mmapmovie: roi range is non-increasing")

	// ErrSizeMismatch indicates a file whose length differs from the declared movie.
	ErrSizeMismatch = errors.New("mmapmovie: size of file does not match size of movie")

	// ErrFrameUnavailable indicates the movie source failed to produce a frame.
	ErrFrameUnavailable = errors.New("mmapmovie: unable to read frame from movie")

	// ErrFrameShape indicates a frame (or movie) with dimensions other than declared.
	ErrFrameShape = errors.New("mmapmovie: frame dimensions do not match movie")

	// ErrByteOrder indicates a metadata record written on a host of different endianness.
	ErrByteOrder = errors.New("mmapmovie: byte order does not match host")
)

// Error describes a failed materialize or extract operation.
type Error struct {
	// Op is the operation that failed: "materialize" or "extract"
	Op string

	// Path is the movie file the operation was working on
	Path string

	// Kind is one of the package's Err* values
	Kind error

	// Detail carries the offending values (ROI bounds, sizes, type codes)
	Detail string

	// ROI is set for ErrOutOfRange and ErrNonIncreasingRange
	ROI *movie.ROI

	// Expected and Actual are the byte counts for ErrSizeMismatch
	Expected, Actual int64

	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("mmapmovie: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimPrefix(e.Kind.Error(), "mmapmovie: "))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the failure kind and the underlying cause
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// fail builds an *Error and logs it before it is returned
func fail(op, path string, kind error, detail string, cause error) *Error {
	e := &Error{Op: op, Path: path, Kind: kind, Detail: detail, Err: cause}
	slog.Error("mmapmovie: "+op+" failed", "path", path, "error", e)
	return e
}

func roiError(op, path string, kind error, roi movie.ROI) *Error {
	r := roi
	e := &Error{Op: op, Path: path, Kind: kind, Detail: roi.String(), ROI: &r}
	slog.Error("mmapmovie: "+op+" failed", "path", path, "roi", roi.String(), "error", e)
	return e
}

func unsupportedError(op, path string, dt movie.DataType) *Error {
	return fail(op, path, ErrUnsupportedConversion,
		fmt.Sprintf("data type (%d) has no on-disk conversion to float", int(dt)), nil)
}

// joinRelease merges a release failure into the error already being returned
func joinRelease(err error, rel error) error {
	if rel == nil {
		return err
	}
	if err == nil {
		return rel
	}
	return errors.Join(err, rel)
}
