package mmapmovie_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mmapmovie/pkg/mmapmovie"
	"mmapmovie/pkg/movie"
	"mmapmovie/pkg/source"
)

// sample gives every (row, col, frame) a distinct value that fits in a uint16
func sample(r, c, t int) float64 {
	return float64(1000*t + 10*c + r)
}

func materialize(t *testing.T, src movie.Source) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movie.bin")
	require.NoError(t, mmapmovie.Materialize(src, path))
	return path
}

// TestConcreteScenario covers a 4x6x3 u16 movie and ROI (1,2,2,4).
func TestConcreteScenario(t *testing.T) {
	src := source.Generate(4, 6, 3, movie.DataTypeU16, sample)
	path := materialize(t, src)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 144, info.Size()) // 4*6*3*2

	roi := movie.ROI{RowStart: 1, RowEnd: 2, ColStart: 2, ColEnd: 4}
	patch, err := mmapmovie.ExtractPatch(path, 4, 6, 3, movie.DataTypeU16, roi)
	require.NoError(t, err)
	require.Equal(t, 2, patch.Rows)
	require.Equal(t, 3, patch.Cols)
	require.Equal(t, 3, patch.Frames)
	require.Len(t, patch.Data, 18)

	for tt := 0; tt < 3; tt++ {
		for c := 0; c < 3; c++ {
			for r := 0; r < 2; r++ {
				require.Equal(t, float32(sample(r+1, c+2, tt)), patch.At(r, c, tt), "(%d,%d,%d)", r, c, tt)
			}
		}
	}
}

// TestOnDiskLayout checks the file is frame-major and column-major within a frame.
func TestOnDiskLayout(t *testing.T) {
	const rows, cols, frames = 3, 4, 2
	src := source.Generate(rows, cols, frames, movie.DataTypeU16, sample)
	path := materialize(t, src)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, rows*cols*frames*2)

	i := 0
	for tt := 0; tt < frames; tt++ {
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				got := binary.NativeEndian.Uint16(raw[2*i:])
				require.Equal(t, uint16(sample(r, c, tt)), got, "element %d", i)
				i++
			}
		}
	}
}

// TestRoundTrip verifies full-frame extraction reproduces every sample.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		dataType movie.DataType
		fn       func(r, c, t int) float64
	}{
		{"u16", movie.DataTypeU16, sample},
		{"u16 extremes", movie.DataTypeU16, func(r, c, t int) float64 {
			if (r+c+t)%2 == 0 {
				return 0
			}
			return math.MaxUint16
		}},
		{"f32", movie.DataTypeF32, func(r, c, t int) float64 {
			return float64(float32(0.1*float64(r) - 3.7*float64(c) + 1e6*float64(t)))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const rows, cols, frames = 5, 7, 4
			src := source.Generate(rows, cols, frames, tc.dataType, tc.fn)
			path := materialize(t, src)

			patch, err := mmapmovie.ExtractPatch(path, rows, cols, frames, tc.dataType, movie.FullFrame(rows, cols))
			require.NoError(t, err)

			for tt := 0; tt < frames; tt++ {
				for c := 0; c < cols; c++ {
					for r := 0; r < rows; r++ {
						require.Equal(t, float32(tc.fn(r, c, tt)), patch.At(r, c, tt))
					}
				}
			}
		})
	}
}

// TestROISubsetting verifies every valid ROI equals the matching sub-array of the full frame.
func TestROISubsetting(t *testing.T) {
	const rows, cols, frames = 5, 4, 3
	for _, dt := range []movie.DataType{movie.DataTypeU16, movie.DataTypeF32} {
		t.Run(dt.String(), func(t *testing.T) {
			src := source.Generate(rows, cols, frames, dt, func(r, c, t int) float64 {
				return sample(r, c, t) + 0.5*float64(dt-movie.DataTypeU16)
			})
			path := materialize(t, src)

			full, err := mmapmovie.ExtractPatch(path, rows, cols, frames, dt, movie.FullFrame(rows, cols))
			require.NoError(t, err)

			for r0 := 0; r0 < rows; r0++ {
				for r1 := r0 + 1; r1 < rows; r1++ {
					for c0 := 0; c0 < cols; c0++ {
						for c1 := c0 + 1; c1 < cols; c1++ {
							roi := movie.ROI{RowStart: r0, RowEnd: r1, ColStart: c0, ColEnd: c1}
							patch, err := mmapmovie.ExtractPatch(path, rows, cols, frames, dt, roi)
							require.NoError(t, err, roi.String())
							require.Equal(t, roi.Rows(), patch.Rows)
							require.Equal(t, roi.Cols(), patch.Cols)

							for tt := 0; tt < frames; tt++ {
								for c := 0; c < patch.Cols; c++ {
									for r := 0; r < patch.Rows; r++ {
										require.Equal(t, full.At(r+r0, c+c0, tt), patch.At(r, c, tt), roi.String())
									}
								}
							}
						}
					}
				}
			}
		})
	}
}

// TestROIRejectedBeforeIO points at a missing file so any I/O would fail differently.
func TestROIRejectedBeforeIO(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.bin")

	tests := []struct {
		name string
		roi  movie.ROI
		want error
	}{
		{"row end past frame", movie.ROI{RowStart: 0, RowEnd: 4, ColStart: 0, ColEnd: 1}, mmapmovie.ErrOutOfRange},
		{"row start past frame", movie.ROI{RowStart: 4, RowEnd: 4, ColStart: 0, ColEnd: 1}, mmapmovie.ErrOutOfRange},
		{"col end past frame", movie.ROI{RowStart: 0, RowEnd: 1, ColStart: 0, ColEnd: 6}, mmapmovie.ErrOutOfRange},
		{"negative bound", movie.ROI{RowStart: -1, RowEnd: 1, ColStart: 0, ColEnd: 1}, mmapmovie.ErrOutOfRange},
		{"reversed rows", movie.ROI{RowStart: 2, RowEnd: 1, ColStart: 0, ColEnd: 1}, mmapmovie.ErrNonIncreasingRange},
		{"single row", movie.ROI{RowStart: 1, RowEnd: 1, ColStart: 0, ColEnd: 1}, mmapmovie.ErrNonIncreasingRange},
		{"reversed cols", movie.ROI{RowStart: 0, RowEnd: 1, ColStart: 3, ColEnd: 2}, mmapmovie.ErrNonIncreasingRange},
		{"single col", movie.ROI{RowStart: 0, RowEnd: 1, ColStart: 5, ColEnd: 5}, mmapmovie.ErrNonIncreasingRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := mmapmovie.ExtractPatch(missing, 4, 6, 3, movie.DataTypeU16, tc.roi)
			require.Nil(t, patch)
			require.ErrorIs(t, err, tc.want)
			require.NotErrorIs(t, err, mmapmovie.ErrFileOpenFailed)

			var merr *mmapmovie.Error
			require.ErrorAs(t, err, &merr)
			require.NotNil(t, merr.ROI)
			require.Equal(t, tc.roi, *merr.ROI)
			require.Contains(t, err.Error(), tc.roi.String())

			require.ErrorIs(t, mmapmovie.ValidateROI(tc.roi, 4, 6), tc.want)
		})
	}

	// A valid ROI against the missing file reaches the open step
	_, err := mmapmovie.ExtractPatch(missing, 4, 6, 3, movie.DataTypeU16, movie.FullFrame(4, 6))
	require.ErrorIs(t, err, mmapmovie.ErrFileOpenFailed)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestSizeMismatch verifies declared shapes that disagree with the file are refused.
func TestSizeMismatch(t *testing.T) {
	src := source.Generate(4, 6, 3, movie.DataTypeU16, sample)
	path := materialize(t, src)
	roi := movie.FullFrame(4, 6)

	tests := []struct {
		name     string
		frames   int
		dataType movie.DataType
		want     int64
	}{
		{"extra frame", 4, movie.DataTypeU16, 192},
		{"missing frame", 2, movie.DataTypeU16, 96},
		{"wrong type", 3, movie.DataTypeF32, 288},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := mmapmovie.ExtractPatch(path, 4, 6, tc.frames, tc.dataType, roi)
			require.Nil(t, patch)
			require.ErrorIs(t, err, mmapmovie.ErrSizeMismatch)

			var merr *mmapmovie.Error
			require.ErrorAs(t, err, &merr)
			require.Equal(t, tc.want, merr.Expected)
			require.EqualValues(t, 144, merr.Actual)
		})
	}
}

// TestUnsupportedConversion verifies unsupported types fail before any file is touched.
// TestSizeOverflow verifies shapes whose byte count wraps an int64 are
// rejected instead of matching a real file by accident.
func TestSizeOverflow(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("needs 64-bit int")
	}
	src := source.Generate(4, 6, 3, movie.DataTypeU16, sample)
	path := materialize(t, src)
	roi := movie.FullFrame(4, 6)

	// 4*6*2 bytes per frame times (3 + 2^61) frames wraps to 144
	var wrap int64 = 1 << 61
	tests := []struct {
		name   string
		frames int
	}{
		{"wrapping frame count", int(3 + wrap)},
		{"negative frame count", -3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				patch, err := mmapmovie.ExtractPatch(path, 4, 6, tc.frames, movie.DataTypeU16, roi)
				require.Nil(t, patch)
				require.ErrorIs(t, err, mmapmovie.ErrSizeMismatch)

				var merr *mmapmovie.Error
				require.ErrorAs(t, err, &merr)
				require.EqualValues(t, 144, merr.Actual)
			})
		})
	}
}

type hugeSource struct {
	*source.MemoryMovie
	frames int
}

func (h hugeSource) NumFrames() int { return h.frames }

func TestMaterializeSizeOverflow(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("needs 64-bit int")
	}
	path := filepath.Join(t.TempDir(), "movie.bin")
	src := hugeSource{MemoryMovie: source.Generate(4, 6, 1, movie.DataTypeF32, sample), frames: math.MaxInt / 8}

	err := mmapmovie.Materialize(src, path)
	require.ErrorIs(t, err, mmapmovie.ErrSizeMismatch)
	require.NoFileExists(t, path)
}

func TestUnsupportedConversion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.bin")

	for _, dt := range []movie.DataType{movie.DataTypeU8, movie.DataType(42)} {
		src := source.Generate(2, 2, 1, dt, sample)
		err := mmapmovie.Materialize(src, path)
		require.ErrorIs(t, err, mmapmovie.ErrUnsupportedConversion)
		require.NoFileExists(t, path)

		_, err = mmapmovie.ExtractPatch(path, 2, 2, 1, dt, movie.FullFrame(2, 2))
		require.ErrorIs(t, err, mmapmovie.ErrUnsupportedConversion)
		require.Contains(t, err.Error(), fmt.Sprintf("(%d)", int(dt)))
	}
}

// TestIdempotentExtraction verifies repeated extractions are bit-identical.
func TestIdempotentExtraction(t *testing.T) {
	src := source.Generate(8, 9, 5, movie.DataTypeF32, func(r, c, t int) float64 {
		return math.Sin(float64(r*c+t)) * 1e3
	})
	path := materialize(t, src)
	roi := movie.ROI{RowStart: 2, RowEnd: 6, ColStart: 1, ColEnd: 7}

	first, err := mmapmovie.ExtractPatch(path, 8, 9, 5, movie.DataTypeF32, roi)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := mmapmovie.ExtractPatch(path, 8, 9, 5, movie.DataTypeF32, roi)
		require.NoError(t, err)
		require.True(t, first.Equal(again))
	}
}

// TestConcurrentExtraction runs many readers against one file.
func TestConcurrentExtraction(t *testing.T) {
	src := source.Generate(16, 16, 4, movie.DataTypeU16, sample)
	path := materialize(t, src)
	want, err := mmapmovie.ExtractPatch(path, 16, 16, 4, movie.DataTypeU16, movie.FullFrame(16, 16))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := mmapmovie.ExtractPatch(path, 16, 16, 4, movie.DataTypeU16, movie.FullFrame(16, 16))
			if err != nil {
				errs <- err
				return
			}
			if !got.Equal(want) {
				errs <- errors.New("patch differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

// TestU16Narrowing checks truncation and saturation of out-of-range samples.
func TestU16Narrowing(t *testing.T) {
	values := []float64{-5, 0, 1.9, 65534.7, 65535, 70000, math.NaN()}
	want := []float32{0, 0, 1, 65534, 65535, 65535, 0}

	frame := mat.NewDense(len(values), 2, nil)
	for i, v := range values {
		frame.Set(i, 0, v)
		frame.Set(i, 1, v)
	}
	src, err := source.NewMemoryMovie(len(values), 2, movie.DataTypeU16, frame)
	require.NoError(t, err)
	path := materialize(t, src)

	patch, err := mmapmovie.ExtractPatch(path, len(values), 2, 1, movie.DataTypeU16, movie.FullFrame(len(values), 2))
	require.NoError(t, err)
	for i := range values {
		require.Equal(t, want[i], patch.At(i, 0, 0), "value %v", values[i])
	}
}

// TestMaterializeReplacesStaleFile verifies an existing file is removed, not reused.
func TestMaterializeReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0644))

	src := source.Generate(2, 3, 2, movie.DataTypeF32, sample)
	require.NoError(t, mmapmovie.Materialize(src, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 2*3*2*4, info.Size())
}

type brokenSource struct {
	*source.MemoryMovie
	failAt int
	bad    bool
}

func (b brokenSource) Frame(t int) (*mat.Dense, error) {
	if t == b.failAt {
		if b.bad {
			return mat.NewDense(1, 1, nil), nil
		}
		return nil, errors.New("decoder exploded")
	}
	return b.MemoryMovie.Frame(t)
}

// TestMaterializeFrameFailures verifies source failures abort materialization.
func TestMaterializeFrameFailures(t *testing.T) {
	base := source.Generate(3, 3, 3, movie.DataTypeU16, sample)
	path := filepath.Join(t.TempDir(), "movie.bin")

	err := mmapmovie.Materialize(brokenSource{MemoryMovie: base, failAt: 1}, path)
	require.ErrorIs(t, err, mmapmovie.ErrFrameUnavailable)
	require.Contains(t, err.Error(), "decoder exploded")

	err = mmapmovie.Materialize(brokenSource{MemoryMovie: base, failAt: 2, bad: true}, path)
	require.ErrorIs(t, err, mmapmovie.ErrFrameShape)
}

// TestEmptyMovie verifies a movie without frames yields an empty file and empty patches.
func TestEmptyMovie(t *testing.T) {
	src, err := source.NewMemoryMovie(3, 3, movie.DataTypeU16)
	require.NoError(t, err)
	path := materialize(t, src)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())

	patch, err := mmapmovie.ExtractPatch(path, 3, 3, 0, movie.DataTypeU16, movie.FullFrame(3, 3))
	require.NoError(t, err)
	require.Zero(t, patch.Len())
}

// TestMetadataRecord covers the companion record round trip.
func TestMetadataRecord(t *testing.T) {
	src := source.Generate(4, 6, 3, movie.DataTypeU16, sample)
	path := filepath.Join(t.TempDir(), "movie.bin")

	md, err := mmapmovie.MaterializeWithMetadata(src, path)
	require.NoError(t, err)
	require.EqualValues(t, 144, md.NumBytes())
	require.FileExists(t, mmapmovie.MetadataPath(path))

	read, err := mmapmovie.ReadMetadata(path)
	require.NoError(t, err)
	require.Equal(t, md, read)
	require.Equal(t, movie.DataTypeU16, read.DataType)

	roi := movie.ROI{RowStart: 1, RowEnd: 2, ColStart: 2, ColEnd: 4}
	viaRecord, err := mmapmovie.ExtractPatchFromMetadata(path, roi)
	require.NoError(t, err)
	direct, err := mmapmovie.ExtractPatch(path, 4, 6, 3, movie.DataTypeU16, roi)
	require.NoError(t, err)
	require.True(t, viaRecord.Equal(direct))

	require.NoError(t, mmapmovie.Remove(path))
	require.NoFileExists(t, path)
	require.NoFileExists(t, mmapmovie.MetadataPath(path))
}

// TestMetadataByteOrder verifies records from a host of other endianness are refused.
func TestMetadataByteOrder(t *testing.T) {
	src := source.Generate(2, 2, 1, movie.DataTypeF32, sample)
	path := filepath.Join(t.TempDir(), "movie.bin")
	md, err := mmapmovie.MaterializeWithMetadata(src, path)
	require.NoError(t, err)

	md.ByteOrder = "big"
	if mmapmovie.HostByteOrder() == "big" {
		md.ByteOrder = "little"
	}
	require.NoError(t, mmapmovie.WriteMetadata(path, md))

	_, err = mmapmovie.ExtractPatchFromMetadata(path, movie.FullFrame(2, 2))
	require.ErrorIs(t, err, mmapmovie.ErrByteOrder)
}

// TestErrorMessage checks the path and failing step appear in the message.
func TestErrorMessage(t *testing.T) {
	e := &mmapmovie.Error{
		Op:     "materialize",
		Path:   "/tmp/x.bin",
		Kind:   mmapmovie.ErrResizeFailed,
		Detail: "144 bytes",
		Err:    errors.New("disk full"),
	}
	require.Equal(t, "mmapmovie: materialize /tmp/x.bin: unable to resize file: 144 bytes: disk full", e.Error())
	require.ErrorIs(t, e, mmapmovie.ErrResizeFailed)
	require.NotErrorIs(t, e, mmapmovie.ErrMapFailed)
}
