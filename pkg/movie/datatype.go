// Package movie defines the data model shared by the movie storage layer:
// element types, movie sources, regions of interest and patches.
package movie

import (
	"fmt"
	"math"
	"strings"
)

// DataType identifies the element type of a movie's samples
type DataType int

const (
	// DataTypeU16 is a 16-bit unsigned integer sample
	DataTypeU16 DataType = 1

	// DataTypeF32 is a 32-bit IEEE-754 float sample
	DataTypeF32 DataType = 2

	// DataTypeU8 is an 8-bit unsigned integer sample. Movies may carry it,
	// but the storage layer has no on-disk conversion for it.
	DataTypeU8 DataType = 3
)

// SizeInBytes returns the width of one sample of the given type,
// or 0 for an unknown type.
func (dt DataType) SizeInBytes() int {
	switch dt {
	case DataTypeF32:
		return 4
	case DataTypeU16:
		return 2
	case DataTypeU8:
		return 1
	default:
		return 0
	}
}

// String returns the short text form used in config and metadata files
func (dt DataType) String() string {
	switch dt {
	case DataTypeU16:
		return "u16"
	case DataTypeF32:
		return "f32"
	case DataTypeU8:
		return "u8"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// ParseDataType parses the text form produced by String
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "u16", "uint16":
		return DataTypeU16, nil
	case "f32", "float32":
		return DataTypeF32, nil
	case "u8", "uint8":
		return DataTypeU8, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (dt DataType) MarshalText() ([]byte, error) {
	if dt.SizeInBytes() == 0 {
		return nil, fmt.Errorf("cannot marshal unknown data type (%d)", int(dt))
	}
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// NumBytes returns the byte length of a headerless dump of a movie
// with the given shape and element type, or 0 for a shape that
// CheckedNumBytes rejects.
func NumBytes(numRows, numCols, numFrames int, dt DataType) int64 {
	n, _ := CheckedNumBytes(numRows, numCols, numFrames, dt)
	return n
}

// CheckedNumBytes is NumBytes for untrusted shapes. It reports false when
// a dimension is negative or the byte count does not fit in an int64.
func CheckedNumBytes(numRows, numCols, numFrames int, dt DataType) (int64, bool) {
	if numRows < 0 || numCols < 0 || numFrames < 0 {
		return 0, false
	}
	total := int64(dt.SizeInBytes())
	for _, n := range [...]int64{int64(numRows), int64(numCols), int64(numFrames)} {
		if n != 0 && total > math.MaxInt64/n {
			return 0, false
		}
		total *= n
	}
	return total, true
}
