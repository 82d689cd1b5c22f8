package mmapmovie

import (
	"encoding/binary"
	"math"

	"mmapmovie/pkg/movie"
)

// elementCodec converts samples between the in-memory float representation
// and one on-disk element type. The writer's narrowing rule and the reader's
// widening rule live side by side so that adding a type touches both.
type elementCodec struct {
	size int
	put  func(b []byte, v float64)
	get  func(b []byte) float32
}

// codecFor returns the codec for dt, or false when dt has no on-disk form
func codecFor(dt movie.DataType) (elementCodec, bool) {
	switch dt {
	case movie.DataTypeU16:
		return elementCodec{
			size: 2,
			put: func(b []byte, v float64) {
				binary.NativeEndian.PutUint16(b, narrowU16(v))
			},
			get: func(b []byte) float32 {
				return float32(binary.NativeEndian.Uint16(b))
			},
		}, true
	case movie.DataTypeF32:
		return elementCodec{
			size: 4,
			put: func(b []byte, v float64) {
				binary.NativeEndian.PutUint32(b, math.Float32bits(float32(v)))
			},
			get: func(b []byte) float32 {
				return math.Float32frombits(binary.NativeEndian.Uint32(b))
			},
		}, true
	default:
		return elementCodec{}, false
	}
}

// narrowU16 truncates toward zero, saturating at the uint16 range. NaN maps to 0.
func narrowU16(v float64) uint16 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(v)
	}
}
