package mdsip

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType identifies the element type of a result payload. Values follow the
// mdsip wire protocol's type codes.
type DType uint8

// Wire type codes for serialized descriptors.
const (
	DTypeUChar     DType = 2
	DTypeUShort    DType = 3
	DTypeULong     DType = 4
	DTypeULongLong DType = 5
	DTypeChar      DType = 6
	DTypeShort     DType = 7
	DTypeLong      DType = 8
	DTypeLongLong  DType = 9
	DTypeFloat     DType = 10
	DTypeDouble    DType = 11
	DTypeCString   DType = 14
)

// size returns the element width in bytes, or 0 for variable-width types.
func (d DType) size() int {
	switch d {
	case DTypeUChar, DTypeChar:
		return 1
	case DTypeUShort, DTypeShort:
		return 2
	case DTypeULong, DTypeLong, DTypeFloat:
		return 4
	case DTypeULongLong, DTypeLongLong, DTypeDouble:
		return 8
	default:
		return 0
	}
}

// Result is one evaluated expression's reply: the element type, the array
// dimensions (empty for scalars and strings), and the raw little-endian
// payload. It is the unit of value cached on disk, so its CBOR form must
// stay stable.
type Result struct {
	DType DType   `cbor:"1,keyasint"`
	Dims  []int32 `cbor:"2,keyasint"`
	Data  []byte  `cbor:"3,keyasint"`
}

// Len returns the total number of elements.
func (r *Result) Len() int {
	if len(r.Dims) == 0 {
		if w := r.DType.size(); w > 0 {
			return len(r.Data) / w
		}
		return 1
	}
	n := 1
	for _, d := range r.Dims {
		n *= int(d)
	}
	return n
}

// IsNumeric reports whether the payload holds fixed-width numeric elements.
func (r *Result) IsNumeric() bool {
	return r.DType.size() > 0
}

// Float64s decodes the payload as a flat []float64, widening narrower
// numeric types. It fails on non-numeric payloads and on payloads whose
// length is not a whole number of elements.
func (r *Result) Float64s() ([]float64, error) {
	w := r.DType.size()
	if w == 0 {
		return nil, fmt.Errorf("result dtype %d is not numeric", r.DType)
	}
	if len(r.Data)%w != 0 {
		return nil, fmt.Errorf("result payload %d bytes is not a multiple of element width %d", len(r.Data), w)
	}

	n := len(r.Data) / w
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		b := r.Data[i*w:]
		switch r.DType {
		case DTypeUChar:
			out[i] = float64(b[0])
		case DTypeChar:
			out[i] = float64(int8(b[0]))
		case DTypeUShort:
			out[i] = float64(binary.LittleEndian.Uint16(b))
		case DTypeShort:
			out[i] = float64(int16(binary.LittleEndian.Uint16(b)))
		case DTypeULong:
			out[i] = float64(binary.LittleEndian.Uint32(b))
		case DTypeLong:
			out[i] = float64(int32(binary.LittleEndian.Uint32(b)))
		case DTypeULongLong:
			out[i] = float64(binary.LittleEndian.Uint64(b))
		case DTypeLongLong:
			out[i] = float64(int64(binary.LittleEndian.Uint64(b)))
		case DTypeFloat:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case DTypeDouble:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b))
		case DTypeCString:
			return nil, fmt.Errorf("result dtype %d is not numeric", r.DType)
		}
	}
	return out, nil
}

// Int64 decodes a numeric scalar result.
func (r *Result) Int64() (int64, error) {
	if r.Len() != 1 {
		return 0, fmt.Errorf("result has %d elements, want scalar", r.Len())
	}
	vals, err := r.Float64s()
	if err != nil {
		return 0, err
	}
	return int64(vals[0]), nil
}

// Planes2 decodes a two-plane numeric matrix, as produced by evaluating a
// two-element vector expression like "[dim_of(sig), sig]". The first plane
// is returned as a, the second as b, each of length Dims[0].
func (r *Result) Planes2() (a, b []float64, err error) {
	if len(r.Dims) != 2 || r.Dims[1] != 2 {
		return nil, nil, fmt.Errorf("result shape %v is not a two-plane matrix", r.Dims)
	}
	flat, err := r.Float64s()
	if err != nil {
		return nil, nil, err
	}
	n := int(r.Dims[0])
	if len(flat) != 2*n {
		return nil, nil, fmt.Errorf("result has %d elements, want %d", len(flat), 2*n)
	}
	return flat[:n], flat[n:], nil
}

// Text decodes a string payload.
func (r *Result) Text() (string, error) {
	if r.DType != DTypeCString {
		return "", fmt.Errorf("result dtype %d is not text", r.DType)
	}
	return string(r.Data), nil
}
