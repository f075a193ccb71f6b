package mdsip

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32Payload(vals ...float32) []byte {
	buf := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func f64Payload(vals ...float64) []byte {
	buf := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func TestHeaderRoundTrip(t *testing.T) {
	in := header{
		MsgLen:        headerSize + 12,
		Status:        1,
		Length:        12,
		NArgs:         1,
		DescriptorIdx: 0,
		MessageID:     7,
		DType:         uint8(DTypeFloat),
		ClientType:    clientTypeLE,
		NDims:         2,
	}
	in.Dims[0] = 3
	in.Dims[1] = 2

	raw := appendHeader(nil, &in)
	require.Len(t, raw, headerSize)

	out, err := parseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, &in, out)
}

func TestParseHeaderRejectsBadInput(t *testing.T) {
	_, err := parseHeader(make([]byte, 10))
	assert.Error(t, err)

	raw := appendHeader(nil, &header{MsgLen: headerSize, NDims: maxDims + 1})
	_, err = parseHeader(raw)
	assert.Error(t, err)
}

func TestResultFloat64s(t *testing.T) {
	t.Run("Float32Widening", func(t *testing.T) {
		r := &Result{DType: DTypeFloat, Dims: []int32{3}, Data: f32Payload(1, 2.5, -3)}
		vals, err := r.Float64s()
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2.5, -3}, vals)
	})

	t.Run("Double", func(t *testing.T) {
		r := &Result{DType: DTypeDouble, Dims: []int32{2}, Data: f64Payload(0.25, 1e9)}
		vals, err := r.Float64s()
		require.NoError(t, err)
		assert.Equal(t, []float64{0.25, 1e9}, vals)
	})

	t.Run("SignedIntegers", func(t *testing.T) {
		data := binary.LittleEndian.AppendUint32(nil, uint32(0xFFFFFFFF)) // -1
		r := &Result{DType: DTypeLong, Dims: []int32{1}, Data: data}
		vals, err := r.Float64s()
		require.NoError(t, err)
		assert.Equal(t, []float64{-1}, vals)
	})

	t.Run("TextIsNotNumeric", func(t *testing.T) {
		r := &Result{DType: DTypeCString, Data: []byte("volts")}
		_, err := r.Float64s()
		assert.Error(t, err)
	})

	t.Run("RaggedPayload", func(t *testing.T) {
		r := &Result{DType: DTypeDouble, Data: make([]byte, 12)}
		_, err := r.Float64s()
		assert.Error(t, err)
	})
}

func TestResultPlanes2(t *testing.T) {
	r := &Result{
		DType: DTypeFloat,
		Dims:  []int32{3, 2},
		Data:  f32Payload(0, 1, 2, 10, 20, 30),
	}

	axis, values, err := r.Planes2()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, axis)
	assert.Equal(t, []float64{10, 20, 30}, values)
	assert.Len(t, values, len(axis))

	t.Run("WrongShape", func(t *testing.T) {
		flat := &Result{DType: DTypeFloat, Dims: []int32{6}, Data: f32Payload(0, 1, 2, 10, 20, 30)}
		_, _, err := flat.Planes2()
		assert.Error(t, err)

		threePlane := &Result{DType: DTypeFloat, Dims: []int32{2, 3}, Data: f32Payload(0, 1, 2, 10, 20, 30)}
		_, _, err = threePlane.Planes2()
		assert.Error(t, err)
	})

	t.Run("Text", func(t *testing.T) {
		s := &Result{DType: DTypeCString, Data: []byte("volts")}
		_, _, err := s.Planes2()
		assert.Error(t, err)
	})
}

func TestResultText(t *testing.T) {
	r := &Result{DType: DTypeCString, Data: []byte("tesla")}
	s, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, "tesla", s)

	n := &Result{DType: DTypeLong, Data: make([]byte, 4)}
	_, err = n.Text()
	assert.Error(t, err)
}

func TestResultInt64(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 1140101042)
	r := &Result{DType: DTypeLong, Data: data}

	v, err := r.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1140101042), v)

	t.Run("NonScalar", func(t *testing.T) {
		arr := &Result{DType: DTypeFloat, Dims: []int32{2}, Data: f32Payload(1, 2)}
		_, err := arr.Int64()
		assert.Error(t, err)
	})
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"mst"`, quote("mst"))
	assert.Equal(t, `"a\"b"`, quote(`a"b`))
}
