package msgpack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUintRoundTrip(t *testing.T) {
	for _, v := range []uint64{
		0, 1, 127, 128, 255, 256, 0xFFFF, 0x10000,
		0xFFFFFFFF, 0x100000000, math.MaxUint64,
	} {
		data := AppendUint(nil, v)
		got, err := NewReader(data).Int(SignUnsigned)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got, "value %d", v)
	}
}

func TestIntRoundTrip(t *testing.T) {
	for _, v := range []int64{
		0, -1, -32, -33, -128, -129, -0x8000, -0x8001,
		-0x80000000, -0x80000001, math.MinInt64, 42,
	} {
		data := AppendInt(nil, v)
		got, err := NewReader(data).Int(SignSigned)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, int64(got), "value %d", v)
	}
}

func TestSignednessEnforcement(t *testing.T) {
	// negative stored value rejected by an unsigned request
	for _, data := range [][]byte{
		AppendInt(nil, -1),
		AppendInt(nil, -129),
		AppendInt(nil, -0x8001),
		AppendInt(nil, math.MinInt64),
	} {
		_, err := NewReader(data).Int(SignUnsigned)
		require.ErrorIs(t, err, ErrNegativeForUnsigned)
	}
	// stored-unsigned value with bit 63 set rejected by a signed request
	data := AppendUint(nil, 1<<63)
	_, err := NewReader(data).Int(SignSigned)
	require.ErrorIs(t, err, ErrPositiveOutOfRange)

	// an i64-encoded negative value is fine for a signed request even with
	// bit 63 set
	data = AppendInt(nil, math.MinInt64)
	v, err := NewReader(data).Int(SignSigned)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), int64(v))
}

func TestStringRoundTrip(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	for _, s := range []string{"", "hi", "a string of moderate length", string(long)} {
		data := AppendString(nil, s)
		got, err := NewReader(data).String()
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	blob := []byte{0, 1, 2, 0xFF}
	data := AppendBytes(nil, blob)
	got, err := NewReader(data).Bytes()
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1.5, -2.25, math.Pi} {
		data := AppendFloat64(nil, f)
		got, err := NewReader(data).Float()
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestBoolAndNil(t *testing.T) {
	data := AppendBool(AppendBool(nil, true), false)
	r := NewReader(data)
	v, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, v)
	v, err = r.Bool()
	require.NoError(t, err)
	assert.False(t, v)

	err = NewReader([]byte{0xC0}).Nil()
	require.NoError(t, err)
}

func TestTruncatedErrors(t *testing.T) {
	for _, data := range [][]byte{
		{}, {0xCC}, {0xCD, 0x01}, {0xCF, 1, 2, 3},
		{0xA5, 'h', 'i'}, {0xD9}, {0xDC, 0x00},
	} {
		r := NewReader(data)
		if len(data) == 0 {
			_, err := r.Int(SignAny)
			require.ErrorIs(t, err, ErrTruncated)
			continue
		}
		var err error
		switch data[0] {
		case 0xA5, 0xD9:
			_, err = r.String()
		case 0xDC:
			_, err = r.Array()
		default:
			_, err = r.Int(SignAny)
		}
		require.ErrorIs(t, err, ErrTruncated, "% x", data)
	}
}

func TestBadTag(t *testing.T) {
	_, err := NewReader([]byte{0xC1}).Int(SignAny)
	require.ErrorIs(t, err, ErrBadTag)
	_, err = NewReader([]byte{0x01}).String()
	require.ErrorIs(t, err, ErrBadTag)
}

func TestMapAlternation(t *testing.T) {
	mw := NewMapWriter()
	require.NoError(t, mw.KeyString("k1"))
	require.NoError(t, mw.ValueUint(7))
	require.NoError(t, mw.KeyString("k2"))
	require.NoError(t, mw.ValueString("v"))
	data, err := mw.Finish(nil)
	require.NoError(t, err)

	m, err := NewReader(data).Map()
	require.NoError(t, err)

	// a value request before the key fails
	_, err = m.ValueInt(SignAny)
	require.ErrorIs(t, err, ErrExpectedKey)

	k, err := m.KeyString()
	require.NoError(t, err)
	assert.Equal(t, "k1", k)

	// a second key before the value fails
	_, err = m.KeyString()
	require.ErrorIs(t, err, ErrKeyAlreadyParsed)

	v, err := m.ValueInt(SignUnsigned)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	k, err = m.KeyString()
	require.NoError(t, err)
	assert.Equal(t, "k2", k)
	s, err := m.ValueString()
	require.NoError(t, err)
	assert.Equal(t, "v", s)
	assert.False(t, m.HaveElements())
}

func TestMapWriterAlternation(t *testing.T) {
	mw := NewMapWriter()
	require.ErrorIs(t, mw.ValueUint(1), ErrNotInValue)
	require.NoError(t, mw.KeyString("k"))
	require.ErrorIs(t, mw.KeyString("k2"), ErrNotInKey)
	_, err := mw.Finish(nil)
	require.ErrorIs(t, err, ErrNotInKey)
}

func TestSkipNestedObjects(t *testing.T) {
	// map { "a": [1, {"b": "c"}, [2, 3]], "d": 4 }
	inner := NewMapWriter()
	require.NoError(t, inner.KeyString("b"))
	require.NoError(t, inner.ValueString("c"))
	innerBytes, err := inner.Finish(nil)
	require.NoError(t, err)

	var arr23 []byte
	aw := NewArrayWriter(&arr23, 2)
	require.NoError(t, aw.Uint(2))
	require.NoError(t, aw.Uint(3))

	var arr []byte
	aw = NewArrayWriter(&arr, 3)
	require.NoError(t, aw.Uint(1))
	require.NoError(t, aw.Raw(innerBytes))
	require.NoError(t, aw.Raw(arr23))

	mw := NewMapWriter()
	require.NoError(t, mw.KeyString("a"))
	require.NoError(t, mw.ValueRaw(arr))
	require.NoError(t, mw.KeyString("d"))
	require.NoError(t, mw.ValueUint(4))
	data, err := mw.Finish(nil)
	require.NoError(t, err)

	m, err := NewReader(data).Map()
	require.NoError(t, err)
	k, err := m.KeyString()
	require.NoError(t, err)
	assert.Equal(t, "a", k)
	require.NoError(t, m.SkipValue()) // skips the whole nested array

	k, err = m.KeyString()
	require.NoError(t, err)
	assert.Equal(t, "d", k)
	v, err := m.ValueInt(SignUnsigned)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v)
}

func TestArrayWriterEnforcesCount(t *testing.T) {
	var out []byte
	aw := NewArrayWriter(&out, 1)
	require.NoError(t, aw.Uint(1))
	require.ErrorIs(t, aw.Uint(2), ErrTooManyElements)
}

func TestArrayParserEnd(t *testing.T) {
	var out []byte
	aw := NewArrayWriter(&out, 3)
	require.NoError(t, aw.Uint(1))
	require.NoError(t, aw.Uint(2))
	require.NoError(t, aw.Uint(3))

	p, err := NewReader(out).Array()
	require.NoError(t, err)
	_, err = p.Int(SignAny)
	require.NoError(t, err)
	skipped, err := p.End()
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
}
