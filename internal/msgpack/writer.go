package msgpack

import (
	"errors"
	"math"
)

var (
	ErrNotInKey        = errors.New("msgpack: a value is expected here")
	ErrNotInValue      = errors.New("msgpack: a key is expected here")
	ErrTooManyElements = errors.New("msgpack: too many array elements")
)

// AppendString appends one string object.
func AppendString(out []byte, s string) []byte {
	n := len(s)
	switch {
	case n < 32:
		out = append(out, 0xA0|byte(n))
	case n < 256:
		out = append(out, 0xD9, byte(n))
	case n < 0x10000:
		out = append(out, 0xDA, byte(n>>8), byte(n))
	default:
		out = append(out, 0xDB, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	return append(out, s...)
}

// AppendBool appends one boolean object.
func AppendBool(out []byte, b bool) []byte {
	if b {
		return append(out, 0xC3)
	}
	return append(out, 0xC2)
}

// AppendUint appends an unsigned integer in its shortest encoding.
func AppendUint(out []byte, v uint64) []byte {
	switch {
	case v < 128:
		return append(out, byte(v))
	case v < 256:
		return append(out, 0xCC, byte(v))
	case v < 0x10000:
		return append(out, 0xCD, byte(v>>8), byte(v))
	case v < 0x100000000:
		return append(out, 0xCE, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return append(out, 0xCF, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// AppendInt appends a signed integer in its shortest encoding.
func AppendInt(out []byte, v int64) []byte {
	if v >= 0 {
		return AppendUint(out, uint64(v))
	}
	switch {
	case v >= -32:
		return append(out, byte(v))
	case v >= math.MinInt8:
		return append(out, 0xD0, byte(v))
	case v >= math.MinInt16:
		return append(out, 0xD1, byte(uint16(v)>>8), byte(v))
	case v >= math.MinInt32:
		u := uint32(v)
		return append(out, 0xD2, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
	}
	u := uint64(v)
	return append(out, 0xD3, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// AppendFloat64 appends a float64 object.
func AppendFloat64(out []byte, f float64) []byte {
	u := math.Float64bits(f)
	return append(out, 0xCB, byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
		byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
}

// AppendBytes appends a bin object.
func AppendBytes(out []byte, b []byte) []byte {
	n := len(b)
	switch {
	case n < 256:
		out = append(out, 0xC4, byte(n))
	case n < 0x10000:
		out = append(out, 0xC5, byte(n>>8), byte(n))
	default:
		out = append(out, 0xC6, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	return append(out, b...)
}

// ArrayWriter emits a fixed-length array; the element count is written up
// front and over-filling fails.
type ArrayWriter struct {
	out   *[]byte
	total int
	count int
}

// NewArrayWriter writes the array header for n elements into out.
func NewArrayWriter(out *[]byte, n int) *ArrayWriter {
	switch {
	case n < 16:
		*out = append(*out, 0x90|byte(n))
	case n < 0x10000:
		*out = append(*out, 0xDC, byte(n>>8), byte(n))
	default:
		*out = append(*out, 0xDD, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	return &ArrayWriter{out: out, total: n}
}

func (w *ArrayWriter) take() error {
	if w.count == w.total {
		return ErrTooManyElements
	}
	w.count++
	return nil
}

func (w *ArrayWriter) Uint(v uint64) error {
	if err := w.take(); err != nil {
		return err
	}
	*w.out = AppendUint(*w.out, v)
	return nil
}

func (w *ArrayWriter) String(s string) error {
	if err := w.take(); err != nil {
		return err
	}
	*w.out = AppendString(*w.out, s)
	return nil
}

func (w *ArrayWriter) Bool(b bool) error {
	if err := w.take(); err != nil {
		return err
	}
	*w.out = AppendBool(*w.out, b)
	return nil
}

// Raw appends one pre-encoded object (a nested map or array).
func (w *ArrayWriter) Raw(obj []byte) error {
	if err := w.take(); err != nil {
		return err
	}
	*w.out = append(*w.out, obj...)
	return nil
}

// MapWriter accumulates key/value pairs with the same alternation discipline
// the reader enforces; Finish prefixes the header once the count is known.
type MapWriter struct {
	elems int
	inKey bool
	temp  []byte
}

func NewMapWriter() *MapWriter { return &MapWriter{inKey: true} }

func (w *MapWriter) KeyString(s string) error {
	if !w.inKey {
		return ErrNotInKey
	}
	w.inKey = false
	w.elems++
	w.temp = AppendString(w.temp, s)
	return nil
}

func (w *MapWriter) value() error {
	if w.inKey {
		return ErrNotInValue
	}
	w.inKey = true
	return nil
}

func (w *MapWriter) ValueUint(v uint64) error {
	if err := w.value(); err != nil {
		return err
	}
	w.temp = AppendUint(w.temp, v)
	return nil
}

func (w *MapWriter) ValueBool(b bool) error {
	if err := w.value(); err != nil {
		return err
	}
	w.temp = AppendBool(w.temp, b)
	return nil
}

func (w *MapWriter) ValueString(s string) error {
	if err := w.value(); err != nil {
		return err
	}
	w.temp = AppendString(w.temp, s)
	return nil
}

// ValueArray opens a fixed-length array in value position.
func (w *MapWriter) ValueArray(n int) (*ArrayWriter, error) {
	if err := w.value(); err != nil {
		return nil, err
	}
	return NewArrayWriter(&w.temp, n), nil
}

// ValueRaw appends one pre-encoded object (a nested map) in value position.
func (w *MapWriter) ValueRaw(obj []byte) error {
	if err := w.value(); err != nil {
		return err
	}
	w.temp = append(w.temp, obj...)
	return nil
}

// Finish appends the complete map object to out.
func (w *MapWriter) Finish(out []byte) ([]byte, error) {
	if !w.inKey {
		return nil, ErrNotInKey
	}
	n := w.elems
	switch {
	case n < 16:
		out = append(out, 0x80|byte(n))
	case n < 0x10000:
		out = append(out, 0xDE, byte(n>>8), byte(n))
	default:
		out = append(out, 0xDF, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	return append(out, w.temp...), nil
}
