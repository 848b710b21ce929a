package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/scan"
)

func eval(t *testing.T, text string, table *Table) (uint64, int) {
	t.Helper()
	if table == nil {
		table = NewTable()
	}
	e, err := ParseWith(scan.New(text), table)
	require.NoError(t, err, text)
	v, sect, pending, err := e.Evaluate()
	require.NoError(t, err, text)
	require.False(t, pending, text)
	return v, sect
}

func TestArithmetic(t *testing.T) {
	for _, tc := range []struct {
		text string
		want uint64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10/3", 3},
		{"10%3", 1},
		{"1<<4|1", 17},
		{"0xff & 0x0f", 0x0F},
		{"0b1010", 10},
		{"017", 15},
		{"2+3 == 5", 1},
		{"4 > 5", 0},
		{"~0 >> 60", 15},
		{"-5 + 6", 1},
		{"!0", 1},
		{"1 && 2", 1},
		{"0 || 0", 0},
		{"1 - 2 - 3", uint64(0xFFFFFFFFFFFFFFFC)}, // left-associative
	} {
		v, sect := eval(t, tc.text, nil)
		assert.Equal(t, tc.want, v, tc.text)
		assert.Equal(t, AbsSection, sect, tc.text)
	}
}

func TestFloatLiteralBits(t *testing.T) {
	v, _ := eval(t, "1.5", nil)
	assert.Equal(t, uint64(0x3FC00000), v)

	v, _ = eval(t, "2.5e1", nil)
	assert.Equal(t, uint64(0x41C80000), v) // 25.0f
}

func TestSymbolReference(t *testing.T) {
	table := NewTable()
	table.Define("base", AbsSection, 0x100)
	v, sect := eval(t, "base + 8", table)
	assert.Equal(t, uint64(0x108), v)
	assert.Equal(t, AbsSection, sect)
}

func TestSectionAlgebra(t *testing.T) {
	table := NewTable()
	table.Define("a", 0, 0x20)
	table.Define("b", 0, 0x30)
	table.Define("c", 1, 0x40)

	// label + constant keeps the section
	v, sect := eval(t, "a + 4", table)
	assert.Equal(t, uint64(0x24), v)
	assert.Equal(t, 0, sect)

	// same-section difference collapses to absolute
	v, sect = eval(t, "b - a", table)
	assert.Equal(t, uint64(0x10), v)
	assert.Equal(t, AbsSection, sect)

	// cross-section arithmetic is not expressible
	e, err := ParseWith(scan.New("c - a"), table)
	require.NoError(t, err)
	_, _, _, err = e.Evaluate()
	require.ErrorIs(t, err, ErrNotAbsolute)

	e, err = ParseWith(scan.New("a * 2"), table)
	require.NoError(t, err)
	_, _, _, err = e.Evaluate()
	require.ErrorIs(t, err, ErrNotAbsolute)
}

func TestDeferredResolution(t *testing.T) {
	table := NewTable()
	e, err := ParseWith(scan.New("fwd + 2"), table)
	require.NoError(t, err)
	assert.Equal(t, 1, e.SymbolCount())

	_, _, pending, err := e.Evaluate()
	require.NoError(t, err)
	require.True(t, pending)
	e.Defer()

	_, deps := table.Define("fwd", AbsSection, 40)
	require.Len(t, deps, 1)
	require.Same(t, e, deps[0])

	v, sect, pending, err := e.Evaluate()
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, uint64(42), v)
	assert.Equal(t, AbsSection, sect)
}

func TestDeferRegistersOncePerSymbol(t *testing.T) {
	table := NewTable()
	e, err := ParseWith(scan.New("x + x"), table)
	require.NoError(t, err)
	e.Defer()
	_, deps := table.Define("x", AbsSection, 1)
	assert.Len(t, deps, 1)
}

func TestDivisionByZero(t *testing.T) {
	e, err := ParseWith(scan.New("1/0"), NewTable())
	require.NoError(t, err)
	_, _, _, err = e.Evaluate()
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEmptyExpression(t *testing.T) {
	_, err := ParseWith(scan.New("  "), NewTable())
	require.Error(t, err)
}

func TestAbsoluteMarker(t *testing.T) {
	v, _ := eval(t, "@16", nil)
	assert.Equal(t, uint64(16), v)
}

func TestUndefinedTracking(t *testing.T) {
	table := NewTable()
	table.Ref("u1")
	table.Ref("u2").External = true
	table.Define("d1", AbsSection, 1)
	und := table.Undefined()
	require.Len(t, und, 1)
	assert.Equal(t, "u1", und[0].Name)
}
