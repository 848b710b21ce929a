package gcn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/scan"
)

func parseOp(t *testing.T, text string, flags OpFlags) (Operand, error) {
	t.Helper()
	return ParseOperand(scan.New(text), expr.NewTable(), ArchGCN10, 104, flags)
}

func TestInlineIntCanonicality(t *testing.T) {
	// every integer in [-16, 64] encodes inline with no literal tail
	for v := -16; v <= 64; v++ {
		op, err := parseOp(t, fmt.Sprintf("%d", v), OpSSource)
		require.NoError(t, err, "value %d", v)
		assert.False(t, op.HasLiteral(), "value %d", v)
		if v >= 0 {
			assert.Equal(t, uint16(CodeZero+v), op.Code, "value %d", v)
		} else {
			assert.Equal(t, uint16(CodeNegBase-v), op.Code, "value %d", v)
		}
	}
	// every integer outside gets code 255 and exactly one literal tail
	for _, v := range []int64{-17, 65, 100, -100, 0x7FFFFFFF} {
		op, err := parseOp(t, fmt.Sprintf("%d", v), OpSSource)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, uint16(CodeLiteral), op.Code, "value %d", v)
		assert.Equal(t, uint32(v), op.Literal, "value %d", v)
	}
}

func TestInlineFloats(t *testing.T) {
	for _, tc := range []struct {
		text string
		code uint16
	}{
		{"0.5", CodeHalf}, {"-0.5", CodeNegHalf},
		{"1.0", CodeOne}, {"-1.0", CodeNegOne},
		{"2.0", CodeTwo}, {"-2.0", CodeNegTwo},
		{"4.0", CodeFour}, {"-4.0", CodeNegFour},
	} {
		op, err := parseOp(t, tc.text, OpSSource)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.code, op.Code, tc.text)
		assert.False(t, op.HasLiteral(), tc.text)
	}

	// a float with no inline alias becomes a literal tail
	op, err := parseOp(t, "0.3", OpSSource)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeLiteral), op.Code)
	assert.Equal(t, uint32(0x3E99999A), op.Literal)

	// 1/(2*pi) is inline only from GCN 1.2 on
	op, err = ParseOperand(scan.New("0.15915494"), expr.NewTable(), ArchGCN12, 102, OpSSource)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeInvTwoPi), op.Code)
}

func TestHalfInlineFloats(t *testing.T) {
	op, err := parseOp(t, "0.5", OpSSource|OpF16)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeHalf), op.Code)

	op, err = parseOp(t, "0.3", OpSSource|OpF16)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeLiteral), op.Code)
	assert.Equal(t, uint32(0x34CD), op.Literal) // binary16 of 0.3
}

func TestSRegRanges(t *testing.T) {
	for _, tc := range []struct {
		text string
		code uint16
		regs int
	}{
		{"s0", 0, 1},
		{"s7", 7, 1},
		{"s[4:5]", 4, 2},
		{"s[4:7]", 4, 4},
		{"s[8:15]", 8, 8},
		{"vcc", RegVCC, 2},
		{"vcc_lo", RegVCC, 1},
		{"vcc_hi", RegVCC + 1, 1},
		{"exec", RegEXEC, 2},
		{"tba", RegTBA, 2},
		{"tma_hi", RegTMA + 1, 1},
		{"ttmp3", RegTTMP0 + 3, 1},
		{"ttmp[4:7]", RegTTMP0 + 4, 4},
		{"m0", RegM0, 1},
	} {
		op, err := ParseSRegRange(scan.New(tc.text), ArchGCN10, 104, true)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.code, op.Code, tc.text)
		assert.Equal(t, tc.regs, op.Regs(), tc.text)
	}
}

func TestSRegRangeAlignment(t *testing.T) {
	for _, tc := range []struct {
		text string
		err  error
	}{
		{"s[1:2]", ErrUnalignedRange},  // pair must start even
		{"s[2:4]", ErrUnalignedRange},  // size 3 is not allowed
		{"s[2:5]", ErrUnalignedRange},  // quad must start on multiple of 4
		{"s[4:3]", ErrIllegalRange},    // hi < lo
		{"s[4:200]", ErrIllegalRange},  // beyond SGPR count
		{"s[4:7", ErrUnterminatedRange},
		{"s[4 7]", ErrUnterminatedRange},
	} {
		_, err := ParseSRegRange(scan.New(tc.text), ArchGCN10, 104, true)
		require.ErrorIs(t, err, tc.err, tc.text)
	}

	// every successful range has a size from {1,2,4,8,16} and aligned start
	for _, text := range []string{"s[0:1]", "s[2:3]", "s[0:3]", "s[4:7]", "s[0:7]", "s[0:15]"} {
		op, err := ParseSRegRange(scan.New(text), ArchGCN10, 104, true)
		require.NoError(t, err, text)
		n := op.Regs()
		assert.Contains(t, []int{1, 2, 4, 8, 16}, n, text)
		if n == 2 {
			assert.Zero(t, op.Code&1, text)
		} else if n > 2 {
			assert.Zero(t, op.Code&3, text)
		}
	}
}

func TestVRegRanges(t *testing.T) {
	op, err := ParseVRegRange(scan.New("v0"), true)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeVGPR0), op.Code)

	op, err = ParseVRegRange(scan.New("v[4:7]"), true)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeVGPR0+4), op.Code)
	assert.Equal(t, 4, op.Regs())

	_, err = ParseVRegRange(scan.New("v[7:4]"), true)
	require.ErrorIs(t, err, ErrIllegalRange)
}

func TestArchGatedRegisters(t *testing.T) {
	// flat_scratch does not exist on GCN 1.0
	op, err := ParseSRegRange(scan.New("flat_scratch"), ArchGCN10, 104, false)
	require.NoError(t, err)
	assert.Zero(t, op.End)

	op, err = ParseSRegRange(scan.New("flat_scratch"), ArchGCN11, 104, true)
	require.NoError(t, err)
	assert.Equal(t, uint16(104), op.Code)

	op, err = ParseSRegRange(scan.New("flat_scratch"), ArchGCN12, 102, true)
	require.NoError(t, err)
	assert.Equal(t, uint16(102), op.Code)

	op, err = ParseSRegRange(scan.New("xnack_mask_lo"), ArchGCN12, 102, true)
	require.NoError(t, err)
	assert.Equal(t, uint16(104), op.Code)
}

func TestConditionCodes(t *testing.T) {
	for text, code := range map[string]uint16{
		"vccz": CodeVCCZ, "execz": CodeEXECZ, "scc": CodeSCC,
	} {
		op, err := parseOp(t, text, OpSSource)
		require.NoError(t, err, text)
		assert.Equal(t, code, op.Code, text)
	}
}

func TestOnlyInlineRejectsLiteral(t *testing.T) {
	_, err := parseOp(t, "1000", OpSSource|OpOnlyInline)
	require.ErrorIs(t, err, ErrLiteralNotAllowed)

	op, err := parseOp(t, "63", OpSSource|OpOnlyInline)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeZero+63), op.Code)
}

func TestForwardReferenceOperand(t *testing.T) {
	symtab := expr.NewTable()
	op, err := ParseOperand(scan.New("later+4"), symtab, ArchGCN10, 104, OpSSource)
	require.NoError(t, err)
	assert.Equal(t, uint16(CodeLiteral), op.Code)
	require.NotNil(t, op.Pending)

	symtab.Define("later", expr.AbsSection, 96)
	v, sect, pending, err := op.Pending.Evaluate()
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, expr.AbsSection, sect)
	assert.Equal(t, uint64(100), v)
}
