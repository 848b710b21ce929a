package gcn

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/scan"
)

var (
	ErrExpectedOperand    = errors.New("expected operand")
	ErrUnterminatedRange  = errors.New("unterminated register range")
	ErrUnalignedRange     = errors.New("unaligned register range")
	ErrRegisterOutOfRange = errors.New("register number out of range")
	ErrIllegalRange       = errors.New("illegal register range")
	ErrLiteralNotAllowed  = errors.New("literal constant is illegal in this place")
	ErrTooManyLiterals    = errors.New("only one literal constant is allowed")
)

// OpFlags is the bitmask of operand categories admissible at one position,
// plus the value-type hint used when an inline float constant is considered.
type OpFlags uint32

const (
	OpSRegs OpFlags = 1 << iota
	OpVRegs
	OpSSource    // scalar sources: inline constants, vccz/execz/scc, literals
	OpOnlyInline // no literal tail allowed at this position
	OpF16        // type hint: half-precision float
	OpInt        // type hint: integer (float inline table not consulted)
)

// Operand is one parsed GCN operand: the 9-bit selector code (vector
// registers map to 256+index), the register range end for ranges, and the
// literal tail when Code == CodeLiteral. Pending is set instead of Literal
// when the value awaits a forward symbol.
type Operand struct {
	Code      uint16
	End       uint16 // one-past-last register code; 0 for non-register operands
	Literal   uint32
	Truncated bool // literal did not fit 32 bits and was truncated
	Pending   *expr.Expression
}

// Regs returns how many registers the operand occupies (0 for non-register).
func (o Operand) Regs() int {
	if o.End == 0 {
		return 0
	}
	return int(o.End - o.Code)
}

// IsVGPR reports whether the operand selects vector registers.
func (o Operand) IsVGPR() bool { return o.Code >= CodeVGPR0 && o.Code < CodeVGPR0+256 }

// HasLiteral reports whether a 32-bit literal tail follows the instruction.
func (o Operand) HasLiteral() bool { return o.Code == CodeLiteral }

func regRange(lo, n uint16) Operand {
	return Operand{Code: lo, End: lo + n}
}

// checkRangeAlignment enforces the range invariants: the register count must
// be 1, 2, 4, 8 or 16; pairs start on even indices, larger ranges on
// multiples of four.
func checkRangeAlignment(lo, hi uint16) error {
	n := hi - lo + 1
	switch n {
	case 1:
		return nil
	case 2:
		if lo&1 != 0 {
			return ErrUnalignedRange
		}
		return nil
	case 4, 8, 16:
		if lo&3 != 0 {
			return ErrUnalignedRange
		}
		return nil
	}
	return ErrUnalignedRange
}

// parseBracketRange parses "[lo:hi]" after the register letter, returning
// inclusive endpoints.
func parseBracketRange(sc *scan.Scanner) (lo, hi uint16, err error) {
	sc.Next() // '['
	sc.SkipSpaces()
	b1, err := sc.Byte()
	if err != nil {
		return 0, 0, err
	}
	sc.SkipSpaces()
	if !sc.Expect(':') {
		return 0, 0, ErrUnterminatedRange
	}
	sc.SkipSpaces()
	b2, err := sc.Byte()
	if err != nil {
		return 0, 0, err
	}
	sc.SkipSpaces()
	if !sc.Expect(']') {
		return 0, 0, ErrUnterminatedRange
	}
	return uint16(b1), uint16(b2), nil
}

// ParseVRegRange parses a vector-register operand: v0 or v[4:7]. When not
// required and the text does not begin a VGPR, the scanner is left where it
// started and a zero operand is returned.
func ParseVRegRange(sc *scan.Scanner, required bool) (Operand, error) {
	sc.SkipSpaces()
	start := sc.Pos()
	fail := func(err error) (Operand, error) {
		if !required && (err == ErrExpectedOperand) {
			sc.SetPos(start)
			return Operand{}, nil
		}
		return Operand{}, err
	}
	c := sc.Peek()
	if c != 'v' && c != 'V' {
		return fail(ErrExpectedOperand)
	}
	sc.Next()
	switch {
	case scan.IsDigit(sc.Peek()):
		idx, err := sc.Byte()
		if err != nil {
			return Operand{}, err
		}
		return regRange(CodeVGPR0+uint16(idx), 1), nil
	case sc.Peek() == '[':
		lo, hi, err := parseBracketRange(sc)
		if err != nil {
			return Operand{}, err
		}
		if hi <= lo || hi > 255 {
			return Operand{}, ErrIllegalRange
		}
		if err := checkRangeAlignment(lo, hi); err != nil {
			return Operand{}, err
		}
		return regRange(CodeVGPR0+lo, hi-lo+1), nil
	}
	sc.SetPos(start)
	return fail(ErrExpectedOperand)
}

// special scalar register names with 64-bit lo/hi halves.
type loHiReg struct {
	name string
	code uint16
	arch uint32
}

func loHiRegs(arch uint32) []loHiReg {
	flatScratch := uint16(104)
	if arch&ArchGCN12 != 0 {
		flatScratch = 102
	}
	regs := []loHiReg{
		{"vcc", RegVCC, ArchAll},
		{"exec", RegEXEC, ArchAll},
		{"tba", RegTBA, ArchAll},
		{"tma", RegTMA, ArchAll},
		{"flat_scratch", flatScratch, ArchGCN11Up},
		{"xnack_mask", RegXnackMask, ArchGCN12},
	}
	return regs
}

// ParseSRegRange parses a scalar-register operand: s0, s[4:7], or a named
// special register (vcc, exec_lo, ttmp3, m0, flat_scratch, ...).
func ParseSRegRange(sc *scan.Scanner, arch uint32, maxSGPRs uint16, required bool) (Operand, error) {
	sc.SkipSpaces()
	start := sc.Pos()
	notHere := func() (Operand, error) {
		sc.SetPos(start)
		if required {
			return Operand{}, ErrExpectedOperand
		}
		return Operand{}, nil
	}

	c := sc.Peek()
	if c != 's' && c != 'S' {
		name := strings.ToLower(sc.Name())
		if name == "" {
			return notHere()
		}
		if name == "m0" {
			return regRange(RegM0, 1), nil
		}
		if strings.HasPrefix(name, "ttmp") {
			rest := name[4:]
			if rest == "" && sc.Peek() == '[' {
				lo, hi, err := parseBracketRange(sc)
				if err != nil {
					return Operand{}, err
				}
				if hi <= lo || hi > 11 {
					return Operand{}, ErrRegisterOutOfRange
				}
				if err := checkRangeAlignment(lo, hi); err != nil {
					return Operand{}, err
				}
				return regRange(RegTTMP0+lo, hi-lo+1), nil
			}
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 {
				return notHere()
			}
			if n > 11 {
				return Operand{}, ErrRegisterOutOfRange
			}
			return regRange(RegTTMP0+uint16(n), 1), nil
		}
		for _, r := range loHiRegs(arch) {
			if r.arch&arch == 0 {
				continue
			}
			switch name {
			case r.name:
				return regRange(r.code, 2), nil
			case r.name + "_lo":
				return regRange(r.code, 1), nil
			case r.name + "_hi":
				return regRange(r.code+1, 1), nil
			}
		}
		return notHere()
	}

	sc.Next() // 's'
	switch {
	case scan.IsDigit(sc.Peek()):
		idx, err := sc.Byte()
		if err != nil {
			return Operand{}, err
		}
		if uint16(idx) >= maxSGPRs {
			return Operand{}, ErrRegisterOutOfRange
		}
		return regRange(uint16(idx), 1), nil
	case sc.Peek() == '[':
		lo, hi, err := parseBracketRange(sc)
		if err != nil {
			return Operand{}, err
		}
		if hi <= lo || hi >= maxSGPRs {
			return Operand{}, ErrIllegalRange
		}
		if err := checkRangeAlignment(lo, hi); err != nil {
			return Operand{}, err
		}
		return regRange(lo, hi-lo+1), nil
	}
	return notHere()
}

// inline float constant tables: IEEE-754 bit pattern to operand code.
var inlineFloats32 = map[uint32]uint16{
	0x00000000: CodeZero,
	0x3f000000: CodeHalf,
	0xbf000000: CodeNegHalf,
	0x3f800000: CodeOne,
	0xbf800000: CodeNegOne,
	0x40000000: CodeTwo,
	0xc0000000: CodeNegTwo,
	0x40800000: CodeFour,
	0xc0800000: CodeNegFour,
}

var inlineFloats16 = map[uint16]uint16{
	0x0000: CodeZero,
	0x3800: CodeHalf,
	0xb800: CodeNegHalf,
	0x3c00: CodeOne,
	0xbc00: CodeNegOne,
	0x4000: CodeTwo,
	0xc000: CodeNegTwo,
	0x4400: CodeFour,
	0xc400: CodeNegFour,
}

const (
	invTwoPiBits32 = 0x3e22f983
	invTwoPiBits16 = 0x3118
)

// floatToHalf converts to IEEE-754 binary16 with round-to-nearest-even.
func floatToHalf(f float64) uint16 {
	b := math.Float32bits(float32(f))
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xff) - 127 + 15
	mant := b & 0x7fffff
	switch {
	case exp >= 0x1f: // overflow or inf/nan
		if b&0x7fffffff > 0x7f800000 {
			return sign | 0x7e00 // nan
		}
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(mant >> shift)
		if mant>>(shift-1)&1 != 0 { // round up
			half++
		}
		return sign | half
	}
	half := sign | uint16(exp)<<10 | uint16(mant>>13)
	if mant&0x1000 != 0 {
		half++
	}
	return half
}

// argToken returns the operand text up to the next delimiter, used only for
// the exclusively-floating-point check.
func argToken(sc *scan.Scanner) string {
	rest := sc.Rest()
	end := strings.IndexAny(rest, ", \t;")
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

// ParseOperand parses one operand under the admissible-category mask,
// following the fixed recognition order: scalar register, vector register,
// symbolic condition codes, inline float constant, inline integer constant,
// literal tail (possibly deferred behind a forward reference).
func ParseOperand(sc *scan.Scanner, symtab *expr.Table, arch uint32,
	maxSGPRs uint16, flags OpFlags) (Operand, error) {
	sc.SkipSpaces()
	if sc.EOF() {
		return Operand{}, ErrExpectedOperand
	}

	if flags&OpSRegs != 0 {
		required := flags&(OpVRegs|OpSSource) == 0
		op, err := ParseSRegRange(sc, arch, maxSGPRs, required)
		if err != nil || op.End != 0 {
			return op, err
		}
	}
	if flags&OpVRegs != 0 {
		required := flags&OpSSource == 0
		op, err := ParseVRegRange(sc, required)
		if err != nil || op.End != 0 {
			return op, err
		}
	}
	if flags&OpSSource == 0 {
		return Operand{}, ErrExpectedOperand
	}

	start := sc.Pos()
	if name := strings.ToLower(sc.Name()); name != "" {
		switch name {
		case "vccz":
			return regRange(CodeVCCZ, 1), nil
		case "execz":
			return regRange(CodeEXECZ, 1), nil
		case "scc":
			return regRange(CodeSCC, 1), nil
		}
		sc.SetPos(start) // not a special name; treat as expression
	}

	if tok := argToken(sc); scan.IsOnlyFloat(tok) {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("bad float literal %q", tok)
		}
		sc.SetPos(sc.Pos() + len(tok))
		if flags&OpF16 != 0 {
			bits := floatToHalf(f)
			if code, ok := inlineFloats16[bits]; ok {
				return Operand{Code: code}, nil
			}
			if bits == invTwoPiBits16 && arch&ArchGCN12 != 0 {
				return Operand{Code: CodeInvTwoPi}, nil
			}
			return literalOperand(uint64(bits), flags)
		}
		bits := math.Float32bits(float32(f))
		if code, ok := inlineFloats32[bits]; ok {
			return Operand{Code: code}, nil
		}
		if bits == invTwoPiBits32 && arch&ArchGCN12 != 0 {
			return Operand{Code: CodeInvTwoPi}, nil
		}
		return literalOperand(uint64(bits), flags)
	}

	e, err := expr.ParseWith(sc, symtab)
	if err != nil {
		return Operand{}, err
	}
	value, section, pending, err := e.Evaluate()
	if err != nil {
		return Operand{}, err
	}
	if pending {
		if flags&OpOnlyInline != 0 {
			return Operand{}, ErrLiteralNotAllowed
		}
		return Operand{Code: CodeLiteral, Pending: e}, nil
	}
	if section != expr.AbsSection {
		return Operand{}, expr.ErrNotAbsolute
	}

	if int64(value) >= 0 && value <= 64 {
		return Operand{Code: CodeZero + uint16(value)}, nil
	}
	if int64(value) >= -16 && int64(value) < 0 {
		return Operand{Code: uint16(int64(CodeNegBase) - int64(value))}, nil
	}
	return literalOperand(value, flags)
}

func literalOperand(value uint64, flags OpFlags) (Operand, error) {
	if flags&OpOnlyInline != 0 {
		return Operand{}, ErrLiteralNotAllowed
	}
	op := Operand{Code: CodeLiteral, Literal: uint32(value)}
	if int64(value) > math.MaxUint32 || int64(value) < math.MinInt32 {
		op.Truncated = true
	}
	return op, nil
}
