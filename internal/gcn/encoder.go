package gcn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/scan"
)

// PatchKind says how a deferred expression patches the encoded instruction
// once its symbols resolve.
type PatchKind byte

const (
	PatchLiteral32 PatchKind = iota // the 32-bit literal tail
	PatchSImm16Rel                  // simm16 branch displacement in the first word
)

// Encoded is the result of encoding one instruction: one or two 4-byte words
// and an optional literal tail. Pending carries a deferred expression whose
// resolution patches the bytes at PendingKind's location.
type Encoded struct {
	Words       [2]uint32
	NumWords    int
	Literal     uint32
	HasLiteral  bool
	Truncated   bool
	Pending     *expr.Expression
	PendingKind PatchKind
}

// Bytes renders the instruction in little-endian order.
func (e *Encoded) Bytes() []byte {
	out := make([]byte, 0, 12)
	for i := 0; i < e.NumWords; i++ {
		w := e.Words[i]
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	if e.HasLiteral {
		w := e.Literal
		out = append(out, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return out
}

// Size returns the encoded byte length.
func (e *Encoded) Size() int {
	n := e.NumWords * 4
	if e.HasLiteral {
		n += 4
	}
	return n
}

// Encoder encodes instruction lines for one kernel, tracking the maximum
// referenced register indices that feed the kernel descriptor.
type Encoder struct {
	Device Device
	Arch   uint32
	Symtab *expr.Table

	// MaxSGPR/MaxVGPR are the highest register indices referenced so far,
	// -1 when none.
	MaxSGPR int
	MaxVGPR int
}

func NewEncoder(device Device, symtab *expr.Table) *Encoder {
	return &Encoder{
		Device: device,
		Arch:   device.Arch(),
		Symtab: symtab,
		MaxSGPR: -1,
		MaxVGPR: -1,
	}
}

// ResetUsage clears register tracking at a kernel boundary.
func (e *Encoder) ResetUsage() {
	e.MaxSGPR, e.MaxVGPR = -1, -1
}

// SGPRCount returns the highest referenced SGPR index plus one (minimum 1).
func (e *Encoder) SGPRCount() uint16 {
	if e.MaxSGPR < 0 {
		return 1
	}
	return uint16(e.MaxSGPR + 1)
}

// VGPRCount returns the descriptor's workitem VGPR count (minimum 1).
func (e *Encoder) VGPRCount() uint16 {
	if e.MaxVGPR < 0 {
		return 1
	}
	return uint16(e.MaxVGPR + 1)
}

func (e *Encoder) trackUsage(op Operand) {
	if op.End == 0 {
		return
	}
	if op.IsVGPR() {
		if hi := int(op.End-CodeVGPR0) - 1; hi > e.MaxVGPR {
			e.MaxVGPR = hi
		}
		return
	}
	if op.Code < 104 { // plain SGPRs only; specials don't count
		if hi := int(op.End) - 1; hi > e.MaxSGPR {
			e.MaxSGPR = hi
		}
	}
}

// Encode assembles the operand text after a matched mnemonic. offset is the
// instruction's byte offset within its section, needed for PC-relative
// immediates.
func (e *Encoder) Encode(ent *Entry, sc *scan.Scanner, offset uint64) (Encoded, error) {
	var enc Encoded
	var err error
	switch ent.Encoding1 {
	case EncSOP2:
		enc, err = e.encodeSOP2(ent, sc)
	case EncSOP1:
		enc, err = e.encodeSOP1(ent, sc)
	case EncSOPK:
		enc, err = e.encodeSOPK(ent, sc)
	case EncSOPC:
		enc, err = e.encodeSOPC(ent, sc)
	case EncSOPP:
		enc, err = e.encodeSOPP(ent, sc, offset)
	case EncSMRD:
		enc, err = e.encodeSMRD(ent, sc)
	case EncVOP2:
		enc, err = e.encodeVOP2(ent, sc)
	case EncVOP1:
		enc, err = e.encodeVOP1(ent, sc)
	case EncVOPC:
		enc, err = e.encodeVOPC(ent, sc)
	case EncVOP3A, EncVOP3B:
		enc, err = e.encodeVOP3(ent, sc)
	case EncVINTRP:
		enc, err = e.encodeVINTRP(ent, sc)
	case EncDS:
		enc, err = e.encodeDS(ent, sc)
	case EncMUBUF, EncMTBUF:
		enc, err = e.encodeMXBUF(ent, sc)
	case EncMIMG:
		enc, err = e.encodeMIMG(ent, sc)
	case EncEXP:
		enc, err = e.encodeEXP(ent, sc)
	case EncFLAT:
		enc, err = e.encodeFLAT(ent, sc)
	default:
		return Encoded{}, fmt.Errorf("internal: no encoder for %s", ent.Encoding1)
	}
	if err != nil {
		return Encoded{}, err
	}
	sc.SkipSpaces()
	if !sc.EOF() {
		return Encoded{}, fmt.Errorf("garbage at end of instruction: %q", sc.Rest())
	}
	return enc, nil
}

func (e *Encoder) comma(sc *scan.Scanner) error {
	sc.SkipSpaces()
	if !sc.Expect(',') {
		return errors.New("expected ','")
	}
	return nil
}

func (e *Encoder) typeFlags(ent *Entry) OpFlags {
	switch {
	case ent.Mode&ModeF16 != 0:
		return OpF16
	case ent.Mode&ModeFInt != 0:
		return OpInt
	}
	return 0
}

// scalarDst parses a scalar destination of the entry's width.
func (e *Encoder) scalarDst(ent *Entry, sc *scan.Scanner) (Operand, error) {
	want := 1
	if ent.Mode&ModeDst64 != 0 {
		want = 2
	}
	op, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Operand{}, err
	}
	if op.Regs() != want {
		return Operand{}, ErrIllegalRange
	}
	e.trackUsage(op)
	return op, nil
}

// scalarSrc parses a scalar source: registers, inline constants or a
// literal. wide selects a 64-bit register pair.
func (e *Encoder) scalarSrc(ent *Entry, sc *scan.Scanner, wide bool, lit *bool) (Operand, error) {
	op, err := ParseOperand(sc, e.Symtab, e.Arch, e.Device.MaxSGPRs(),
		OpSRegs|OpSSource|e.typeFlags(ent))
	if err != nil {
		return Operand{}, err
	}
	if op.End != 0 {
		want := 1
		if wide {
			want = 2
		}
		if op.Regs() != want {
			return Operand{}, ErrIllegalRange
		}
	}
	if op.HasLiteral() {
		if *lit {
			return Operand{}, ErrTooManyLiterals
		}
		*lit = true
	}
	e.trackUsage(op)
	return op, nil
}

func takeLiteral(enc *Encoded, op Operand) {
	if !op.HasLiteral() {
		return
	}
	enc.HasLiteral = true
	enc.Literal = op.Literal
	enc.Truncated = enc.Truncated || op.Truncated
	if op.Pending != nil {
		enc.Pending = op.Pending
		enc.PendingKind = PatchLiteral32
	}
}

func (e *Encoder) encodeSOP2(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := e.scalarDst(ent, sc)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var lit bool
	src0, err := e.scalarSrc(ent, sc, ent.Mode&ModeSrc064 != 0, &lit)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	src1, err := e.scalarSrc(ent, sc, ent.Mode&ModeSrc164 != 0, &lit)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0x80000000 | uint32(ent.Opcode1)<<23 | uint32(dst.Code)<<16 |
		uint32(src1.Code)<<8 | uint32(src0.Code)
	takeLiteral(&enc, src0)
	takeLiteral(&enc, src1)
	return enc, nil
}

func (e *Encoder) encodeSOP1(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	var dst, src Operand
	var err error
	var lit bool
	if ent.Mode&ModeNoDst == 0 {
		if dst, err = e.scalarDst(ent, sc); err != nil {
			return Encoded{}, err
		}
	}
	if ent.Mode&ModeNoSrc == 0 {
		if ent.Mode&ModeNoDst == 0 {
			if err = e.comma(sc); err != nil {
				return Encoded{}, err
			}
		}
		if src, err = e.scalarSrc(ent, sc, ent.Mode&ModeSrc064 != 0, &lit); err != nil {
			return Encoded{}, err
		}
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xBE800000 | uint32(dst.Code)<<16 | uint32(ent.Opcode1)<<8 |
		uint32(src.Code)
	takeLiteral(&enc, src)
	return enc, nil
}

// imm16 parses an absolute 16-bit immediate. Wider values are truncated to
// their low 16 bits without a warning.
func (e *Encoder) imm16(sc *scan.Scanner) (uint16, error) {
	ex, err := expr.ParseWith(sc, e.Symtab)
	if err != nil {
		return 0, err
	}
	v, sect, pending, err := ex.Evaluate()
	if err != nil {
		return 0, err
	}
	if pending || sect != expr.AbsSection {
		return 0, expr.ErrNotAbsolute
	}
	return uint16(v), nil
}

func (e *Encoder) encodeSOPK(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := e.scalarDst(ent, sc)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	imm, err := e.imm16(sc)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xB0000000 | uint32(ent.Opcode1)<<23 | uint32(dst.Code)<<16 |
		uint32(imm)
	return enc, nil
}

func (e *Encoder) encodeSOPC(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	var lit bool
	src0, err := e.scalarSrc(ent, sc, ent.Mode&ModeSrc064 != 0, &lit)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	src1, err := e.scalarSrc(ent, sc, ent.Mode&ModeSrc164 != 0, &lit)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xBF000000 | uint32(ent.Opcode1)<<16 | uint32(src1.Code)<<8 |
		uint32(src0.Code)
	takeLiteral(&enc, src0)
	takeLiteral(&enc, src1)
	return enc, nil
}

func (e *Encoder) encodeSOPP(ent *Entry, sc *scan.Scanner, offset uint64) (Encoded, error) {
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xBF800000 | uint32(ent.Opcode1)<<16
	if ent.Mode&ModeImmNone != 0 {
		return enc, nil
	}
	if ent.Mode&ModeImmRel != 0 {
		ex, err := expr.ParseWith(sc, e.Symtab)
		if err != nil {
			return Encoded{}, err
		}
		v, _, pending, err := ex.Evaluate()
		if err != nil {
			return Encoded{}, err
		}
		if pending {
			enc.Pending = ex
			enc.PendingKind = PatchSImm16Rel
			return enc, nil
		}
		rel, err := BranchDisplacement(offset, v)
		if err != nil {
			return Encoded{}, err
		}
		enc.Words[0] |= uint32(rel)
		return enc, nil
	}
	imm, err := e.imm16(sc)
	if err != nil {
		return Encoded{}, err
	}
	enc.Words[0] |= uint32(imm)
	return enc, nil
}

// BranchDisplacement converts a byte target into the word-granular simm16
// displacement relative to the end of the branch instruction.
func BranchDisplacement(instrOffset, target uint64) (uint16, error) {
	diff := int64(target) - int64(instrOffset) - 4
	if diff&3 != 0 {
		return 0, errors.New("branch target is not word-aligned")
	}
	diff >>= 2
	if diff < -0x8000 || diff > 0x7FFF {
		return 0, errors.New("branch displacement out of range")
	}
	return uint16(diff), nil
}

func (e *Encoder) encodeSMRD(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xC0000000 | uint32(ent.Opcode1)<<22
	if ent.Mode&ModeSMRDNoArgs != 0 {
		if ent.Mode&ModeNoDst == 0 {
			dst, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
			if err != nil {
				return Encoded{}, err
			}
			e.trackUsage(dst)
			enc.Words[0] |= uint32(dst.Code) << 15
		}
		return enc, nil
	}
	dstRegs := 1
	switch {
	case ent.Mode&ModeSMRDDst64 != 0:
		dstRegs = 2
	case ent.Mode&ModeSMRDDstX4 != 0:
		dstRegs = 4
	case ent.Mode&ModeSMRDDstX8 != 0:
		dstRegs = 8
	case ent.Mode&ModeSMRDDstX16 != 0:
		dstRegs = 16
	}
	dst, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Encoded{}, err
	}
	if dst.Regs() != dstRegs {
		return Encoded{}, ErrIllegalRange
	}
	e.trackUsage(dst)
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	base, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Encoded{}, err
	}
	baseRegs := 2
	if ent.Opcode1 >= 8 { // s_buffer_* addresses through a 4-register resource
		baseRegs = 4
	}
	if base.Regs() != baseRegs {
		return Encoded{}, ErrIllegalRange
	}
	e.trackUsage(base)
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	enc.Words[0] |= uint32(dst.Code)<<15 | uint32(base.Code>>1)<<9

	// offset: SGPR or unsigned immediate (dword granularity)
	sc.SkipSpaces()
	if off, err2 := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), false); err2 == nil && off.End != 0 {
		if off.Regs() != 1 {
			return Encoded{}, ErrIllegalRange
		}
		e.trackUsage(off)
		enc.Words[0] |= uint32(off.Code)
		return enc, nil
	} else if err2 != nil {
		return Encoded{}, err2
	}
	imm, err := e.imm16(sc)
	if err != nil {
		return Encoded{}, err
	}
	if imm > 0xFF {
		return Encoded{}, errors.New("SMRD offset out of range")
	}
	enc.Words[0] |= 1<<8 | uint32(imm)
	return enc, nil
}

// vgpr parses a VGPR operand of exactly n registers.
func (e *Encoder) vgpr(sc *scan.Scanner, n int) (Operand, error) {
	op, err := ParseVRegRange(sc, true)
	if err != nil {
		return Operand{}, err
	}
	if op.Regs() != n {
		return Operand{}, ErrIllegalRange
	}
	e.trackUsage(op)
	return op, nil
}

// vopSrc parses a VOP source: any scalar source, VGPR, or constant. neg
// reports a leading '-' register modifier (extended form only).
func (e *Encoder) vopSrc(ent *Entry, sc *scan.Scanner, lit *bool, onlyInline bool) (op Operand, neg bool, err error) {
	sc.SkipSpaces()
	start := sc.Pos()
	if sc.Peek() == '-' {
		// A '-' starting a register operand is a source modifier; a '-'
		// starting a number belongs to the number.
		probe := scan.New(sc.Rest()[1:])
		probe.SkipSpaces()
		c := probe.Peek()
		if c == 'v' || c == 'V' || c == 's' || c == 'S' {
			sc.Next()
			neg = true
		}
	}
	flags := OpSRegs | OpVRegs | OpSSource | e.typeFlags(ent)
	if onlyInline {
		flags |= OpOnlyInline
	}
	op, err = ParseOperand(sc, e.Symtab, e.Arch, e.Device.MaxSGPRs(), flags)
	if err != nil {
		sc.SetPos(start)
		return Operand{}, false, err
	}
	if neg && op.End == 0 {
		return Operand{}, false, errors.New("source modifier requires a register")
	}
	if op.HasLiteral() {
		if *lit {
			return Operand{}, false, ErrTooManyLiterals
		}
		*lit = true
	}
	e.trackUsage(op)
	return op, neg, nil
}

// hasExtended reports whether the entry carries a fused VOP3 opcode.
func hasExtended(ent *Entry) bool { return ent.Opcode2 != NoOpcode2 }

func (e *Encoder) encodeVOP2(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := e.vgpr(sc, 1)
	if err != nil {
		return Encoded{}, err
	}
	if ent.Mode&ModeVOPSDst != 0 {
		// carry-out destination, must be vcc in the compact form
		if err := e.comma(sc); err != nil {
			return Encoded{}, err
		}
		sdst, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
		if err != nil {
			return Encoded{}, err
		}
		if sdst.Code != RegVCC || sdst.Regs() != 2 {
			if !hasExtended(ent) {
				return Encoded{}, errors.New("carry destination must be vcc")
			}
			return e.encodeVOP3Words(ent, sc, dst, sdst)
		}
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var lit bool
	src0, neg0, err := e.vopSrc(ent, sc, &lit, false)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	src1, neg1, err := e.vopSrc(ent, sc, &lit, false)
	if err != nil {
		return Encoded{}, err
	}

	needExtended := neg0 || neg1 || !src1.IsVGPR()
	if needExtended {
		if !hasExtended(ent) {
			return Encoded{}, errors.New("operands require the VOP3 form, which this instruction lacks")
		}
		if src0.HasLiteral() || src1.HasLiteral() {
			return Encoded{}, ErrLiteralNotAllowed
		}
		return e.vop3From(ent, uint32(dst.Code-CodeVGPR0), 0, src0, src1, Operand{}, neg0, neg1, false)
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = uint32(ent.Opcode1)<<25 | uint32(dst.Code-CodeVGPR0)<<17 |
		uint32(src1.Code-CodeVGPR0)<<9 | uint32(src0.Code)
	takeLiteral(&enc, src0)
	return enc, nil
}

// encodeVOP3Words finishes a VOP3B encode whose carry destination has
// already been parsed.
func (e *Encoder) encodeVOP3Words(ent *Entry, sc *scan.Scanner, dst, sdst Operand) (Encoded, error) {
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var lit bool
	src0, neg0, err := e.vopSrc(ent, sc, &lit, true)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	src1, neg1, err := e.vopSrc(ent, sc, &lit, true)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xD0000000 | uint32(ent.Opcode2)<<17 | uint32(sdst.Code)<<8 |
		uint32(dst.Code-CodeVGPR0)
	enc.Words[1] = vop3Sources(src0, src1, Operand{}, neg0, neg1, false)
	return enc, nil
}

func vop3Sources(src0, src1, src2 Operand, neg0, neg1, neg2 bool) uint32 {
	w := uint32(src0.Code) | uint32(src1.Code)<<9 | uint32(src2.Code)<<18
	if neg0 {
		w |= 1 << 29
	}
	if neg1 {
		w |= 1 << 30
	}
	if neg2 {
		w |= 1 << 31
	}
	return w
}

func (e *Encoder) vop3From(ent *Entry, vdst uint32, sdst uint16,
	src0, src1, src2 Operand, neg0, neg1, neg2 bool) (Encoded, error) {
	opc := ent.Opcode2
	kind := ent.Encoding2
	if kind == EncNone {
		opc = ent.Opcode1
		kind = ent.Encoding1
	}
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xD0000000 | uint32(opc)<<17 | vdst
	if kind == EncVOP3B {
		enc.Words[0] |= uint32(sdst) << 8
	}
	enc.Words[1] = vop3Sources(src0, src1, src2, neg0, neg1, neg2)
	return enc, nil
}

func (e *Encoder) encodeVOP1(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	var dst Operand
	var err error
	if ent.Mode&ModeNoDst == 0 {
		if dst, err = e.vgpr(sc, 1); err != nil {
			return Encoded{}, err
		}
	} else {
		// v_nop has no operands
		return Encoded{NumWords: 1, Words: [2]uint32{0x7E000000 | uint32(ent.Opcode1)<<9}}, nil
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var lit bool
	src0, neg0, err := e.vopSrc(ent, sc, &lit, false)
	if err != nil {
		return Encoded{}, err
	}
	if neg0 {
		if !hasExtended(ent) {
			return Encoded{}, errors.New("operands require the VOP3 form, which this instruction lacks")
		}
		return e.vop3From(ent, uint32(dst.Code-CodeVGPR0), 0, src0, Operand{}, Operand{}, true, false, false)
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0x7E000000 | uint32(dst.Code-CodeVGPR0)<<17 |
		uint32(ent.Opcode1)<<9 | uint32(src0.Code)
	takeLiteral(&enc, src0)
	return enc, nil
}

func (e *Encoder) encodeVOPC(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Encoded{}, err
	}
	if dst.Regs() != 2 {
		return Encoded{}, ErrIllegalRange
	}
	e.trackUsage(dst)
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var lit bool
	src0, neg0, err := e.vopSrc(ent, sc, &lit, false)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	src1, neg1, err := e.vopSrc(ent, sc, &lit, false)
	if err != nil {
		return Encoded{}, err
	}
	needExtended := neg0 || neg1 || !src1.IsVGPR() || dst.Code != RegVCC
	if needExtended {
		if !hasExtended(ent) {
			return Encoded{}, errors.New("operands require the VOP3 form, which this instruction lacks")
		}
		if src0.HasLiteral() || src1.HasLiteral() {
			return Encoded{}, ErrLiteralNotAllowed
		}
		enc := Encoded{NumWords: 2}
		enc.Words[0] = 0xD0000000 | uint32(ent.Opcode2)<<17 | uint32(dst.Code)
		enc.Words[1] = vop3Sources(src0, src1, Operand{}, neg0, neg1, false)
		return enc, nil
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0x7C000000 | uint32(ent.Opcode1)<<17 |
		uint32(src1.Code-CodeVGPR0)<<9 | uint32(src0.Code)
	takeLiteral(&enc, src0)
	return enc, nil
}

func (e *Encoder) encodeVOP3(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := e.vgpr(sc, 1)
	if err != nil {
		return Encoded{}, err
	}
	var sdst Operand
	if ent.Encoding1 == EncVOP3B {
		if err := e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if sdst, err = ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true); err != nil {
			return Encoded{}, err
		}
		if sdst.Regs() != 2 {
			return Encoded{}, ErrIllegalRange
		}
		e.trackUsage(sdst)
	}
	var lit bool
	srcs := make([]Operand, 0, 3)
	negs := make([]bool, 0, 3)
	nsrc := 2
	if ent.Mode&ModeSrc2 != 0 {
		nsrc = 3
	}
	for i := 0; i < nsrc; i++ {
		if err := e.comma(sc); err != nil {
			return Encoded{}, err
		}
		s, n, err := e.vopSrc(ent, sc, &lit, true)
		if err != nil {
			return Encoded{}, err
		}
		srcs = append(srcs, s)
		negs = append(negs, n)
	}
	for len(srcs) < 3 {
		srcs = append(srcs, Operand{})
		negs = append(negs, false)
	}
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xD0000000 | uint32(ent.Opcode1)<<17 | uint32(dst.Code-CodeVGPR0)
	if ent.Encoding1 == EncVOP3B {
		enc.Words[0] |= uint32(sdst.Code) << 8
	}
	enc.Words[1] = vop3Sources(srcs[0], srcs[1], srcs[2], negs[0], negs[1], negs[2])
	return enc, nil
}

// attrOperand parses "attr<N>.<chan>" for VINTRP.
func attrOperand(sc *scan.Scanner) (attr, chan_ uint32, err error) {
	sc.SkipSpaces()
	name := strings.ToLower(sc.Name())
	if !strings.HasPrefix(name, "attr") {
		return 0, 0, errors.New("expected attribute operand")
	}
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return 0, 0, errors.New("expected attribute channel")
	}
	n, err2 := strconv.Atoi(name[4:dot])
	if err2 != nil || n > 63 {
		return 0, 0, errors.New("attribute number out of range")
	}
	switch name[dot+1:] {
	case "x":
		chan_ = 0
	case "y":
		chan_ = 1
	case "z":
		chan_ = 2
	case "w":
		chan_ = 3
	default:
		return 0, 0, errors.New("bad attribute channel")
	}
	return uint32(n), chan_, nil
}

func (e *Encoder) encodeVINTRP(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dst, err := e.vgpr(sc, 1)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	var vsrc uint32
	if ent.Opcode1 == 2 { // v_interp_mov_f32 reads p0/p10/p20
		name := strings.ToLower(sc.Name())
		switch name {
		case "p10":
			vsrc = 0
		case "p20":
			vsrc = 1
		case "p0":
			vsrc = 2
		default:
			return Encoded{}, errors.New("expected p0, p10 or p20")
		}
	} else {
		src, err := e.vgpr(sc, 1)
		if err != nil {
			return Encoded{}, err
		}
		vsrc = uint32(src.Code - CodeVGPR0)
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	attr, ch, err := attrOperand(sc)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 1}
	enc.Words[0] = 0xC8000000 | uint32(dst.Code-CodeVGPR0)<<18 |
		uint32(ent.Opcode1)<<16 | attr<<10 | ch<<8 | vsrc
	return enc, nil
}

// dsModifiers parses trailing "offset:<n>" and "gds" modifiers.
func (e *Encoder) dsModifiers(sc *scan.Scanner) (offset uint32, gds bool, err error) {
	for {
		sc.SkipSpaces()
		if sc.EOF() {
			return offset, gds, nil
		}
		name := strings.ToLower(sc.Name())
		switch name {
		case "offset":
			if !sc.Expect(':') {
				return 0, false, errors.New("expected ':' after offset")
			}
			v, err := sc.Uint64()
			if err != nil {
				return 0, false, err
			}
			if v > 0xFFFF {
				return 0, false, errors.New("DS offset out of range")
			}
			offset = uint32(v)
		case "gds":
			gds = true
		case "":
			return offset, gds, nil
		default:
			return 0, false, fmt.Errorf("unknown modifier %q", name)
		}
	}
}

func (e *Encoder) encodeDS(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dataRegs := 1
	if ent.Mode&ModeDS64 != 0 {
		dataRegs = 2
	}
	var vdst, addr, data0 Operand
	var err error
	if ent.Mode&ModeDSLoad != 0 {
		if vdst, err = e.vgpr(sc, dataRegs); err != nil {
			return Encoded{}, err
		}
		if err = e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if addr, err = e.vgpr(sc, 1); err != nil {
			return Encoded{}, err
		}
	} else {
		if addr, err = e.vgpr(sc, 1); err != nil {
			return Encoded{}, err
		}
		if err = e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if data0, err = e.vgpr(sc, dataRegs); err != nil {
			return Encoded{}, err
		}
	}
	offset, gds, err := e.dsModifiers(sc)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xD8000000 | uint32(ent.Opcode1)<<18 | offset
	if gds {
		enc.Words[0] |= 1 << 17
	}
	w1 := uint32(addr.Code - CodeVGPR0)
	if ent.Mode&ModeDSLoad != 0 {
		w1 |= uint32(vdst.Code-CodeVGPR0) << 24
	} else {
		w1 |= uint32(data0.Code-CodeVGPR0) << 8
	}
	enc.Words[1] = w1
	return enc, nil
}

// bufModifiers parses MUBUF/MTBUF trailing modifiers.
type bufMods struct {
	offset               uint32
	offen, idxen         bool
	glc, slc, tfe, lds   bool
	dfmt, nfmt           uint32
}

func (e *Encoder) bufModifiers(sc *scan.Scanner, tbuf bool) (bufMods, error) {
	var m bufMods
	for {
		sc.SkipSpaces()
		if sc.EOF() {
			return m, nil
		}
		name := strings.ToLower(sc.Name())
		switch name {
		case "offset", "dfmt", "nfmt":
			if !sc.Expect(':') {
				return m, fmt.Errorf("expected ':' after %s", name)
			}
			v, err := sc.Uint64()
			if err != nil {
				return m, err
			}
			switch name {
			case "offset":
				if v > 0xFFF {
					return m, errors.New("buffer offset out of range")
				}
				m.offset = uint32(v)
			case "dfmt":
				if !tbuf || v > 15 {
					return m, errors.New("bad dfmt modifier")
				}
				m.dfmt = uint32(v)
			case "nfmt":
				if !tbuf || v > 7 {
					return m, errors.New("bad nfmt modifier")
				}
				m.nfmt = uint32(v)
			}
		case "offen":
			m.offen = true
		case "idxen":
			m.idxen = true
		case "glc":
			m.glc = true
		case "slc":
			m.slc = true
		case "tfe":
			m.tfe = true
		case "lds":
			m.lds = true
		case "":
			return m, nil
		default:
			return m, fmt.Errorf("unknown modifier %q", name)
		}
	}
}

func (e *Encoder) encodeMXBUF(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dataRegs := 1
	switch {
	case ent.Mode&ModeFLATX2 != 0:
		dataRegs = 2
	case ent.Mode&ModeFLATX4 != 0:
		dataRegs = 4
	}
	vdata, err := e.vgpr(sc, dataRegs)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	vaddr, err := e.vgpr(sc, 1)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	srsrc, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Encoded{}, err
	}
	if srsrc.Regs() != 4 {
		return Encoded{}, ErrIllegalRange
	}
	e.trackUsage(srsrc)
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	soffset, err := ParseOperand(sc, e.Symtab, e.Arch, e.Device.MaxSGPRs(),
		OpSRegs|OpSSource|OpOnlyInline|OpInt)
	if err != nil {
		return Encoded{}, err
	}
	e.trackUsage(soffset)
	tbuf := ent.Encoding1 == EncMTBUF
	m, err := e.bufModifiers(sc, tbuf)
	if err != nil {
		return Encoded{}, err
	}
	enc := Encoded{NumWords: 2}
	if tbuf {
		enc.Words[0] = 0xE8000000 | uint32(ent.Opcode1)<<16 | m.dfmt<<19 | m.nfmt<<23
	} else {
		enc.Words[0] = 0xE0000000 | uint32(ent.Opcode1)<<18
		if m.lds {
			enc.Words[0] |= 1 << 16
		}
	}
	enc.Words[0] |= m.offset
	if m.offen {
		enc.Words[0] |= 1 << 12
	}
	if m.idxen {
		enc.Words[0] |= 1 << 13
	}
	if m.glc {
		enc.Words[0] |= 1 << 14
	}
	w1 := uint32(vaddr.Code-CodeVGPR0) | uint32(vdata.Code-CodeVGPR0)<<8 |
		uint32(srsrc.Code>>2)<<16 | uint32(soffset.Code)<<24
	if m.slc {
		w1 |= 1 << 22
	}
	if m.tfe {
		w1 |= 1 << 23
	}
	enc.Words[1] = w1
	return enc, nil
}

func (e *Encoder) encodeMIMG(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	vdata, err := e.vgpr(sc, 1)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	vaddr, err := e.vgpr(sc, 4)
	if err != nil {
		return Encoded{}, err
	}
	if err := e.comma(sc); err != nil {
		return Encoded{}, err
	}
	srsrc, err := ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true)
	if err != nil {
		return Encoded{}, err
	}
	if srsrc.Regs() != 8 && srsrc.Regs() != 4 {
		return Encoded{}, ErrIllegalRange
	}
	e.trackUsage(srsrc)
	var ssamp Operand
	sc.SkipSpaces()
	if sc.Peek() == ',' {
		sc.Next()
		if ssamp, err = ParseSRegRange(sc, e.Arch, e.Device.MaxSGPRs(), true); err != nil {
			return Encoded{}, err
		}
		if ssamp.Regs() != 4 {
			return Encoded{}, ErrIllegalRange
		}
		e.trackUsage(ssamp)
	}
	var dmask uint32 = 1
	for {
		sc.SkipSpaces()
		if sc.EOF() {
			break
		}
		name := strings.ToLower(sc.Name())
		switch name {
		case "dmask":
			if !sc.Expect(':') {
				return Encoded{}, errors.New("expected ':' after dmask")
			}
			v, err := sc.Uint64()
			if err != nil {
				return Encoded{}, err
			}
			if v > 15 {
				return Encoded{}, errors.New("dmask out of range")
			}
			dmask = uint32(v)
		case "unorm":
			// accepted, encoded below
			dmask |= 0x10000 // marker bit, moved when packing
		case "":
			goto done
		default:
			return Encoded{}, fmt.Errorf("unknown modifier %q", name)
		}
	}
done:
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xF0000000 | uint32(ent.Opcode1)<<18 | (dmask&15)<<8
	if dmask&0x10000 != 0 {
		enc.Words[0] |= 1 << 12 // unorm
	}
	enc.Words[1] = uint32(vaddr.Code-CodeVGPR0) | uint32(vdata.Code-CodeVGPR0)<<8 |
		uint32(srsrc.Code>>2)<<16 | uint32(ssamp.Code>>2)<<21
	return enc, nil
}

// expTarget parses an export target name.
func expTarget(sc *scan.Scanner) (uint32, error) {
	sc.SkipSpaces()
	name := strings.ToLower(sc.Name())
	switch {
	case strings.HasPrefix(name, "mrtz"):
		return 8, nil
	case strings.HasPrefix(name, "mrt"):
		n, err := strconv.Atoi(name[3:])
		if err != nil || n > 7 {
			return 0, errors.New("bad export target")
		}
		return uint32(n), nil
	case name == "null":
		return 9, nil
	case strings.HasPrefix(name, "pos"):
		n, err := strconv.Atoi(name[3:])
		if err != nil || n > 3 {
			return 0, errors.New("bad export target")
		}
		return uint32(12 + n), nil
	case strings.HasPrefix(name, "param"):
		n, err := strconv.Atoi(name[5:])
		if err != nil || n > 31 {
			return 0, errors.New("bad export target")
		}
		return uint32(32 + n), nil
	}
	return 0, errors.New("bad export target")
}

func (e *Encoder) encodeEXP(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	tgt, err := expTarget(sc)
	if err != nil {
		return Encoded{}, err
	}
	var srcs [4]Operand
	for i := 0; i < 4; i++ {
		if err := e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if srcs[i], err = e.vgpr(sc, 1); err != nil {
			return Encoded{}, err
		}
	}
	var done, vm bool
	for {
		sc.SkipSpaces()
		if sc.EOF() {
			break
		}
		switch strings.ToLower(sc.Name()) {
		case "done":
			done = true
		case "vm":
			vm = true
		case "":
			goto packed
		default:
			return Encoded{}, errors.New("unknown export modifier")
		}
	}
packed:
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xF8000000 | 0xF | tgt<<4
	if done {
		enc.Words[0] |= 1 << 11
	}
	if vm {
		enc.Words[0] |= 1 << 12
	}
	enc.Words[1] = uint32(srcs[0].Code-CodeVGPR0) | uint32(srcs[1].Code-CodeVGPR0)<<8 |
		uint32(srcs[2].Code-CodeVGPR0)<<16 | uint32(srcs[3].Code-CodeVGPR0)<<24
	return enc, nil
}

func (e *Encoder) encodeFLAT(ent *Entry, sc *scan.Scanner) (Encoded, error) {
	dataRegs := 1
	switch {
	case ent.Mode&ModeFLATX2 != 0:
		dataRegs = 2
	case ent.Mode&ModeFLATX4 != 0:
		dataRegs = 4
	}
	var vdst, addr, data Operand
	var err error
	if ent.Mode&ModeFLATLoad != 0 {
		if vdst, err = e.vgpr(sc, dataRegs); err != nil {
			return Encoded{}, err
		}
		if err = e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if addr, err = e.vgpr(sc, 2); err != nil {
			return Encoded{}, err
		}
	} else {
		if addr, err = e.vgpr(sc, 2); err != nil {
			return Encoded{}, err
		}
		if err = e.comma(sc); err != nil {
			return Encoded{}, err
		}
		if data, err = e.vgpr(sc, dataRegs); err != nil {
			return Encoded{}, err
		}
	}
	var glc, slc, tfe bool
	for {
		sc.SkipSpaces()
		if sc.EOF() {
			break
		}
		switch strings.ToLower(sc.Name()) {
		case "glc":
			glc = true
		case "slc":
			slc = true
		case "tfe":
			tfe = true
		case "":
			goto packed
		default:
			return Encoded{}, errors.New("unknown flat modifier")
		}
	}
packed:
	enc := Encoded{NumWords: 2}
	enc.Words[0] = 0xDC000000 | uint32(ent.Opcode1)<<18
	if glc {
		enc.Words[0] |= 1 << 16
	}
	if slc {
		enc.Words[0] |= 1 << 17
	}
	w1 := uint32(addr.Code - CodeVGPR0)
	if ent.Mode&ModeFLATLoad != 0 {
		w1 |= uint32(vdst.Code-CodeVGPR0) << 24
	} else {
		w1 |= uint32(data.Code-CodeVGPR0) << 8
	}
	if tfe {
		w1 |= 1 << 23
	}
	enc.Words[1] = w1
	return enc, nil
}
