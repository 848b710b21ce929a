package gcn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/radeontools/gcnasm/internal/endian"
)

// RelocKind enumerates the relocation kinds GCN code uses.
type RelocKind byte

const (
	RelocAbs32Lo RelocKind = iota
	RelocAbs32Hi
	RelocPCRel32
)

// Reloc is a relocation provided by the container layer, emitted as a
// textual fixup at the operand it targets.
type Reloc struct {
	Offset uint64
	Kind   RelocKind
	Symbol string
	Addend int64
}

// NamedLabel is a label provided by the container layer (kernel symbols).
type NamedLabel struct {
	Offset uint64
	Name   string
}

// Decoder turns GCN machine code back into assembly text. Branch targets
// found in a pre-pass become numeric labels interleaved with any named
// labels the caller added.
type Decoder struct {
	Arch uint32
	// FloatLiterals appends the single-precision value of literal tails as
	// a trailing comment.
	FloatLiterals bool

	input  []byte
	labels []uint64
	named  []NamedLabel
	relocs []Reloc
	out    strings.Builder

	byOp map[EncKind]map[uint16]*Entry
}

func NewDecoder(arch uint32, code []byte) *Decoder {
	d := &Decoder{Arch: arch, input: code}
	d.byOp = map[EncKind]map[uint16]*Entry{}
	table := Table()
	for i := range table {
		ent := &table[i]
		if ent.ArchMask&arch == 0 {
			continue
		}
		d.index(ent.Encoding1, ent.Opcode1, ent)
		if ent.Opcode2 != NoOpcode2 {
			d.index(ent.Encoding2, ent.Opcode2, ent)
		}
	}
	return d
}

func (d *Decoder) index(kind EncKind, op uint16, ent *Entry) {
	m := d.byOp[kind]
	if m == nil {
		m = map[uint16]*Entry{}
		d.byOp[kind] = m
	}
	if _, taken := m[op]; !taken {
		m[op] = ent
	}
}

func (d *Decoder) AddNamedLabel(offset uint64, name string) {
	d.named = append(d.named, NamedLabel{Offset: offset, Name: name})
}

func (d *Decoder) AddReloc(r Reloc) {
	d.relocs = append(d.relocs, r)
}

// instrKind classifies the leading word of an instruction.
func instrKind(w uint32) EncKind {
	switch {
	case w>>23 == 0x17D:
		return EncSOP1
	case w>>23 == 0x17E:
		return EncSOPC
	case w>>23 == 0x17F:
		return EncSOPP
	case w>>28 == 0xB:
		return EncSOPK
	case w>>30 == 0x2:
		return EncSOP2
	case w>>27 == 0x18:
		return EncSMRD
	case w>>26 == 0x34:
		return EncVOP3A
	case w>>26 == 0x32:
		return EncVINTRP
	case w>>26 == 0x36:
		return EncDS
	case w>>26 == 0x37:
		return EncFLAT
	case w>>26 == 0x38:
		return EncMUBUF
	case w>>26 == 0x3A:
		return EncMTBUF
	case w>>26 == 0x3C:
		return EncMIMG
	case w>>26 == 0x3E:
		return EncEXP
	case w>>25 == 0x3F:
		return EncVOP1
	case w>>25 == 0x3E:
		return EncVOPC
	default:
		return EncVOP2
	}
}

// instrSize returns the byte length of the instruction starting at pos:
// 8 for two-word encodings, plus 4 when a literal tail follows.
func (d *Decoder) instrSize(pos int) int {
	w := endian.Uint32(d.input[pos:])
	switch instrKind(w) {
	case EncVOP3A, EncDS, EncFLAT, EncMUBUF, EncMTBUF, EncMIMG, EncEXP:
		return 8
	case EncSOP2:
		if byte(w) == CodeLiteral || byte(w>>8) == CodeLiteral {
			return 8
		}
	case EncSOP1:
		if byte(w) == CodeLiteral {
			return 8
		}
	case EncSOPC:
		if byte(w) == CodeLiteral || byte(w>>8) == CodeLiteral {
			return 8
		}
	case EncVOP2, EncVOP1, EncVOPC:
		if w&0x1FF == CodeLiteral {
			return 8
		}
	}
	return 4
}

// branch ops in the SOPP family whose simm16 is a displacement.
var soppBranchOps = map[uint16]bool{
	2: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true,
	23: true, 24: true,
}

// prescan walks the code recording branch targets as labels.
func (d *Decoder) prescan() {
	seen := map[uint64]bool{}
	for pos := 0; pos+4 <= len(d.input); pos += d.instrSize(pos) {
		w := endian.Uint32(d.input[pos:])
		if instrKind(w) != EncSOPP {
			continue
		}
		op := uint16(w >> 16 & 0x7F)
		if !soppBranchOps[op] {
			continue
		}
		target := uint64(int64(pos) + 4 + int64(int16(w))*4)
		if !seen[target] {
			seen[target] = true
			d.labels = append(d.labels, target)
		}
	}
	sort.Slice(d.labels, func(i, j int) bool { return d.labels[i] < d.labels[j] })
	sort.Slice(d.named, func(i, j int) bool { return d.named[i].Offset < d.named[j].Offset })
	sort.Slice(d.relocs, func(i, j int) bool { return d.relocs[i].Offset < d.relocs[j].Offset })
}

func (d *Decoder) labelName(target uint64) string {
	i := sort.Search(len(d.labels), func(i int) bool { return d.labels[i] >= target })
	if i < len(d.labels) && d.labels[i] == target {
		return fmt.Sprintf("L%d", i)
	}
	return fmt.Sprintf(".org_%x", target)
}

// Disassemble renders the whole input, labels interleaved.
func (d *Decoder) Disassemble() string {
	d.prescan()
	li, ni := 0, 0
	writeLabels := func(pos uint64) {
		for li < len(d.labels) && d.labels[li] <= pos {
			if d.labels[li] == pos {
				fmt.Fprintf(&d.out, "L%d:\n", li)
			}
			li++
		}
		for ni < len(d.named) && d.named[ni].Offset <= pos {
			if d.named[ni].Offset == pos {
				fmt.Fprintf(&d.out, "%s:\n", d.named[ni].Name)
			}
			ni++
		}
	}
	pos := 0
	for pos+4 <= len(d.input) {
		writeLabels(uint64(pos))
		size := d.instrSize(pos)
		if pos+size > len(d.input) {
			break
		}
		d.out.WriteString("        ")
		d.decodeOne(pos, size)
		d.out.WriteByte('\n')
		pos += size
	}
	writeLabels(uint64(pos))
	// trailing bytes that cannot hold an instruction
	for ; pos < len(d.input); pos++ {
		fmt.Fprintf(&d.out, "        .byte %d\n", d.input[pos])
	}
	return d.out.String()
}

func (d *Decoder) entryFor(kind EncKind, op uint16) *Entry {
	if m := d.byOp[kind]; m != nil {
		return m[op]
	}
	return nil
}

// sRegName formats a scalar operand code over n registers.
func sRegName(code uint16, n int, arch uint32) string {
	flatScratch := uint16(104)
	if arch&ArchGCN12 != 0 {
		flatScratch = 102
	}
	type named struct {
		code uint16
		name string
	}
	specials := []named{
		{RegVCC, "vcc"}, {RegEXEC, "exec"}, {RegTBA, "tba"}, {RegTMA, "tma"},
		{flatScratch, "flat_scratch"},
	}
	for _, s := range specials {
		if code == s.code && n == 2 {
			return s.name
		}
		if code == s.code && n == 1 {
			return s.name + "_lo"
		}
		if code == s.code+1 && n == 1 {
			return s.name + "_hi"
		}
	}
	switch {
	case code == RegM0:
		return "m0"
	case code >= RegTTMP0 && code < RegTTMP0+12:
		if n == 1 {
			return fmt.Sprintf("ttmp%d", code-RegTTMP0)
		}
		return fmt.Sprintf("ttmp[%d:%d]", code-RegTTMP0, int(code-RegTTMP0)+n-1)
	case n == 1:
		return fmt.Sprintf("s%d", code)
	default:
		return fmt.Sprintf("s[%d:%d]", code, int(code)+n-1)
	}
}

func vRegName(idx uint16, n int) string {
	if n == 1 {
		return fmt.Sprintf("v%d", idx)
	}
	return fmt.Sprintf("v[%d:%d]", idx, int(idx)+n-1)
}

// srcName formats a 9-bit source selector. literal is the tail value when
// code is CodeLiteral.
func (d *Decoder) srcName(code uint16, n int, literal uint32, litOffset uint64) string {
	switch {
	case code >= CodeVGPR0:
		return vRegName(code-CodeVGPR0, n)
	case code < 104:
		return sRegName(code, n, d.Arch)
	case code >= CodeZero && code <= CodeIntMax:
		return fmt.Sprintf("%d", code-CodeZero)
	case code > CodeNegBase && code <= CodeNegBase+16:
		return fmt.Sprintf("-%d", code-CodeNegBase)
	case code == CodeLiteral:
		if r := d.relocAt(litOffset); r != nil {
			return relocText(r)
		}
		if d.FloatLiterals {
			return fmt.Sprintf("0x%x /* %gf */", literal, endian.Float32([]byte{
				byte(literal), byte(literal >> 8), byte(literal >> 16), byte(literal >> 24)}))
		}
		return fmt.Sprintf("0x%x", literal)
	case code == CodeVCCZ:
		return "vccz"
	case code == CodeEXECZ:
		return "execz"
	case code == CodeSCC:
		return "scc"
	}
	switch code {
	case CodeHalf:
		return "0.5"
	case CodeNegHalf:
		return "-0.5"
	case CodeOne:
		return "1.0"
	case CodeNegOne:
		return "-1.0"
	case CodeTwo:
		return "2.0"
	case CodeNegTwo:
		return "-2.0"
	case CodeFour:
		return "4.0"
	case CodeNegFour:
		return "-4.0"
	case CodeInvTwoPi:
		return "0.15915494"
	}
	return sRegName(code, n, d.Arch)
}

func relocText(r *Reloc) string {
	s := r.Symbol
	switch r.Kind {
	case RelocAbs32Lo:
		s = s + "&0xffffffff"
	case RelocAbs32Hi:
		s = s + ">>32"
	}
	if r.Addend != 0 {
		return fmt.Sprintf("%s+%d", s, r.Addend)
	}
	return s
}

func (d *Decoder) relocAt(offset uint64) *Reloc {
	i := sort.Search(len(d.relocs), func(i int) bool { return d.relocs[i].Offset >= offset })
	if i < len(d.relocs) && d.relocs[i].Offset == offset {
		return &d.relocs[i]
	}
	return nil
}

func regs1(mode, bit uint32) int {
	if mode&bit != 0 {
		return 2
	}
	return 1
}

func (d *Decoder) decodeOne(pos, size int) {
	w := endian.Uint32(d.input[pos:])
	var w1, literal uint32
	if size == 8 {
		second := endian.Uint32(d.input[pos+4:])
		w1, literal = second, second
	}
	litOffset := uint64(pos + 4)
	kind := instrKind(w)
	switch kind {
	case EncSOP2:
		op := uint16(w >> 23 & 0x7F)
		ent := d.entryFor(EncSOP2, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		fmt.Fprintf(&d.out, "%s %s, %s, %s", ent.Mnemonic,
			sRegName(uint16(w>>16&0x7F), regs1(ent.Mode, ModeDst64), d.Arch),
			d.srcName(uint16(w&0xFF), regs1(ent.Mode, ModeSrc064), literal, litOffset),
			d.srcName(uint16(w>>8&0xFF), regs1(ent.Mode, ModeSrc164), literal, litOffset))
	case EncSOP1:
		op := uint16(w >> 8 & 0xFF)
		ent := d.entryFor(EncSOP1, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		d.out.WriteString(ent.Mnemonic)
		sep := " "
		if ent.Mode&ModeNoDst == 0 {
			fmt.Fprintf(&d.out, "%s%s", sep,
				sRegName(uint16(w>>16&0x7F), regs1(ent.Mode, ModeDst64), d.Arch))
			sep = ", "
		}
		if ent.Mode&ModeNoSrc == 0 {
			fmt.Fprintf(&d.out, "%s%s", sep,
				d.srcName(uint16(w&0xFF), regs1(ent.Mode, ModeSrc064), literal, litOffset))
		}
	case EncSOPK:
		op := uint16(w >> 23 & 0x1F)
		ent := d.entryFor(EncSOPK, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		fmt.Fprintf(&d.out, "%s %s, 0x%x", ent.Mnemonic,
			sRegName(uint16(w>>16&0x7F), 1, d.Arch), w&0xFFFF)
	case EncSOPC:
		op := uint16(w >> 16 & 0x7F)
		ent := d.entryFor(EncSOPC, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic,
			d.srcName(uint16(w&0xFF), regs1(ent.Mode, ModeSrc064), literal, litOffset),
			d.srcName(uint16(w>>8&0xFF), regs1(ent.Mode, ModeSrc164), literal, litOffset))
	case EncSOPP:
		op := uint16(w >> 16 & 0x7F)
		ent := d.entryFor(EncSOPP, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		d.out.WriteString(ent.Mnemonic)
		switch {
		case ent.Mode&ModeImmNone != 0:
		case ent.Mode&ModeImmRel != 0:
			target := uint64(int64(pos) + 4 + int64(int16(w))*4)
			fmt.Fprintf(&d.out, " %s", d.labelName(target))
		default:
			fmt.Fprintf(&d.out, " 0x%x", w&0xFFFF)
		}
	case EncSMRD:
		op := uint16(w >> 22 & 0x1F)
		ent := d.entryFor(EncSMRD, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		if ent.Mode&ModeSMRDNoArgs != 0 {
			d.out.WriteString(ent.Mnemonic)
			if ent.Mode&ModeNoDst == 0 {
				fmt.Fprintf(&d.out, " %s", sRegName(uint16(w>>15&0x7F), 2, d.Arch))
			}
			return
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
		baseRegs := 2
		if op >= 8 {
			baseRegs = 4
		}
		fmt.Fprintf(&d.out, "%s %s, %s, ", ent.Mnemonic,
			sRegName(uint16(w>>15&0x7F), dstRegs, d.Arch),
			sRegName(uint16(w>>9&0x3F)*2, baseRegs, d.Arch))
		if w&0x100 != 0 {
			fmt.Fprintf(&d.out, "0x%x", w&0xFF)
		} else {
			d.out.WriteString(sRegName(uint16(w&0xFF), 1, d.Arch))
		}
	case EncVOP2:
		op := uint16(w >> 25 & 0x3F)
		ent := d.entryFor(EncVOP2, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		fmt.Fprintf(&d.out, "%s %s", ent.Mnemonic, vRegName(uint16(w>>17&0xFF), 1))
		if ent.Mode&ModeVOPSDst != 0 {
			d.out.WriteString(", vcc")
		}
		fmt.Fprintf(&d.out, ", %s, %s",
			d.srcName(uint16(w&0x1FF), 1, literal, litOffset),
			vRegName(uint16(w>>9&0xFF), 1))
	case EncVOP1:
		op := uint16(w >> 9 & 0xFF)
		ent := d.entryFor(EncVOP1, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		if ent.Mode&ModeNoDst != 0 {
			d.out.WriteString(ent.Mnemonic)
			return
		}
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic,
			vRegName(uint16(w>>17&0xFF), 1),
			d.srcName(uint16(w&0x1FF), 1, literal, litOffset))
	case EncVOPC:
		op := uint16(w >> 17 & 0xFF)
		ent := d.entryFor(EncVOPC, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		fmt.Fprintf(&d.out, "%s vcc, %s, %s", ent.Mnemonic,
			d.srcName(uint16(w&0x1FF), 1, literal, litOffset),
			vRegName(uint16(w>>9&0xFF), 1))
	case EncVOP3A:
		d.decodeVOP3(w, w1)
	case EncVINTRP:
		op := uint16(w >> 16 & 0x3)
		ent := d.entryFor(EncVINTRP, op)
		if ent == nil {
			d.unknown(w, w1, size)
			return
		}
		var src string
		if op == 2 {
			src = [...]string{"p10", "p20", "p0", "p0"}[w&3]
		} else {
			src = vRegName(uint16(w&0xFF), 1)
		}
		fmt.Fprintf(&d.out, "%s %s, %s, attr%d.%c", ent.Mnemonic,
			vRegName(uint16(w>>18&0xFF), 1), src,
			w>>10&0x3F, "xyzw"[w>>8&3])
	case EncDS:
		d.decodeDS(w, w1)
	case EncMUBUF, EncMTBUF:
		d.decodeMXBUF(kind, w, w1)
	case EncMIMG:
		d.decodeMIMG(w, w1)
	case EncEXP:
		d.decodeEXP(w, w1)
	case EncFLAT:
		d.decodeFLAT(w, w1)
	default:
		d.unknown(w, w1, size)
	}
}

func (d *Decoder) unknown(w, w1 uint32, size int) {
	fmt.Fprintf(&d.out, ".int 0x%08x", w)
	if size == 8 {
		fmt.Fprintf(&d.out, ", 0x%08x", w1)
	}
}

func (d *Decoder) decodeVOP3(w, w1 uint32) {
	op := uint16(w >> 17 & 0x1FF)
	ent := d.entryFor(EncVOP3A, op)
	isB := false
	if ent == nil {
		ent = d.entryFor(EncVOP3B, op)
		isB = ent != nil
	}
	if ent == nil {
		d.unknown(w, w1, 8)
		return
	}
	if ent.Encoding2 == EncVOP3B && ent.Opcode2 == op {
		isB = true
	}
	neg := func(i uint, s string) string {
		if w1>>(29+i)&1 != 0 {
			return "-" + s
		}
		return s
	}
	// VOPC through VOP3 writes a scalar pair
	if op < 0x100 {
		fmt.Fprintf(&d.out, "%s %s, %s, %s", ent.Mnemonic,
			sRegName(uint16(w&0xFF), 2, d.Arch),
			neg(0, d.srcName(uint16(w1&0x1FF), 1, 0, 0)),
			neg(1, d.srcName(uint16(w1>>9&0x1FF), 1, 0, 0)))
		return
	}
	fmt.Fprintf(&d.out, "%s %s", ent.Mnemonic, vRegName(uint16(w&0xFF), 1))
	if isB {
		fmt.Fprintf(&d.out, ", %s", sRegName(uint16(w>>8&0x7F), 2, d.Arch))
	}
	nsrc := 2
	if ent.Mode&ModeSrc2 != 0 {
		nsrc = 3
	}
	shifts := [3]uint{0, 9, 18}
	for i := 0; i < nsrc; i++ {
		fmt.Fprintf(&d.out, ", %s",
			neg(uint(i), d.srcName(uint16(w1>>shifts[i]&0x1FF), 1, 0, 0)))
	}
}

func (d *Decoder) decodeDS(w, w1 uint32) {
	op := uint16(w >> 18 & 0xFF)
	ent := d.entryFor(EncDS, op)
	if ent == nil {
		d.unknown(w, w1, 8)
		return
	}
	dataRegs := 1
	if ent.Mode&ModeDS64 != 0 {
		dataRegs = 2
	}
	addr := vRegName(uint16(w1&0xFF), 1)
	if ent.Mode&ModeDSLoad != 0 {
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic,
			vRegName(uint16(w1>>24&0xFF), dataRegs), addr)
	} else {
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic, addr,
			vRegName(uint16(w1>>8&0xFF), dataRegs))
	}
	if off := w & 0xFFFF; off != 0 {
		fmt.Fprintf(&d.out, " offset:%d", off)
	}
	if w>>17&1 != 0 {
		d.out.WriteString(" gds")
	}
}

func (d *Decoder) decodeMXBUF(kind EncKind, w, w1 uint32) {
	var ent *Entry
	if kind == EncMTBUF {
		ent = d.entryFor(EncMTBUF, uint16(w>>16&0x7))
	} else {
		ent = d.entryFor(EncMUBUF, uint16(w>>18&0x7F))
	}
	if ent == nil {
		d.unknown(w, w1, 8)
		return
	}
	dataRegs := 1
	switch {
	case ent.Mode&ModeFLATX2 != 0:
		dataRegs = 2
	case ent.Mode&ModeFLATX4 != 0:
		dataRegs = 4
	}
	fmt.Fprintf(&d.out, "%s %s, %s, %s, %s", ent.Mnemonic,
		vRegName(uint16(w1>>8&0xFF), dataRegs),
		vRegName(uint16(w1&0xFF), 1),
		sRegName(uint16(w1>>16&0x1F)*4, 4, d.Arch),
		d.srcName(uint16(w1>>24&0xFF), 1, 0, 0))
	if kind == EncMTBUF {
		fmt.Fprintf(&d.out, " dfmt:%d nfmt:%d", w>>19&15, w>>23&7)
	}
	if off := w & 0xFFF; off != 0 {
		fmt.Fprintf(&d.out, " offset:%d", off)
	}
	if w>>12&1 != 0 {
		d.out.WriteString(" offen")
	}
	if w>>13&1 != 0 {
		d.out.WriteString(" idxen")
	}
	if w>>14&1 != 0 {
		d.out.WriteString(" glc")
	}
	if kind == EncMUBUF && w>>16&1 != 0 {
		d.out.WriteString(" lds")
	}
	if w1>>22&1 != 0 {
		d.out.WriteString(" slc")
	}
	if w1>>23&1 != 0 {
		d.out.WriteString(" tfe")
	}
}

func (d *Decoder) decodeMIMG(w, w1 uint32) {
	ent := d.entryFor(EncMIMG, uint16(w>>18&0x7F))
	if ent == nil {
		d.unknown(w, w1, 8)
		return
	}
	fmt.Fprintf(&d.out, "%s %s, %s, %s", ent.Mnemonic,
		vRegName(uint16(w1>>8&0xFF), 1),
		vRegName(uint16(w1&0xFF), 4),
		sRegName(uint16(w1>>16&0x1F)*4, 8, d.Arch))
	if ssamp := w1 >> 21 & 0x1F; ssamp != 0 {
		fmt.Fprintf(&d.out, ", %s", sRegName(uint16(ssamp)*4, 4, d.Arch))
	}
	fmt.Fprintf(&d.out, " dmask:%d", w>>8&15)
	if w>>12&1 != 0 {
		d.out.WriteString(" unorm")
	}
}

var expTargets = map[uint32]string{8: "mrtz", 9: "null"}

func (d *Decoder) decodeEXP(w, w1 uint32) {
	tgt := w >> 4 & 0x3F
	var name string
	switch {
	case tgt < 8:
		name = fmt.Sprintf("mrt%d", tgt)
	case expTargets[tgt] != "":
		name = expTargets[tgt]
	case tgt >= 12 && tgt <= 15:
		name = fmt.Sprintf("pos%d", tgt-12)
	case tgt >= 32 && tgt <= 63:
		name = fmt.Sprintf("param%d", tgt-32)
	default:
		name = fmt.Sprintf("target_%d", tgt)
	}
	fmt.Fprintf(&d.out, "exp %s, %s, %s, %s, %s", name,
		vRegName(uint16(w1&0xFF), 1), vRegName(uint16(w1>>8&0xFF), 1),
		vRegName(uint16(w1>>16&0xFF), 1), vRegName(uint16(w1>>24&0xFF), 1))
	if w>>11&1 != 0 {
		d.out.WriteString(" done")
	}
	if w>>12&1 != 0 {
		d.out.WriteString(" vm")
	}
}

func (d *Decoder) decodeFLAT(w, w1 uint32) {
	ent := d.entryFor(EncFLAT, uint16(w>>18&0x7F))
	if ent == nil {
		d.unknown(w, w1, 8)
		return
	}
	dataRegs := 1
	switch {
	case ent.Mode&ModeFLATX2 != 0:
		dataRegs = 2
	case ent.Mode&ModeFLATX4 != 0:
		dataRegs = 4
	}
	if ent.Mode&ModeFLATLoad != 0 {
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic,
			vRegName(uint16(w1>>24&0xFF), dataRegs),
			vRegName(uint16(w1&0xFF), 2))
	} else {
		fmt.Fprintf(&d.out, "%s %s, %s", ent.Mnemonic,
			vRegName(uint16(w1&0xFF), 2),
			vRegName(uint16(w1>>8&0xFF), dataRegs))
	}
	if w>>16&1 != 0 {
		d.out.WriteString(" glc")
	}
	if w>>17&1 != 0 {
		d.out.WriteString(" slc")
	}
	if w1>>23&1 != 0 {
		d.out.WriteString(" tfe")
	}
}
