// Package gcn implements the instruction-set codec for the AMD GCN family:
// the instruction table, the operand parser, and the per-encoding-family
// encoder and decoder. The assembler driver in internal/asm feeds it source
// operands; the disassembler feeds it raw code bytes.
package gcn

// EncKind identifies a GCN encoding family. Each family has a fixed primary
// word layout; VOP3A/VOP3B add a second word, and several families carry an
// optional 32-bit literal tail.
type EncKind byte

const (
	EncNone EncKind = iota
	EncSOP2
	EncSOP1
	EncSOPK
	EncSOPC
	EncSOPP
	EncSMRD
	EncVOP2
	EncVOP1
	EncVOPC
	EncVOP3A
	EncVOP3B
	EncVINTRP
	EncDS
	EncMUBUF
	EncMTBUF
	EncMIMG
	EncEXP
	EncFLAT
)

var encKindNames = [...]string{
	EncNone: "NONE", EncSOP2: "SOP2", EncSOP1: "SOP1", EncSOPK: "SOPK",
	EncSOPC: "SOPC", EncSOPP: "SOPP", EncSMRD: "SMRD", EncVOP2: "VOP2",
	EncVOP1: "VOP1", EncVOPC: "VOPC", EncVOP3A: "VOP3A", EncVOP3B: "VOP3B",
	EncVINTRP: "VINTRP", EncDS: "DS", EncMUBUF: "MUBUF", EncMTBUF: "MTBUF",
	EncMIMG: "MIMG", EncEXP: "EXP", EncFLAT: "FLAT",
}

func (k EncKind) String() string {
	if int(k) < len(encKindNames) {
		return encKindNames[k]
	}
	return "NONE"
}

// Architecture revision bits. An instruction table entry's ArchMask is an OR
// of these; the assembler matches them against the single bit of the current
// device's architecture.
const (
	ArchGCN10 uint32 = 1 << iota // Southern Islands
	ArchGCN11                    // Sea Islands
	ArchGCN12                    // Volcanic Islands

	ArchAll     = ArchGCN10 | ArchGCN11 | ArchGCN12
	ArchGCN11Up = ArchGCN11 | ArchGCN12
)

// Device is a concrete GPU model accepted by the .gpu directive.
type Device byte

const (
	DeviceUndefined Device = iota
	CapeVerde
	Pitcairn
	Tahiti
	Oland
	Bonaire
	Curacao
	Hawaii
	Spectre
	Spooky
	Kalindi
	Mullins
	Iceland
	Tonga
	Carrizo
	Fiji
	Stoney
)

type deviceInfo struct {
	name     string
	arch     uint32
	machine  [4]uint16 // kind, major, minor, stepping for the kernel descriptor
	maxSGPRs uint16
}

var deviceTable = [...]deviceInfo{
	CapeVerde: {"CapeVerde", ArchGCN10, [4]uint16{1, 6, 0, 0}, 104},
	Pitcairn:  {"Pitcairn", ArchGCN10, [4]uint16{1, 6, 0, 0}, 104},
	Tahiti:    {"Tahiti", ArchGCN10, [4]uint16{1, 6, 0, 0}, 104},
	Oland:     {"Oland", ArchGCN10, [4]uint16{1, 6, 0, 0}, 104},
	Bonaire:   {"Bonaire", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Curacao:   {"Curacao", ArchGCN10, [4]uint16{1, 6, 0, 0}, 104},
	Hawaii:    {"Hawaii", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Spectre:   {"Spectre", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Spooky:    {"Spooky", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Kalindi:   {"Kalindi", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Mullins:   {"Mullins", ArchGCN11, [4]uint16{1, 7, 0, 0}, 104},
	Iceland:   {"Iceland", ArchGCN12, [4]uint16{1, 8, 0, 0}, 102},
	Tonga:     {"Tonga", ArchGCN12, [4]uint16{1, 8, 0, 0}, 102},
	Carrizo:   {"Carrizo", ArchGCN12, [4]uint16{1, 8, 0, 0}, 102},
	Fiji:      {"Fiji", ArchGCN12, [4]uint16{1, 8, 0, 0}, 102},
	Stoney:    {"Stoney", ArchGCN12, [4]uint16{1, 8, 0, 0}, 102},
}

// DeviceByName resolves a .gpu directive argument, case-insensitively and
// ignoring underscores (both "CapeVerde" and "cape_verde" are accepted).
func DeviceByName(name string) (Device, bool) {
	key := normalizeDeviceName(name)
	for d, info := range deviceTable {
		if info.name != "" && normalizeDeviceName(info.name) == key {
			return Device(d), true
		}
	}
	return DeviceUndefined, false
}

func normalizeDeviceName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c == ' ' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// Arch returns the architecture bit for a device.
func (d Device) Arch() uint32 {
	if int(d) < len(deviceTable) {
		return deviceTable[d].arch
	}
	return 0
}

// Machine returns the amd_kernel_code machine tuple (kind, major, minor,
// stepping) for a device.
func (d Device) Machine() [4]uint16 {
	if int(d) < len(deviceTable) {
		return deviceTable[d].machine
	}
	return [4]uint16{}
}

// MaxSGPRs returns the number of addressable scalar registers on a device.
func (d Device) MaxSGPRs() uint16 {
	if int(d) < len(deviceTable) {
		return deviceTable[d].maxSGPRs
	}
	return 104
}

func (d Device) String() string {
	if int(d) < len(deviceTable) && deviceTable[d].name != "" {
		return deviceTable[d].name
	}
	return "Undefined"
}

// 9-bit operand selector codes, as the ISA defines them. Scalar registers are
// 0..103, vector registers are 256+index. The remaining codes select special
// registers, inline constants, and the literal tail.
const (
	RegVCC         = 106
	RegTBA         = 108
	RegTMA         = 110
	RegTTMP0       = 112
	RegM0          = 124
	RegEXEC        = 126
	RegFlatScratch = 104 // 102 on GCN 1.2
	RegXnackMask   = 104 // GCN 1.2 only

	CodeZero     = 128 // inline integer 0; also inline float +0.0
	CodeIntMax   = 192 // 128+64, largest positive inline integer code
	CodeNegBase  = 192 // 192+n encodes -n for n in 1..16
	CodeHalf     = 240 // +0.5
	CodeNegHalf  = 241
	CodeOne      = 242
	CodeNegOne   = 243
	CodeTwo      = 244
	CodeNegTwo   = 245
	CodeFour     = 246
	CodeNegFour  = 247
	CodeInvTwoPi = 248 // 1/(2*pi), GCN 1.2 only
	CodeVCCZ     = 251
	CodeEXECZ    = 252
	CodeSCC      = 253
	CodeLiteral  = 255
	CodeVGPR0    = 256
)

// Mode bits describe the operand schema of a table entry: how many sources
// the mnemonic takes, register widths, and immediate behavior. The encoder
// for each family interprets only the bits that family defines.
const (
	ModeDefault uint32 = 0

	ModeDst64  uint32 = 1 << 0 // destination is a 64-bit register pair
	ModeSrc064 uint32 = 1 << 1 // source 0 is a 64-bit register pair
	ModeSrc164 uint32 = 1 << 2 // source 1 is a 64-bit register pair
	ModeNoDst  uint32 = 1 << 3 // no destination operand in source text
	ModeNoSrc  uint32 = 1 << 4 // no source operands in source text

	ModeImmNone uint32 = 1 << 5 // SOPP: no simm16 operand (s_endpgm)
	ModeImmRel  uint32 = 1 << 6 // SOPP: simm16 is a PC-relative branch target

	ModeVOPSDst uint32 = 1 << 7 // VOP2: writes vcc as implicit second dst
	ModeF16     uint32 = 1 << 8 // operand type hint is half precision
	ModeFInt    uint32 = 1 << 9 // operand type hint is integer (no float lits)

	ModeSrc2 uint32 = 1 << 10 // VOP3A-only: a third source is required

	ModeSMRDImm   uint32 = 1 << 11 // SMRD: offset may be immediate or SGPR
	ModeSMRDDst64 uint32 = 1 << 12 // SMRD: destination is 2 registers
	ModeSMRDDstX4 uint32 = 1 << 13 // SMRD: destination is 4 registers
	ModeSMRDDstX8 uint32 = 1 << 14
	ModeSMRDDstX16 uint32 = 1 << 15
	ModeSMRDNoArgs uint32 = 1 << 16 // SMRD: s_dcache_inv style, no operands

	ModeDSLoad   uint32 = 1 << 17 // DS: vdst, addr [+offset]
	ModeDSStore  uint32 = 1 << 18 // DS: addr, data0 [+offset]
	ModeDS64     uint32 = 1 << 19 // DS: data is a 64-bit pair
	ModeFLATLoad uint32 = 1 << 20 // FLAT: vdst, addr-pair
	ModeFLATX2   uint32 = 1 << 21
	ModeFLATX4   uint32 = 1 << 22
)

// Entry is one row of the instruction table. Opcode2/Encoding2 hold the
// fused extended (VOP3) form when the mnemonic has both; Opcode2 == NoOpcode2
// means no alternate.
type Entry struct {
	Mnemonic  string
	Encoding1 EncKind
	Encoding2 EncKind
	Mode      uint32
	Opcode1   uint16
	Opcode2   uint16
	ArchMask  uint32
}

// NoOpcode2 marks an empty second opcode slot.
const NoOpcode2 = uint16(0xFFFF)
