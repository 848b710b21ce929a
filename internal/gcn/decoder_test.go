package gcn

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/scan"
)

func TestDecodeSMovB32(t *testing.T) {
	d := NewDecoder(ArchGCN10, []byte{0x80, 0x00, 0x87, 0xBE})
	out := d.Disassemble()
	line := strings.TrimSpace(out)
	assert.Equal(t, "s_mov_b32 s7, 0", line)
}

func TestDecodeSEndpgm(t *testing.T) {
	d := NewDecoder(ArchGCN10, []byte{0x00, 0x00, 0x81, 0xBF})
	assert.Equal(t, "s_endpgm", strings.TrimSpace(d.Disassemble()))
}

func TestDecodeLiteralTail(t *testing.T) {
	d := NewDecoder(ArchGCN10, []byte{
		0xFF, 0x03, 0x01, 0x81, // s_add_i32 s1, literal, s3
		0xCD, 0xCC, 0x9A, 0x3E,
	})
	line := strings.TrimSpace(d.Disassemble())
	assert.Equal(t, "s_add_i32 s1, 0x3e9acccd, s3", line)
}

func TestDecodeBranchLabels(t *testing.T) {
	// s_branch +1 word, s_nop, s_endpgm: label lands on the s_endpgm
	d := NewDecoder(ArchGCN10, []byte{
		0x01, 0x00, 0x82, 0xBF,
		0x00, 0x00, 0x80, 0xBF,
		0x00, 0x00, 0x81, 0xBF,
	})
	out := d.Disassemble()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "s_branch L0", strings.TrimSpace(lines[0]))
	assert.Equal(t, "L0:", lines[2])
	assert.Equal(t, "s_endpgm", strings.TrimSpace(lines[3]))
}

func TestDecodeNamedLabels(t *testing.T) {
	d := NewDecoder(ArchGCN10, []byte{
		0x00, 0x00, 0x81, 0xBF,
		0x00, 0x00, 0x81, 0xBF,
	})
	d.AddNamedLabel(4, "kernel2")
	out := d.Disassemble()
	assert.Contains(t, out, "kernel2:\n")
}

func TestDecodeRelocation(t *testing.T) {
	d := NewDecoder(ArchGCN10, []byte{
		0xFF, 0x00, 0x87, 0xBE, // s_mov_b32 s7, literal
		0x00, 0x00, 0x00, 0x00,
	})
	d.AddReloc(Reloc{Offset: 4, Kind: RelocAbs32Lo, Symbol: "gdata", Addend: 8})
	out := strings.TrimSpace(d.Disassemble())
	assert.Equal(t, "s_mov_b32 s7, gdata&0xffffffff+8", out)
}

// TestEncodeDecodeRoundTrip drives the decoder with the encoder's output and
// requires the mnemonic and operands to survive.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	lines := []string{
		"s_add_u32 s0, s1, s2",
		"s_sub_i32 s10, s4, 33",
		"s_and_b64 s[0:1], s[2:3], s[4:5]",
		"s_mov_b32 s7, 0",
		"s_mov_b64 s[4:5], exec",
		"s_not_b32 s2, vcc_lo",
		"s_movk_i32 s3, 0x1234",
		"s_cmp_eq_i32 s1, s2",
		"s_nop 0x7",
		"s_endpgm",
		"s_waitcnt 0x70f",
		"v_mov_b32 v1, s0",
		"v_add_f32 v0, v1, v2",
		"v_add_f32 v0, 0.5, v2",
		"v_add_f32 v0, -4.0, v2",
		"v_mul_f32 v3, s1, v2",
		"v_cmp_lt_f32 vcc, v0, v1",
		"v_mad_f32 v0, v1, v2, v3",
		"v_interp_p1_f32 v1, v2, attr0.x",
		"ds_read_b32 v1, v2 offset:16",
		"ds_write_b32 v2, v3",
		"buffer_load_dword v1, v2, s[8:11], s3 offset:4 offen",
		"exp mrt0, v0, v1, v2, v3 done vm",
	}
	for _, line := range lines {
		enc, _ := encodeLine(t, CapeVerde, line, 0)
		d := NewDecoder(ArchGCN10, enc.Bytes())
		got := strings.TrimSpace(d.Disassemble())
		assert.Equal(t, normalize(line), normalize(got), line)
	}
}

// normalize collapses spacing and hex-vs-decimal differences that the
// round-trip property does not constrain.
func normalize(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	for i, f := range fields {
		if v, ok := parseAnyInt(f); ok {
			fields[i] = v
		}
	}
	return strings.Join(fields, " ")
}

func parseAnyInt(s string) (string, bool) {
	sc := scan.New(s)
	v, err := sc.Uint64()
	if err != nil || !sc.EOF() {
		return "", false
	}
	return strconv.FormatUint(v, 10), true
}

// TestRoundTripGCN12 exercises architecture-gated instructions.
func TestRoundTripGCN12(t *testing.T) {
	for _, line := range []string{
		"flat_load_dword v1, v[2:3] glc",
		"flat_store_dword v[2:3], v4",
	} {
		enc, _ := encodeLine(t, Fiji, line, 0)
		d := NewDecoder(ArchGCN12, enc.Bytes())
		got := strings.TrimSpace(d.Disassemble())
		assert.Equal(t, normalize(line), normalize(got), line)
	}
}

// TestDecoderArchFilter: an SMRD word must stay undecoded on an
// architecture where the encoding is gone.
func TestDecoderArchFilter(t *testing.T) {
	symtab := expr.NewTable()
	sc := scan.New("s_load_dword s4, s[0:1], 0x10")
	sc.SkipSpaces()
	ent, err := Lookup(sc.Name(), ArchGCN10)
	require.NoError(t, err)
	e := NewEncoder(CapeVerde, symtab)
	enc, err := e.Encode(ent, sc, 0)
	require.NoError(t, err)

	d := NewDecoder(ArchGCN12, enc.Bytes())
	out := d.Disassemble()
	assert.Contains(t, out, ".int")
}
