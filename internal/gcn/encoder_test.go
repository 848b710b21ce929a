package gcn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/scan"
)

// encodeLine runs lookup plus encode for one instruction line.
func encodeLine(t *testing.T, device Device, line string, offset uint64) (Encoded, *Encoder) {
	t.Helper()
	sc := scan.New(line)
	sc.SkipSpaces()
	mnemonic := sc.Name()
	ent, err := Lookup(mnemonic, device.Arch())
	require.NoError(t, err, line)
	e := NewEncoder(device, expr.NewTable())
	enc, err := e.Encode(ent, sc, offset)
	require.NoError(t, err, line)
	return enc, e
}

func TestEncodeSMovB32(t *testing.T) {
	enc, e := encodeLine(t, CapeVerde, "s_mov_b32 s7, 0", 0)
	assert.Equal(t, []byte{0x80, 0x00, 0x87, 0xBE}, enc.Bytes())
	assert.Equal(t, uint16(8), e.SGPRCount())
}

func TestEncodeSEndpgm(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde, "s_endpgm", 0)
	assert.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF}, enc.Bytes())
}

func TestEncodeBytes(t *testing.T) {
	for _, tc := range []struct {
		line string
		want []uint32
		lit  uint32
	}{
		{line: "s_add_u32 s0, s1, s2",
			want: []uint32{0x80000000 | 0<<16 | 2<<8 | 1}},
		{line: "s_and_b64 s[0:1], s[2:3], s[4:5]",
			want: []uint32{0x80000000 | 15<<23 | 0<<16 | 4<<8 | 2}},
		{line: "s_nop 0x5",
			want: []uint32{0xBF800005}},
		{line: "s_movk_i32 s3, 0x1234",
			want: []uint32{0xB0000000 | 3<<16 | 0x1234}},
		{line: "s_cmp_eq_i32 s1, s2",
			want: []uint32{0xBF000000 | 2<<8 | 1}},
		{line: "v_mov_b32 v1, s0",
			want: []uint32{0x7E000000 | 1<<17 | 1<<9 | 0}},
		{line: "v_add_f32 v0, v1, v2",
			want: []uint32{uint32(3)<<25 | 0<<17 | 2<<9 | (256 + 1)}},
		{line: "v_add_f32 v0, 0.5, v2",
			want: []uint32{uint32(3)<<25 | 0<<17 | 2<<9 | CodeHalf}},
		{line: "v_cmp_lt_f32 vcc, v0, v1",
			want: []uint32{0x7C000000 | 1<<17 | 1<<9 | 256}},
		{line: "s_load_dword s4, s[0:1], 0x10",
			want: []uint32{0xC0000000 | 0<<22 | 4<<15 | 0<<9 | 1<<8 | 0x10}},
		{line: "v_interp_p1_f32 v1, v2, attr0.x",
			want: []uint32{0xC8000000 | 1<<18 | 0<<16 | 0<<10 | 0<<8 | 2}},
	} {
		enc, _ := encodeLine(t, CapeVerde, tc.line, 0)
		require.Equal(t, len(tc.want), enc.NumWords, tc.line)
		for i, w := range tc.want {
			assert.Equal(t, w, enc.Words[i], tc.line)
		}
	}
}

func TestEncodeLiteralTail(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde, "v_add_f32 v0, 0.3, v2", 0)
	require.True(t, enc.HasLiteral)
	assert.Equal(t, uint32(0x3E99999A), enc.Literal)
	assert.Equal(t, 8, enc.Size())
	// tail is little-endian after the primary word
	assert.Equal(t, []byte{0x9A, 0x99, 0x99, 0x3E}, enc.Bytes()[4:])
}

func TestEncodeTooManyLiterals(t *testing.T) {
	sc := scan.New("s_add_u32 s0, 1000, 2000")
	sc.SkipSpaces()
	ent, err := Lookup(sc.Name(), CapeVerde.Arch())
	require.NoError(t, err)
	e := NewEncoder(CapeVerde, expr.NewTable())
	_, err = e.Encode(ent, sc, 0)
	require.ErrorIs(t, err, ErrTooManyLiterals)
}

func TestEncodeBranch(t *testing.T) {
	symtab := expr.NewTable()
	symtab.Define("target", 0, 16)
	sc := scan.New("s_branch target")
	sc.SkipSpaces()
	ent, err := Lookup(sc.Name(), CapeVerde.Arch())
	require.NoError(t, err)
	e := NewEncoder(CapeVerde, symtab)
	enc, err := e.Encode(ent, sc, 4)
	require.NoError(t, err)
	// (16 - 4 - 4) / 4 = 2
	assert.Equal(t, uint32(0xBF820002), enc.Words[0])
}

func TestEncodeBranchBackward(t *testing.T) {
	rel, err := BranchDisplacement(16, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFB), rel) // -5 words

	_, err = BranchDisplacement(0, 3)
	require.Error(t, err)
}

func TestVOP3Promotion(t *testing.T) {
	// an SGPR in the vsrc1 slot forces the extended form
	enc, _ := encodeLine(t, CapeVerde, "v_add_f32 v0, v1, s2", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xD0000000)|uint32(0x103)<<17|0, enc.Words[0])
	assert.Equal(t, uint32(256+1)|uint32(2)<<9, enc.Words[1])

	// source negation also forces it
	enc, _ = encodeLine(t, CapeVerde, "v_add_f32 v0, -v1, v2", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(1)<<29, enc.Words[1]&(1<<29))
}

func TestVOP3ThreeSources(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde, "v_mad_f32 v0, v1, v2, v3", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xD0000000)|uint32(0x141)<<17, enc.Words[0])
	assert.Equal(t, uint32(256+1)|uint32(256+2)<<9|uint32(256+3)<<18, enc.Words[1])
}

func TestVOP3RejectsLiteral(t *testing.T) {
	sc := scan.New("v_mad_f32 v0, v1, 1000, v3")
	sc.SkipSpaces()
	ent, err := Lookup(sc.Name(), CapeVerde.Arch())
	require.NoError(t, err)
	e := NewEncoder(CapeVerde, expr.NewTable())
	_, err = e.Encode(ent, sc, 0)
	require.ErrorIs(t, err, ErrLiteralNotAllowed)
}

func TestRegisterUsageTracking(t *testing.T) {
	e := NewEncoder(CapeVerde, expr.NewTable())
	for _, line := range []string{
		"v_add_f32 v5, v1, v2",
		"s_mov_b32 s30, 4",
		"s_and_b64 s[0:1], s[2:3], vcc",
	} {
		sc := scan.New(line)
		sc.SkipSpaces()
		ent, err := Lookup(sc.Name(), CapeVerde.Arch())
		require.NoError(t, err)
		_, err = e.Encode(ent, sc, 0)
		require.NoError(t, err)
	}
	// vcc and friends do not count toward the SGPR maximum
	assert.Equal(t, uint16(31), e.SGPRCount())
	assert.Equal(t, uint16(6), e.VGPRCount())
}

func TestEncodeDSAndFlat(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde, "ds_read_b32 v1, v2 offset:16", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xD8000000)|uint32(54)<<18|16, enc.Words[0])
	assert.Equal(t, uint32(2)|uint32(1)<<24, enc.Words[1])

	enc, _ = encodeLine(t, Hawaii, "flat_load_dword v1, v[2:3] glc", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xDC000000)|uint32(12)<<18|1<<16, enc.Words[0])
	assert.Equal(t, uint32(2)|uint32(1)<<24, enc.Words[1])
}

func TestEncodeMUBUF(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde,
		"buffer_load_dword v1, v2, s[8:11], s3 offen offset:4", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xE0000000)|uint32(12)<<18|1<<12|4, enc.Words[0])
	assert.Equal(t, uint32(2)|uint32(1)<<8|uint32(2)<<16|uint32(3)<<24, enc.Words[1])
}

func TestEncodeEXP(t *testing.T) {
	enc, _ := encodeLine(t, CapeVerde, "exp mrt0, v0, v1, v2, v3 done vm", 0)
	require.Equal(t, 2, enc.NumWords)
	assert.Equal(t, uint32(0xF8000000)|0xF|1<<11|1<<12, enc.Words[0])
	assert.Equal(t, uint32(0)|uint32(1)<<8|uint32(2)<<16|uint32(3)<<24, enc.Words[1])
}
