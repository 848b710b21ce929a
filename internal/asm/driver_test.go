package asm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/endian"
	"github.com/radeontools/gcnasm/internal/gcn"
)

func assemble(t *testing.T, device gcn.Device, source string) (*Output, *CollectSink) {
	t.Helper()
	sink := &CollectSink{}
	a := New("test.s", device, FormatRawCode, sink)
	out, err := a.Assemble(source)
	require.NoError(t, err, "diags: %v", sink.Diags)
	return out, sink
}

func textOf(t *testing.T, out *Output) *Section {
	t.Helper()
	for _, s := range out.Sections {
		if s.Name == ".text" {
			return s
		}
	}
	t.Fatal("no .text section")
	return nil
}

func TestAssembleSingleInstructions(t *testing.T) {
	out, _ := assemble(t, gcn.CapeVerde, ".text\ns_mov_b32 s7, 0\n")
	assert.Equal(t, []byte{0x80, 0x00, 0x87, 0xBE}, textOf(t, out).Bytes)

	out, _ = assemble(t, gcn.CapeVerde, ".text\ns_endpgm\n")
	assert.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF}, textOf(t, out).Bytes)
}

func TestForwardBranchPatch(t *testing.T) {
	src := `.text
start:
        s_branch done
        s_nop 0
done:
        s_endpgm
`
	out, _ := assemble(t, gcn.CapeVerde, src)
	text := textOf(t, out).Bytes
	require.Len(t, text, 12)
	// done is at 8: (8 - 0 - 4) / 4 = 1
	assert.Equal(t, uint32(0xBF820001), endian.Uint32(text[0:]))
}

func TestForwardLiteralPatch(t *testing.T) {
	src := `.text
        s_mov_b32 s0, later+4
        s_endpgm
.set later, 96
`
	out, _ := assemble(t, gcn.CapeVerde, src)
	text := textOf(t, out).Bytes
	require.Len(t, text, 12)
	assert.Equal(t, uint32(100), endian.Uint32(text[4:]))
}

func TestUndefinedSymbolFails(t *testing.T) {
	sink := &CollectSink{}
	a := New("test.s", gcn.CapeVerde, FormatRawCode, sink)
	_, err := a.Assemble(".text\ns_mov_b32 s0, nowhere\n")
	require.Error(t, err)
	require.NotEmpty(t, sink.Errors())
	assert.Contains(t, sink.Errors()[0].Message, "undefined symbol")
}

func TestRedefinitionRules(t *testing.T) {
	// a .set repeating the same value is legal
	_, sink := assemble(t, gcn.CapeVerde, ".set x, 5\n.set x, 5\n")
	assert.Empty(t, sink.Errors())

	// changing the value is not
	sink = &CollectSink{}
	a := New("test.s", gcn.CapeVerde, FormatRawCode, sink)
	_, err := a.Assemble(".set x, 5\n.set x, 6\n")
	require.Error(t, err)
	assert.Contains(t, sink.Errors()[0].Message, "already defined")

	// neither is redefining a label
	sink = &CollectSink{}
	a = New("test.s", gcn.CapeVerde, FormatRawCode, sink)
	_, err = a.Assemble(".text\nlbl:\nlbl:\n")
	require.Error(t, err)
}

func TestDiagnosticsAccumulate(t *testing.T) {
	sink := &CollectSink{}
	a := New("test.s", gcn.CapeVerde, FormatRawCode, sink)
	_, err := a.Assemble(".text\ns_bogus_op s0\ns_other_bogus s1\ns_endpgm\n")
	require.Error(t, err)
	// one diagnostic per bad line; assembly continued past the first
	require.Len(t, sink.Errors(), 2)
	assert.Equal(t, 2, sink.Errors()[0].Line)
	assert.Equal(t, 3, sink.Errors()[1].Line)
}

func TestArchGatingDiagnostic(t *testing.T) {
	sink := &CollectSink{}
	a := New("test.s", gcn.Fiji, FormatRawCode, sink)
	_, err := a.Assemble(".text\ns_load_dword s4, s[0:1], 0x10\n")
	require.Error(t, err)
	require.NotEmpty(t, sink.Errors())
	assert.Equal(t, CatSemantic, sink.Errors()[0].Category)
}

func TestDataDirectives(t *testing.T) {
	src := `.data
        .byte 1, 2
        .short 0x1234
        .int 0xAABBCCDD
        .quad 0x1122334455667788
        .ascii "hi"
        .fill 3, 1, 0xEE
        .skip 2, 0x11
`
	out, _ := assemble(t, gcn.CapeVerde, src)
	var data *Section
	for _, s := range out.Sections {
		if s.Name == ".data" {
			data = s
		}
	}
	require.NotNil(t, data)
	want := []byte{
		1, 2,
		0x34, 0x12,
		0xDD, 0xCC, 0xBB, 0xAA,
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
		'h', 'i',
		0xEE, 0xEE, 0xEE,
		0x11, 0x11,
	}
	assert.Equal(t, want, data.Bytes)
}

func TestAlignPadsCodeWithNops(t *testing.T) {
	src := `.text
        s_endpgm
.align 16
        s_endpgm
`
	out, _ := assemble(t, gcn.CapeVerde, src)
	text := textOf(t, out).Bytes
	require.Len(t, text, 20)
	for off := 4; off < 16; off += 4 {
		assert.Equal(t, uint32(0xBF800000), endian.Uint32(text[off:]), "filler at %d", off)
	}
}

// the ROCm integration fixture: two kernels with full configuration.
const rocmFixture = `        .rocm
        .gpu Fiji
.kernel kxx1
    .fkernel
    .config
        .codeversion 1,0
        .call_convention 0x34dac
        .debug_private_segment_buffer_sgpr 123834
        .debug_wavefront_private_segment_offset_sgpr 129
        .gds_segment_size 100
        .kernarg_segment_align 32
        .workgroup_group_segment_size 22
        .workgroup_fbarrier_count 3324
        .dx10clamp
        .exceptions 10
        .private_segment_align 128
        .privmode
        .reserved_sgpr_first 10
        .reserved_sgpr_count 5
        .runtime_loader_kernel_symbol 0x4dc98b3a
        .scratchbuffer 77222
        .reserved_sgpr_count 4
        .reserved_sgpr_first 9
        .reserved_vgpr_count 11
        .reserved_vgpr_first 7
        .private_elem_size 16
    .control_directive
        .int 1,2,3
        .fill 116,1,0
.kernel kxx2
    .config
        .codeversion 1,0
        .call_convention 0x112223
.kernel kxx1
    .config
        .scratchbuffer 111
.text
kxx1:
        .skip 256
        s_mov_b32 s7, 0
        s_endpgm

.align 256
kxx2:
        .skip 256
        s_endpgm
.section .comment
        .ascii "some comment for you"
.kernel kxx2
    .control_directive
        .fill 124,1,0xde
    .config
        .use_kernarg_segment_ptr
    .control_directive
        .int 0xaadd66cc
    .config
.kernel kxx1
.kernel kxx2
        .call_convention 0x1112234
`

func TestROCmFixture(t *testing.T) {
	sink := &CollectSink{}
	a := New("test.s", gcn.CapeVerde, FormatRawCode, sink)
	out, err := a.Assemble(rocmFixture)
	require.NoError(t, err, "diags: %v", sink.Diags)
	assert.Empty(t, sink.Diags)
	assert.Equal(t, FormatROCm, out.Format)
	assert.Equal(t, gcn.Fiji, out.Device)

	text := textOf(t, out).Bytes
	require.Len(t, text, 772)

	require.Len(t, out.Kernels, 2)
	kxx1, kxx2 := out.Kernels[0], out.Kernels[1]
	require.Equal(t, "kxx1", kxx1.Name)
	require.Equal(t, "kxx2", kxx2.Name)
	assert.True(t, kxx1.FKernel)
	assert.False(t, kxx2.FKernel)
	assert.Equal(t, uint64(0), kxx1.Offset)
	assert.Equal(t, uint64(512), kxx2.Offset)

	// kxx1 descriptor fields at their canonical offsets
	d1 := text[0:256]
	assert.Equal(t, []byte{1, 0, 0, 0}, d1[0:4], "codeVersionMajor")
	assert.Equal(t, []byte{0, 0, 0, 0}, d1[4:8], "codeVersionMinor")
	assert.Equal(t, uint16(1), endian.Uint16(d1[8:]), "machineKind")
	assert.Equal(t, uint16(8), endian.Uint16(d1[10:]), "machineMajor")
	assert.Equal(t, uint64(256), endian.Uint64(d1[16:]), "codeEntryOffset")
	assert.Equal(t, uint32(0x3C0000), endian.Uint32(d1[48:]), "computePgmRsrc1")
	assert.Equal(t, uint32(0x0A0001FF), endian.Uint32(d1[52:]), "computePgmRsrc2")
	assert.Equal(t, uint16(0), endian.Uint16(d1[56:]), "enableSgprFlags")
	assert.Equal(t, uint16(6), endian.Uint16(d1[58:]), "enableFeatureFlags")
	assert.Equal(t, uint32(111), endian.Uint32(d1[60:]), "workitemPrivateSegmentSize")
	assert.Equal(t, uint32(22), endian.Uint32(d1[64:]), "workgroupGroupSegmentSize")
	assert.Equal(t, uint32(100), endian.Uint32(d1[68:]), "gdsSegmentSize")
	assert.Equal(t, uint32(3324), endian.Uint32(d1[80:]), "workgroupFbarrierCount")
	assert.Equal(t, uint16(8), endian.Uint16(d1[84:]), "wavefrontSgprCount")
	assert.Equal(t, uint16(1), endian.Uint16(d1[86:]), "workitemVgprCount")
	assert.Equal(t, uint16(7), endian.Uint16(d1[88:]), "reservedVgprFirst")
	assert.Equal(t, uint16(11), endian.Uint16(d1[90:]), "reservedVgprCount")
	assert.Equal(t, uint16(9), endian.Uint16(d1[92:]), "reservedSgprFirst")
	assert.Equal(t, uint16(4), endian.Uint16(d1[94:]), "reservedSgprCount")
	assert.Equal(t, uint16(129), endian.Uint16(d1[96:]), "debugWavefrontPrivateSegmentOffsetSgpr")
	assert.Equal(t, uint16(58298), endian.Uint16(d1[98:]), "debugPrivateSegmentBufferSgpr")
	assert.Equal(t, byte(5), d1[100], "kernargSegmentAlignment")
	assert.Equal(t, byte(4), d1[101], "groupSegmentAlignment")
	assert.Equal(t, byte(7), d1[102], "privateSegmentAlignment")
	assert.Equal(t, byte(6), d1[103], "wavefrontSize")
	assert.Equal(t, uint32(0x34DAC), endian.Uint32(d1[104:]), "callConvention")
	assert.Equal(t, uint64(0x4DC98B3A), endian.Uint64(d1[120:]), "runtimeLoaderKernelSymbol")

	// kxx1 control directive: .int 1,2,3 then 116 zero bytes
	ctl := d1[128:256]
	assert.Equal(t, uint32(1), endian.Uint32(ctl[0:]))
	assert.Equal(t, uint32(2), endian.Uint32(ctl[4:]))
	assert.Equal(t, uint32(3), endian.Uint32(ctl[8:]))
	assert.Equal(t, bytes.Repeat([]byte{0}, 116), ctl[12:])

	// kxx1 code region
	assert.Equal(t, []byte{0x80, 0x00, 0x87, 0xBE}, text[256:260], "s_mov_b32 s7, 0")
	assert.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF}, text[260:264], "s_endpgm")
	for off := 264; off < 512; off += 4 {
		assert.Equal(t, uint32(0xBF800000), endian.Uint32(text[off:]), "s_nop filler at %d", off)
	}

	// kxx2 descriptor
	d2 := text[512:768]
	assert.Equal(t, uint32(0xC0000), endian.Uint32(d2[48:]), "computePgmRsrc1")
	assert.Equal(t, uint32(0x1FE), endian.Uint32(d2[52:]), "computePgmRsrc2")
	assert.Equal(t, uint16(8), endian.Uint16(d2[56:]), "enableSgprFlags")
	assert.Equal(t, uint16(0), endian.Uint16(d2[58:]), "enableFeatureFlags")
	assert.Equal(t, uint16(2), endian.Uint16(d2[84:]), "wavefrontSgprCount")
	assert.Equal(t, uint16(1), endian.Uint16(d2[86:]), "workitemVgprCount")
	assert.Equal(t, byte(4), d2[100], "kernargSegmentAlignment")
	assert.Equal(t, uint32(0x1112234), endian.Uint32(d2[104:]), "callConvention")

	// kxx2 control directive: 124 bytes of 0xDE then 0xAADD66CC
	ctl2 := d2[128:256]
	assert.Equal(t, bytes.Repeat([]byte{0xDE}, 124), ctl2[:124])
	assert.Equal(t, uint32(0xAADD66CC), endian.Uint32(ctl2[124:]))

	// trailing kxx2 code
	assert.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF}, text[768:772])

	// comment section
	var comment *Section
	for _, s := range out.Sections {
		if s.Name == ".comment" {
			comment = s
		}
	}
	require.NotNil(t, comment)
	assert.Equal(t, "some comment for you", string(comment.Bytes))
}

// TestFinalizeIdempotence re-runs the whole job on identical input and
// requires identical section bytes.
func TestFinalizeIdempotence(t *testing.T) {
	run := func() []byte {
		out, _ := assemble(t, gcn.CapeVerde, rocmFixture)
		return textOf(t, out).Bytes
	}
	assert.Equal(t, run(), run())
}
