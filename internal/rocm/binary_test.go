package rocm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/asm"
	"github.com/radeontools/gcnasm/internal/gcn"
)

func assembleFixture(t *testing.T, source string) *asm.Output {
	t.Helper()
	sink := &asm.CollectSink{}
	a := asm.New("test.s", gcn.Fiji, asm.FormatROCm, sink)
	out, err := a.Assemble(source)
	require.NoError(t, err, "diags: %v", sink.Diags)
	return out
}

const fixture = `.kernel k1
    .config
        .codeversion 1,0
        .kernarg_segment_size 32
.text
k1:
        .skip 256
        s_mov_b32 s7, 0
        s_endpgm
.section .comment
        .ascii "made by the test"
`

func TestWriteReadRoundTrip(t *testing.T) {
	out := assembleFixture(t, fixture)
	data, err := Write(out)
	require.NoError(t, err)

	b, err := Read(data)
	require.NoError(t, err)

	require.Len(t, b.Symbols, 1)
	assert.Equal(t, "k1", b.Symbols[0].Name)
	assert.Equal(t, uint64(0), b.Symbols[0].Offset)
	assert.Equal(t, RegionKernel, b.Symbols[0].Type)

	require.Len(t, b.Code, 264)
	assert.Equal(t, []byte{0x80, 0x00, 0x87, 0xBE}, b.Code[256:260])

	assert.Equal(t, "made by the test", string(b.Comment))

	require.NotNil(t, b.Metadata)
	require.Len(t, b.Metadata.Kernels, 1)
	md := b.Metadata.Kernels[0]
	assert.Equal(t, "k1", md.Name)
	assert.Equal(t, "k1.kd", md.Symbol)
	assert.Equal(t, uint64(32), md.KernargSegmentSize)
	assert.Equal(t, uint64(8), md.SGPRCount)
	assert.Equal(t, uint64(64), md.WavefrontSize)
}

func TestFKernelRoundTrip(t *testing.T) {
	out := assembleFixture(t, `.kernel fk
    .fkernel
    .config
        .codeversion 1,0
.text
fk:
        .skip 256
        s_endpgm
`)
	data, err := Write(out)
	require.NoError(t, err)

	b, err := Read(data)
	require.NoError(t, err)
	require.Len(t, b.Symbols, 1)
	assert.Equal(t, RegionFKernel, b.Symbols[0].Type)
}

func TestWriteWithoutText(t *testing.T) {
	_, err := Write(&asm.Output{})
	require.Error(t, err)
}
