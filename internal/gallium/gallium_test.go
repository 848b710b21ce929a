package gallium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radeontools/gcnasm/internal/endian"
)

func sampleInput() *Input {
	code := make([]byte, 16)
	endian.PutUint32(code[0:], 0xBF810000)  // s_endpgm
	endian.PutUint32(code[8:], 0xBF810000)
	return &Input{
		Code: code,
		Kernels: []KernelInput{
			{
				Name:   "zeta",
				Offset: 0,
				Args: []ArgInfo{
					{Type: ArgGlobal, Size: 8, TargetSize: 8, TargetAlign: 8,
						Semantic: SemanticGeneral},
					{Type: ArgScalar, Size: 4, TargetSize: 4, TargetAlign: 4,
						SignExtended: true, Semantic: SemanticGridOffset},
				},
				ProgInfo: [3][2]uint32{{0xB848, 0xC0000}, {0xB84C, 0x1FE}, {0xB860, 0}},
			},
			{
				Name:     "alpha",
				Offset:   8,
				ProgInfo: [3][2]uint32{{0xB848, 0xC0000}, {0xB84C, 0x1FE}, {0xB860, 0}},
			},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	data, err := Write(sampleInput())
	require.NoError(t, err)

	b, err := Read(data)
	require.NoError(t, err)

	// kernels come back sorted by name
	require.Len(t, b.Kernels, 2)
	assert.Equal(t, "alpha", b.Kernels[0].Name)
	assert.Equal(t, uint32(8), b.Kernels[0].Offset)
	assert.Equal(t, "zeta", b.Kernels[1].Name)
	require.Len(t, b.Kernels[1].Args, 2)
	arg := b.Kernels[1].Args[0]
	assert.Equal(t, ArgGlobal, arg.Type)
	assert.Equal(t, uint32(8), arg.Size)
	arg = b.Kernels[1].Args[1]
	assert.True(t, arg.SignExtended)
	assert.Equal(t, SemanticGridOffset, arg.Semantic)

	require.NotNil(t, b.Inner)
	i, text := b.Inner.SectionByName(".text")
	require.NotNil(t, text)
	assert.Equal(t, sampleInput().Code, b.Inner.SectionData(i))
}

func TestReadRejectsUnsortedKernels(t *testing.T) {
	data, err := Write(sampleInput())
	require.NoError(t, err)

	// swap the sorted kernel names in place: both are 4 /5 bytes long, so
	// corrupt the first name's first byte to break ordering instead
	// ("alpha" -> "zlpha" sorts after "zeta"'s prefix)
	pos := 4 + 4 // kernel count + name length
	require.Equal(t, byte('a'), data[pos])
	data[pos] = 'z'
	_, err = Read(data)
	require.Error(t, err)
}

func TestReadRejectsSizeMismatch(t *testing.T) {
	data, err := Write(sampleInput())
	require.NoError(t, err)

	// find the section header: it follows the kernel table; easier to scan
	// for the sizeOfData field relationship by corrupting the last u32
	// before the inner ELF magic
	magic := []byte{0x7F, 'E', 'L', 'F'}
	idx := -1
	for i := 0; i+4 <= len(data); i++ {
		if data[i] == magic[0] && data[i+1] == magic[1] &&
			data[i+2] == magic[2] && data[i+3] == magic[3] {
			idx = i
			break
		}
	}
	require.Positive(t, idx)
	endian.PutUint32(data[idx-4:], endian.Uint32(data[idx-4:])+1) // sizeFromHeader
	_, err = Read(data)
	require.ErrorIs(t, err, ErrBadSection)
}

func TestReadRejectsTruncated(t *testing.T) {
	data, err := Write(sampleInput())
	require.NoError(t, err)
	_, err = Read(data[:7])
	require.Error(t, err)
}
