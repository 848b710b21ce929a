package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestELF makes a minimal binary with .text, .symtab, .strtab and
// .shstrtab for the given class.
func buildTestELF(t *testing.T, class Class) []byte {
	t.Helper()
	w := NewWriter(HeaderDef{
		Class:       class,
		Type:        1,
		Machine:     224,
		Version:     1,
		EntryRegion: -1,
	})
	w.AddRegion(Region{
		Type: RegionSection, Name: ".text", SecType: SHTProgbits,
		SecFlags: 0x6, Align: 4,
		Size: 8, Data: []byte{0x00, 0x00, 0x81, 0xBF, 0x00, 0x00, 0x80, 0xBF},
	})
	w.AddRegion(Region{Type: RegionSection, Name: ".symtab", SecType: SHTSymtab, Align: 8, Info: 1})
	w.AddRegion(Region{Type: RegionSection, Name: ".strtab", SecType: SHTStrtab})
	w.AddRegion(Region{Type: RegionSection, Name: ".shstrtab", SecType: SHTStrtab})
	w.AddRegion(Region{Type: RegionShdrTable})
	w.AddSymbol(SymbolDef{Name: "kernel1", SectionIndex: 1, Value: 0, Size: 8, Info: 0x12})
	w.AddSymbol(SymbolDef{Name: "kernel2", SectionIndex: 1, Value: 4, Info: 0x12})
	data, err := w.Generate()
	require.NoError(t, err)
	return data
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, class := range []Class{Class32, Class64} {
		data := buildTestELF(t, class)
		b, err := Read(data, class)
		require.NoError(t, err, "class %d", class)

		assert.Equal(t, class, b.Header.Class)
		assert.Equal(t, uint16(224), b.Header.Machine)
		require.Len(t, b.Sections, 5) // null + 4

		i, text := b.SectionByName(".text")
		require.NotNil(t, text)
		assert.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF, 0x00, 0x00, 0x80, 0xBF},
			b.SectionData(i))

		require.Len(t, b.Symbols, 3) // null symbol + 2
		assert.Equal(t, "kernel1", b.Symbols[1].Name)
		assert.Equal(t, uint64(0), b.Symbols[1].Value)
		assert.Equal(t, uint64(8), b.Symbols[1].Size)
		assert.Equal(t, "kernel2", b.Symbols[2].Name)
		assert.Equal(t, uint64(4), b.Symbols[2].Value)
	}
}

func TestHeaderOffsetsMatchEmission(t *testing.T) {
	data := buildTestELF(t, Class64)
	b, err := Read(data, Class64)
	require.NoError(t, err)
	for _, sh := range b.Sections[1:] {
		if sh.Type == SHTNobits {
			continue
		}
		require.LessOrEqual(t, sh.Offset+sh.Size, uint64(len(data)), sh.Name)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := buildTestELF(t, Class32)
	data[0] = 0x7E
	_, err := Read(data, Class32)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestReadRejectsWrongClass(t *testing.T) {
	data := buildTestELF(t, Class32)
	_, err := Read(data, Class64)
	require.ErrorIs(t, err, ErrBadClass)
}

func TestReadRejectsBigEndian(t *testing.T) {
	data := buildTestELF(t, Class32)
	data[5] = 2
	_, err := Read(data, Class32)
	require.ErrorIs(t, err, ErrNotLittleEndian)
}

func TestReadRejectsTruncated(t *testing.T) {
	_, err := Read([]byte{0x7F, 'E', 'L', 'F'}, Class32)
	require.ErrorIs(t, err, ErrTruncatedHeader)
}

func TestReadValidatesSectionBounds(t *testing.T) {
	data := buildTestELF(t, Class32)
	b, err := Read(data, Class32)
	require.NoError(t, err)

	// corrupt the .text section header's size
	i, _ := b.SectionByName(".text")
	shOff := b.Header.ShOff + uint64(i)*uint64(b.Header.ShEntSize)
	data[shOff+20] = 0xFF // sh_size low byte
	data[shOff+21] = 0xFF
	data[shOff+22] = 0xFF
	_, err = Read(data, Class32)
	require.ErrorIs(t, err, ErrSectionOutOfRange)
}

func TestReadValidatesEntrySize(t *testing.T) {
	data := buildTestELF(t, Class32)
	b, err := Read(data, Class32)
	require.NoError(t, err)

	i, _ := b.SectionByName(".symtab")
	shOff := b.Header.ShOff + uint64(i)*uint64(b.Header.ShEntSize)
	data[shOff+36] = 4 // sh_entsize below sizeof(Sym)
	_, err = Read(data, Class32)
	require.ErrorIs(t, err, ErrEntrySizeTooSmall)
}

func TestReadValidatesLink(t *testing.T) {
	data := buildTestELF(t, Class32)
	b, err := Read(data, Class32)
	require.NoError(t, err)

	i, _ := b.SectionByName(".symtab")
	shOff := b.Header.ShOff + uint64(i)*uint64(b.Header.ShEntSize)
	data[shOff+24] = 0x7F // sh_link out of range
	_, err = Read(data, Class32)
	require.ErrorIs(t, err, ErrBadLink)
}

func TestUnfinishedStringDetection(t *testing.T) {
	assert.Equal(t, 0, unfinishedRegion(nil))
	assert.Equal(t, 5, unfinishedRegion([]byte("\x00abc\x00")))
	assert.Equal(t, 5, unfinishedRegion([]byte("\x00abc\x00xy")))

	_, err := getString([]byte("\x00abc\x00xy"), 5, 5)
	require.ErrorIs(t, err, ErrUnfinishedString)
	s, err := getString([]byte("\x00abc\x00xy"), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}
