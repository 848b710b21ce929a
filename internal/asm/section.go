package asm

import "github.com/radeontools/gcnasm/internal/gcn"

// SectKind classifies output sections.
type SectKind byte

const (
	SectText SectKind = iota
	SectData
	SectRodata
	SectBss
	SectComment
	SectNote
	SectCustom
)

// Reloc is a relocation recorded against a section.
type Reloc struct {
	Offset uint64
	Kind   gcn.RelocKind
	Symbol int // index into the symbol table's first-reference order
	Addend int64
}

// Section is a growable output region. Sections are created on first
// reference and identified by a small integer id used as the expression
// engine's section id.
type Section struct {
	ID     int
	Name   string
	Kind   SectKind
	Bytes  []byte
	Align  uint32
	Relocs []Reloc
}

func (s *Section) Size() uint64 { return uint64(len(s.Bytes)) }

// Append adds bytes and returns the offset they start at.
func (s *Section) Append(b []byte) uint64 {
	off := s.Size()
	s.Bytes = append(s.Bytes, b...)
	return off
}

// AlignTo pads the section to a multiple of align using the filler byte
// pattern (repeated; the text section passes an s_nop word).
func (s *Section) AlignTo(align uint64, filler []byte) {
	if align == 0 {
		return
	}
	rem := s.Size() % align
	if rem == 0 {
		return
	}
	pad := align - rem
	for i := uint64(0); i < pad; i++ {
		s.Bytes = append(s.Bytes, filler[i%uint64(len(filler))])
	}
}
