// Package elf reads and writes ELF32/ELF64 binaries. Both widths share one
// implementation parameterized by class; every multi-byte field goes through
// the unaligned little-endian accessors because inner binaries are embedded
// at arbitrary offsets inside outer containers.
package elf

import (
	"errors"
	"fmt"

	"github.com/radeontools/gcnasm/internal/endian"
)

// Class selects the word width.
type Class byte

const (
	Class32 Class = 1
	Class64 Class = 2
)

// Structural error values returned by the reader's validation ladder.
var (
	ErrBadMagic             = errors.New("elf: bad magic")
	ErrBadClass             = errors.New("elf: unexpected class")
	ErrNotLittleEndian      = errors.New("elf: only little-endian binaries are supported")
	ErrTruncatedHeader      = errors.New("elf: truncated header")
	ErrSectionOutOfRange    = errors.New("elf: section out of range")
	ErrSegmentOutOfRange    = errors.New("elf: segment out of range")
	ErrStringIndexOutOfRange = errors.New("elf: string index out of range")
	ErrUnfinishedString     = errors.New("elf: unfinished string")
	ErrBadLink              = errors.New("elf: bad section link")
	ErrEntrySizeTooSmall    = errors.New("elf: entry size too small")
)

// section header types used here.
const (
	SHTNull     = 0
	SHTProgbits = 1
	SHTSymtab   = 2
	SHTStrtab   = 3
	SHTNobits   = 8
	SHTNote     = 7
	SHTDynsym   = 11
)

const SHNUndef = 0

// layout of one class.
type sizes struct {
	ehdr, phdr, shdr, sym int
}

var (
	sizes32 = sizes{ehdr: 52, phdr: 32, shdr: 40, sym: 16}
	sizes64 = sizes{ehdr: 64, phdr: 56, shdr: 64, sym: 24}
)

func (c Class) sizes() sizes {
	if c == Class32 {
		return sizes32
	}
	return sizes64
}

// Header is the class-neutral view of the ELF header.
type Header struct {
	Class      Class
	OSABI      byte
	ABIVersion byte
	Type       uint16
	Machine    uint16
	Version    uint32
	Entry      uint64
	Flags      uint32
	PhOff      uint64
	ShOff      uint64
	PhNum      int
	ShNum      int
	PhEntSize  int
	ShEntSize  int
	ShStrNdx   int
}

// SectionHeader is the class-neutral view of one section header.
type SectionHeader struct {
	Name      string
	NameIndex uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	EntSize   uint64
}

// Symbol is the class-neutral view of one symbol table entry.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Info  byte
	Other byte
	Shndx uint16
}

// Binary is a parsed ELF with its symbol tables indexed.
type Binary struct {
	Data     []byte
	Header   Header
	Sections []SectionHeader
	Symbols  []Symbol
	DynSyms  []Symbol
}

// SectionData returns the file bytes of section i (empty for NOBITS).
func (b *Binary) SectionData(i int) []byte {
	sh := &b.Sections[i]
	if sh.Type == SHTNobits {
		return nil
	}
	return b.Data[sh.Offset : sh.Offset+sh.Size]
}

// SectionByName finds a section by name.
func (b *Binary) SectionByName(name string) (int, *SectionHeader) {
	for i := range b.Sections {
		if b.Sections[i].Name == name {
			return i, &b.Sections[i]
		}
	}
	return -1, nil
}

// unfinishedRegion returns the start of the trailing region of a string
// table that is not terminated by a null byte. Name indices at or past it
// would run off the table.
func unfinishedRegion(table []byte) int {
	if len(table) == 0 {
		return 0
	}
	k := len(table) - 1
	for k > 0 && table[k] != 0 {
		k--
	}
	if table[k] == 0 {
		return k + 1
	}
	return k
}

func getString(table []byte, index uint32, unfinished int) (string, error) {
	if int(index) >= len(table) {
		return "", ErrStringIndexOutOfRange
	}
	if int(index) >= unfinished {
		return "", ErrUnfinishedString
	}
	end := int(index)
	for table[end] != 0 {
		end++
	}
	return string(table[index:end]), nil
}

// Read parses and validates data as an ELF of the given class.
func Read(data []byte, class Class) (*Binary, error) {
	sz := class.sizes()
	if len(data) < sz.ehdr {
		return nil, ErrTruncatedHeader
	}
	if endian.Uint32(data) != 0x464C457F {
		return nil, ErrBadMagic
	}
	if Class(data[4]) != class {
		return nil, ErrBadClass
	}
	if data[5] != 1 {
		return nil, ErrNotLittleEndian
	}
	b := &Binary{Data: data}
	h := &b.Header
	h.Class = class
	h.OSABI = data[7]
	h.ABIVersion = data[8]
	h.Type = endian.Uint16(data[16:])
	h.Machine = endian.Uint16(data[18:])
	h.Version = endian.Uint32(data[20:])
	if class == Class32 {
		h.Entry = uint64(endian.Uint32(data[24:]))
		h.PhOff = uint64(endian.Uint32(data[28:]))
		h.ShOff = uint64(endian.Uint32(data[32:]))
		h.Flags = endian.Uint32(data[36:])
		h.PhEntSize = int(endian.Uint16(data[42:]))
		h.PhNum = int(endian.Uint16(data[44:]))
		h.ShEntSize = int(endian.Uint16(data[46:]))
		h.ShNum = int(endian.Uint16(data[48:]))
		h.ShStrNdx = int(endian.Uint16(data[50:]))
	} else {
		h.Entry = endian.Uint64(data[24:])
		h.PhOff = endian.Uint64(data[32:])
		h.ShOff = endian.Uint64(data[40:])
		h.Flags = endian.Uint32(data[48:])
		h.PhEntSize = int(endian.Uint16(data[54:]))
		h.PhNum = int(endian.Uint16(data[56:]))
		h.ShEntSize = int(endian.Uint16(data[58:]))
		h.ShNum = int(endian.Uint16(data[60:]))
		h.ShStrNdx = int(endian.Uint16(data[62:]))
	}
	fileSize := uint64(len(data))

	if h.PhOff == 0 && h.PhNum != 0 {
		return nil, fmt.Errorf("%w: phoff/phnum combination", ErrTruncatedHeader)
	}
	if h.PhOff != 0 {
		if h.PhOff > fileSize ||
			h.PhOff+uint64(h.PhEntSize)*uint64(h.PhNum) > fileSize {
			return nil, ErrSegmentOutOfRange
		}
		for i := 0; i < h.PhNum; i++ {
			off, filesz := b.progHeaderRange(i)
			if off > fileSize || off+filesz > fileSize {
				return nil, ErrSegmentOutOfRange
			}
		}
	}

	if h.ShOff == 0 && h.ShNum != 0 {
		return nil, fmt.Errorf("%w: shoff/shnum combination", ErrTruncatedHeader)
	}
	if h.ShOff == 0 || h.ShStrNdx == SHNUndef {
		return b, nil
	}
	if h.ShOff > fileSize ||
		h.ShOff+uint64(h.ShEntSize)*uint64(h.ShNum) > fileSize {
		return nil, ErrSectionOutOfRange
	}
	if h.ShStrNdx >= h.ShNum {
		return nil, ErrStringIndexOutOfRange
	}

	b.Sections = make([]SectionHeader, h.ShNum)
	for i := 0; i < h.ShNum; i++ {
		b.Sections[i] = b.rawSection(i)
	}
	shstr := &b.Sections[h.ShStrNdx]
	if shstr.Offset+shstr.Size > fileSize {
		return nil, ErrSectionOutOfRange
	}
	strTable := data[shstr.Offset : shstr.Offset+shstr.Size]
	unfinished := unfinishedRegion(strTable)

	var symHdr, dynHdr *SectionHeader
	for i := range b.Sections {
		sh := &b.Sections[i]
		if sh.Offset > fileSize {
			return nil, ErrSectionOutOfRange
		}
		if sh.Type != SHTNobits && sh.Offset+sh.Size > fileSize {
			return nil, ErrSectionOutOfRange
		}
		if int(sh.Link) >= h.ShNum {
			return nil, ErrBadLink
		}
		name, err := getString(strTable, sh.NameIndex, unfinished)
		if err != nil {
			return nil, err
		}
		sh.Name = name
		switch sh.Type {
		case SHTSymtab:
			symHdr = sh
		case SHTDynsym:
			dynHdr = sh
		}
	}

	var err error
	if symHdr != nil {
		if b.Symbols, err = b.readSymbols(symHdr); err != nil {
			return nil, err
		}
	}
	if dynHdr != nil {
		if b.DynSyms, err = b.readSymbols(dynHdr); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Binary) progHeaderRange(i int) (offset, filesz uint64) {
	base := b.Header.PhOff + uint64(i)*uint64(b.Header.PhEntSize)
	p := b.Data[base:]
	if b.Header.Class == Class32 {
		return uint64(endian.Uint32(p[4:])), uint64(endian.Uint32(p[16:]))
	}
	return endian.Uint64(p[8:]), endian.Uint64(p[32:])
}

func (b *Binary) rawSection(i int) SectionHeader {
	base := b.Header.ShOff + uint64(i)*uint64(b.Header.ShEntSize)
	p := b.Data[base:]
	var sh SectionHeader
	sh.NameIndex = endian.Uint32(p)
	sh.Type = endian.Uint32(p[4:])
	if b.Header.Class == Class32 {
		sh.Flags = uint64(endian.Uint32(p[8:]))
		sh.Addr = uint64(endian.Uint32(p[12:]))
		sh.Offset = uint64(endian.Uint32(p[16:]))
		sh.Size = uint64(endian.Uint32(p[20:]))
		sh.Link = endian.Uint32(p[24:])
		sh.Info = endian.Uint32(p[28:])
		sh.Addralign = uint64(endian.Uint32(p[32:]))
		sh.EntSize = uint64(endian.Uint32(p[36:]))
	} else {
		sh.Flags = endian.Uint64(p[8:])
		sh.Addr = endian.Uint64(p[16:])
		sh.Offset = endian.Uint64(p[24:])
		sh.Size = endian.Uint64(p[32:])
		sh.Link = endian.Uint32(p[40:])
		sh.Info = endian.Uint32(p[44:])
		sh.Addralign = endian.Uint64(p[48:])
		sh.EntSize = endian.Uint64(p[56:])
	}
	return sh
}

// readSymbols indexes a SYMTAB or DYNSYM section, validating entry size,
// string table link, and every name index.
func (b *Binary) readSymbols(hdr *SectionHeader) ([]Symbol, error) {
	sz := b.Header.Class.sizes()
	if hdr.EntSize < uint64(sz.sym) {
		return nil, ErrEntrySizeTooSmall
	}
	if hdr.Link == SHNUndef {
		return nil, ErrBadLink
	}
	strHdr := &b.Sections[hdr.Link]
	if strHdr.Type != SHTStrtab {
		return nil, ErrBadLink
	}
	strTable := b.Data[strHdr.Offset : strHdr.Offset+strHdr.Size]
	unfinished := unfinishedRegion(strTable)

	count := int(hdr.Size / hdr.EntSize)
	syms := make([]Symbol, count)
	for i := 0; i < count; i++ {
		p := b.Data[hdr.Offset+uint64(i)*hdr.EntSize:]
		var s Symbol
		var nameIndex uint32
		if b.Header.Class == Class32 {
			nameIndex = endian.Uint32(p)
			s.Value = uint64(endian.Uint32(p[4:]))
			s.Size = uint64(endian.Uint32(p[8:]))
			s.Info = p[12]
			s.Other = p[13]
			s.Shndx = endian.Uint16(p[14:])
		} else {
			nameIndex = endian.Uint32(p)
			s.Info = p[4]
			s.Other = p[5]
			s.Shndx = endian.Uint16(p[6:])
			s.Value = endian.Uint64(p[8:])
			s.Size = endian.Uint64(p[16:])
		}
		name, err := getString(strTable, nameIndex, unfinished)
		if err != nil {
			return nil, err
		}
		s.Name = name
		syms[i] = s
	}
	return syms, nil
}
