package elf

import (
	"errors"
	"fmt"

	"github.com/radeontools/gcnasm/internal/endian"
)

// RegionType classifies writer regions.
type RegionType byte

const (
	RegionPhdrTable RegionType = iota
	RegionShdrTable
	RegionUser
	RegionSection
)

// Region is one declarative output region. Section regions carry their
// section-header fields; the tables are synthesized.
type Region struct {
	Type  RegionType
	Align uint64
	Size  uint64
	Data  []byte

	// Section fields (Type == RegionSection).
	Name     string
	SecType  uint32
	SecFlags uint64
	Link     uint32
	Info     uint32
	EntSize  uint64
	AddrBase uint64
}

// ProgHeader maps a run of regions into one program header.
type ProgHeader struct {
	Type        uint32
	Flags       uint32
	RegionStart int
	RegionsNum  int
	VAddrBase   uint64
	PAddrBase   uint64
	MemSize     uint64
	HaveMemSize bool
}

// SymbolDef is one symbol to synthesize into .symtab or .dynsym.
type SymbolDef struct {
	Name         string
	SectionIndex int
	Value        uint64
	Size         uint64
	Info         byte
	Other        byte
	ValueIsAddr  bool
}

// HeaderDef carries the output ELF header fields the caller controls.
type HeaderDef struct {
	Class       Class
	OSABI       byte
	ABIVersion  byte
	Type        uint16
	Machine     uint16
	Version     uint32
	Flags       uint32
	VAddrBase   uint64
	PAddrBase   uint64
	EntryRegion int // -1 for none
	Entry       uint64
}

// Writer builds an ELF from a declarative description in two passes: size
// computation assigns every region its offset, then generation emits bytes
// and asserts each region lands exactly where the first pass said.
type Writer struct {
	Header      HeaderDef
	regions     []Region
	progHeaders []ProgHeader
	symbols     []SymbolDef
	dynSymbols  []SymbolDef

	computed       bool
	size           uint64
	regionOffsets  []uint64
	sectionRegions []int // section index -> region index (0 is the null section)
	sectionsNum    int
	shStrTab       uint32
	strTab         uint32
	dynStr         uint32
	phdrTabRegion  int
	shdrTabRegion  int
}

func NewWriter(header HeaderDef) *Writer {
	return &Writer{Header: header}
}

func (w *Writer) AddRegion(r Region)          { w.regions = append(w.regions, r); w.computed = false }
func (w *Writer) AddProgHeader(p ProgHeader)  { w.progHeaders = append(w.progHeaders, p) }
func (w *Writer) AddSymbol(s SymbolDef)       { w.symbols = append(w.symbols, s) }
func (w *Writer) AddDynSymbol(s SymbolDef)    { w.dynSymbols = append(w.dynSymbols, s) }

// ComputeSize runs the first pass: cross-reference checks, alignment
// padding, and offset assignment.
func (w *Writer) ComputeSize() (uint64, error) {
	if w.computed {
		return w.size, nil
	}
	sz := w.Header.Class.sizes()
	if w.Header.EntryRegion >= len(w.regions) {
		return 0, errors.New("elf: header entry region out of range")
	}
	w.sectionsNum = 1
	for _, r := range w.regions {
		if r.Type == RegionSection {
			w.sectionsNum++
		}
	}
	for _, s := range w.symbols {
		if s.SectionIndex >= w.sectionsNum {
			return 0, errors.New("elf: symbol section index out of range")
		}
	}
	for _, s := range w.dynSymbols {
		if s.SectionIndex >= w.sectionsNum {
			return 0, errors.New("elf: dynsymbol section index out of range")
		}
	}
	for _, p := range w.progHeaders {
		if p.RegionStart >= len(w.regions) ||
			p.RegionStart+p.RegionsNum > len(w.regions) {
			return 0, errors.New("elf: program header region range out of range")
		}
	}

	w.regionOffsets = make([]uint64, len(w.regions))
	w.sectionRegions = make([]int, 1, w.sectionsNum)
	w.sectionRegions[0] = -1
	size := uint64(sz.ehdr)
	sectionCount := uint32(1)

	for i := range w.regions {
		r := &w.regions[i]
		align := r.Align
		if align == 0 {
			if r.Type == RegionPhdrTable || r.Type == RegionShdrTable {
				align = 4 // word size
				if w.Header.Class == Class64 {
					align = 8
				}
			} else {
				align = 1
			}
		}
		if rem := size % align; rem != 0 {
			size += align - rem
		}
		w.regionOffsets[i] = size

		switch r.Type {
		case RegionPhdrTable:
			size += uint64(len(w.progHeaders)) * uint64(sz.phdr)
			r.Size = size - w.regionOffsets[i]
			w.phdrTabRegion = i
		case RegionShdrTable:
			size += uint64(w.sectionsNum) * uint64(sz.shdr)
			r.Size = size - w.regionOffsets[i]
			w.shdrTabRegion = i
		case RegionUser:
			size += r.Size
		case RegionSection:
			if int(r.Link) >= w.sectionsNum {
				return 0, ErrBadLink
			}
			if r.SecType != SHTNobits && r.Size != 0 {
				size += r.Size
			} else if r.SecType != SHTNobits {
				switch {
				case r.SecType == SHTSymtab:
					size += uint64(len(w.symbols)+1) * uint64(sz.sym)
				case r.SecType == SHTDynsym:
					size += uint64(len(w.dynSymbols)+1) * uint64(sz.sym)
				case r.SecType == SHTStrtab && r.Name == ".strtab":
					size += strTabSize(w.symbols)
				case r.SecType == SHTStrtab && r.Name == ".dynstr":
					size += strTabSize(w.dynSymbols)
				case r.SecType == SHTStrtab && r.Name == ".shstrtab":
					n := uint64(1)
					for _, r2 := range w.regions {
						if r2.Type == RegionSection {
							n += uint64(len(r2.Name)) + 1
						}
					}
					size += n
				}
				r.Size = size - w.regionOffsets[i]
			}
			switch r.Name {
			case ".strtab":
				w.strTab = sectionCount
			case ".dynstr":
				w.dynStr = sectionCount
			case ".shstrtab":
				w.shStrTab = sectionCount
			}
			w.sectionRegions = append(w.sectionRegions, i)
			sectionCount++
		}
	}
	w.size = size
	w.computed = true
	return size, nil
}

func strTabSize(syms []SymbolDef) uint64 {
	n := uint64(1)
	for _, s := range syms {
		n += uint64(len(s.Name)) + 1
	}
	return n
}

// Generate runs both passes and returns the binary.
func (w *Writer) Generate() ([]byte, error) {
	if _, err := w.ComputeSize(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, w.size)
	out = w.writeEhdr(out)
	for i := range w.regions {
		r := &w.regions[i]
		for uint64(len(out)) < w.regionOffsets[i] {
			out = append(out, 0)
		}
		if uint64(len(out)) != w.regionOffsets[i] {
			return nil, fmt.Errorf("elf: internal: region %d offset mismatch", i)
		}
		switch r.Type {
		case RegionPhdrTable:
			out = w.writePhdrs(out)
		case RegionShdrTable:
			out = w.writeShdrs(out)
		case RegionUser:
			out = append(out, r.Data...)
		case RegionSection:
			if r.SecType == SHTNobits {
				continue
			}
			if r.Data != nil {
				out = append(out, r.Data...)
				continue
			}
			switch {
			case r.SecType == SHTSymtab:
				out = w.writeSymbols(out, w.symbols)
			case r.SecType == SHTDynsym:
				out = w.writeSymbols(out, w.dynSymbols)
			case r.SecType == SHTStrtab && r.Name == ".strtab":
				out = writeStrTab(out, w.symbols)
			case r.SecType == SHTStrtab && r.Name == ".dynstr":
				out = writeStrTab(out, w.dynSymbols)
			case r.SecType == SHTStrtab && r.Name == ".shstrtab":
				out = append(out, 0)
				for _, r2 := range w.regions {
					if r2.Type == RegionSection {
						out = append(out, r2.Name...)
						out = append(out, 0)
					}
				}
			}
		}
	}
	if uint64(len(out)) != w.size {
		return nil, errors.New("elf: internal: generated size mismatch")
	}
	return out, nil
}

func (w *Writer) entry() uint64 {
	if w.Header.EntryRegion < 0 {
		return 0
	}
	e := w.regionOffsets[w.Header.EntryRegion] + w.Header.Entry
	r := &w.regions[w.Header.EntryRegion]
	if r.Type == RegionSection && r.AddrBase != 0 {
		return e + r.AddrBase
	}
	return e + w.Header.VAddrBase
}

func (w *Writer) writeEhdr(out []byte) []byte {
	sz := w.Header.Class.sizes()
	h := make([]byte, sz.ehdr)
	endian.PutUint32(h, 0x464C457F)
	h[4] = byte(w.Header.Class)
	h[5] = 1 // little-endian
	h[6] = 1 // EV_CURRENT
	h[7] = w.Header.OSABI
	h[8] = w.Header.ABIVersion
	endian.PutUint16(h[16:], w.Header.Type)
	endian.PutUint16(h[18:], w.Header.Machine)
	endian.PutUint32(h[20:], w.Header.Version)
	phOff, phEntSize := uint64(0), 0
	if len(w.progHeaders) > 0 {
		phOff, phEntSize = w.regionOffsets[w.phdrTabRegion], sz.phdr
	}
	if w.Header.Class == Class32 {
		endian.PutUint32(h[24:], uint32(w.entry()))
		endian.PutUint32(h[28:], uint32(phOff))
		endian.PutUint32(h[32:], uint32(w.regionOffsets[w.shdrTabRegion]))
		endian.PutUint32(h[36:], w.Header.Flags)
		endian.PutUint16(h[40:], uint16(sz.ehdr))
		endian.PutUint16(h[42:], uint16(phEntSize))
		endian.PutUint16(h[44:], uint16(len(w.progHeaders)))
		endian.PutUint16(h[46:], uint16(sz.shdr))
		endian.PutUint16(h[48:], uint16(w.sectionsNum))
		endian.PutUint16(h[50:], uint16(w.shStrTab))
	} else {
		endian.PutUint64(h[24:], w.entry())
		endian.PutUint64(h[32:], phOff)
		endian.PutUint64(h[40:], w.regionOffsets[w.shdrTabRegion])
		endian.PutUint32(h[48:], w.Header.Flags)
		endian.PutUint16(h[52:], uint16(sz.ehdr))
		endian.PutUint16(h[54:], uint16(phEntSize))
		endian.PutUint16(h[56:], uint16(len(w.progHeaders)))
		endian.PutUint16(h[58:], uint16(sz.shdr))
		endian.PutUint16(h[60:], uint16(w.sectionsNum))
		endian.PutUint16(h[62:], uint16(w.shStrTab))
	}
	return append(out, h...)
}

func (w *Writer) writePhdrs(out []byte) []byte {
	sz := w.Header.Class.sizes()
	for _, p := range w.progHeaders {
		start := w.regionOffsets[p.RegionStart]
		last := p.RegionStart + p.RegionsNum - 1
		phSize := w.regionOffsets[last] + w.regions[last].Size - start
		vaddr, paddr := uint64(0), uint64(0)
		if p.VAddrBase != 0 {
			vaddr = p.VAddrBase + start
		} else if w.Header.VAddrBase != 0 {
			vaddr = w.Header.VAddrBase + start
		}
		if p.PAddrBase != 0 {
			paddr = p.PAddrBase + start
		} else if w.Header.PAddrBase != 0 {
			paddr = w.Header.PAddrBase + start
		}
		memSize := uint64(0)
		if p.HaveMemSize {
			memSize = p.MemSize
			if memSize == 0 {
				memSize = phSize
			}
		}
		align := w.regions[p.RegionStart].Align
		h := make([]byte, sz.phdr)
		if w.Header.Class == Class32 {
			endian.PutUint32(h[0:], p.Type)
			endian.PutUint32(h[4:], uint32(start))
			endian.PutUint32(h[8:], uint32(vaddr))
			endian.PutUint32(h[12:], uint32(paddr))
			endian.PutUint32(h[16:], uint32(phSize))
			endian.PutUint32(h[20:], uint32(memSize))
			endian.PutUint32(h[24:], p.Flags)
			endian.PutUint32(h[28:], uint32(align))
		} else {
			endian.PutUint32(h[0:], p.Type)
			endian.PutUint32(h[4:], p.Flags)
			endian.PutUint64(h[8:], start)
			endian.PutUint64(h[16:], vaddr)
			endian.PutUint64(h[24:], paddr)
			endian.PutUint64(h[32:], phSize)
			endian.PutUint64(h[40:], memSize)
			endian.PutUint64(h[48:], align)
		}
		out = append(out, h...)
	}
	return out
}

func (w *Writer) writeShdrs(out []byte) []byte {
	sz := w.Header.Class.sizes()
	out = append(out, make([]byte, sz.shdr)...) // null section
	nameOffset := uint32(1)
	for j := range w.regions {
		r := &w.regions[j]
		if r.Type != RegionSection {
			continue
		}
		addr := uint64(0)
		if r.AddrBase != 0 {
			addr = r.AddrBase + w.regionOffsets[j]
		} else if w.Header.VAddrBase != 0 {
			addr = w.Header.VAddrBase + w.regionOffsets[j]
		}
		link := r.Link
		if link == 0 {
			switch r.Name {
			case ".symtab":
				link = w.strTab
			case ".dynsym":
				link = w.dynStr
			}
		}
		entSize := r.EntSize
		if r.SecType == SHTSymtab || r.SecType == SHTDynsym {
			entSize = uint64(sz.sym)
		}
		align := r.Align
		h := make([]byte, sz.shdr)
		if w.Header.Class == Class32 {
			endian.PutUint32(h[0:], nameOffset)
			endian.PutUint32(h[4:], r.SecType)
			endian.PutUint32(h[8:], uint32(r.SecFlags))
			endian.PutUint32(h[12:], uint32(addr))
			endian.PutUint32(h[16:], uint32(w.regionOffsets[j]))
			endian.PutUint32(h[20:], uint32(r.Size))
			endian.PutUint32(h[24:], link)
			endian.PutUint32(h[28:], r.Info)
			endian.PutUint32(h[32:], uint32(align))
			endian.PutUint32(h[36:], uint32(entSize))
		} else {
			endian.PutUint32(h[0:], nameOffset)
			endian.PutUint32(h[4:], r.SecType)
			endian.PutUint64(h[8:], r.SecFlags)
			endian.PutUint64(h[16:], addr)
			endian.PutUint64(h[24:], w.regionOffsets[j])
			endian.PutUint64(h[32:], r.Size)
			endian.PutUint32(h[40:], link)
			endian.PutUint32(h[44:], r.Info)
			endian.PutUint64(h[48:], align)
			endian.PutUint64(h[56:], entSize)
		}
		nameOffset += uint32(len(r.Name)) + 1
		out = append(out, h...)
	}
	return out
}

func (w *Writer) writeSymbols(out []byte, syms []SymbolDef) []byte {
	sz := w.Header.Class.sizes()
	out = append(out, make([]byte, sz.sym)...) // null symbol
	nameOffset := uint32(1)
	for _, s := range syms {
		value := s.Value
		if s.ValueIsAddr && s.SectionIndex != 0 {
			region := w.sectionRegions[s.SectionIndex]
			value += w.regionOffsets[region]
			if base := w.regions[region].AddrBase; base != 0 {
				value += base
			} else {
				value += w.Header.VAddrBase
			}
		}
		h := make([]byte, sz.sym)
		if w.Header.Class == Class32 {
			endian.PutUint32(h[0:], nameOffset)
			endian.PutUint32(h[4:], uint32(value))
			endian.PutUint32(h[8:], uint32(s.Size))
			h[12] = s.Info
			h[13] = s.Other
			endian.PutUint16(h[14:], uint16(s.SectionIndex))
		} else {
			endian.PutUint32(h[0:], nameOffset)
			h[4] = s.Info
			h[5] = s.Other
			endian.PutUint16(h[6:], uint16(s.SectionIndex))
			endian.PutUint64(h[8:], value)
			endian.PutUint64(h[16:], s.Size)
		}
		nameOffset += uint32(len(s.Name)) + 1
		out = append(out, h...)
	}
	return out
}

func writeStrTab(out []byte, syms []SymbolDef) []byte {
	out = append(out, 0)
	for _, s := range syms {
		out = append(out, s.Name...)
		out = append(out, 0)
	}
	return out
}
