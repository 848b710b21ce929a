// Package gallium reads and writes the Mesa3D compute container: a
// count-prefixed kernel table and a count-prefixed section table, one
// section of which embeds a standalone ELF32 with the code.
package gallium

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/radeontools/gcnasm/internal/elf"
	"github.com/radeontools/gcnasm/internal/endian"
)

// ArgType is a kernel argument type in the Gallium ABI.
type ArgType uint32

const (
	ArgScalar ArgType = iota
	ArgConstant
	ArgGlobal
	ArgLocal
	ArgImage2DRdonly
	ArgImage2DWronly
	ArgImage3DRdonly
	ArgImage3DWronly
	ArgSampler
	argTypeMax = ArgSampler
)

// ArgSemantic tags how the loader feeds an argument.
type ArgSemantic uint32

const (
	SemanticGeneral ArgSemantic = iota
	SemanticGridDimension
	SemanticGridOffset
	semanticMax = SemanticGridOffset
)

// SectionType classifies container sections.
type SectionType uint32

const (
	SectionText SectionType = iota
	SectionDataConstant
	SectionDataGlobal
	SectionDataLocal
	SectionDataPrivate
	sectionTypeMax = SectionDataPrivate
)

var (
	ErrTooSmall        = errors.New("gallium: binary is too small")
	ErrUnsortedKernels = errors.New("gallium: kernel table is not sorted by name")
	ErrBadArg          = errors.New("gallium: bad kernel argument field")
	ErrBadSection      = errors.New("gallium: bad section")
	ErrNoText          = errors.New("gallium: no text section with inner ELF")
	ErrSymbolMismatch  = errors.New("gallium: kernel symbols do not match inner ELF")
)

// ArgInfo is one kernel argument record (six little-endian words).
type ArgInfo struct {
	Type         ArgType
	Size         uint32
	TargetSize   uint32
	TargetAlign  uint32
	SignExtended bool
	Semantic     ArgSemantic
}

// Kernel is one kernel record.
type Kernel struct {
	Name      string
	SectionID uint32
	Offset    uint32
	Args      []ArgInfo
}

// Section is one container section; Data aliases the input buffer on read.
type Section struct {
	ID   uint32
	Type SectionType
	Data []byte
}

// Binary is a parsed Gallium container.
type Binary struct {
	Kernels  []Kernel
	Sections []Section
	// Inner is the ELF32 embedded in the text section.
	Inner *elf.Binary
}

// Read parses and cross-checks a Gallium container.
func Read(data []byte) (*Binary, error) {
	pos := 0
	u32 := func() (uint32, error) {
		if pos+4 > len(data) {
			return 0, ErrTooSmall
		}
		v := endian.Uint32(data[pos:])
		pos += 4
		return v, nil
	}

	kernelCount, err := u32()
	if err != nil {
		return nil, err
	}
	if uint64(kernelCount)*16 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: kernel count %d", ErrTooSmall, kernelCount)
	}
	b := &Binary{Kernels: make([]Kernel, kernelCount)}
	for i := range b.Kernels {
		k := &b.Kernels[i]
		nameLen, err := u32()
		if err != nil {
			return nil, err
		}
		if pos+int(nameLen) > len(data) {
			return nil, fmt.Errorf("%w: kernel name", ErrTooSmall)
		}
		k.Name = string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
		if i > 0 && k.Name <= b.Kernels[i-1].Name {
			return nil, ErrUnsortedKernels
		}
		if k.SectionID, err = u32(); err != nil {
			return nil, err
		}
		if k.Offset, err = u32(); err != nil {
			return nil, err
		}
		argCount, err := u32()
		if err != nil {
			return nil, err
		}
		if uint64(argCount) > uint64(len(data))/24 {
			return nil, fmt.Errorf("%w: argument count %d", ErrTooSmall, argCount)
		}
		k.Args = make([]ArgInfo, argCount)
		for j := range k.Args {
			var raw [6]uint32
			for n := range raw {
				if raw[n], err = u32(); err != nil {
					return nil, err
				}
			}
			if raw[0] > uint32(argTypeMax) {
				return nil, fmt.Errorf("%w: type %d", ErrBadArg, raw[0])
			}
			if raw[5] > uint32(semanticMax) {
				return nil, fmt.Errorf("%w: semantic %d", ErrBadArg, raw[5])
			}
			k.Args[j] = ArgInfo{
				Type:         ArgType(raw[0]),
				Size:         raw[1],
				TargetSize:   raw[2],
				TargetAlign:  raw[3],
				SignExtended: raw[4] != 0,
				Semantic:     ArgSemantic(raw[5]),
			}
		}
	}

	sectionCount, err := u32()
	if err != nil {
		return nil, err
	}
	if uint64(sectionCount)*20 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: section count %d", ErrTooSmall, sectionCount)
	}
	b.Sections = make([]Section, sectionCount)
	var textSection *Section
	for i := range b.Sections {
		s := &b.Sections[i]
		if s.ID, err = u32(); err != nil {
			return nil, err
		}
		secType, err := u32()
		if err != nil {
			return nil, err
		}
		if secType > uint32(sectionTypeMax) {
			return nil, fmt.Errorf("%w: type %d", ErrBadSection, secType)
		}
		s.Type = SectionType(secType)
		size, err := u32()
		if err != nil {
			return nil, err
		}
		sizeOfData, err := u32()
		if err != nil {
			return nil, err
		}
		sizeFromHeader, err := u32()
		if err != nil {
			return nil, err
		}
		if sizeOfData != size+4 || sizeFromHeader != size {
			return nil, fmt.Errorf("%w: size fields disagree", ErrBadSection)
		}
		if pos+int(size) > len(data) {
			return nil, fmt.Errorf("%w: section data", ErrTooSmall)
		}
		s.Data = data[pos : pos+int(size)]
		pos += int(size)
		if s.Type == SectionText && textSection == nil {
			textSection = s
		}
	}
	if textSection == nil {
		return nil, ErrNoText
	}
	inner, err := elf.Read(textSection.Data, elf.Class32)
	if err != nil {
		return nil, err
	}
	b.Inner = inner

	for _, k := range b.Kernels {
		if k.SectionID != textSection.ID {
			return nil, fmt.Errorf("%w: kernel %q not in text section", ErrSymbolMismatch, k.Name)
		}
	}
	if err := b.checkSymbols(); err != nil {
		return nil, err
	}
	return b, nil
}

// checkSymbols requires the kernel records to match the inner ELF's .text
// symbols in order and offset.
func (b *Binary) checkSymbols() error {
	textIdx, textHdr := b.Inner.SectionByName(".text")
	if textHdr == nil {
		return ErrNoText
	}
	symIndex := 0
	syms := b.Inner.Symbols
	for _, k := range b.Kernels {
		found := false
		for ; symIndex < len(syms); symIndex++ {
			s := &syms[symIndex]
			if s.Name == "" || s.Name == "EndOfTextLabel" || int(s.Shndx) != textIdx {
				continue
			}
			if s.Name != k.Name {
				return fmt.Errorf("%w: kernel %q vs symbol %q", ErrSymbolMismatch, k.Name, s.Name)
			}
			if s.Value != uint64(k.Offset) {
				return fmt.Errorf("%w: kernel %q offset", ErrSymbolMismatch, k.Name)
			}
			symIndex++
			found = true
			break
		}
		if !found {
			return fmt.Errorf("%w: kernel %q missing", ErrSymbolMismatch, k.Name)
		}
	}
	return nil
}

// KernelInput is one kernel for the writer.
type KernelInput struct {
	Name     string
	Offset   uint32
	Args     []ArgInfo
	ProgInfo [3][2]uint32 // (address, value) pairs for .AMDGPU.config
}

// Input is the declarative description the writer consumes.
type Input struct {
	Code       []byte
	GlobalData []byte
	Kernels    []KernelInput
	Comment    []byte
}

// Write produces a Gallium container with one text section embedding an
// ELF32 around the code.
func Write(in *Input) ([]byte, error) {
	logrus.WithField("kernels", len(in.Kernels)).Debug("writing Gallium binary")

	order := make([]int, len(in.Kernels))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return in.Kernels[order[a]].Name < in.Kernels[order[b]].Name
	})

	inner, err := buildInnerELF(in, order)
	if err != nil {
		return nil, err
	}

	var out []byte
	out = endian.AppendUint32(out, uint32(len(in.Kernels)))
	for _, idx := range order {
		k := &in.Kernels[idx]
		out = endian.AppendUint32(out, uint32(len(k.Name)))
		out = append(out, k.Name...)
		out = endian.AppendUint32(out, 0) // section id of the text section
		out = endian.AppendUint32(out, k.Offset)
		out = endian.AppendUint32(out, uint32(len(k.Args)))
		for _, a := range k.Args {
			out = endian.AppendUint32(out, uint32(a.Type))
			out = endian.AppendUint32(out, a.Size)
			out = endian.AppendUint32(out, a.TargetSize)
			out = endian.AppendUint32(out, a.TargetAlign)
			var se uint32
			if a.SignExtended {
				se = 1
			}
			out = endian.AppendUint32(out, se)
			out = endian.AppendUint32(out, uint32(a.Semantic))
		}
	}
	out = endian.AppendUint32(out, 1) // section count
	out = endian.AppendUint32(out, 0) // section id
	out = endian.AppendUint32(out, uint32(SectionText))
	out = endian.AppendUint32(out, uint32(len(inner)))
	out = endian.AppendUint32(out, uint32(len(inner))+4)
	out = endian.AppendUint32(out, uint32(len(inner)))
	out = append(out, inner...)
	return out, nil
}

// buildInnerELF assembles the embedded ELF32: .text, .AMDGPU.config with
// three prog-info entries per kernel, optional .rodata, and the symbol
// table the outer reader cross-checks against.
func buildInnerELF(in *Input, order []int) ([]byte, error) {
	w := elf.NewWriter(elf.HeaderDef{
		Class:       elf.Class32,
		Type:        1, // ET_REL
		Machine:     0,
		Version:     1,
		EntryRegion: -1,
	})
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".text", SecType: elf.SHTProgbits,
		SecFlags: 0x6, Align: 256, Size: uint64(len(in.Code)), Data: in.Code,
	})
	textIndex := 1
	var config []byte
	for _, idx := range order {
		for _, pi := range in.Kernels[idx].ProgInfo {
			config = endian.AppendUint32(config, pi[0])
			config = endian.AppendUint32(config, pi[1])
		}
	}
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".AMDGPU.config", SecType: elf.SHTProgbits,
		Align: 4, Size: uint64(len(config)), Data: config,
	})
	if len(in.GlobalData) > 0 {
		w.AddRegion(elf.Region{
			Type: elf.RegionSection, Name: ".rodata", SecType: elf.SHTProgbits,
			Align: 4, Size: uint64(len(in.GlobalData)), Data: in.GlobalData,
		})
	}
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".symtab", SecType: elf.SHTSymtab,
		Align: 4, Info: 1,
	})
	w.AddRegion(elf.Region{Type: elf.RegionSection, Name: ".strtab", SecType: elf.SHTStrtab})
	w.AddRegion(elf.Region{Type: elf.RegionSection, Name: ".shstrtab", SecType: elf.SHTStrtab})
	w.AddRegion(elf.Region{Type: elf.RegionShdrTable})

	for _, idx := range order {
		k := &in.Kernels[idx]
		w.AddSymbol(elf.SymbolDef{
			Name:         k.Name,
			SectionIndex: textIndex,
			Value:        uint64(k.Offset),
			Info:         0x12, // GLOBAL FUNC
		})
	}
	w.AddSymbol(elf.SymbolDef{
		Name:         "EndOfTextLabel",
		SectionIndex: textIndex,
		Value:        uint64(len(in.Code)),
	})
	return w.Generate()
}
