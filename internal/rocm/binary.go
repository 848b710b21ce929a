package rocm

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/radeontools/gcnasm/internal/asm"
	"github.com/radeontools/gcnasm/internal/elf"
	"github.com/radeontools/gcnasm/internal/endian"
)

const (
	elfMachineAMDGPU = 224
	elfOSABIAMDHSA   = 64

	noteName         = "AMDGPU"
	noteTypeMetadata = 32

	symBindGlobal = 1
	symBindWeak   = 2
	symTypeFunc   = 2
	symTypeObject = 1
)

// RegionType classifies a kernel symbol in the binary.
type RegionType byte

const (
	RegionData RegionType = iota
	RegionFKernel
	RegionKernel
)

// Symbol is one code-region symbol of a ROCm binary.
type Symbol struct {
	Name   string
	Offset uint64
	Size   uint64
	Type   RegionType
}

// Binary is the decoded view of a ROCm container.
type Binary struct {
	Code     []byte
	Symbols  []Symbol
	Comment  []byte
	Metadata *Metadata
}

// encodeNote wraps a payload in an ELF note record.
func encodeNote(noteType uint32, payload []byte) []byte {
	nameSz := len(noteName) + 1
	out := make([]byte, 0, 12+8+len(payload)+3)
	out = endian.AppendUint32(out, uint32(nameSz))
	out = endian.AppendUint32(out, uint32(len(payload)))
	out = endian.AppendUint32(out, noteType)
	out = append(out, noteName...)
	out = append(out, 0)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	out = append(out, payload...)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// findNote walks note records looking for the AMDGPU metadata payload.
func findNote(data []byte) []byte {
	for len(data) >= 12 {
		nameSz := endian.Uint32(data)
		descSz := endian.Uint32(data[4:])
		noteType := endian.Uint32(data[8:])
		nameEnd := 12 + int(nameSz+3)&^3
		descEnd := nameEnd + int(descSz+3)&^3
		if nameEnd > len(data) || descEnd > len(data) {
			return nil
		}
		name := data[12 : 12+nameSz]
		if noteType == noteTypeMetadata && nameSz > 0 &&
			string(name[:nameSz-1]) == noteName {
			return data[nameEnd : nameEnd+int(descSz)]
		}
		data = data[descEnd:]
	}
	return nil
}

// Write builds the ROCm ELF64 for an assembled job: .text with the kernel
// descriptors already in place, the metadata note, optional .comment, and a
// symbol per kernel.
func Write(out *asm.Output) ([]byte, error) {
	var text, comment *asm.Section
	for _, s := range out.Sections {
		switch s.Name {
		case ".text":
			text = s
		case ".comment":
			comment = s
		}
	}
	if text == nil {
		return nil, errors.New("rocm: no .text section to emit")
	}
	logrus.WithField("kernels", len(out.Kernels)).Debug("writing ROCm binary")

	md := &Metadata{Version: [2]uint64{1, 0}}
	for _, k := range out.Kernels {
		md.Kernels = append(md.Kernels, KernelMetadata{
			Name:                k.Name,
			Symbol:              k.Name + ".kd",
			KernargSegmentSize:  k.Config.KernargSegmentSize,
			KernargSegmentAlign: k.Config.KernargSegmentAlign,
			GroupSegmentFixedSize:   uint64(k.Config.WorkgroupGroupSegmentSize),
			PrivateSegmentFixedSize: uint64(k.Config.ScratchBufferSize),
			SGPRCount:           uint64(k.Config.UsedSGPRs),
			VGPRCount:           uint64(k.Config.UsedVGPRs),
			WavefrontSize:       64,
		})
	}
	payload, err := GenerateMetadata(md)
	if err != nil {
		return nil, err
	}
	note := encodeNote(noteTypeMetadata, payload)

	w := elf.NewWriter(elf.HeaderDef{
		Class:       elf.Class64,
		OSABI:       elfOSABIAMDHSA,
		Type:        1, // ET_REL
		Machine:     elfMachineAMDGPU,
		Version:     1,
		EntryRegion: -1,
	})
	// region/section order: .note .text .comment? .symtab .strtab .shstrtab shdr
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".note", SecType: elf.SHTNote,
		Align: 4, Size: uint64(len(note)), Data: note,
	})
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".text", SecType: elf.SHTProgbits,
		SecFlags: 0x6, // ALLOC|EXECINSTR
		Align:    256, Size: text.Size(), Data: text.Bytes,
	})
	textIndex := 2
	if comment != nil {
		w.AddRegion(elf.Region{
			Type: elf.RegionSection, Name: ".comment", SecType: elf.SHTProgbits,
			Align: 1, Size: comment.Size(), Data: comment.Bytes,
		})
	}
	w.AddRegion(elf.Region{
		Type: elf.RegionSection, Name: ".symtab", SecType: elf.SHTSymtab,
		Align: 8, Info: 1,
	})
	w.AddRegion(elf.Region{Type: elf.RegionSection, Name: ".strtab", SecType: elf.SHTStrtab, Align: 1})
	w.AddRegion(elf.Region{Type: elf.RegionSection, Name: ".shstrtab", SecType: elf.SHTStrtab, Align: 1})
	w.AddRegion(elf.Region{Type: elf.RegionShdrTable})

	for _, k := range out.Kernels {
		// fkernels are emitted weak so the reader can recover the flag
		info := byte(symBindGlobal<<4 | symTypeFunc)
		if k.FKernel {
			info = byte(symBindWeak<<4 | symTypeFunc)
		}
		w.AddSymbol(elf.SymbolDef{
			Name:         k.Name,
			SectionIndex: textIndex,
			Value:        k.Offset,
			Info:         info,
		})
	}
	return w.Generate()
}

// Read decodes a ROCm container: code, kernel symbols in symbol-table
// order, the comment section, and the metadata note.
func Read(data []byte) (*Binary, error) {
	b, err := elf.Read(data, elf.Class64)
	if err != nil {
		return nil, err
	}
	textIdx, textHdr := b.SectionByName(".text")
	if textHdr == nil {
		return nil, errors.New("rocm: no .text section")
	}
	out := &Binary{Code: b.SectionData(textIdx)}
	if i, commentHdr := b.SectionByName(".comment"); commentHdr != nil {
		out.Comment = b.SectionData(i)
	}
	syms := b.Symbols
	if len(syms) == 0 {
		syms = b.DynSyms
	}
	for _, s := range syms {
		if s.Name == "" || int(s.Shndx) != textIdx {
			continue
		}
		if s.Value > uint64(len(out.Code)) {
			return nil, fmt.Errorf("rocm: kernel symbol %q offset out of range", s.Name)
		}
		typ := RegionKernel
		switch {
		case s.Info&0xF == symTypeObject:
			typ = RegionData
		case s.Info>>4 == symBindWeak:
			typ = RegionFKernel
		}
		out.Symbols = append(out.Symbols, Symbol{
			Name: s.Name, Offset: s.Value, Size: s.Size, Type: typ,
		})
	}
	for i := range b.Sections {
		if b.Sections[i].Type == elf.SHTNote {
			if payload := findNote(b.SectionData(i)); payload != nil {
				md, err := ParseMetadata(payload)
				if err != nil {
					return nil, err
				}
				out.Metadata = md
			}
		}
	}
	return out, nil
}
