// Package amdcl reads the AMD Catalyst and AMD-OpenCL2 kernel payloads: an
// outer ELF whose kernels are inner ELF32 blobs carrying CAL note records,
// or (for CL2) a flat .hsatext region addressed by kernel symbols.
package amdcl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radeontools/gcnasm/internal/elf"
	"github.com/radeontools/gcnasm/internal/endian"
)

var (
	ErrNoKernels   = errors.New("amdcl: no kernel symbols found")
	ErrBadCALNote  = errors.New("amdcl: malformed CAL note")
	ErrNoText      = errors.New("amdcl: no text section")
)

// CAL note types the Catalyst runtime understands.
const (
	CALNoteProgInfo  = 1
	CALNoteInputs    = 2
	CALNoteOutputs   = 3
	CALNoteCondOut   = 4
	CALNoteFloat32   = 5
	CALNoteIntConst  = 6
	CALNoteBoolConst = 7
	CALNoteEarlyExit = 8
	CALNoteGlobal    = 9
	CALNoteConstBuf  = 10
	CALNoteInputSamplers = 11
	CALNoteScratchBuffers = 13
	CALNoteUAV       = 16
)

// CALNote is one header-plus-blob metadata record of a Catalyst kernel.
type CALNote struct {
	Type uint32
	Name string
	Data []byte
}

// Kernel is one kernel extracted from a Catalyst or CL2 binary.
type Kernel struct {
	Name     string
	Code     []byte
	Metadata []byte
	CALNotes []CALNote
}

// Binary is the decoded payload.
type Binary struct {
	Is64    bool
	Kernels []Kernel
	GlobalData []byte
}

const calNoteNamesz = 8 // "ATI CAL\0"

// parseCALNotes walks the CAL note records of an inner kernel ELF.
func parseCALNotes(data []byte) ([]CALNote, error) {
	var notes []CALNote
	for len(data) > 0 {
		if len(data) < 20 {
			return nil, ErrBadCALNote
		}
		nameSz := endian.Uint32(data)
		descSz := endian.Uint32(data[4:])
		noteType := endian.Uint32(data[8:])
		if nameSz != calNoteNamesz {
			return nil, ErrBadCALNote
		}
		if uint64(12+nameSz)+uint64(descSz) > uint64(len(data)) {
			return nil, ErrBadCALNote
		}
		name := strings.TrimRight(string(data[12:12+nameSz]), "\x00")
		desc := data[12+nameSz : 12+nameSz+descSz]
		notes = append(notes, CALNote{Type: noteType, Name: name, Data: desc})
		data = data[12+nameSz+descSz:]
	}
	return notes, nil
}

// readInnerKernel parses one kernel's inner ELF32: CAL notes come from the
// .data section, machine code from the .text section. Program headers are
// not consulted.
func readInnerKernel(name string, blob []byte) (Kernel, error) {
	k := Kernel{Name: name}
	inner, err := elf.Read(blob, elf.Class32)
	if err != nil {
		return k, fmt.Errorf("kernel %q: %w", name, err)
	}
	for i := range inner.Sections {
		switch inner.Sections[i].Name {
		case ".text":
			k.Code = inner.SectionData(i)
		case ".data":
			notes, err := parseCALNotes(inner.SectionData(i))
			if err != nil {
				return k, fmt.Errorf("kernel %q: %w", name, err)
			}
			k.CALNotes = notes
		}
	}
	if k.Code == nil {
		return k, fmt.Errorf("kernel %q: %w", name, ErrNoText)
	}
	return k, nil
}

// kernelSymbolName strips the __OpenCL_..._kernel wrapper Catalyst uses.
func kernelSymbolName(sym string) (string, bool) {
	if strings.HasPrefix(sym, "__OpenCL_") && strings.HasSuffix(sym, "_kernel") {
		return sym[len("__OpenCL_") : len(sym)-len("_kernel")], true
	}
	return "", false
}

// ReadCatalyst decodes an AMD Catalyst main binary of either word width.
// Each kernel symbol in .text covers an inner ELF32 blob.
func ReadCatalyst(data []byte, is64 bool) (*Binary, error) {
	class := elf.Class32
	if is64 {
		class = elf.Class64
	}
	b, err := elf.Read(data, class)
	if err != nil {
		return nil, err
	}
	textIdx, textHdr := b.SectionByName(".text")
	if textHdr == nil {
		return nil, ErrNoText
	}
	text := b.SectionData(textIdx)
	out := &Binary{Is64: is64}
	if i, rodata := b.SectionByName(".rodata"); rodata != nil {
		out.GlobalData = b.SectionData(i)
	}
	syms := b.Symbols
	if len(syms) == 0 {
		syms = b.DynSyms
	}
	for _, s := range syms {
		name, ok := kernelSymbolName(s.Name)
		if !ok || int(s.Shndx) != textIdx {
			continue
		}
		if s.Value+s.Size > uint64(len(text)) {
			return nil, fmt.Errorf("amdcl: kernel %q out of range", name)
		}
		k, err := readInnerKernel(name, text[s.Value:s.Value+s.Size])
		if err != nil {
			return nil, err
		}
		out.Kernels = append(out.Kernels, k)
	}
	if len(out.Kernels) == 0 {
		return nil, ErrNoKernels
	}
	return out, nil
}

// ReadCL2 decodes an AMD-OpenCL2 binary: a flat .hsatext region addressed
// directly by kernel symbols.
func ReadCL2(data []byte) (*Binary, error) {
	b, err := elf.Read(data, elf.Class64)
	if err != nil {
		return nil, err
	}
	textIdx, textHdr := b.SectionByName(".hsatext")
	if textHdr == nil {
		textIdx, textHdr = b.SectionByName(".text")
	}
	if textHdr == nil {
		return nil, ErrNoText
	}
	text := b.SectionData(textIdx)
	out := &Binary{Is64: true}
	syms := b.Symbols
	if len(syms) == 0 {
		syms = b.DynSyms
	}
	for _, s := range syms {
		if int(s.Shndx) != textIdx || s.Name == "" {
			continue
		}
		name := strings.TrimSuffix(s.Name, "_kernel")
		if s.Value+s.Size > uint64(len(text)) {
			return nil, fmt.Errorf("amdcl: kernel %q out of range", name)
		}
		end := s.Value + s.Size
		if s.Size == 0 {
			end = uint64(len(text))
		}
		out.Kernels = append(out.Kernels, Kernel{
			Name: name,
			Code: text[s.Value:end],
		})
	}
	if len(out.Kernels) == 0 {
		return nil, ErrNoKernels
	}
	return out, nil
}
