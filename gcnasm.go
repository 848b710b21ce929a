// Package gcnasm assembles GCN assembly source into AMD GPU container
// binaries and disassembles such containers back into source. The heavy
// lifting lives under internal/: the ISA codec, the assembler driver, and
// the per-family container codecs.
package gcnasm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/radeontools/gcnasm/internal/amdcl"
	"github.com/radeontools/gcnasm/internal/asm"
	"github.com/radeontools/gcnasm/internal/elf"
	"github.com/radeontools/gcnasm/internal/endian"
	"github.com/radeontools/gcnasm/internal/gallium"
	"github.com/radeontools/gcnasm/internal/gcn"
	"github.com/radeontools/gcnasm/internal/rocm"
)

// Re-exported names so callers don't import internal packages.
type (
	Device     = gcn.Device
	Format     = asm.Format
	Diagnostic = asm.Diagnostic
	Sink       = asm.Sink
)

const (
	FormatRawCode = asm.FormatRawCode
	FormatROCm    = asm.FormatROCm
	FormatGallium = asm.FormatGallium
	FormatAmd     = asm.FormatAmd
	FormatAmdCL2  = asm.FormatAmdCL2

	SevWarning = asm.SevWarning
	SevError   = asm.SevError
)

// DeviceByName resolves a GPU device name.
func DeviceByName(name string) (Device, bool) { return gcn.DeviceByName(name) }

// Config parameterizes one assemble job.
type Config struct {
	// Path names the input in diagnostics.
	Path string
	// Device selects the GPU; directives in the source may override it.
	Device Device
	// Format selects the output container; directives may override it.
	Format Format
	// Sink receives diagnostics; nil collects silently.
	Sink Sink
}

// Assemble runs one job and returns the container binary. On failure no
// binary is produced; diagnostics went to the sink.
func Assemble(source []byte, cfg Config) ([]byte, error) {
	a := asm.New(cfg.Path, cfg.Device, cfg.Format, cfg.Sink)
	out, err := a.Assemble(string(source))
	if err != nil {
		return nil, err
	}
	switch out.Format {
	case asm.FormatROCm:
		return rocm.Write(out)
	case asm.FormatGallium:
		return writeGallium(out)
	case asm.FormatRawCode:
		for _, s := range out.Sections {
			if s.Name == ".text" {
				return s.Bytes, nil
			}
		}
		return nil, errors.New("gcnasm: no code emitted")
	case asm.FormatAmd, asm.FormatAmdCL2:
		return nil, errors.New("gcnasm: Catalyst output generation is not supported; use rocm, gallium or rawcode")
	}
	return nil, fmt.Errorf("gcnasm: unknown output format %d", out.Format)
}

func writeGallium(out *asm.Output) ([]byte, error) {
	var text *asm.Section
	var global []byte
	for _, s := range out.Sections {
		switch s.Name {
		case ".text":
			text = s
		case ".rodata":
			global = s.Bytes
		}
	}
	if text == nil {
		return nil, errors.New("gcnasm: no code emitted")
	}
	in := &gallium.Input{Code: text.Bytes, GlobalData: global}
	for _, k := range out.Kernels {
		in.Kernels = append(in.Kernels, gallium.KernelInput{
			Name:   k.Name,
			Offset: uint32(k.Offset),
			ProgInfo: [3][2]uint32{
				{0x0000B848, k.Config.PgmRsrc1()},
				{0x0000B84C, k.Config.PgmRsrc2()},
				{0x0000B860, uint32(k.Config.ScratchBufferSize)},
			},
		})
	}
	return gallium.Write(in)
}

// payload is the tagged variant over the container families the
// disassembler understands.
type payload struct {
	rocm    *rocm.Binary
	amd     *amdcl.Binary
	amdCL2  *amdcl.Binary
	gallium *gallium.Binary
	raw     []byte
}

// DisasmConfig parameterizes one disassemble job.
type DisasmConfig struct {
	// Device names the GPU assumed for raw code; containers carrying a
	// machine tuple override it.
	Device Device
	// FloatLiterals adds float comments after literal tails.
	FloatLiterals bool
}

// classify sniffs the container family.
func classify(binary []byte) (payload, error) {
	var p payload
	if len(binary) >= 6 && endian.Uint32(binary) == 0x464C457F {
		switch elf.Class(binary[4]) {
		case elf.Class64:
			if b, err := rocm.Read(binary); err == nil && (b.Metadata != nil || len(b.Symbols) > 0) {
				p.rocm = b
				return p, nil
			}
			b, err := amdcl.ReadCL2(binary)
			if err != nil {
				return p, err
			}
			p.amdCL2 = b
			return p, nil
		case elf.Class32:
			b, err := amdcl.ReadCatalyst(binary, false)
			if err != nil {
				return p, err
			}
			p.amd = b
			return p, nil
		}
		return p, elf.ErrBadClass
	}
	if len(binary) >= 4 {
		if b, err := gallium.Read(binary); err == nil {
			p.gallium = b
			return p, nil
		}
	}
	p.raw = binary
	return p, nil
}

// Disassemble decodes a container binary into assembly text.
func Disassemble(binary []byte, cfg DisasmConfig) (string, error) {
	p, err := classify(binary)
	if err != nil {
		return "", err
	}
	arch := cfg.Device.Arch()
	if arch == 0 {
		arch = gcn.ArchGCN10
	}
	var sb strings.Builder
	switch {
	case p.rocm != nil:
		return disassembleROCm(p.rocm, cfg)
	case p.gallium != nil:
		return disassembleGallium(p.gallium, arch, cfg)
	case p.amd != nil, p.amdCL2 != nil:
		b := p.amd
		format := ".amd"
		if b == nil {
			b = p.amdCL2
			format = ".amdcl2"
		}
		sb.WriteString(format + "\n")
		for _, k := range b.Kernels {
			fmt.Fprintf(&sb, ".kernel %s\n", k.Name)
			for _, note := range k.CALNotes {
				fmt.Fprintf(&sb, "# calnote type=%d size=%d\n", note.Type, len(note.Data))
			}
			d := gcn.NewDecoder(arch, k.Code)
			d.FloatLiterals = cfg.FloatLiterals
			sb.WriteString(d.Disassemble())
		}
		return sb.String(), nil
	default:
		d := gcn.NewDecoder(arch, p.raw)
		d.FloatLiterals = cfg.FloatLiterals
		return d.Disassemble(), nil
	}
}

// archForMachine maps a descriptor machine major to an architecture bit.
func archForMachine(major uint16) uint32 {
	switch {
	case major >= 8:
		return gcn.ArchGCN12
	case major == 7:
		return gcn.ArchGCN11
	default:
		return gcn.ArchGCN10
	}
}

func disassembleROCm(b *rocm.Binary, cfg DisasmConfig) (string, error) {
	logrus.WithField("symbols", len(b.Symbols)).Debug("disassembling ROCm binary")
	var sb strings.Builder
	sb.WriteString(".rocm\n")

	syms := append([]rocm.Symbol(nil), b.Symbols...)
	sort.Slice(syms, func(i, j int) bool { return syms[i].Offset < syms[j].Offset })

	var arch uint32
	for _, s := range syms {
		if s.Type == rocm.RegionData {
			continue
		}
		if s.Offset+asm.DescriptorSize > uint64(len(b.Code)) {
			return "", fmt.Errorf("gcnasm: kernel %q descriptor out of range", s.Name)
		}
		desc := b.Code[s.Offset:]
		if arch == 0 {
			arch = archForMachine(endian.Uint16(desc[10:]))
		}
		fmt.Fprintf(&sb, ".kernel %s\n", s.Name)
		if s.Type == rocm.RegionFKernel {
			sb.WriteString("    .fkernel\n")
		}
		sb.WriteString("    .config\n")
		fmt.Fprintf(&sb, "        .codeversion %d,%d\n",
			endian.Uint32(desc), endian.Uint32(desc[4:]))
		fmt.Fprintf(&sb, "        .call_convention 0x%x\n", endian.Uint32(desc[104:]))
		fmt.Fprintf(&sb, "        # pgmrsrc1 0x%x, pgmrsrc2 0x%x\n",
			endian.Uint32(desc[48:]), endian.Uint32(desc[52:]))
	}

	sb.WriteString(".text\n")
	if arch == 0 {
		arch = cfg.Device.Arch()
	}
	if arch == 0 {
		arch = gcn.ArchGCN12
	}
	// decode each kernel's code region after its descriptor
	for i, s := range syms {
		if s.Type == rocm.RegionData {
			continue
		}
		start := s.Offset + asm.DescriptorSize
		end := uint64(len(b.Code))
		if i+1 < len(syms) {
			end = syms[i+1].Offset
		}
		fmt.Fprintf(&sb, "%s:\n", s.Name)
		d := gcn.NewDecoder(arch, b.Code[start:end])
		d.FloatLiterals = cfg.FloatLiterals
		sb.WriteString(d.Disassemble())
	}
	return sb.String(), nil
}

func disassembleGallium(b *gallium.Binary, arch uint32, cfg DisasmConfig) (string, error) {
	var sb strings.Builder
	sb.WriteString(".gallium\n.text\n")
	textIdx, textHdr := b.Inner.SectionByName(".text")
	if textHdr == nil {
		return "", gallium.ErrNoText
	}
	code := b.Inner.SectionData(textIdx)
	d := gcn.NewDecoder(arch, code)
	d.FloatLiterals = cfg.FloatLiterals
	for _, k := range b.Kernels {
		d.AddNamedLabel(uint64(k.Offset), k.Name)
	}
	sb.WriteString(d.Disassemble())
	return sb.String(), nil
}
