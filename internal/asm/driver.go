// Package asm implements the assembler driver: tokenization of source
// lines, directive dispatch, section emission, the symbol table with
// deferred patches, and per-kernel descriptor tracking.
package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/radeontools/gcnasm/internal/endian"
	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/gcn"
	"github.com/radeontools/gcnasm/internal/scan"
)

// Format selects the output container family.
type Format byte

const (
	FormatRawCode Format = iota
	FormatROCm
	FormatGallium
	FormatAmd
	FormatAmdCL2
)

var formatNames = map[string]Format{
	"rawcode": FormatRawCode, "rocm": FormatROCm, "gallium": FormatGallium,
	"amd": FormatAmd, "amdcl2": FormatAmdCL2,
}

// kernel inner scope selected by .config / .control_directive; restored when
// the kernel is reselected.
type kernelScope byte

const (
	scopeNone kernelScope = iota
	scopeConfig
	scopeControl
)

// Kernel is one .kernel declaration with its configuration and
// control-directive bytes. Offset is resolved at finalization from the label
// matching the kernel's name.
type Kernel struct {
	Name    string
	FKernel bool
	Config  *KernelConfig
	Control []byte
	Offset  uint64

	scope kernelScope
	maxS  int
	maxV  int
}

type patch struct {
	section *Section
	offset  uint64
	kind    gcn.PatchKind
	expr    *expr.Expression
	line    int
	col     int
}

// Output is everything the container codecs need after a successful run.
type Output struct {
	Device   gcn.Device
	Format   Format
	Sections []*Section
	Symbols  []*expr.Symbol
	Kernels  []*Kernel
}

// Assembler drives one assembly job. All buffers are owned by the instance
// and become garbage with it.
type Assembler struct {
	Path   string
	Device gcn.Device
	Format Format

	sink     Sink
	errCount int

	symtab    *expr.Table
	sections  []*Section
	secByName map[string]*Section
	cur       *Section

	kernels      []*Kernel
	kernelByName map[string]*Kernel
	curKernel    *Kernel // kernel scope (directives)
	codeKernel   *Kernel // kernel owning the current code region

	enc     *gcn.Encoder
	patches []*patch

	line int
	col  int
}

// New creates an assembler for one job. sink may be nil, in which case
// diagnostics are only counted.
func New(path string, device gcn.Device, format Format, sink Sink) *Assembler {
	if sink == nil {
		sink = &CollectSink{}
	}
	a := &Assembler{
		Path:         path,
		Device:       device,
		Format:       format,
		sink:         sink,
		symtab:       expr.NewTable(),
		secByName:    map[string]*Section{},
		kernelByName: map[string]*Kernel{},
	}
	a.enc = gcn.NewEncoder(device, a.symtab)
	return a
}

func (a *Assembler) report(sev Severity, cat Category, format string, args ...any) {
	if sev == SevError {
		a.errCount++
	}
	a.sink.Report(Diagnostic{
		Path: a.Path, Line: a.line, Col: a.col,
		Severity: sev, Category: cat,
		Message: fmt.Sprintf(format, args...),
	})
}

func (a *Assembler) errorf(cat Category, format string, args ...any) {
	a.report(SevError, cat, format, args...)
}

func (a *Assembler) warnf(format string, args ...any) {
	a.report(SevWarning, CatParse, format, args...)
}

// section returns the section named name, creating it on first reference.
func (a *Assembler) section(name string, kind SectKind) *Section {
	if s, ok := a.secByName[name]; ok {
		return s
	}
	s := &Section{ID: len(a.sections), Name: name, Kind: kind, Align: 1}
	a.sections = append(a.sections, s)
	a.secByName[name] = s
	return s
}

func (a *Assembler) textSection() *Section { return a.section(".text", SectText) }

// Assemble runs the whole job over the source text. The returned Output is
// nil when any error diagnostic was recorded.
func (a *Assembler) Assemble(source string) (*Output, error) {
	logrus.WithFields(logrus.Fields{
		"path":   a.Path,
		"device": a.Device.String(),
	}).Debug("assembling")

	for i, text := range strings.Split(source, "\n") {
		a.line = i + 1
		a.col = 1
		a.processLine(text)
	}
	a.finalize()

	if a.errCount > 0 {
		return nil, fmt.Errorf("assembly failed with %d errors", a.errCount)
	}
	out := &Output{
		Device:   a.Device,
		Format:   a.Format,
		Sections: a.sections,
		Symbols:  a.symtab.All(),
		Kernels:  a.kernels,
	}
	return out, nil
}

func stripComment(text string) string {
	inStr := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			inStr = !inStr
		case '\\':
			if inStr {
				i++
			}
		case '#':
			if !inStr {
				return text[:i]
			}
		}
	}
	return text
}

func (a *Assembler) processLine(text string) {
	sc := scan.New(stripComment(text))
	sc.SkipSpaces()
	if sc.EOF() {
		return
	}
	a.col = sc.Col()

	// leading labels
	for {
		mark := sc.Pos()
		name := sc.Name()
		if name == "" {
			break
		}
		sc.SkipSpaces()
		if !sc.Expect(':') {
			sc.SetPos(mark)
			break
		}
		a.defineLabel(name)
		sc.SkipSpaces()
		if sc.EOF() {
			return
		}
	}

	a.col = sc.Col()
	if sc.Peek() == '.' {
		name := sc.Name()
		a.directive(name[1:], sc)
		return
	}
	a.instruction(sc)
}

// defineLabel defines name at the current emission point. A label matching a
// declared kernel moves register tracking to that kernel.
func (a *Assembler) defineLabel(name string) {
	sect := a.cur
	if sect == nil {
		a.errorf(CatParse, "label %q outside any section", name)
		return
	}
	if err := a.define(name, sect.ID, sect.Size(), false); err != nil {
		a.errorf(CatSemantic, "%v", err)
		return
	}
	if k, ok := a.kernelByName[name]; ok && sect.Kind == SectText {
		a.switchCodeKernel(k)
	}
}

// define sets a symbol, enforcing the redefinition rule: redefining is legal
// only for a .set repeating the same value and section.
func (a *Assembler) define(name string, section int, value uint64, isSet bool) error {
	if s, ok := a.symtab.Get(name); ok && s.Defined {
		if !isSet || s.Section != section || s.Value != value {
			return fmt.Errorf("symbol %q already defined", name)
		}
		return nil
	}
	_, deps := a.symtab.Define(name, section, value)
	a.resolveDependents(deps, 0)
	return nil
}

// resolveDependents re-attempts expressions waiting on a freshly defined
// symbol; one that is still pending is deferred again. Resolution is one
// level deep: the function does not recurse and its callers pass depth 0,
// so the depth limit of 1000 is never reached.
func (a *Assembler) resolveDependents(deps []*expr.Expression, depth int) {
	if depth > 1000 {
		a.errorf(CatSemantic, "circular dependency in symbol resolution")
		return
	}
	for _, e := range deps {
		value, _, pending, err := e.Evaluate()
		if err != nil {
			a.errorf(CatSemantic, "%v", err)
			continue
		}
		if pending {
			e.Defer()
			continue
		}
		a.applyPatchValue(e, value)
	}
}

// applyPatchValue writes a resolved deferred expression into its patch site.
func (a *Assembler) applyPatchValue(e *expr.Expression, value uint64) {
	p, ok := e.Target.(*patch)
	if !ok || p == nil {
		return
	}
	switch p.kind {
	case gcn.PatchLiteral32:
		endian.PutUint32(p.section.Bytes[p.offset:], uint32(value))
	case gcn.PatchSImm16Rel:
		rel, err := gcn.BranchDisplacement(p.offset, value)
		if err != nil {
			a.errorf(CatSemantic, "%v", err)
			return
		}
		w := endian.Uint32(p.section.Bytes[p.offset:])
		endian.PutUint32(p.section.Bytes[p.offset:], w&0xFFFF0000|uint32(rel))
	}
}

func (a *Assembler) switchCodeKernel(k *Kernel) {
	a.saveUsage()
	a.codeKernel = k
	a.enc.MaxSGPR = k.maxS
	a.enc.MaxVGPR = k.maxV
}

func (a *Assembler) saveUsage() {
	if a.codeKernel == nil {
		return
	}
	k := a.codeKernel
	k.maxS, k.maxV = a.enc.MaxSGPR, a.enc.MaxVGPR
}

// instruction assembles one mnemonic line into the current text section.
func (a *Assembler) instruction(sc *scan.Scanner) {
	if a.curKernel != nil && a.cur == nil {
		a.errorf(CatParse, "instruction inside kernel configuration")
		return
	}
	sect := a.cur
	if sect == nil || sect.Kind != SectText {
		a.errorf(CatParse, "instructions are allowed only in code sections")
		return
	}
	mnemonic := strings.ToLower(sc.Name())
	if mnemonic == "" {
		a.errorf(CatParse, "unexpected token %q", sc.Rest())
		return
	}
	ent, err := gcn.Lookup(mnemonic, a.Device.Arch())
	if err != nil {
		var unavail *gcn.ArchUnavailableError
		if errors.As(err, &unavail) {
			a.errorf(CatSemantic, "%v", err)
		} else {
			a.errorf(CatParse, "%v", err)
		}
		return
	}
	enc, err := a.enc.Encode(ent, sc, sect.Size())
	if err != nil {
		a.errorf(CatParse, "%s: %v", mnemonic, err)
		return
	}
	if enc.Truncated {
		a.warnf("literal out of 32-bit range was truncated")
	}
	off := sect.Append(enc.Bytes())
	if enc.Pending != nil {
		p := &patch{
			section: sect,
			kind:    enc.PendingKind,
			expr:    enc.Pending,
			line:    a.line,
			col:     a.col,
		}
		switch enc.PendingKind {
		case gcn.PatchLiteral32:
			p.offset = off + uint64(enc.NumWords)*4
		case gcn.PatchSImm16Rel:
			p.offset = off
		}
		enc.Pending.Target = p
		enc.Pending.Defer()
		a.patches = append(a.patches, p)
	}
}

// finalize resolves remaining forward references, writes kernel descriptors
// over the head of each kernel's code region, and reports what stayed
// undefined. Running it twice on the same state produces identical bytes.
func (a *Assembler) finalize() {
	a.saveUsage()
	for _, p := range a.patches {
		value, _, pending, err := p.expr.Evaluate()
		a.line, a.col = p.line, p.col
		if err != nil {
			a.errorf(CatSemantic, "%v", err)
			continue
		}
		if pending {
			continue // reported below via the undefined-symbol walk
		}
		a.applyPatchValue(p.expr, value)
	}
	for _, s := range a.symtab.Undefined() {
		a.line, a.col = 0, 0
		a.errorf(CatSemantic, "undefined symbol %q", s.Name)
	}
	text := a.secByName[".text"]
	for _, k := range a.kernels {
		a.line, a.col = 0, 0
		sym, ok := a.symtab.Get(k.Name)
		if !ok || !sym.Defined {
			a.errorf(CatSemantic, "kernel %q has no code label", k.Name)
			continue
		}
		if text == nil || sym.Section != text.ID {
			a.errorf(CatSemantic, "kernel %q label is not in .text", k.Name)
			continue
		}
		k.Offset = sym.Value
		if k.Offset+DescriptorSize > text.Size() {
			a.errorf(CatSemantic, "kernel %q code region is smaller than its descriptor", k.Name)
			continue
		}
		k.Config.UsedSGPRs = sgprCount(k.maxS)
		k.Config.UsedVGPRs = vgprCount(k.maxV)
		desc := k.Config.EncodeDescriptor(a.Device, k.Control)
		copy(text.Bytes[k.Offset:], desc[:])
	}
}

// sgprCount reserves at least the vcc pair.
func sgprCount(max int) uint16 {
	if max < 1 {
		return 2
	}
	return uint16(max + 1)
}

func vgprCount(max int) uint16 {
	if max < 0 {
		return 1
	}
	return uint16(max + 1)
}
