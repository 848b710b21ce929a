package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radeontools/gcnasm/internal/expr"
	"github.com/radeontools/gcnasm/internal/gcn"
	"github.com/radeontools/gcnasm/internal/scan"
)

// snopFiller pads code sections on .align, one s_nop per word.
var snopFiller = []byte{0x00, 0x00, 0x80, 0xBF}

// constExpr evaluates an expression that must resolve immediately to an
// absolute value.
func (a *Assembler) constExpr(sc *scan.Scanner) (uint64, error) {
	e, err := expr.ParseWith(sc, a.symtab)
	if err != nil {
		return 0, err
	}
	v, sect, pending, err := e.Evaluate()
	if err != nil {
		return 0, err
	}
	if pending {
		return 0, errors.New("expression requires symbols that are not yet defined")
	}
	if sect != expr.AbsSection {
		return 0, expr.ErrNotAbsolute
	}
	return v, nil
}

func (a *Assembler) directive(name string, sc *scan.Scanner) {
	name = strings.ToLower(name)

	if a.curKernel != nil {
		if name == "fkernel" {
			a.curKernel.FKernel = true
			return
		}
		if a.curKernel.scope == scopeConfig {
			if fn, ok := configDirectives[name]; ok {
				if err := fn(a, a.curKernel.Config, sc); err != nil {
					a.errorf(CatParse, ".%s: %v", name, err)
				}
				return
			}
		}
	}

	switch name {
	case "rocm", "gallium", "amd", "amdcl2", "rawcode":
		a.Format = formatNames[name]
	case "gpu":
		sc.SkipSpaces()
		arg := strings.TrimSpace(sc.Rest())
		dev, ok := gcn.DeviceByName(arg)
		if !ok {
			a.errorf(CatParse, "unknown GPU device %q", arg)
			return
		}
		a.Device = dev
		a.enc.Device = dev
		a.enc.Arch = dev.Arch()
	case "kernel":
		sc.SkipSpaces()
		kname := sc.Name()
		if kname == "" {
			a.errorf(CatParse, ".kernel requires a name")
			return
		}
		k, ok := a.kernelByName[kname]
		if !ok {
			k = &Kernel{Name: kname, Config: NewKernelConfig(), maxS: -1, maxV: -1}
			a.kernelByName[kname] = k
			a.kernels = append(a.kernels, k)
		}
		a.curKernel = k
		a.cur = nil
	case "config":
		if a.curKernel == nil {
			a.errorf(CatParse, ".config outside .kernel")
			return
		}
		a.curKernel.scope = scopeConfig
	case "control_directive":
		if a.curKernel == nil {
			a.errorf(CatParse, ".control_directive outside .kernel")
			return
		}
		a.curKernel.scope = scopeControl
	case "text":
		a.leaveKernel()
		a.cur = a.textSection()
	case "data":
		a.leaveKernel()
		a.cur = a.section(".data", SectData)
	case "rodata":
		a.leaveKernel()
		a.cur = a.section(".rodata", SectRodata)
	case "section":
		sc.SkipSpaces()
		sname := sc.Name()
		if sname == "" {
			a.errorf(CatParse, ".section requires a name")
			return
		}
		kind := SectCustom
		switch sname {
		case ".text":
			kind = SectText
		case ".data":
			kind = SectData
		case ".rodata":
			kind = SectRodata
		case ".comment":
			kind = SectComment
		}
		a.leaveKernel()
		a.cur = a.section(sname, kind)
	case "byte":
		a.emitData(sc, 1)
	case "short", "hword":
		a.emitData(sc, 2)
	case "int", "long":
		a.emitData(sc, 4)
	case "quad":
		a.emitData(sc, 8)
	case "ascii":
		a.emitString(sc, false)
	case "asciz", "string":
		a.emitString(sc, true)
	case "fill":
		a.emitFill(sc)
	case "skip", "space":
		a.emitSkip(sc)
	case "align", "balign":
		v, err := a.constExpr(sc)
		if err != nil {
			a.errorf(CatParse, ".align: %v", err)
			return
		}
		if v == 0 || v&(v-1) != 0 {
			a.errorf(CatParse, ".align: %d is not a power of two", v)
			return
		}
		sect := a.cur
		if sect == nil {
			a.errorf(CatParse, ".align outside any section")
			return
		}
		if sect.Kind == SectText && sect.Size()%4 == 0 {
			sect.AlignTo(v, snopFiller)
		} else {
			sect.AlignTo(v, []byte{0})
		}
		if uint32(v) > sect.Align {
			sect.Align = uint32(v)
		}
	case "set", "equ":
		sc.SkipSpaces()
		sname := sc.Name()
		if sname == "" {
			a.errorf(CatParse, ".set requires a name")
			return
		}
		sc.SkipSpaces()
		if !sc.Expect(',') {
			a.errorf(CatParse, ".set: expected ','")
			return
		}
		e, err := expr.ParseWith(sc, a.symtab)
		if err != nil {
			a.errorf(CatParse, ".set: %v", err)
			return
		}
		v, sect, pending, err := e.Evaluate()
		if err != nil {
			a.errorf(CatSemantic, ".set: %v", err)
			return
		}
		if pending {
			a.errorf(CatSemantic, ".set value must not use forward references")
			return
		}
		if err := a.define(sname, sect, v, true); err != nil {
			a.errorf(CatSemantic, "%v", err)
		}
	case "global", "globl", "extern":
		sc.SkipSpaces()
		for {
			sname := sc.Name()
			if sname == "" {
				a.errorf(CatParse, ".%s requires a name", name)
				return
			}
			a.symtab.Ref(sname).External = true
			sc.SkipSpaces()
			if !sc.Expect(',') {
				break
			}
			sc.SkipSpaces()
		}
	default:
		a.errorf(CatParse, "unknown directive .%s", name)
	}
}

func (a *Assembler) leaveKernel() {
	a.curKernel = nil
}

// appendEmitted routes emitted data to the control-directive buffer or the
// current section.
func (a *Assembler) appendEmitted(b []byte) {
	if a.curKernel != nil && a.curKernel.scope == scopeControl {
		k := a.curKernel
		if len(k.Control)+len(b) > 128 {
			a.errorf(CatSemantic, "control directive exceeds 128 bytes")
			return
		}
		k.Control = append(k.Control, b...)
		return
	}
	sect := a.cur
	if sect == nil {
		a.errorf(CatParse, "data emitted outside any section")
		return
	}
	sect.Append(b)
}

// emitData handles .byte/.short/.int/.quad expression lists. A 4-byte item
// may carry a forward reference, resolved by patching.
func (a *Assembler) emitData(sc *scan.Scanner, size int) {
	for {
		sc.SkipSpaces()
		e, err := expr.ParseWith(sc, a.symtab)
		if err != nil {
			a.errorf(CatParse, "%v", err)
			return
		}
		v, _, pending, err := e.Evaluate()
		if err != nil {
			a.errorf(CatSemantic, "%v", err)
			return
		}
		if pending {
			if size != 4 || a.cur == nil ||
				(a.curKernel != nil && a.curKernel.scope == scopeControl) {
				a.errorf(CatSemantic, "forward reference is not allowed here")
				return
			}
			p := &patch{
				section: a.cur, offset: a.cur.Size(),
				kind: gcn.PatchLiteral32, expr: e,
				line: a.line, col: a.col,
			}
			e.Target = p
			e.Defer()
			a.patches = append(a.patches, p)
			v = 0
		}
		b := make([]byte, size)
		for i := 0; i < size; i++ {
			b[i] = byte(v >> (8 * i))
		}
		a.appendEmitted(b)
		sc.SkipSpaces()
		if !sc.Expect(',') {
			break
		}
	}
	sc.SkipSpaces()
	if !sc.EOF() {
		a.errorf(CatParse, "garbage after data directive: %q", sc.Rest())
	}
}

func (a *Assembler) emitFill(sc *scan.Scanner) {
	count, err := a.constExpr(sc)
	if err != nil {
		a.errorf(CatParse, ".fill: %v", err)
		return
	}
	size, value := uint64(1), uint64(0)
	sc.SkipSpaces()
	if sc.Expect(',') {
		if size, err = a.constExpr(sc); err != nil {
			a.errorf(CatParse, ".fill: %v", err)
			return
		}
		sc.SkipSpaces()
		if sc.Expect(',') {
			if value, err = a.constExpr(sc); err != nil {
				a.errorf(CatParse, ".fill: %v", err)
				return
			}
		}
	}
	if size == 0 || size > 8 {
		a.errorf(CatParse, ".fill element size must be 1..8")
		return
	}
	elem := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		elem[i] = byte(value >> (8 * i))
	}
	for i := uint64(0); i < count; i++ {
		a.appendEmitted(elem)
	}
}

func (a *Assembler) emitSkip(sc *scan.Scanner) {
	count, err := a.constExpr(sc)
	if err != nil {
		a.errorf(CatParse, ".skip: %v", err)
		return
	}
	fill := uint64(0)
	sc.SkipSpaces()
	if sc.Expect(',') {
		if fill, err = a.constExpr(sc); err != nil {
			a.errorf(CatParse, ".skip: %v", err)
			return
		}
	}
	b := make([]byte, count)
	if fill != 0 {
		for i := range b {
			b[i] = byte(fill)
		}
	}
	a.appendEmitted(b)
}

// emitString parses one or more quoted strings with C escapes.
func (a *Assembler) emitString(sc *scan.Scanner, zeroTerm bool) {
	for {
		sc.SkipSpaces()
		if !sc.Expect('"') {
			a.errorf(CatParse, "expected string literal")
			return
		}
		var out []byte
		for {
			c := sc.Next()
			if c == 0 {
				a.errorf(CatParse, "unterminated string literal")
				return
			}
			if c == '"' {
				break
			}
			if c == '\\' {
				e := sc.Next()
				switch e {
				case 'n':
					out = append(out, '\n')
				case 't':
					out = append(out, '\t')
				case 'r':
					out = append(out, '\r')
				case '0':
					out = append(out, 0)
				case 'x':
					var v byte
					for i := 0; i < 2; i++ {
						d := sc.Peek()
						switch {
						case scan.IsDigit(d):
							v = v<<4 | (d - '0')
						case d >= 'a' && d <= 'f':
							v = v<<4 | (d - 'a' + 10)
						case d >= 'A' && d <= 'F':
							v = v<<4 | (d - 'A' + 10)
						default:
							continue
						}
						sc.Next()
					}
					out = append(out, v)
				default:
					out = append(out, e)
				}
				continue
			}
			out = append(out, c)
		}
		if zeroTerm {
			out = append(out, 0)
		}
		a.appendEmitted(out)
		sc.SkipSpaces()
		if !sc.Expect(',') {
			return
		}
	}
}

// configDirectives maps .config keys to kernel-descriptor fields.
var configDirectives = map[string]func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error{
	"codeversion": func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		major, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		sc.SkipSpaces()
		if !sc.Expect(',') {
			return errors.New("expected ','")
		}
		minor, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		c.CodeVersionMajor, c.CodeVersionMinor = uint32(major), uint32(minor)
		return nil
	},
	"call_convention": configU32(func(c *KernelConfig, v uint64) { c.CallConvention = uint32(v) }),
	"debug_private_segment_buffer_sgpr": configU32(func(c *KernelConfig, v uint64) {
		c.DebugPrivateSegmentBufferSGPR = uint16(v)
	}),
	"debug_wavefront_private_segment_offset_sgpr": configU32(func(c *KernelConfig, v uint64) {
		c.DebugWavefrontPrivateSegmentOffsetSGPR = uint16(v)
	}),
	"gds_segment_size": configU32(func(c *KernelConfig, v uint64) { c.GDSSegmentSize = uint32(v) }),
	"kernarg_segment_align": func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		v, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		return SetAlign(&c.KernargSegmentAlign, v)
	},
	"kernarg_segment_size": configU32(func(c *KernelConfig, v uint64) { c.KernargSegmentSize = v }),
	"workgroup_group_segment_size": configU32(func(c *KernelConfig, v uint64) {
		c.WorkgroupGroupSegmentSize = uint32(v)
	}),
	"workgroup_fbarrier_count": configU32(func(c *KernelConfig, v uint64) {
		c.WorkgroupFbarrierCount = uint32(v)
	}),
	"dx10clamp": configFlag(func(c *KernelConfig) { c.DX10Clamp = true }),
	"ieee_mode": configFlag(func(c *KernelConfig) { c.IEEEMode = true }),
	"privmode":  configFlag(func(c *KernelConfig) { c.PrivMode = true }),
	"debugmode": configFlag(func(c *KernelConfig) { c.DebugMode = true }),
	"tgsize":    configFlag(func(c *KernelConfig) { c.TGSize = true }),
	"exceptions": configU32(func(c *KernelConfig, v uint64) { c.Exceptions = uint8(v) }),
	"floatmode":  configU32(func(c *KernelConfig, v uint64) { c.FloatMode = uint8(v) }),
	"priority":   configU32(func(c *KernelConfig, v uint64) { c.Priority = uint8(v) }),
	"userdatanum": configU32(func(c *KernelConfig, v uint64) { c.UserDataNum = uint8(v) }),
	"private_segment_align": func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		v, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		return SetAlign(&c.PrivateSegmentAlign, v)
	},
	"reserved_sgpr_first": configU32(func(c *KernelConfig, v uint64) { c.ReservedSGPRFirst = uint16(v) }),
	"reserved_sgpr_count": configU32(func(c *KernelConfig, v uint64) { c.ReservedSGPRCount = uint16(v) }),
	"reserved_vgpr_first": configU32(func(c *KernelConfig, v uint64) { c.ReservedVGPRFirst = uint16(v) }),
	"reserved_vgpr_count": configU32(func(c *KernelConfig, v uint64) { c.ReservedVGPRCount = uint16(v) }),
	"runtime_loader_kernel_symbol": configU32(func(c *KernelConfig, v uint64) {
		c.RuntimeLoaderKernelSymbol = v
	}),
	"scratchbuffer": configU32(func(c *KernelConfig, v uint64) { c.ScratchBufferSize = uint32(v) }),
	"sgprsnum":      configU32(func(c *KernelConfig, v uint64) { c.SGPRsNum = uint16(v) }),
	"vgprsnum":      configU32(func(c *KernelConfig, v uint64) { c.VGPRsNum = uint16(v) }),
	"private_elem_size": func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		v, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		return c.SetPrivateElemSize(v)
	},
	"use_private_segment_buffer": configSgprFlag(SGPRPrivateSegmentBuffer),
	"use_dispatch_ptr":           configSgprFlag(SGPRDispatchPtr),
	"use_queue_ptr":              configSgprFlag(SGPRQueuePtr),
	"use_kernarg_segment_ptr":    configSgprFlag(SGPRKernargSegmentPtr),
	"use_dispatch_id":            configSgprFlag(SGPRDispatchID),
	"use_flat_scratch_init":      configSgprFlag(SGPRFlatScratchInit),
	"use_private_segment_size":   configSgprFlag(SGPRPrivateSegmentSize),
}

func configU32(set func(*KernelConfig, uint64)) func(*Assembler, *KernelConfig, *scan.Scanner) error {
	return func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		v, err := a.constExpr(sc)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func configFlag(set func(*KernelConfig)) func(*Assembler, *KernelConfig, *scan.Scanner) error {
	return func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		sc.SkipSpaces()
		if !sc.EOF() {
			return fmt.Errorf("unexpected argument %q", sc.Rest())
		}
		set(c)
		return nil
	}
}

func configSgprFlag(bit uint16) func(*Assembler, *KernelConfig, *scan.Scanner) error {
	return func(a *Assembler, c *KernelConfig, sc *scan.Scanner) error {
		sc.SkipSpaces()
		if !sc.EOF() {
			return fmt.Errorf("unexpected argument %q", sc.Rest())
		}
		c.EnableSGPRFlags |= bit
		return nil
	}
}
