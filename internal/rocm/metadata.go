// Package rocm implements the ROCm binary flavor: an ELF64 whose kernels
// carry 256-byte descriptors in .text and whose metadata travels as a
// MsgPack map inside a note section.
package rocm

import (
	"fmt"
	"strings"

	"github.com/radeontools/gcnasm/internal/msgpack"
)

// closed value sets for kernel argument fields.
var valueKinds = map[string]bool{
	"by_value": true, "dynamic_shared_pointer": true, "global_buffer": true,
	"hidden_completion_action": true, "hidden_default_queue": true,
	"hidden_global_offset_x": true, "hidden_global_offset_y": true,
	"hidden_global_offset_z": true, "hidden_multigrid_sync_arg": true,
	"hidden_none": true, "hidden_printf_buffer": true, "image": true,
	"pipe": true, "queue": true, "sampler": true,
}

var valueTypes = map[string]bool{
	"F16": true, "F32": true, "F64": true, "I16": true, "I32": true,
	"I64": true, "I8": true, "Struct": true, "U16": true, "U32": true,
	"U64": true, "U8": true,
}

var accessQuals = map[string]bool{
	"read_only": true, "write_only": true, "read_write": true,
}

var addressSpaces = map[string]bool{
	"private": true, "global": true, "constant": true, "local": true,
	"generic": true, "region": true,
}

// ArgInfo is one kernel argument's metadata.
type ArgInfo struct {
	Name         string
	TypeName     string
	Size         uint64
	Offset       uint64
	PointeeAlign uint64
	ValueKind    string
	ValueType    string
	AddressSpace string
	Access       string
	ActualAccess string
	IsConst      bool
	IsRestrict   bool
	IsVolatile   bool
	IsPipe       bool
}

// KernelMetadata mirrors one entry of the amdhsa.kernels array.
type KernelMetadata struct {
	Name                    string
	Symbol                  string
	Language                string
	LangVersion             [2]uint64
	DeviceEnqueueSymbol     string
	VecTypeHint             string
	ReqdWorkGroupSize       [3]uint64
	WorkGroupSizeHint       [3]uint64
	KernargSegmentSize      uint64
	KernargSegmentAlign     uint64
	GroupSegmentFixedSize   uint64
	PrivateSegmentFixedSize uint64
	MaxFlatWorkGroupSize    uint64
	SGPRCount               uint64
	VGPRCount               uint64
	SGPRSpillCount          uint64
	VGPRSpillCount          uint64
	WavefrontSize           uint64
	Args                    []ArgInfo
}

// Metadata is the root amdhsa map.
type Metadata struct {
	Version [2]uint64
	Kernels []KernelMetadata
	Printf  []string
}

func parseTypedArray(m *msgpack.MapParser, out []uint64) error {
	arr, err := m.ValueArray()
	if err != nil {
		return err
	}
	for i := range out {
		if out[i], err = arr.Int(msgpack.SignUnsigned); err != nil {
			return err
		}
	}
	if arr.HaveElements() {
		return fmt.Errorf("%w: typed array has too many elements", msgpack.ErrWrongValueKind)
	}
	return nil
}

func parseArg(args *msgpack.ArrayParser) (ArgInfo, error) {
	var a ArgInfo
	m, err := args.Map()
	if err != nil {
		return a, err
	}
	for m.HaveElements() {
		key, err := m.KeyString()
		if err != nil {
			return a, err
		}
		switch key {
		case ".access", ".actual_access":
			v, err := m.ValueString()
			if err != nil {
				return a, err
			}
			v = strings.TrimSpace(v)
			if !accessQuals[v] {
				return a, fmt.Errorf("%w: access qualifier %q", msgpack.ErrWrongValueKind, v)
			}
			if key == ".access" {
				a.Access = v
			} else {
				a.ActualAccess = v
			}
		case ".address_space":
			v, err := m.ValueString()
			if err != nil {
				return a, err
			}
			v = strings.ToLower(strings.TrimSpace(v))
			if !addressSpaces[v] {
				return a, fmt.Errorf("%w: address space %q", msgpack.ErrWrongValueKind, v)
			}
			a.AddressSpace = v
		case ".is_const":
			if a.IsConst, err = m.ValueBool(); err != nil {
				return a, err
			}
		case ".is_pipe":
			if a.IsPipe, err = m.ValueBool(); err != nil {
				return a, err
			}
		case ".is_restrict":
			if a.IsRestrict, err = m.ValueBool(); err != nil {
				return a, err
			}
		case ".is_volatile":
			if a.IsVolatile, err = m.ValueBool(); err != nil {
				return a, err
			}
		case ".name":
			if a.Name, err = m.ValueString(); err != nil {
				return a, err
			}
		case ".offset":
			if a.Offset, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return a, err
			}
		case ".pointee_align":
			if a.PointeeAlign, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return a, err
			}
		case ".size":
			if a.Size, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return a, err
			}
		case ".type_name":
			if a.TypeName, err = m.ValueString(); err != nil {
				return a, err
			}
		case ".value_kind":
			v, err := m.ValueString()
			if err != nil {
				return a, err
			}
			v = strings.TrimSpace(v)
			if !valueKinds[v] {
				return a, fmt.Errorf("%w: argument value kind %q", msgpack.ErrWrongValueKind, v)
			}
			a.ValueKind = v
		case ".value_type":
			v, err := m.ValueString()
			if err != nil {
				return a, err
			}
			v = strings.TrimSpace(v)
			if !valueTypes[v] {
				return a, fmt.Errorf("%w: argument value type %q", msgpack.ErrWrongValueKind, v)
			}
			a.ValueType = v
		default:
			if err := m.SkipValue(); err != nil {
				return a, err
			}
		}
	}
	return a, nil
}

func parseKernel(kernels *msgpack.ArrayParser) (KernelMetadata, error) {
	var k KernelMetadata
	m, err := kernels.Map()
	if err != nil {
		return k, err
	}
	for m.HaveElements() {
		key, err := m.KeyString()
		if err != nil {
			return k, err
		}
		switch key {
		case ".args":
			args, err := m.ValueArray()
			if err != nil {
				return k, err
			}
			for args.HaveElements() {
				arg, err := parseArg(args)
				if err != nil {
					return k, err
				}
				k.Args = append(k.Args, arg)
			}
		case ".device_enqueue_symbol":
			if k.DeviceEnqueueSymbol, err = m.ValueString(); err != nil {
				return k, err
			}
		case ".group_segment_fixed_size":
			if k.GroupSegmentFixedSize, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".kernarg_segment_align":
			if k.KernargSegmentAlign, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".kernarg_segment_size":
			if k.KernargSegmentSize, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".language":
			if k.Language, err = m.ValueString(); err != nil {
				return k, err
			}
		case ".language_version":
			if err = parseTypedArray(m, k.LangVersion[:]); err != nil {
				return k, err
			}
		case ".max_flat_workgroup_size":
			if k.MaxFlatWorkGroupSize, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".name":
			if k.Name, err = m.ValueString(); err != nil {
				return k, err
			}
		case ".private_segment_fixed_size":
			if k.PrivateSegmentFixedSize, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".reqd_workgroup_size":
			if err = parseTypedArray(m, k.ReqdWorkGroupSize[:]); err != nil {
				return k, err
			}
		case ".sgpr_count":
			if k.SGPRCount, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".sgpr_spill_count":
			if k.SGPRSpillCount, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".symbol":
			if k.Symbol, err = m.ValueString(); err != nil {
				return k, err
			}
		case ".vec_type_hint":
			if k.VecTypeHint, err = m.ValueString(); err != nil {
				return k, err
			}
		case ".vgpr_count":
			if k.VGPRCount, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".vgpr_spill_count":
			if k.VGPRSpillCount, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".wavefront_size":
			if k.WavefrontSize, err = m.ValueInt(msgpack.SignUnsigned); err != nil {
				return k, err
			}
		case ".workgroup_size_hint":
			if err = parseTypedArray(m, k.WorkGroupSizeHint[:]); err != nil {
				return k, err
			}
		default:
			if err := m.SkipValue(); err != nil {
				return k, err
			}
		}
	}
	return k, nil
}

// ParseMetadata reads a complete metadata note payload. Unknown root and
// kernel keys are skipped so newer producers stay readable.
func ParseMetadata(data []byte) (*Metadata, error) {
	md := &Metadata{}
	r := msgpack.NewReader(data)
	root, err := r.Map()
	if err != nil {
		return nil, err
	}
	for root.HaveElements() {
		key, err := root.KeyString()
		if err != nil {
			return nil, err
		}
		switch key {
		case "amdhsa.version":
			if err := parseTypedArray(root, md.Version[:]); err != nil {
				return nil, err
			}
		case "amdhsa.kernels":
			kernels, err := root.ValueArray()
			if err != nil {
				return nil, err
			}
			for kernels.HaveElements() {
				k, err := parseKernel(kernels)
				if err != nil {
					return nil, err
				}
				md.Kernels = append(md.Kernels, k)
			}
		case "amdhsa.printf":
			printfs, err := root.ValueArray()
			if err != nil {
				return nil, err
			}
			for printfs.HaveElements() {
				s, err := printfs.String()
				if err != nil {
					return nil, err
				}
				md.Printf = append(md.Printf, s)
			}
		default:
			if err := root.SkipValue(); err != nil {
				return nil, err
			}
		}
	}
	return md, nil
}

func generateArg(a *ArgInfo) ([]byte, error) {
	m := msgpack.NewMapWriter()
	put := func(key string, write func() error) error {
		if err := m.KeyString(key); err != nil {
			return err
		}
		return write()
	}
	if a.Access != "" {
		if err := put(".access", func() error { return m.ValueString(a.Access) }); err != nil {
			return nil, err
		}
	}
	if a.ActualAccess != "" {
		if err := put(".actual_access", func() error { return m.ValueString(a.ActualAccess) }); err != nil {
			return nil, err
		}
	}
	if a.AddressSpace != "" {
		if err := put(".address_space", func() error { return m.ValueString(a.AddressSpace) }); err != nil {
			return nil, err
		}
	}
	if a.Name != "" {
		if err := put(".name", func() error { return m.ValueString(a.Name) }); err != nil {
			return nil, err
		}
	}
	if err := put(".offset", func() error { return m.ValueUint(a.Offset) }); err != nil {
		return nil, err
	}
	if a.PointeeAlign != 0 {
		if err := put(".pointee_align", func() error { return m.ValueUint(a.PointeeAlign) }); err != nil {
			return nil, err
		}
	}
	if err := put(".size", func() error { return m.ValueUint(a.Size) }); err != nil {
		return nil, err
	}
	if a.TypeName != "" {
		if err := put(".type_name", func() error { return m.ValueString(a.TypeName) }); err != nil {
			return nil, err
		}
	}
	if err := put(".value_kind", func() error { return m.ValueString(a.ValueKind) }); err != nil {
		return nil, err
	}
	if a.ValueType != "" {
		if err := put(".value_type", func() error { return m.ValueString(a.ValueType) }); err != nil {
			return nil, err
		}
	}
	return m.Finish(nil)
}

func generateKernel(k *KernelMetadata) ([]byte, error) {
	m := msgpack.NewMapWriter()
	if len(k.Args) > 0 {
		if err := m.KeyString(".args"); err != nil {
			return nil, err
		}
		var arr []byte
		aw := msgpack.NewArrayWriter(&arr, len(k.Args))
		for i := range k.Args {
			obj, err := generateArg(&k.Args[i])
			if err != nil {
				return nil, err
			}
			if err := aw.Raw(obj); err != nil {
				return nil, err
			}
		}
		if err := m.ValueRaw(arr); err != nil {
			return nil, err
		}
	}
	writeUint := func(key string, v uint64) error {
		if err := m.KeyString(key); err != nil {
			return err
		}
		return m.ValueUint(v)
	}
	writeString := func(key, v string) error {
		if err := m.KeyString(key); err != nil {
			return err
		}
		return m.ValueString(v)
	}
	if err := writeUint(".group_segment_fixed_size", k.GroupSegmentFixedSize); err != nil {
		return nil, err
	}
	if err := writeUint(".kernarg_segment_align", k.KernargSegmentAlign); err != nil {
		return nil, err
	}
	if err := writeUint(".kernarg_segment_size", k.KernargSegmentSize); err != nil {
		return nil, err
	}
	if k.Language != "" {
		if err := writeString(".language", k.Language); err != nil {
			return nil, err
		}
		if err := m.KeyString(".language_version"); err != nil {
			return nil, err
		}
		av, err := m.ValueArray(2)
		if err != nil {
			return nil, err
		}
		for _, v := range k.LangVersion {
			if err := av.Uint(v); err != nil {
				return nil, err
			}
		}
	}
	if k.MaxFlatWorkGroupSize != 0 {
		if err := writeUint(".max_flat_workgroup_size", k.MaxFlatWorkGroupSize); err != nil {
			return nil, err
		}
	}
	if err := writeString(".name", k.Name); err != nil {
		return nil, err
	}
	if err := writeUint(".private_segment_fixed_size", k.PrivateSegmentFixedSize); err != nil {
		return nil, err
	}
	if err := writeUint(".sgpr_count", k.SGPRCount); err != nil {
		return nil, err
	}
	if err := writeUint(".sgpr_spill_count", k.SGPRSpillCount); err != nil {
		return nil, err
	}
	if err := writeString(".symbol", k.Symbol); err != nil {
		return nil, err
	}
	if err := writeUint(".vgpr_count", k.VGPRCount); err != nil {
		return nil, err
	}
	if err := writeUint(".vgpr_spill_count", k.VGPRSpillCount); err != nil {
		return nil, err
	}
	if err := writeUint(".wavefront_size", k.WavefrontSize); err != nil {
		return nil, err
	}
	return m.Finish(nil)
}

// GenerateMetadata emits the metadata note payload for the ROCm writer.
func GenerateMetadata(md *Metadata) ([]byte, error) {
	root := msgpack.NewMapWriter()
	if err := root.KeyString("amdhsa.kernels"); err != nil {
		return nil, err
	}
	var kernels []byte
	kw := msgpack.NewArrayWriter(&kernels, len(md.Kernels))
	for i := range md.Kernels {
		obj, err := generateKernel(&md.Kernels[i])
		if err != nil {
			return nil, err
		}
		if err := kw.Raw(obj); err != nil {
			return nil, err
		}
	}
	if err := root.ValueRaw(kernels); err != nil {
		return nil, err
	}
	if len(md.Printf) > 0 {
		if err := root.KeyString("amdhsa.printf"); err != nil {
			return nil, err
		}
		var ps []byte
		pw := msgpack.NewArrayWriter(&ps, len(md.Printf))
		for _, p := range md.Printf {
			if err := pw.String(p); err != nil {
				return nil, err
			}
		}
		if err := root.ValueRaw(ps); err != nil {
			return nil, err
		}
	}
	if err := root.KeyString("amdhsa.version"); err != nil {
		return nil, err
	}
	vw, err := root.ValueArray(2)
	if err != nil {
		return nil, err
	}
	for _, v := range md.Version {
		if err := vw.Uint(v); err != nil {
			return nil, err
		}
	}
	return root.Finish(nil)
}
