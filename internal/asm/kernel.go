package asm

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/radeontools/gcnasm/internal/endian"
	"github.com/radeontools/gcnasm/internal/gcn"
)

// DescriptorSize is the fixed size of the kernel descriptor placed at the
// head of each kernel's code region.
const DescriptorSize = 256

// unsetByte marks an 8-bit config value the source never assigned; it is
// written to the descriptor as-is, matching the reference binaries.
const unsetByte = 0xFF

// KernelConfig accumulates .config directive state for one kernel and
// produces the 256-byte descriptor.
type KernelConfig struct {
	CodeVersionMajor uint32
	CodeVersionMinor uint32
	CallConvention   uint32
	DebugPrivateSegmentBufferSGPR          uint16
	DebugWavefrontPrivateSegmentOffsetSGPR uint16
	GDSSegmentSize        uint32
	KernargSegmentAlign   uint64 // bytes, power of two
	KernargSegmentSize    uint64
	WorkgroupGroupSegmentSize uint32
	WorkgroupFbarrierCount    uint32
	PrivateSegmentAlign       uint64 // bytes, power of two
	ScratchBufferSize         uint32
	RuntimeLoaderKernelSymbol uint64
	ReservedSGPRFirst, ReservedSGPRCount uint16
	ReservedVGPRFirst, ReservedVGPRCount uint16

	DX10Clamp  bool
	IEEEMode   bool
	PrivMode   bool
	DebugMode  bool
	TGSize     bool
	Exceptions uint8
	FloatMode  uint8
	Priority   uint8
	UserDataNum uint8
	PrivateElemSize uint8 // bytes: 2, 4, 8 or 16; 0 when never set

	EnableSGPRFlags uint16 // user-SGPR enable bits (kernarg ptr, queue ptr, ...)

	// SGPRsNum/VGPRsNum override the tracked register usage when set.
	SGPRsNum, VGPRsNum uint16

	// usage recorded by the encoder for this kernel's code region.
	UsedSGPRs, UsedVGPRs uint16
}

// Enable-SGPR flag bits (the enableSgprFlags descriptor field).
const (
	SGPRPrivateSegmentBuffer = 1 << iota
	SGPRDispatchPtr
	SGPRQueuePtr
	SGPRKernargSegmentPtr
	SGPRDispatchID
	SGPRFlatScratchInit
	SGPRPrivateSegmentSize
	SGPRGridWorkgroupCountX
	SGPRGridWorkgroupCountY
	SGPRGridWorkgroupCountZ
)

// NewKernelConfig returns the default configuration state.
func NewKernelConfig() *KernelConfig {
	return &KernelConfig{
		CodeVersionMajor:    1,
		CodeVersionMinor:    1,
		KernargSegmentAlign: 16,
		PrivateSegmentAlign: 4,
		FloatMode:           0xC0,
		UserDataNum:         unsetByte,
		UsedSGPRs:           2,
		UsedVGPRs:           1,
	}
}

// SetPrivateElemSize validates the .private_elem_size argument.
func (c *KernelConfig) SetPrivateElemSize(v uint64) error {
	switch v {
	case 2, 4, 8, 16:
		c.PrivateElemSize = uint8(v)
		return nil
	}
	return errors.New("private element size must be 2, 4, 8 or 16")
}

// SetAlign validates a power-of-two alignment directive argument.
func SetAlign(dst *uint64, v uint64) error {
	if v == 0 || v&(v-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two", v)
	}
	*dst = v
	return nil
}

// PgmRsrc1 packs the COMPUTE_PGM_RSRC1 register.
func (c *KernelConfig) PgmRsrc1() uint32 {
	sgprs := c.SGPRsNum
	if sgprs == 0 {
		sgprs = c.UsedSGPRs
	}
	vgprs := c.VGPRsNum
	if vgprs == 0 {
		vgprs = c.UsedVGPRs
	}
	vgprBlocks := (uint32(vgprs) + 3) / 4
	if vgprBlocks > 0 {
		vgprBlocks--
	}
	sgprBlocks := (uint32(sgprs) + 7) / 8
	if sgprBlocks > 0 {
		sgprBlocks--
	}
	r := vgprBlocks | sgprBlocks<<6 | uint32(c.Priority&3)<<10 |
		uint32(c.FloatMode)<<12
	if c.PrivMode {
		r |= 1 << 20
	}
	if c.DX10Clamp {
		r |= 1 << 21
	}
	if c.DebugMode {
		r |= 1 << 22
	}
	if c.IEEEMode {
		r |= 1 << 23
	}
	return r
}

// PgmRsrc2 packs the COMPUTE_PGM_RSRC2 register. An unset user-data count
// keeps its sentinel, matching the reference binaries byte for byte.
func (c *KernelConfig) PgmRsrc2() uint32 {
	r := uint32(c.UserDataNum) << 1
	if c.ScratchBufferSize != 0 {
		r |= 1
	}
	if c.TGSize {
		r |= 1 << 10
	}
	r |= uint32(c.Exceptions&0x7F) << 24
	return r
}

// FeatureFlags packs the enableFeatureFlags descriptor field.
func (c *KernelConfig) FeatureFlags() uint16 {
	var f uint16
	if c.PrivateElemSize != 0 {
		f |= uint16(bits.TrailingZeros8(c.PrivateElemSize)-1) << 1
	}
	return f
}

func log2u8(v uint64) uint8 {
	return uint8(bits.TrailingZeros64(v))
}

// EncodeDescriptor renders the 256-byte kernel descriptor, including the
// control-directive tail. Fields the source never set stay zero apart from
// the format-required defaults.
func (c *KernelConfig) EncodeDescriptor(device gcn.Device, control []byte) [DescriptorSize]byte {
	var d [DescriptorSize]byte
	machine := device.Machine()
	endian.PutUint32(d[0:], c.CodeVersionMajor)
	endian.PutUint32(d[4:], c.CodeVersionMinor)
	endian.PutUint16(d[8:], machine[0])
	endian.PutUint16(d[10:], machine[1])
	endian.PutUint16(d[12:], machine[2])
	endian.PutUint16(d[14:], machine[3])
	endian.PutUint64(d[16:], DescriptorSize) // kernelCodeEntryOffset
	// prefetch offset/size and max scratch backing stay zero
	endian.PutUint32(d[48:], c.PgmRsrc1())
	endian.PutUint32(d[52:], c.PgmRsrc2())
	endian.PutUint16(d[56:], c.EnableSGPRFlags)
	endian.PutUint16(d[58:], c.FeatureFlags())
	endian.PutUint32(d[60:], c.ScratchBufferSize)
	endian.PutUint32(d[64:], c.WorkgroupGroupSegmentSize)
	endian.PutUint32(d[68:], c.GDSSegmentSize)
	endian.PutUint64(d[72:], c.KernargSegmentSize)
	endian.PutUint32(d[80:], c.WorkgroupFbarrierCount)
	sgprs := c.SGPRsNum
	if sgprs == 0 {
		sgprs = c.UsedSGPRs
	}
	vgprs := c.VGPRsNum
	if vgprs == 0 {
		vgprs = c.UsedVGPRs
	}
	endian.PutUint16(d[84:], sgprs)
	endian.PutUint16(d[86:], vgprs)
	endian.PutUint16(d[88:], c.ReservedVGPRFirst)
	endian.PutUint16(d[90:], c.ReservedVGPRCount)
	endian.PutUint16(d[92:], c.ReservedSGPRFirst)
	endian.PutUint16(d[94:], c.ReservedSGPRCount)
	endian.PutUint16(d[96:], c.DebugWavefrontPrivateSegmentOffsetSGPR)
	endian.PutUint16(d[98:], c.DebugPrivateSegmentBufferSGPR)
	d[100] = log2u8(c.KernargSegmentAlign)
	d[101] = 4 // group segment alignment, fixed 16 bytes
	d[102] = log2u8(c.PrivateSegmentAlign)
	d[103] = 6 // wavefront size 64
	endian.PutUint32(d[104:], c.CallConvention)
	endian.PutUint64(d[120:], c.RuntimeLoaderKernelSymbol)
	copy(d[128:], control)
	return d
}
