// Package endian provides unaligned little-endian accessors over raw byte
// slices. GCN containers embed inner binaries at arbitrary offsets, so every
// multi-byte field read or written anywhere in this module goes through these
// helpers regardless of host byte order or alignment.
package endian

import "math"

func Uint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func Uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func Uint64(b []byte) uint64 {
	return uint64(Uint32(b)) | uint64(Uint32(b[4:]))<<32
}

func PutUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func PutUint64(b []byte, v uint64) {
	PutUint32(b, uint32(v))
	PutUint32(b[4:], uint32(v>>32))
}

func Float32(b []byte) float32 {
	return math.Float32frombits(Uint32(b))
}

func PutFloat32(b []byte, v float32) {
	PutUint32(b, math.Float32bits(v))
}

// AppendUint32 appends v in little-endian order.
func AppendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// AppendUint64 appends v in little-endian order.
func AppendUint64(b []byte, v uint64) []byte {
	return AppendUint32(AppendUint32(b, uint32(v)), uint32(v>>32))
}
