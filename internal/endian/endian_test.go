package endian

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnalignedRoundTrip(t *testing.T) {
	// Odd offset on purpose: inner binaries are not aligned.
	buf := make([]byte, 17)
	b := buf[1:]

	PutUint16(b, 0xBE87)
	require.Equal(t, uint16(0xBE87), Uint16(b))
	require.Equal(t, []byte{0x87, 0xBE}, b[:2])

	PutUint32(b, 0xBE870080)
	require.Equal(t, uint32(0xBE870080), Uint32(b))
	require.Equal(t, []byte{0x80, 0x00, 0x87, 0xBE}, b[:4])

	PutUint64(b, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), Uint64(b))
	require.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[:8])
}

func TestFloat32(t *testing.T) {
	b := make([]byte, 4)
	PutFloat32(b, 0.3)
	require.Equal(t, []byte{0x9A, 0x99, 0x99, 0x3E}, b)
	require.Equal(t, float32(0.3), Float32(b))
}

func TestAppend(t *testing.T) {
	b := AppendUint32(nil, 0xBF810000)
	require.Equal(t, []byte{0x00, 0x00, 0x81, 0xBF}, b)
	b = AppendUint64(b[:0], 0x4dc98b3a)
	require.Equal(t, []byte{0x3a, 0x8b, 0xc9, 0x4d, 0, 0, 0, 0}, b)
}
