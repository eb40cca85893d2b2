package asm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAreaRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	a := NewArea(buf)

	require.NoError(t, a.SerializeByte(0x42))
	require.NoError(t, a.SerializeUint16N(0x1234))
	require.NoError(t, a.SerializeUint32N(0xdeadbeef))
	require.NoError(t, a.SerializeUint64N(0x0102030405060708))
	require.NoError(t, a.SerializeByteBlock(3, []byte{1, 2, 3}))
	require.Equal(t, 1+2+4+8+3, a.Used())

	r := NewAreaForReading(a.Bytes(), a.Used())
	b, err := r.DeserializeByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)

	u16, err := r.DeserializeUint16N()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	u32, err := r.DeserializeUint32N()
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := r.DeserializeUint64N()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	block, err := r.DeserializeByteBlock(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, block)

	require.Equal(t, 0, r.Remaining())
}

func TestAreaOverflow(t *testing.T) {
	a := NewArea(make([]byte, 1))
	require.NoError(t, a.SerializeByte(1))
	err := a.SerializeByte(2)
	require.ErrorIs(t, err, ErrAreaOverflow)
}

func TestAreaUnderflow(t *testing.T) {
	a := NewAreaForReading(make([]byte, 4), 1)
	_, err := a.DeserializeByte()
	require.NoError(t, err)
	_, err = a.DeserializeByte()
	require.ErrorIs(t, err, ErrAreaUnderflow)
}

func TestAreaReset(t *testing.T) {
	a := NewArea(make([]byte, 4))
	require.NoError(t, a.SerializeUint16N(1))
	a.Reset()
	require.Equal(t, 0, a.Used())
	require.Equal(t, 4, a.Available())
}
