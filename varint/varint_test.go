package varint_test

import (
	"testing"

	"github.com/reallyoldfogie/mcreplay/varint"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1500, 16384, 1 << 35, ^uint64(0)}
	for _, v := range cases {
		enc := varint.Encode(v)
		got, n, err := varint.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func Test1500EncodesToKnownBytes(t *testing.T) {
	// From spec §8 scenario 1: varint(1500) == 0xDC 0x0B
	require.Equal(t, []byte{0xDC, 0x0B}, varint.Encode(1500))
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	_, _, err := varint.Decode([]byte{0x80, 0x80})
	require.Error(t, err)
}

func TestDecodeNeverTerminates(t *testing.T) {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := varint.Decode(buf)
	require.Error(t, err)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	enc := varint.Encode(42)
	buf := append(append([]byte{}, enc...), 0xFF, 0xFF)
	v, n, err := varint.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)
	require.Equal(t, len(enc), n)
}
