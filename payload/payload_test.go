package payload_test

import (
	"crypto/rand"
	"testing"

	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDenormalizeScalars(t *testing.T) {
	cases := []payload.Value{nil, true, false, int64(42), 3.14, "hello", ""}
	for _, v := range cases {
		got := payload.Denormalize(payload.Normalize(v))
		require.Equal(t, v, got)
	}
}

func TestNormalizeByteBlobRoundTrips(t *testing.T) {
	blob := make([]byte, 32)
	_, err := rand.Read(blob)
	require.NoError(t, err)

	norm := payload.Normalize(blob)
	m, ok := norm.(*payload.Map)
	require.True(t, ok, "blob must normalize to an envelope map")
	require.Equal(t, 2, m.Len())

	back := payload.Denormalize(norm)
	require.Equal(t, blob, back)
}

func TestNormalizeRecursesThroughListsAndMaps(t *testing.T) {
	blob := []byte{1, 2, 3, 4}
	inner := payload.NewMap()
	inner.Set("x", int64(1))
	inner.Set("img", blob)

	list := []payload.Value{inner, "tail"}

	norm := payload.Normalize(list)
	back := payload.Denormalize(norm)

	backList, ok := back.([]payload.Value)
	require.True(t, ok)
	require.Len(t, backList, 2)

	backMap, ok := backList[0].(*payload.Map)
	require.True(t, ok)
	x, ok := backMap.Get("x")
	require.True(t, ok)
	require.Equal(t, int64(1), x)
	img, ok := backMap.Get("img")
	require.True(t, ok)
	require.Equal(t, blob, img)
}

func TestCodecRoundTripsEncodedTree(t *testing.T) {
	m := payload.NewMap()
	m.Set("msg", "hi")
	m.Set("count", int64(7))
	m.Set("ratio", 0.5)
	m.Set("flag", true)
	m.Set("nested", []payload.Value{int64(1), int64(2), "three"})

	enc, err := payload.Encode(m)
	require.NoError(t, err)

	dec, err := payload.Decode(enc)
	require.NoError(t, err)

	decMap, ok := dec.(*payload.Map)
	require.True(t, ok)
	require.Equal(t, m.Keys(), decMap.Keys())

	for _, k := range m.Keys() {
		want, _ := m.Get(k)
		got, _ := decMap.Get(k)
		require.Equal(t, want, got)
	}
}

func TestCodecRejectsTruncatedInput(t *testing.T) {
	m := payload.NewMap()
	m.Set("a", "value")
	enc, err := payload.Encode(m)
	require.NoError(t, err)

	_, err = payload.Decode(enc[:len(enc)-1])
	require.Error(t, err)
}

func TestFullRoundTripWithBlob(t *testing.T) {
	blob := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	m := payload.NewMap()
	m.Set("img", blob)

	norm := payload.Normalize(m)
	enc, err := payload.Encode(norm)
	require.NoError(t, err)

	dec, err := payload.Decode(enc)
	require.NoError(t, err)

	denorm := payload.Denormalize(dec)
	denormMap, ok := denorm.(*payload.Map)
	require.True(t, ok)
	img, ok := denormMap.Get("img")
	require.True(t, ok)
	require.Equal(t, blob, img)
}
