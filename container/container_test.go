package container_test

import (
	"encoding/binary"
	"testing"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/stretchr/testify/require"
)

func mustMap(t *testing.T, kv ...interface{}) *payload.Map {
	t.Helper()
	m := payload.NewMap()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func TestRoundTripHeaderAndTwoPackets(t *testing.T) {
	w, buf := container.NewMemoryWriter()
	require.NoError(t, w.WriteHeader())

	r1 := container.PacketRecord{Timestamp: 0, Name: container.NameChat, Payload: mustMap(t, "msg", "hi")}
	r2 := container.PacketRecord{Timestamp: 1500, Name: container.NameBlockChange, Payload: mustMap(t, "x", int64(1), "y", int64(2), "z", int64(3))}

	require.NoError(t, w.WritePacket(r1))
	require.NoError(t, w.WritePacket(r2))

	meta := container.ReplayMetadata{
		SpawnPosition: container.Position{X: 0, Y: 64, Z: 0},
		StartTime:     1000,
		EndTime:       2500,
		BotUsername:   "b",
		VersionTag:    "1.8.9",
	}
	require.NoError(t, w.Close(meta))

	out := buf.Bytes()
	require.Equal(t, []byte("MCREPLAY"), out[:8])
	require.Equal(t, byte(0x01), out[8])

	// r1: delta 0, id NameChat(0x0F), then u32 len then encoded bytes.
	require.Equal(t, byte(0x00), out[9])
	require.Equal(t, byte(container.IDChat), out[10])
	l1 := binary.LittleEndian.Uint32(out[11:15])
	r1Start := 15
	r1End := r1Start + int(l1)

	// r2: delta 1500 == varint 0xDC 0x0B, then id block_change (0x03).
	require.Equal(t, []byte{0xDC, 0x0B}, out[r1End:r1End+2])
	require.Equal(t, byte(container.IDBlockChange), out[r1End+2])

	rd, err := container.Parse(out)
	require.NoError(t, err)
	require.Equal(t, meta, rd.Meta)

	packets, err := rd.Packets()
	require.NoError(t, err)
	require.Len(t, packets, 2)
	require.Equal(t, int64(0), packets[0].Timestamp)
	require.Equal(t, container.NameChat, packets[0].Name)
	require.Equal(t, int64(1500), packets[1].Timestamp)
	require.Equal(t, container.NameBlockChange, packets[1].Name)
}

func TestByteBlobPreservation(t *testing.T) {
	blob := make([]byte, 32)
	for i := range blob {
		blob[i] = byte(i * 7)
	}

	w, buf := container.NewMemoryWriter()
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WritePacket(container.PacketRecord{
		Timestamp: 0,
		Name:      container.NameUpdateSign,
		Payload:   mustMap(t, "img", blob),
	}))
	require.NoError(t, w.Close(container.ReplayMetadata{}))

	rd, err := container.Parse(buf.Bytes())
	require.NoError(t, err)
	packets, err := rd.Packets()
	require.NoError(t, err)
	require.Len(t, packets, 1)

	m := packets[0].Payload.(*payload.Map)
	img, ok := m.Get("img")
	require.True(t, ok)
	require.Equal(t, blob, img)
}

func TestWritePacketRejectsNegativeDelta(t *testing.T) {
	w, _ := container.NewMemoryWriter()
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WritePacket(container.PacketRecord{Timestamp: 1000, Name: container.NameChat, Payload: mustMap(t)}))
	err := w.WritePacket(container.PacketRecord{Timestamp: 500, Name: container.NameChat, Payload: mustMap(t)})
	require.Error(t, err)
}

func TestWritePacketRejectsUnknownName(t *testing.T) {
	w, _ := container.NewMemoryWriter()
	require.NoError(t, w.WriteHeader())
	err := w.WritePacket(container.PacketRecord{Timestamp: 0, Name: "not_a_real_packet", Payload: mustMap(t)})
	require.Error(t, err)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	bad := append([]byte("NOTMCREP"), 0x01, 0, 0, 0, 0)
	_, err := container.Parse(bad)
	require.Error(t, err)
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	w, buf := container.NewMemoryWriter()
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Close(container.ReplayMetadata{}))
	out := buf.Bytes()
	out[8] = 0x02
	_, err := container.Parse(out)
	require.Error(t, err)
}

func TestMemoryAndStreamWritersProduceIdenticalOutput(t *testing.T) {
	records := []container.PacketRecord{
		{Timestamp: 0, Name: container.NameChat, Payload: mustMap(t, "msg", "a")},
		{Timestamp: 10, Name: container.NameEntityLook, Payload: mustMap(t, "entityId", int64(5))},
	}
	meta := container.ReplayMetadata{StartTime: 1, EndTime: 2}

	w1, buf1 := container.NewMemoryWriter()
	require.NoError(t, w1.WriteHeader())
	for _, r := range records {
		require.NoError(t, w1.WritePacket(r))
	}
	require.NoError(t, w1.Close(meta))

	var streamed []byte
	buf2 := new(trackingBuffer)
	w2 := container.NewStreamWriter(buf2, func(chunk []byte) {
		streamed = append(streamed, chunk...)
	})
	require.NoError(t, w2.WriteHeader())
	for _, r := range records {
		require.NoError(t, w2.WritePacket(r))
	}
	require.NoError(t, w2.Close(meta))

	require.Equal(t, buf1.Bytes(), buf2.data)
	require.Equal(t, buf1.Bytes(), streamed)
}

type trackingBuffer struct {
	data []byte
}

func (b *trackingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
