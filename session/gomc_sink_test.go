package session_test

import (
	"testing"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/session"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	packets []pk.Packet
}

func (c *fakeConn) WritePacket(p pk.Packet) error {
	c.packets = append(c.packets, p)
	return nil
}

func TestGoMCSinkEncodesHandshakeFrames(t *testing.T) {
	conn := &fakeConn{}
	sink := session.NewGoMCSink(conn)

	m := payload.NewMap()
	m.Set("x", int64(10))
	m.Set("y", int64(64))
	m.Set("z", int64(-5))

	require.NoError(t, sink.Write("spawn_position", m))
	require.Len(t, conn.packets, 1)
	require.Equal(t, int32(container.ProtocolID["spawn_position"]), conn.packets[0].ID)
	require.Len(t, conn.packets[0].Data, 8) // one packed Position long
}

func TestGoMCSinkForwardsRawBodyForStateBearingPackets(t *testing.T) {
	conn := &fakeConn{}
	sink := session.NewGoMCSink(conn)

	m := payload.NewMap()
	m.Set("raw", []byte{0xDE, 0xAD, 0xBE, 0xEF})
	m.Set("x", int64(1))

	require.NoError(t, sink.Write(container.NameMapChunk, m))
	require.Len(t, conn.packets, 1)
	require.Equal(t, int32(container.ProtocolID[container.NameMapChunk]), conn.packets[0].ID)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, conn.packets[0].Data)
}

func TestGoMCSinkRejectsUnknownPacketName(t *testing.T) {
	conn := &fakeConn{}
	sink := session.NewGoMCSink(conn)
	err := sink.Write("not_a_real_packet", payload.NewMap())
	require.Error(t, err)
}
