package session

import (
	"net"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/mcreplay/varint"
)

// TCPPacketConn frames outgoing packets directly over a net.Conn using the
// VarInt(length)+VarInt(id)+data layout the Minecraft protocol has used
// since the netty rewrite -- the same framing the teacher's own
// examples/proxyrec reads on the inbound side, applied here on the
// outbound side, so the viewer server doesn't need to depend on go-mc's
// own net.Listener/Conn implementation to write frames a real client
// understands.
type TCPPacketConn struct {
	conn net.Conn
}

// NewTCPPacketConn wraps conn.
func NewTCPPacketConn(conn net.Conn) *TCPPacketConn {
	return &TCPPacketConn{conn: conn}
}

// WritePacket implements PacketConn.
func (c *TCPPacketConn) WritePacket(p pk.Packet) error {
	idBytes := varint.Encode(uint64(uint32(p.ID)))
	frame := make([]byte, 0, len(idBytes)+len(p.Data))
	frame = append(frame, idBytes...)
	frame = append(frame, p.Data...)

	lenBytes := varint.Encode(uint64(len(frame)))
	if _, err := c.conn.Write(lenBytes); err != nil {
		return err
	}
	_, err := c.conn.Write(frame)
	return err
}
