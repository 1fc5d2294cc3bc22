package main

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/reallyoldfogie/mcreplay/varint"
)

// nextState values carried by the Handshake packet.
const (
	nextStateStatus = 1
	nextStateLogin  = 2
)

// statusSource supplies the live fields a status (server list ping)
// response reports -- backed by cmd/mcreplay-serve's config watcher, so
// motd/max-players stay current without a restart (spec §6's
// configuration surface).
type statusSource interface {
	snapshot() (motd string, maxPlayers, onlinePlayers int, version string)
}

// handleHandshake reads the one packet every Minecraft client sends first
// (Handshake, id 0x00: protocol version, server address, server port, next
// state). When next state is status, it answers the server-list-ping
// conversation in place and returns isStatus=true. When next state is
// login, it reads the Login Start packet that follows and returns the
// requested username.
//
// This implements only the slice of the handshake this viewer server
// needs -- authentication, encryption, and compression negotiation are out
// of scope (spec.md's Non-goals exclude authentication), matching a
// spectator-only, offline-mode server.
func handleHandshake(r *bufio.Reader, conn net.Conn, status statusSource) (username string, isStatus bool, err error) {
	_, body, err := readFramedPacket(r)
	if err != nil {
		return "", false, fmt.Errorf("handshake: %w", err)
	}
	c := newByteCursor(body)
	if _, err := c.varInt(); err != nil { // protocol version, unused
		return "", false, fmt.Errorf("handshake: protocol version: %w", err)
	}
	if _, err := c.string(); err != nil { // server address, unused
		return "", false, fmt.Errorf("handshake: server address: %w", err)
	}
	if _, err := c.uint16(); err != nil { // server port, unused
		return "", false, fmt.Errorf("handshake: server port: %w", err)
	}
	nextState, err := c.varInt()
	if err != nil {
		return "", false, fmt.Errorf("handshake: next state: %w", err)
	}

	switch nextState {
	case nextStateStatus:
		if err := serveStatus(r, conn, status); err != nil {
			return "", true, fmt.Errorf("status: %w", err)
		}
		return "", true, nil
	case nextStateLogin:
		// fall through to login-start handling below
	default:
		return "", false, fmt.Errorf("handshake: unsupported next state %d", nextState)
	}

	_, loginBody, err := readFramedPacket(r)
	if err != nil {
		return "", false, fmt.Errorf("login start: %w", err)
	}
	lc := newByteCursor(loginBody)
	username, err = lc.string()
	if err != nil {
		return "", false, fmt.Errorf("login start: username: %w", err)
	}
	return username, false, nil
}

// serveStatus answers one server-list-ping conversation: a Request packet
// (empty body) gets a JSON Response, and a Ping gets its Pong echoed back.
func serveStatus(r *bufio.Reader, conn net.Conn, status statusSource) error {
	if _, _, err := readFramedPacket(r); err != nil { // Request, body unused
		return fmt.Errorf("request: %w", err)
	}

	motd, maxPlayers, online, version := status.snapshot()
	json := fmt.Sprintf(
		`{"version":{"name":%q,"protocol":47},"players":{"max":%d,"online":%d},"description":{"text":%q}}`,
		version, maxPlayers, online, motd)
	respBody := append(varint.Encode(uint64(len(json))), json...)
	if err := writeFramedPacket(conn, 0x00, respBody); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	id, pingBody, err := readFramedPacket(r)
	if err != nil {
		if err == io.EOF {
			return nil // client disconnected after Response without pinging
		}
		return fmt.Errorf("ping: %w", err)
	}
	if id != 0x01 {
		return nil
	}
	return writeFramedPacket(conn, 0x01, pingBody)
}

// writeFramedPacket frames id+body as VarInt(length)+VarInt(id)+body and
// writes it to conn -- the same framing session.TCPPacketConn uses on the
// viewer-serving side.
func writeFramedPacket(conn net.Conn, id int32, body []byte) error {
	idBytes := varint.Encode(uint64(uint32(id)))
	frame := make([]byte, 0, len(idBytes)+len(body))
	frame = append(frame, idBytes...)
	frame = append(frame, body...)

	lenBytes := varint.Encode(uint64(len(frame)))
	if _, err := conn.Write(lenBytes); err != nil {
		return err
	}
	_, err := conn.Write(frame)
	return err
}

// readFramedPacket reads one VarInt-length-prefixed frame and splits its
// leading VarInt packet id from the remaining body.
func readFramedPacket(r *bufio.Reader) (id int32, body []byte, err error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return 0, nil, err
	}
	c := newByteCursor(frame)
	id, err = c.varInt()
	if err != nil {
		return 0, nil, err
	}
	return id, frame[c.pos:], nil
}

func readVarInt(r io.ByteReader) (int32, error) {
	var result int32
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("varint too long")
}

type byteCursor struct {
	b   []byte
	pos int
}

func newByteCursor(b []byte) *byteCursor { return &byteCursor{b: b} }

func (c *byteCursor) varInt() (int32, error) {
	var result int32
	var shift uint
	for i := 0; i < 5; i++ {
		if c.pos >= len(c.b) {
			return 0, io.ErrUnexpectedEOF
		}
		b := c.b[c.pos]
		c.pos++
		result |= int32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("varint too long")
}

func (c *byteCursor) string() (string, error) {
	n, err := c.varInt()
	if err != nil {
		return "", err
	}
	if c.pos+int(n) > len(c.b) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(c.b[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s, nil
}

func (c *byteCursor) uint16() (uint16, error) {
	if c.pos+2 > len(c.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(c.b[c.pos])<<8 | uint16(c.b[c.pos+1])
	c.pos += 2
	return v, nil
}
