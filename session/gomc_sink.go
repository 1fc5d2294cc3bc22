package session

import (
	"encoding/binary"
	"fmt"
	"math"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
)

// PacketConn is the one capability a go-mc powered viewer connection needs
// from this package's point of view: the ability to send one clientbound
// packet. Kept this narrow (rather than depending on a concrete go-mc Conn
// type) for the same reason payload/codec.go hand-rolls its TLV encoder --
// the rest of go-mc's net package is built around a synchronous
// handshake/login sequence this package doesn't drive itself, and the only
// surface the teacher's own code exercises against go-mc's net/packet is
// pk.Packet{ID, Data}.
type PacketConn interface {
	WritePacket(p pk.Packet) error
}

// GoMCSink adapts a PacketConn into the Sink contract (spec §6), encoding
// the handshake-critical frames (login, spawn_position, position, respawn)
// with real field layouts and forwarding every other state-bearing packet
// by its recorded "raw" byte body, set by recorder.PacketFunc's decoder.
// A chat packet with no "raw" body (one built by SendChat and friends) is
// encoded from its "message" and "position" fields instead --
// the same split the teacher's own adapter makes, just pushed to the write
// side instead of the record side.
type GoMCSink struct {
	conn PacketConn
}

// NewGoMCSink wraps conn as a Sink.
func NewGoMCSink(conn PacketConn) *GoMCSink {
	return &GoMCSink{conn: conn}
}

// Write implements Sink.
func (s *GoMCSink) Write(name string, p payload.Value) error {
	id, ok := container.ProtocolID[name]
	if !ok {
		return fmt.Errorf("session: no protocol id for packet %q", name)
	}

	m, _ := p.(*payload.Map)

	var body []byte
	switch name {
	case "login":
		body = encodeLogin(m)
	case "spawn_position":
		body = encodePosition(m)
	case "position":
		body = encodePositionLook(m)
	case "respawn":
		body = encodeRespawn(m)
	case container.NameChat:
		if raw := rawBodyOf(m); raw != nil {
			body = raw
		} else {
			body = encodeChat(m)
		}
	default:
		body = rawBodyOf(m)
	}

	return s.conn.WritePacket(pk.Packet{ID: int32(id), Data: body})
}

func rawBodyOf(m *payload.Map) []byte {
	if m == nil {
		return nil
	}
	v, ok := m.Get("raw")
	if !ok {
		return nil
	}
	b, _ := v.([]byte)
	return b
}

// field encoding helpers. These follow the 1.8.x (protocol 47) wire layout
// for the handful of fields the handshake frames use: VarInt-prefixed
// strings, big-endian fixed-width numbers, booleans as a single byte.

type encoder struct {
	buf []byte
}

func (e *encoder) varInt(v int32) {
	uv := uint32(v)
	for {
		b := byte(uv & 0x7F)
		uv >>= 7
		if uv != 0 {
			b |= 0x80
		}
		e.buf = append(e.buf, b)
		if uv == 0 {
			return
		}
	}
}

func (e *encoder) string(s string) {
	e.varInt(int32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) int32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) int64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) float64(v float64) {
	e.int64(int64(math.Float64bits(v)))
}

func (e *encoder) float32(v float32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) byte(b byte) {
	e.buf = append(e.buf, b)
}

func (e *encoder) bool(v bool) {
	if v {
		e.byte(1)
	} else {
		e.byte(0)
	}
}

func mInt(m *payload.Map, key string) int64 {
	if m == nil {
		return 0
	}
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	i, _ := v.(int64)
	return i
}

func mStr(m *payload.Map, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func mFloat(m *payload.Map, key string) float64 {
	if m == nil {
		return 0
	}
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	default:
		return 0
	}
}

// encodeLogin builds a Join Game body. entityId is carried as a string
// (the viewer's session id) by loginPayload, not a numeric entity id, so it
// is encoded as 0 here -- a spectator join doesn't require a meaningful
// self entity id for this format's purposes.
func encodeLogin(m *payload.Map) []byte {
	var e encoder
	e.int32(0) // entity id
	e.byte(3)  // game mode 3 = spectator, hardcore bit unset
	e.byte(0)  // dimension: overworld
	e.byte(0)  // difficulty: peaceful
	maxPlayers := mInt(m, "maxPlayers")
	if maxPlayers <= 0 || maxPlayers > 255 {
		maxPlayers = 20
	}
	e.byte(byte(maxPlayers))
	e.string("default")
	e.bool(false) // reduced debug info
	return e.buf
}

// encodePosition builds a Spawn Position body: a single packed Position
// long (26 bits x, 12 bits y, 26 bits z), not three separate fields.
func encodePosition(m *payload.Map) []byte {
	x := mInt(m, "x") & 0x3FFFFFF
	y := mInt(m, "y") & 0xFFF
	z := mInt(m, "z") & 0x3FFFFFF
	packed := (x << 38) | (y << 26) | z
	var e encoder
	e.int64(packed)
	return e.buf
}

func encodePositionLook(m *payload.Map) []byte {
	var e encoder
	e.float64(float64(mInt(m, "x")))
	e.float64(float64(mInt(m, "y")))
	e.float64(float64(mInt(m, "z")))
	e.float32(float32(mFloat(m, "yaw")))
	e.float32(float32(mFloat(m, "pitch")))
	e.byte(0) // relative-flags bitmask: all absolute
	return e.buf
}

func encodeRespawn(m *payload.Map) []byte {
	var e encoder
	e.int32(int32(mInt(m, "dimension")))
	e.byte(0) // difficulty: peaceful
	e.byte(3) // game mode: spectator
	e.string("default")
	return e.buf
}

func encodeChat(m *payload.Map) []byte {
	var e encoder
	msg := mStr(m, "message")
	// Minimal chat component JSON; position chat(0)/action-bar(2) per
	// SendChat/SendActionBar's chatPayload.
	e.string(fmt.Sprintf(`{"text":%q}`, msg))
	e.byte(byte(mInt(m, "position")))
	return e.buf
}
