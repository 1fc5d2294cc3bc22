package recorder

import (
	"encoding/binary"
	"log"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
)

// PacketFunc returns a handler compatible with go-mc's clientbound packet
// callback shape (func(pk.Packet) error), recording each packet into rec.
// This is the go-mc counterpart of the teacher's adapters/tnze.go, adapted
// from forwarding a fully opaque byte blob to decoding the handful of
// fields the projector needs (spec §4.5) out of the packet body, per
// SPEC_FULL.md's description of this adapter.
//
// Decoding is best-effort: on any parse failure the packet is still
// recorded, with only the "raw" field populated, so a protocol detail this
// adapter doesn't model never drops a packet from the recording.
func PacketFunc(rec *Recorder) func(pk.Packet) error {
	count := 0
	return func(p pk.Packet) error {
		name, ok := container.NameByProtocolID(int32(p.ID))
		if !ok {
			// Not one of the 21 state-bearing types this format tracks;
			// silently skip, matching spec §4.4's fixed id table.
			return nil
		}

		data := make([]byte, len(p.Data))
		copy(data, p.Data)

		body := DecodeFields(name, data)
		count++
		if count%100 == 0 {
			log.Printf("[recorder] recorded %d packets (latest: %s len=%d)", count, name, len(data))
		}
		return rec.RecordNow(name, body)
	}
}

// DecodeFields extracts the fields projector.Apply reads (spec §4.5's
// table: x/z for chunks, entityId for spawns, entityIds for destroys) from
// a packet's raw body, and always carries the untouched bytes under "raw"
// so the session manager's viewer sink can replay the packet byte-exact.
// Exported so other packet sources (e.g. a raw TCP proxy that never touches
// go-mc's pk.Packet type) can reuse the same field extraction.
func DecodeFields(name string, data []byte) payload.Value {
	m := payload.NewMap()
	m.Set("raw", data)

	c := &cursor{b: data}
	switch name {
	case container.NameMapChunk:
		if x, ok := c.int32BE(); ok {
			m.Set("x", int64(x))
		}
		if z, ok := c.int32BE(); ok {
			m.Set("z", int64(z))
		}
	case container.NameNamedEntitySpawn, container.NameSpawnEntityLiving, container.NameSpawnEntity:
		if id, ok := c.varInt(); ok {
			m.Set("entityId", int64(id))
		}
	case container.NameEntityDestroy:
		if count, ok := c.varInt(); ok {
			ids := make([]payload.Value, 0, count)
			for i := int32(0); i < count; i++ {
				id, ok := c.varInt()
				if !ok {
					break
				}
				ids = append(ids, int64(id))
			}
			m.Set("entityIds", ids)
		}
	}
	return m
}

// cursor is a tiny big-endian / VarInt reader over a packet body, enough
// for the fixed-position fields DecodeFields needs. It never errors loudly
// -- every read reports ok=false on underrun, so callers degrade to
// "raw"-only forwarding instead of failing the recording.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) int32BE() (int32, bool) {
	if c.pos+4 > len(c.b) {
		return 0, false
	}
	v := int32(binary.BigEndian.Uint32(c.b[c.pos : c.pos+4]))
	c.pos += 4
	return v, true
}

func (c *cursor) varInt() (int32, bool) {
	var result int32
	var shift uint
	for i := 0; i < 5; i++ {
		if c.pos >= len(c.b) {
			return 0, false
		}
		b := c.b[c.pos]
		c.pos++
		result |= int32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, true
		}
		shift += 7
	}
	return 0, false
}
