// Package container implements the binary replay container described in
// spec §4.4: an 8-byte magic plus version header, a stream of
// delta-timestamped packet records, and a trailing length-addressed
// metadata block.
//
// The framing is kept deliberately close to the teacher's own
// recording.tmcpr layout (`mcpr/writer.go`: [time][len][varint id][data]),
// generalized from a fixed big-endian int32 timestamp to a delta-encoded
// LEB128 one, and from an opaque payload to the package payload's
// normalized tree, per spec §3's data model.
package container

import "github.com/reallyoldfogie/mcreplay/payload"

// PacketRecord is a single (timestamp, name, payload) triple as stored in
// the container (spec §3).
type PacketRecord struct {
	// Timestamp is nonnegative milliseconds since recording start.
	Timestamp int64
	// Name is a symbolic packet type; must be a key of NameToID.
	Name string
	// Payload is the packet's field tree, as produced by the packet
	// source. Writer normalizes it before encoding; Reader returns the
	// denormalized tree.
	Payload payload.Value
}

// Position is an integer (x, y, z) triple, used for ReplayMetadata's spawn
// position.
type Position struct {
	X, Y, Z int64
}
