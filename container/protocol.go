package container

// ProtocolID maps every known packet name to its clientbound packet id in
// the Minecraft 1.8.x protocol (protocol version 47), the version the go-mc
// powered session and recorder adapters speak on the wire. This is
// independent of the container's own one-byte ids in packetids.go, which
// only need to be stable within this format, not match any real protocol.
var ProtocolID = map[string]int32{
	NameMapChunk:           0x21,
	NameMapChunkBulk:       0x26,
	NameBlockChange:        0x23,
	NameMultiBlockChange:   0x22,
	NameNamedEntitySpawn:   0x0C,
	NameSpawnEntityLiving:  0x0F,
	NameSpawnEntity:        0x0E,
	NameEntityVelocity:     0x12,
	NameEntityTeleport:     0x18,
	NameEntityMoveLook:     0x17,
	NameRelEntityMove:      0x15,
	NameEntityLook:         0x16,
	NameEntityHeadRotation: 0x19,
	NameEntityDestroy:      0x13,
	NameChat:               0x02,
	NamePlayerInfo:         0x38,
	NameUpdateSign:         0x33,
	NameExplosion:          0x27,
	NameEntityEquipment:    0x04,
	NamePlayerAbilities:    0x39,
	NameEntityMetadata:     0x1C,

	// Handshake-critical frames, outside the 21-entry state-bearing set
	// above but still needed by the session manager's handshake and resync
	// protocol (spec §4.7). They are never recorded.
	"login":          0x01,
	"spawn_position": 0x05,
	"position":       0x08,
	"respawn":        0x07,
}

// protocolNameByID is ProtocolID inverted, for the recorder's inbound side,
// restricted to the names the container tracks (the keys of NameToID).
var protocolNameByID = func() map[int32]string {
	m := make(map[int32]string, len(NameToID))
	for name, id := range ProtocolID {
		if _, tracked := NameToID[name]; !tracked {
			continue
		}
		m[id] = name
	}
	return m
}()

// NameByProtocolID returns the packet name for a clientbound protocol id,
// or ("", false) if it's not one this format tracks.
func NameByProtocolID(id int32) (string, bool) {
	name, ok := protocolNameByID[id]
	return name, ok
}
