package container

// State-bearing packet ids, spec §4.4. The id table is the 21-entry fixed
// set this format supports in v1; NameToID / NameByID are its two
// directions.
const (
	IDMapChunk            = 1
	IDMapChunkBulk        = 2
	IDBlockChange         = 3
	IDMultiBlockChange    = 4
	IDNamedEntitySpawn    = 5
	IDSpawnEntityLiving   = 6
	IDSpawnEntity         = 7
	IDEntityVelocity      = 8
	IDEntityTeleport      = 9
	IDEntityMoveLook      = 10
	IDRelEntityMove       = 11
	IDEntityLook          = 12
	IDEntityHeadRotation  = 13
	IDEntityDestroy       = 14
	IDChat                = 15
	IDPlayerInfo          = 16
	IDUpdateSign          = 17
	IDExplosion           = 18
	IDEntityEquipment     = 19
	IDPlayerAbilities     = 20
	IDEntityMetadata      = 21
)

// NameMapChunk etc. are the symbolic names matching the ids above.
const (
	NameMapChunk           = "map_chunk"
	NameMapChunkBulk       = "map_chunk_bulk"
	NameBlockChange        = "block_change"
	NameMultiBlockChange   = "multi_block_change"
	NameNamedEntitySpawn   = "named_entity_spawn"
	NameSpawnEntityLiving  = "spawn_entity_living"
	NameSpawnEntity        = "spawn_entity"
	NameEntityVelocity     = "entity_velocity"
	NameEntityTeleport     = "entity_teleport"
	NameEntityMoveLook     = "entity_move_look"
	NameRelEntityMove      = "rel_entity_move"
	NameEntityLook         = "entity_look"
	NameEntityHeadRotation = "entity_head_rotation"
	NameEntityDestroy      = "entity_destroy"
	NameChat               = "chat"
	NamePlayerInfo         = "player_info"
	NameUpdateSign         = "update_sign"
	NameExplosion          = "explosion"
	NameEntityEquipment    = "entity_equipment"
	NamePlayerAbilities    = "player_abilities"
	NameEntityMetadata     = "entity_metadata"
)

// NameToID maps every known packet name to its one-byte container id.
var NameToID = map[string]byte{
	NameMapChunk:           IDMapChunk,
	NameMapChunkBulk:       IDMapChunkBulk,
	NameBlockChange:        IDBlockChange,
	NameMultiBlockChange:   IDMultiBlockChange,
	NameNamedEntitySpawn:   IDNamedEntitySpawn,
	NameSpawnEntityLiving:  IDSpawnEntityLiving,
	NameSpawnEntity:        IDSpawnEntity,
	NameEntityVelocity:     IDEntityVelocity,
	NameEntityTeleport:     IDEntityTeleport,
	NameEntityMoveLook:     IDEntityMoveLook,
	NameRelEntityMove:      IDRelEntityMove,
	NameEntityLook:         IDEntityLook,
	NameEntityHeadRotation: IDEntityHeadRotation,
	NameEntityDestroy:      IDEntityDestroy,
	NameChat:               IDChat,
	NamePlayerInfo:         IDPlayerInfo,
	NameUpdateSign:         IDUpdateSign,
	NameExplosion:          IDExplosion,
	NameEntityEquipment:    IDEntityEquipment,
	NamePlayerAbilities:    IDPlayerAbilities,
	NameEntityMetadata:     IDEntityMetadata,
}

// idToName is NameToID inverted, built once at init.
var idToName = func() map[byte]string {
	m := make(map[byte]string, len(NameToID))
	for name, id := range NameToID {
		m[id] = name
	}
	return m
}()

// NameByID returns the packet name for id, or ("", false) if id is unknown.
func NameByID(id byte) (string, bool) {
	name, ok := idToName[id]
	return name, ok
}
