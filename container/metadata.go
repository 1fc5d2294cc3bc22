package container

import "github.com/reallyoldfogie/mcreplay/payload"

// ReplayMetadata is the trailing metadata block described in spec §3.
type ReplayMetadata struct {
	SpawnPosition Position
	StartTime     int64 // epoch ms
	EndTime       int64 // epoch ms
	BotUsername   string
	VersionTag    string
}

const (
	metaSpawnX       = "spawnX"
	metaSpawnY       = "spawnY"
	metaSpawnZ       = "spawnZ"
	metaStartTime    = "startTime"
	metaEndTime      = "endTime"
	metaBotUsername  = "botUsername"
	metaVersionTag   = "versionTag"
)

// toPayload converts m to the normalized map the container encodes into
// the trailing metadata block.
func (m ReplayMetadata) toPayload() payload.Value {
	out := payload.NewMap()
	out.Set(metaSpawnX, m.SpawnPosition.X)
	out.Set(metaSpawnY, m.SpawnPosition.Y)
	out.Set(metaSpawnZ, m.SpawnPosition.Z)
	out.Set(metaStartTime, m.StartTime)
	out.Set(metaEndTime, m.EndTime)
	out.Set(metaBotUsername, m.BotUsername)
	out.Set(metaVersionTag, m.VersionTag)
	return out
}

// metadataFromPayload is the inverse of toPayload. Any mapping-typed value
// the codec returns is already a *payload.Map (see payload.Decode); this
// just reads the known fields out of it, per spec §4.3's "flatten to a
// uniform representation" requirement.
func metadataFromPayload(v payload.Value) (ReplayMetadata, error) {
	m, ok := v.(*payload.Map)
	if !ok {
		return ReplayMetadata{}, errNotAMap
	}
	var meta ReplayMetadata
	meta.SpawnPosition.X = getInt(m, metaSpawnX)
	meta.SpawnPosition.Y = getInt(m, metaSpawnY)
	meta.SpawnPosition.Z = getInt(m, metaSpawnZ)
	meta.StartTime = getInt(m, metaStartTime)
	meta.EndTime = getInt(m, metaEndTime)
	meta.BotUsername, _ = getString(m, metaBotUsername)
	meta.VersionTag, _ = getString(m, metaVersionTag)
	return meta, nil
}

func getInt(m *payload.Map, key string) int64 {
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	i, _ := v.(int64)
	return i
}

func getString(m *payload.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
