// Package projector implements the world-state projection of spec §4.5:
// the minimum derived state needed to bring a joining or re-seeking
// viewer's view of the world up to date from a packet log.
package projector

import (
	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
)

// defaultRingSize is the recentRing bound from spec §3 ("default 1000").
const defaultRingSize = 1000

// ChunkCoord is a (cx, cz) chunk coordinate.
type ChunkCoord struct {
	X, Z int64
}

// Projection holds the derived world state described in spec §3. It is
// single-owner and rebuilt (never shared-mutable across threads) -- spec
// §5 and §9.
type Projection struct {
	chunkByCoord map[ChunkCoord]container.PacketRecord
	bulkChunkLog []container.PacketRecord
	entityIDs    map[int64]struct{}
	namedLog     map[string][]container.PacketRecord
	recentRing   []container.PacketRecord
	ringSize     int
}

// New returns an empty projection with the default recentRing bound.
func New() *Projection {
	return NewWithRingSize(defaultRingSize)
}

// NewWithRingSize returns an empty projection with a custom recentRing
// bound, mainly for tests that want to exercise eviction without 1000
// packets.
func NewWithRingSize(ringSize int) *Projection {
	return &Projection{
		chunkByCoord: make(map[ChunkCoord]container.PacketRecord),
		entityIDs:    make(map[int64]struct{}),
		namedLog:     make(map[string][]container.PacketRecord),
		ringSize:     ringSize,
	}
}

// spawnNames are the packet names that add a live entity id and get
// logged under their own name in namedLog (spec §4.5 table).
var spawnNames = map[string]bool{
	container.NameNamedEntitySpawn:  true,
	container.NameSpawnEntityLiving: true,
	container.NameSpawnEntity:       true,
}

// Apply applies a single record to the projection, per the table in spec
// §4.5. Applying records from an empty projection in log order, for any
// prefix, yields a projection that depends only on that prefix (the
// idempotent-on-identical-log invariant).
func (p *Projection) Apply(r container.PacketRecord) {
	switch r.Name {
	case container.NameMapChunk:
		if coord, ok := chunkCoordOf(r); ok {
			p.chunkByCoord[coord] = r
		}
	case container.NameMapChunkBulk:
		p.bulkChunkLog = append(p.bulkChunkLog, r)
	case container.NameEntityDestroy:
		for _, id := range entityIDsOf(r) {
			delete(p.entityIDs, id)
		}
	case container.NamePlayerInfo:
		p.namedLog[container.NamePlayerInfo] = append(p.namedLog[container.NamePlayerInfo], r)
	default:
		if spawnNames[r.Name] {
			if id, ok := entityIDOf(r); ok {
				p.entityIDs[id] = struct{}{}
			}
			p.namedLog[r.Name] = append(p.namedLog[r.Name], r)
		}
	}

	p.recentRing = append(p.recentRing, r)
	if len(p.recentRing) > p.ringSize {
		p.recentRing = p.recentRing[len(p.recentRing)-p.ringSize:]
	}
}

// Reset clears all derived state, as seek does before replaying up to the
// target time (spec §4.6 step 3).
func (p *Projection) Reset() {
	p.chunkByCoord = make(map[ChunkCoord]container.PacketRecord)
	p.bulkChunkLog = nil
	p.entityIDs = make(map[int64]struct{})
	p.namedLog = make(map[string][]container.PacketRecord)
	p.recentRing = nil
}

// Chunks returns every current chunkByCoord entry, in unspecified order
// (spec §4.7 explicitly leaves chunk order unspecified).
func (p *Projection) Chunks() []container.PacketRecord {
	out := make([]container.PacketRecord, 0, len(p.chunkByCoord))
	for _, r := range p.chunkByCoord {
		out = append(out, r)
	}
	return out
}

// BulkChunks returns the bulk-chunk log in append order.
func (p *Projection) BulkChunks() []container.PacketRecord {
	return append([]container.PacketRecord(nil), p.bulkChunkLog...)
}

// PlayerInfo returns the accumulated player_info log in append order.
// Spec §4.5/§9: this is an accumulating log, not a resolved roster -- see
// DESIGN.md's note on that Open Question.
func (p *Projection) PlayerInfo() []container.PacketRecord {
	return append([]container.PacketRecord(nil), p.namedLog[container.NamePlayerInfo]...)
}

// NamedEntitySpawns returns named_entity_spawn, spawn_entity_living, and
// spawn_entity records concatenated in that order, per spec §4.7 step 4.
func (p *Projection) NamedEntitySpawns() []container.PacketRecord {
	var out []container.PacketRecord
	out = append(out, p.namedLog[container.NameNamedEntitySpawn]...)
	out = append(out, p.namedLog[container.NameSpawnEntityLiving]...)
	out = append(out, p.namedLog[container.NameSpawnEntity]...)
	return out
}

// EntityIDs returns the set of currently live entity ids.
func (p *Projection) EntityIDs() map[int64]struct{} {
	out := make(map[int64]struct{}, len(p.entityIDs))
	for id := range p.entityIDs {
		out[id] = struct{}{}
	}
	return out
}

// RecentRing returns the last N applied packets, in emission order.
func (p *Projection) RecentRing() []container.PacketRecord {
	return append([]container.PacketRecord(nil), p.recentRing...)
}

func chunkCoordOf(r container.PacketRecord) (ChunkCoord, bool) {
	m, ok := r.Payload.(*payload.Map)
	if !ok {
		return ChunkCoord{}, false
	}
	x, xok := fieldInt(m, "x")
	z, zok := fieldInt(m, "z")
	if !xok || !zok {
		return ChunkCoord{}, false
	}
	return ChunkCoord{X: x, Z: z}, true
}

func entityIDOf(r container.PacketRecord) (int64, bool) {
	m, ok := r.Payload.(*payload.Map)
	if !ok {
		return 0, false
	}
	return fieldInt(m, "entityId")
}

func entityIDsOf(r container.PacketRecord) []int64 {
	m, ok := r.Payload.(*payload.Map)
	if !ok {
		return nil
	}
	v, ok := m.Get("entityIds")
	if !ok {
		return nil
	}
	list, ok := v.([]payload.Value)
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(list))
	for _, e := range list {
		if i, ok := e.(int64); ok {
			out = append(out, i)
		}
	}
	return out
}

func fieldInt(m *payload.Map, key string) (int64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}
