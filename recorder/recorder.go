// Package recorder implements the recorder feed of spec §4.8: a
// transport-agnostic, thread-safe way to feed decoded packets into a
// container.Writer with timestamps relative to the recorder's start time.
//
// This is a direct generalization of the teacher's mcpr/recorder/recorder.go
// from an opaque (protocol id, raw bytes) pair to the spec's (name, payload
// tree) pair, since our container stores a structured payload rather than
// an untouched wire frame.
package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
)

// Recorder streams PacketRecords to an underlying container.Writer,
// computing timestamps relative to its start time (spec §4.8: "Timestamp is
// time.Since(start) in milliseconds, not the source's own clock").
type Recorder struct {
	w     *container.Writer
	start time.Time

	mu       sync.Mutex
	closed   bool
	spawned  bool
	selfName string
}

// New wraps an already-header-written container.Writer. Start time is now.
func New(w *container.Writer) *Recorder {
	return &Recorder{w: w, start: time.Now()}
}

// NewFile creates a container file at path, writes its header, and returns
// a Recorder owning the file. Use Close to finalize.
func NewFile(path string) (*Recorder, error) {
	w, err := container.CreateFile(path)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("recorder: write header: %w", err)
	}
	return &Recorder{w: w, start: time.Now()}, nil
}

// RecordNow records name/payload with a timestamp computed from
// time.Since(start). No-op after Close.
func (r *Recorder) RecordNow(name string, p payload.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	ts := time.Since(r.start).Milliseconds()
	return r.w.WritePacket(container.PacketRecord{Timestamp: ts, Name: name, Payload: p})
}

// RecordAt records name/payload with an explicit millisecond timestamp, for
// sources (like a proxy replaying an already-timestamped stream) that track
// their own clock.
func (r *Recorder) RecordAt(ts int64, name string, p payload.Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.w.WritePacket(container.PacketRecord{Timestamp: ts, Name: name, Payload: p})
}

// NoteBotSpawn records the bot's own position as a named_entity_spawn packet
// the first time it's called, using the entity id the caller passes for the
// bot itself -- spec §4.8's "the recorder synthesizes its own spawn packet"
// feature, since the bot never receives a spawn packet describing itself
// from the server. Subsequent calls are no-ops.
func (r *Recorder) NoteBotSpawn(entityID int64, username string, pos container.Position) error {
	r.mu.Lock()
	if r.closed || r.spawned {
		r.mu.Unlock()
		return nil
	}
	r.spawned = true
	r.selfName = username
	r.mu.Unlock()

	m := payload.NewMap()
	m.Set("entityId", entityID)
	m.Set("name", username)
	m.Set("x", pos.X)
	m.Set("y", pos.Y)
	m.Set("z", pos.Z)
	return r.RecordNow(container.NameNamedEntitySpawn, m)
}

// Close finalizes the container file with meta, stamping StartTime to the
// recorder's start time and EndTime to now if either is still zero.
func (r *Recorder) Close(meta container.ReplayMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if meta.StartTime == 0 {
		meta.StartTime = r.start.UnixMilli()
	}
	if meta.EndTime == 0 {
		meta.EndTime = time.Now().UnixMilli()
	}
	if meta.BotUsername == "" {
		meta.BotUsername = r.selfName
	}
	return r.w.Close(meta)
}
