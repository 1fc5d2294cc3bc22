package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/scheduler"
)

// Config is the session manager's piece of spec §6's configuration
// surface: MaxPlayers. The spawn position is not configured here; it comes
// from the replay's metadata and is always sent on accept.
type Config struct {
	MaxPlayers int
}

// Handlers are the manager's observable events (spec §6 "Events"
// section): join/leave/chat, and the error-reporting channel every
// emission failure is funneled through (spec §7).
type Handlers struct {
	OnJoin   func(session *ViewerSession)
	OnLeave  func(session *ViewerSession)
	OnChat   func(session *ViewerSession, msg string)
	OnError  func(err error, tag string)

	// Forwarded straight from the scheduler (spec §6 playback events).
	OnProgress    func(cursor, total int, currentTimeMs int64)
	OnPlaybackEnd func()
}

// Manager is the session manager of spec §4.7. It owns no packets or
// projection itself -- those belong to the Scheduler -- and borrows
// viewer sessions from its own registry when writing, per the ownership
// model in spec §3.
type Manager struct {
	mu       sync.Mutex
	sched    *scheduler.Scheduler
	meta     container.ReplayMetadata
	cfg      Config
	handlers Handlers
	sessions map[string]*ViewerSession
	closed   bool
}

const (
	gameModeSpectator  = "spectator"
	dimensionOverworld = 0
	dimensionNether    = -1
)

// NewManager wires a Manager to sched and starts forwarding the
// scheduler's packet/progress/end events to connected viewers and to
// handlers. Seek and speed-change events are not forwarded.
func NewManager(sched *scheduler.Scheduler, meta container.ReplayMetadata, cfg Config, handlers Handlers) *Manager {
	m := &Manager{
		sched:    sched,
		meta:     meta,
		cfg:      cfg,
		handlers: handlers,
		sessions: make(map[string]*ViewerSession),
	}
	sched.SetHandlers(scheduler.Handlers{
		OnPacket: m.BroadcastPacket,
		OnProgress: func(cursor, total int, currentTime int64) {
			if handlers.OnProgress != nil {
				handlers.OnProgress(cursor, total, currentTime)
			}
		},
		OnEnd: func() {
			if handlers.OnPlaybackEnd != nil {
				handlers.OnPlaybackEnd()
			}
		},
	})
	return m
}

// BroadcastPacket is the scheduler's OnPacket hook: write r to every
// connected viewer. Per spec §6/§7, a single sink's write failure is
// reported and does not stop the broadcast to other viewers.
func (m *Manager) BroadcastPacket(r container.PacketRecord) {
	m.mu.Lock()
	sessions := make([]*ViewerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Write(r.Name, r.Payload); err != nil {
			m.reportError(err, "packet_replay:"+r.Name)
		}
	}
}

func (m *Manager) reportError(err error, tag string) {
	if m.handlers.OnError != nil {
		m.handlers.OnError(err, tag)
	}
}

// Accept completes the handshake for a newly connected sink (spec §4.7
// "Accept"): assign a stable id, emit login + spawn_position + position,
// and if the scheduler is currently playing, resync this viewer without
// clearing entities (it's a fresh join, not a reseek).
func (m *Manager) Accept(sink Sink, username string) (*ViewerSession, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("session: manager is closed")
	}
	id := uuid.NewString()
	session := &ViewerSession{ID: id, Username: username, UUID: id, sink: sink}
	m.sessions[id] = session
	maxPlayers := m.cfg.MaxPlayers
	m.mu.Unlock()

	if err := session.Write("login", loginPayload(id, maxPlayers)); err != nil {
		m.drop(id)
		return nil, fmt.Errorf("session: handshake failed for %s: %w", username, err)
	}

	if err := m.writeSpawn(session); err != nil {
		m.drop(id)
		return nil, fmt.Errorf("session: spawn frame failed for %s: %w", username, err)
	}

	if m.sched.State() == scheduler.Playing {
		m.resyncViewer(session, false)
	}

	if m.handlers.OnJoin != nil {
		m.handlers.OnJoin(session)
	}
	return session, nil
}

// drop removes a session whose handshake failed from the registry.
func (m *Manager) drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) writeSpawn(session *ViewerSession) error {
	if err := session.Write("spawn_position", positionPayload(m.meta.SpawnPosition)); err != nil {
		return err
	}
	return session.Write("position", lookPositionPayload(m.meta.SpawnPosition, 0, 0))
}

// resyncViewer implements spec §4.7 "resyncViewer". clearEntities is true
// on a seek (force the client to discard its world via the
// dimension-switch pair) and false on a fresh join.
func (m *Manager) resyncViewer(session *ViewerSession, clearEntities bool) {
	tag := "sync:"
	emit := func(name string, p payload.Value) {
		if err := session.Write(name, p); err != nil {
			m.reportError(err, tag+name)
		}
	}

	if clearEntities {
		// Dimension-switch pair: a protocol-specific technique (documented
		// assumption, not a general one) to force the client to discard
		// loaded chunks and entities without closing the connection.
		emit("respawn", dimensionPayload(dimensionNether))
		emit("respawn", dimensionPayload(dimensionOverworld))
		emit("spawn_position", positionPayload(m.meta.SpawnPosition))
		emit("position", lookPositionPayload(m.meta.SpawnPosition, 0, 0))
	}

	proj := m.sched.Projection()

	for _, r := range proj.Chunks() {
		emit(r.Name, r.Payload)
	}
	for _, r := range proj.BulkChunks() {
		emit(r.Name, r.Payload)
	}
	for _, r := range proj.PlayerInfo() {
		emit(r.Name, r.Payload)
	}
	for _, r := range proj.NamedEntitySpawns() {
		emit(r.Name, r.Payload)
	}
	if !clearEntities {
		for _, r := range proj.RecentRing() {
			emit(r.Name, r.Payload)
		}
	}
}

// Disconnect removes session from the registry. Safe to call more than
// once for the same session.
func (m *Manager) Disconnect(session *ViewerSession) {
	m.mu.Lock()
	_, existed := m.sessions[session.ID]
	delete(m.sessions, session.ID)
	m.mu.Unlock()

	if existed && m.handlers.OnLeave != nil {
		m.handlers.OnLeave(session)
	}
}

// SetMaxPlayers updates the advertised player cap live (spec §6's
// max-players config field), the session-manager half of hot-reload: new
// joins see the updated value in their login payload immediately, and
// already-connected viewers are unaffected. The cap is only advertised;
// Accept does not reject viewers beyond it.
func (m *Manager) SetMaxPlayers(n int) {
	m.mu.Lock()
	m.cfg.MaxPlayers = n
	m.mu.Unlock()
}

// ViewerCount returns the number of currently connected viewers.
func (m *Manager) ViewerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartPlayback, PausePlayback are thin wrappers over the scheduler
// (spec §6).
func (m *Manager) StartPlayback() { m.sched.Start() }
func (m *Manager) PausePlayback() { m.sched.Pause() }

// SetPlaybackSpeed clamps and applies s (spec §4.6).
func (m *Manager) SetPlaybackSpeed(s float64) { m.sched.SetPlaybackSpeed(s) }

// SeekToTime implements spec §4.6 steps 6-7: seek the scheduler, resync
// every connected viewer with clearEntities=true, then resume if playback
// was running before the seek.
func (m *Manager) SeekToTime(t int64) {
	wasPlaying := m.sched.SeekToTime(t)

	m.mu.Lock()
	sessions := make([]*ViewerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.resyncViewer(s, true)
	}

	if wasPlaying {
		m.sched.Start()
	}
}

// chatPosition values from spec §6: 0 for chat, 2 for action bar.
const (
	chatPositionChat      = int64(0)
	chatPositionActionBar = int64(2)
)

// SendChat and BroadcastChat wrap sink.Write with a chat packet at
// position 0 (spec §6).
func (m *Manager) SendChat(session *ViewerSession, msg string) error {
	return session.Write(container.NameChat, chatPayload(msg, chatPositionChat))
}

func (m *Manager) BroadcastChat(msg string) {
	m.forEachSession(func(s *ViewerSession) error {
		return s.Write(container.NameChat, chatPayload(msg, chatPositionChat))
	}, "chat")
}

// SendActionBar and BroadcastActionBar wrap sink.Write with a chat packet
// at position 2 (spec §6).
func (m *Manager) SendActionBar(session *ViewerSession, msg string) error {
	return session.Write(container.NameChat, chatPayload(msg, chatPositionActionBar))
}

func (m *Manager) BroadcastActionBar(msg string) {
	m.forEachSession(func(s *ViewerSession) error {
		return s.Write(container.NameChat, chatPayload(msg, chatPositionActionBar))
	}, "action_bar")
}

func (m *Manager) forEachSession(fn func(*ViewerSession) error, tag string) {
	m.mu.Lock()
	sessions := make([]*ViewerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		if err := fn(s); err != nil {
			m.reportError(err, tag)
		}
	}
}

// Close pauses the scheduler, sends every viewer a "Server closing" chat
// message, and removes it from the registry. It does not close the
// viewers' underlying connections.
func (m *Manager) Close() {
	m.sched.Pause()

	m.mu.Lock()
	m.closed = true
	sessions := make([]*ViewerSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*ViewerSession)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Write(container.NameChat, chatPayload("Server closing", chatPositionChat))
		if m.handlers.OnLeave != nil {
			m.handlers.OnLeave(s)
		}
	}
}

func loginPayload(entityID string, maxPlayers int) payload.Value {
	m := payload.NewMap()
	m.Set("entityId", entityID)
	m.Set("gameMode", gameModeSpectator)
	m.Set("dimension", int64(0))
	m.Set("maxPlayers", int64(maxPlayers))
	return m
}

func positionPayload(pos container.Position) payload.Value {
	m := payload.NewMap()
	m.Set("x", pos.X)
	m.Set("y", pos.Y)
	m.Set("z", pos.Z)
	return m
}

func lookPositionPayload(pos container.Position, yaw, pitch float64) payload.Value {
	m := payload.NewMap()
	m.Set("x", pos.X)
	m.Set("y", pos.Y)
	m.Set("z", pos.Z)
	m.Set("yaw", yaw)
	m.Set("pitch", pitch)
	return m
}

func dimensionPayload(dimension int64) payload.Value {
	m := payload.NewMap()
	m.Set("dimension", dimension)
	return m
}

func chatPayload(msg string, position int64) payload.Value {
	m := payload.NewMap()
	m.Set("message", msg)
	m.Set("position", position)
	return m
}
