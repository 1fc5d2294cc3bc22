// Package scheduler implements the playback scheduler of spec §4.6: a
// real-time pacing loop over an in-memory packet log with pause, resume,
// variable speed, and seek, driving a projector.Projection as it goes.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/projector"
)

// State is one of the four scheduler states from spec §4.6.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	minSpeed = 0.1
	maxSpeed = 10.0
	// progressEvery is how often, in consumed packets, OnProgress fires
	// (spec §4.6: "every 100 consumed packets").
	progressEvery = 100
)

// Handlers are the scheduler's observable events (spec §9: "model as a
// callback registry keyed by event name"). Any may be nil.
type Handlers struct {
	// OnPacket fires for every packet the tick loop emits, in playback
	// order, before it is applied to the projection. The session manager
	// wires this to its viewer broadcast.
	OnPacket func(container.PacketRecord)
	// OnProgress fires every progressEvery consumed packets.
	OnProgress func(cursor, total int, currentTime int64)
	// OnEnd fires exactly once when the cursor passes the last record.
	OnEnd func()
	// OnSeek fires once per SeekToTime call, reporting the previous and
	// new virtual time.
	OnSeek func(from, to int64)
	// OnSpeedChange fires once per SetPlaybackSpeed call that changes the
	// speed; a call that leaves the clamped speed unchanged does not fire it.
	OnSpeedChange func(old, new float64)
}

// Scheduler is not safe for concurrent use from multiple goroutines at
// once on its mutating entry points; spec §5 calls for all of Start,
// Pause, Seek, SetSpeed, Tick, viewer accept, and viewer disconnect to
// execute serially on one logical thread. The mutex here exists to make
// that true even when RunLoop's goroutine and a caller's direct Pause()
// race, not to offer general concurrent access.
type Scheduler struct {
	mu sync.Mutex

	packets []container.PacketRecord
	proj    *projector.Projection
	endTime int64 // last meaningful virtual time, i.e. endTime-startTime from metadata

	cursor      int
	playing     bool
	ended       bool
	currentTime int64
	speed       float64
	wallAnchor  time.Time

	now     func() time.Time
	handled Handlers
}

// New returns a scheduler over packets (assumed sorted by Timestamp, as
// Reader.Packets produces), driving proj, with playback bounded to
// [0, endTime]. now defaults to time.Now if nil (tests inject a fake
// clock to make pacing deterministic).
func New(packets []container.PacketRecord, proj *projector.Projection, endTime int64, handlers Handlers, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		packets: packets,
		proj:    proj,
		endTime: endTime,
		speed:   1.0,
		now:     now,
		handled: handlers,
	}
}

// SetHandlers replaces the scheduler's event handlers. Exists because
// callers typically need the scheduler before they can build the
// handlers that reference it (e.g. a session manager broadcasting
// OnPacket to its own viewer registry).
func (s *Scheduler) SetHandlers(h Handlers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = h
}

// State reports the scheduler's current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scheduler) stateLocked() State {
	if s.ended {
		return Ended
	}
	if s.playing {
		return Playing
	}
	if s.cursor == 0 && s.currentTime == 0 {
		return Idle
	}
	return Paused
}

// Speed returns the current playback speed.
func (s *Scheduler) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Cursor returns the index of the next packet to be emitted.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Total returns the number of packets in the log.
func (s *Scheduler) Total() int {
	return len(s.packets)
}

// Projection returns the scheduler-owned projection, for the session
// manager to read when resyncing a viewer.
func (s *Scheduler) Projection() *projector.Projection {
	return s.proj
}

// CurrentTime returns the current virtual time in milliseconds, computed
// live from wall time if playing.
func (s *Scheduler) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTimeLocked()
}

func (s *Scheduler) currentTimeLocked() int64 {
	if !s.playing {
		return s.currentTime
	}
	elapsedMs := s.now().Sub(s.wallAnchor).Seconds() * 1000
	return int64(elapsedMs * s.speed)
}

// Start transitions Idle/Paused -> Playing. No-op if already playing or
// if playback has ended (seek first to leave Ended).
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Scheduler) startLocked() {
	if s.playing || s.ended {
		return
	}
	// wallAnchor := now - currentTime/speed (spec §4.6).
	offset := time.Duration(float64(s.currentTime) / s.speed * float64(time.Millisecond))
	s.wallAnchor = s.now().Add(-offset)
	s.playing = true
}

// Pause transitions Playing -> Paused. No-op if not playing.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

func (s *Scheduler) pauseLocked() {
	if !s.playing {
		return
	}
	s.currentTime = s.currentTimeLocked()
	s.playing = false
}

// SetPlaybackSpeed clamps s to [0.1, 10] and applies it without a time
// discontinuity: pause (snapshotting currentTime), change speed, then
// resume if it was playing before.
func (s *Scheduler) SetPlaybackSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clamped := speed
	if clamped < minSpeed {
		clamped = minSpeed
	}
	if clamped > maxSpeed {
		clamped = maxSpeed
	}

	wasPlaying := s.playing
	old := s.speed
	s.pauseLocked()
	s.speed = clamped
	if wasPlaying {
		s.startLocked()
	}

	if s.handled.OnSpeedChange != nil && old != clamped {
		s.handled.OnSpeedChange(old, clamped)
	}
}

// SeekToTime pauses, clamps t to [0, endTime], rebuilds the projection by
// replaying (without emitting) every record up to and including t, and
// sets currentTime to t. It reports whether playback was running before
// the seek; the caller (the session manager, per spec §4.6 step 6-7) is
// responsible for resyncing viewers and, if wasPlaying, resuming with
// Start().
func (s *Scheduler) SeekToTime(t int64) (wasPlaying bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasPlaying = s.playing
	s.pauseLocked()

	if t < 0 {
		t = 0
	}
	if t > s.endTime {
		t = s.endTime
	}

	from := s.currentTime

	s.proj.Reset()
	cursor := 0
	for cursor < len(s.packets) && s.packets[cursor].Timestamp <= t {
		s.proj.Apply(s.packets[cursor])
		cursor++
	}
	s.cursor = cursor
	s.currentTime = t
	s.ended = false

	if s.handled.OnSeek != nil {
		s.handled.OnSeek(from, t)
	}
	return wasPlaying
}

// Tick runs one iteration of the pacing loop (spec §4.6): if not playing,
// it's a no-op; otherwise it recomputes currentTime and emits every due
// packet, applying each to the projection before advancing the cursor. It
// returns true the one time playback ends as a result of this call.
func (s *Scheduler) Tick() (justEnded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return false
	}

	s.currentTime = s.currentTimeLocked()

	for s.cursor < len(s.packets) && s.packets[s.cursor].Timestamp <= s.currentTime {
		r := s.packets[s.cursor]
		if s.handled.OnPacket != nil {
			s.handled.OnPacket(r)
		}
		s.proj.Apply(r)
		s.cursor++

		if s.cursor%progressEvery == 0 && s.handled.OnProgress != nil {
			s.handled.OnProgress(s.cursor, len(s.packets), s.currentTime)
		}
	}

	if s.cursor >= len(s.packets) {
		s.playing = false
		s.ended = true
		if s.handled.OnEnd != nil {
			s.handled.OnEnd()
		}
		return true
	}
	return false
}

// String is for debug logging.
func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler{state=%s cursor=%d/%d t=%dms speed=%.2f}",
		s.State(), s.Cursor(), s.Total(), s.CurrentTime(), s.Speed())
}
