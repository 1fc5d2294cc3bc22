package scheduler_test

import (
	"testing"
	"time"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/projector"
	"github.com/reallyoldfogie/mcreplay/scheduler"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance wall time deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func chatAt(ts int64) container.PacketRecord {
	return container.PacketRecord{Timestamp: ts, Name: container.NameChat, Payload: payload.NewMap()}
}

func TestPacingInvariant(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	packets := []container.PacketRecord{chatAt(0), chatAt(100000)}
	s := scheduler.New(packets, projector.New(), 100000, scheduler.Handlers{}, clock.now)

	s.Start()
	clock.advance(1 * time.Second)
	t1 := s.CurrentTime()
	clock.advance(1 * time.Second)
	t2 := s.CurrentTime()

	require.Equal(t, int64(1000), t1)
	require.Equal(t, int64(2000), t2)
	require.Equal(t, t2-t1, int64(1000))
}

func TestSpeedChangeContinuity(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	packets := []container.PacketRecord{chatAt(0), chatAt(100000)}
	s := scheduler.New(packets, projector.New(), 100000, scheduler.Handlers{}, clock.now)
	s.Start()
	clock.advance(2 * time.Second)

	before := s.CurrentTime()
	s.SetPlaybackSpeed(5)
	after := s.CurrentTime()
	require.Equal(t, before, after)
}

func TestSpeedClamp(t *testing.T) {
	s := scheduler.New(nil, projector.New(), 0, scheduler.Handlers{}, nil)
	s.SetPlaybackSpeed(0.0)
	require.Equal(t, 0.1, s.Speed())
	s.SetPlaybackSpeed(100)
	require.Equal(t, 10.0, s.Speed())
}

func TestTickEmitsDuePacketsAndAdvancesCursor(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var emitted []string
	packets := []container.PacketRecord{chatAt(0), chatAt(500), chatAt(1500)}
	s := scheduler.New(packets, projector.New(), 1500, scheduler.Handlers{
		OnPacket: func(r container.PacketRecord) { emitted = append(emitted, r.Name) },
	}, clock.now)

	s.Start()
	clock.advance(600 * time.Millisecond)
	s.Tick()
	require.Equal(t, 2, s.Cursor())

	clock.advance(1000 * time.Millisecond)
	s.Tick()
	require.Equal(t, 3, s.Cursor())
	require.Len(t, emitted, 3)
}

func TestPlaybackEndFiresOnce(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ended := 0
	packets := []container.PacketRecord{chatAt(0), chatAt(100)}
	s := scheduler.New(packets, projector.New(), 100, scheduler.Handlers{
		OnEnd: func() { ended++ },
	}, clock.now)

	s.Start()
	clock.advance(200 * time.Millisecond)
	s.Tick()
	require.Equal(t, scheduler.Ended, s.State())
	require.Equal(t, 1, ended)

	// Tick again: playing is already false, must not double-fire.
	s.Tick()
	require.Equal(t, 1, ended)
}

func TestSeekIdempotence(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	packets := []container.PacketRecord{chatAt(0), chatAt(500), chatAt(1000)}
	s := scheduler.New(packets, projector.New(), 1000, scheduler.Handlers{}, clock.now)

	s.SeekToTime(600)
	cursorAfterFirst := s.Cursor()
	timeAfterFirst := s.CurrentTime()

	s.SeekToTime(600)
	require.Equal(t, cursorAfterFirst, s.Cursor())
	require.Equal(t, timeAfterFirst, s.CurrentTime())
}

func TestSeekClampsToBounds(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	packets := []container.PacketRecord{chatAt(0), chatAt(1000)}
	s := scheduler.New(packets, projector.New(), 1000, scheduler.Handlers{}, clock.now)

	s.SeekToTime(-50)
	require.Equal(t, int64(0), s.CurrentTime())

	s.SeekToTime(99999)
	require.Equal(t, int64(1000), s.CurrentTime())
}

func TestSeekRebuildsProjectionFromScratch(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	spawn := func(ts, id int64) container.PacketRecord {
		m := payload.NewMap()
		m.Set("entityId", id)
		return container.PacketRecord{Timestamp: ts, Name: container.NameSpawnEntity, Payload: m}
	}
	packets := []container.PacketRecord{spawn(0, 1), spawn(500, 2)}
	s := scheduler.New(packets, projector.New(), 500, scheduler.Handlers{}, clock.now)

	s.SeekToTime(200)
	ids := s.Projection().EntityIDs()
	require.Len(t, ids, 1)

	s.SeekToTime(500)
	ids = s.Projection().EntityIDs()
	require.Len(t, ids, 2)
}

func TestSeekReturnsWasPlayingAndDoesNotAutoResume(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	packets := []container.PacketRecord{chatAt(0), chatAt(1000)}
	s := scheduler.New(packets, projector.New(), 1000, scheduler.Handlers{}, clock.now)

	s.Start()
	wasPlaying := s.SeekToTime(500)
	require.True(t, wasPlaying)
	require.Equal(t, scheduler.Paused, s.State())
}
