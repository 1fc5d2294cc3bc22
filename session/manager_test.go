package session_test

import (
	"testing"
	"time"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/payload"
	"github.com/reallyoldfogie/mcreplay/projector"
	"github.com/reallyoldfogie/mcreplay/scheduler"
	"github.com/reallyoldfogie/mcreplay/session"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	names []string
	fail  map[string]bool
}

func (s *recordingSink) Write(name string, _ payload.Value) error {
	s.names = append(s.names, name)
	if s.fail[name] {
		return errWriteFailed
	}
	return nil
}

var errWriteFailed = &writeFailedErr{}

type writeFailedErr struct{}

func (e *writeFailedErr) Error() string { return "sink write failed" }

func spawnEntity(ts, id int64) container.PacketRecord {
	m := payload.NewMap()
	m.Set("entityId", id)
	return container.PacketRecord{Timestamp: ts, Name: container.NameSpawnEntity, Payload: m}
}

func chunk(x, z int64) container.PacketRecord {
	m := payload.NewMap()
	m.Set("x", x)
	m.Set("z", z)
	return container.PacketRecord{Name: container.NameMapChunk, Payload: m}
}

func TestLateJoinerResyncOrder(t *testing.T) {
	clock := time.Unix(0, 0)
	packets := []container.PacketRecord{
		chunk(0, 0),
		chunk(0, 1),
		spawnEntity(10, 1),
	}
	s := scheduler.New(packets, projector.New(), 1000, scheduler.Handlers{}, func() time.Time { return clock })
	// Prime the projection and mid-play state directly, mirroring a
	// scheduler that has already ticked through these records.
	proj := s.Projection()
	for _, r := range packets {
		proj.Apply(r)
	}

	mgr := session.NewManager(s, container.ReplayMetadata{SpawnPosition: container.Position{X: 0, Y: 64, Z: 0}}, session.Config{MaxPlayers: 20}, session.Handlers{})

	sink := &recordingSink{}
	s.Start() // so Accept's State() check sees Playing
	_, err := mgr.Accept(sink, "viewer1")
	require.NoError(t, err)

	require.Equal(t, []string{
		"login", "spawn_position", "position",
		container.NameMapChunk, container.NameMapChunk, container.NameSpawnEntity,
		// A fresh join then replays the recent-packet ring in order.
		container.NameMapChunk, container.NameMapChunk, container.NameSpawnEntity,
	}, sink.names)
}

func TestBroadcastReportsErrorsWithoutDroppingOtherViewers(t *testing.T) {
	s := scheduler.New(nil, projector.New(), 0, scheduler.Handlers{}, nil)
	var errs []string
	mgr := session.NewManager(s, container.ReplayMetadata{}, session.Config{MaxPlayers: 5}, session.Handlers{
		OnError: func(err error, tag string) { errs = append(errs, tag) },
	})

	good := &recordingSink{}
	bad := &recordingSink{fail: map[string]bool{container.NameChat: true}}

	_, err := mgr.Accept(good, "good")
	require.NoError(t, err)
	_, err = mgr.Accept(bad, "bad")
	require.NoError(t, err)

	mgr.BroadcastChat("hello")
	require.Contains(t, errs, "chat")
	require.Contains(t, good.names, container.NameChat)
}

func TestSeekResyncsWithDimensionSwitchPair(t *testing.T) {
	clock := time.Unix(0, 0)
	packets := []container.PacketRecord{chunk(0, 0)}
	s := scheduler.New(packets, projector.New(), 1000, scheduler.Handlers{}, func() time.Time { return clock })
	mgr := session.NewManager(s, container.ReplayMetadata{SpawnPosition: container.Position{X: 1, Y: 2, Z: 3}}, session.Config{MaxPlayers: 10}, session.Handlers{})

	sink := &recordingSink{}
	_, err := mgr.Accept(sink, "viewer")
	require.NoError(t, err)

	before := len(sink.names)
	mgr.SeekToTime(0)
	after := sink.names[before:]

	require.Equal(t, []string{"respawn", "respawn", "spawn_position", "position", container.NameMapChunk}, after)
}
