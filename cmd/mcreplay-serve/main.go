// Command mcreplay-serve loads a recorded .mcreplay container and serves it
// to connecting Minecraft clients as a live, spectator-only playback --
// the teacher's examples/proxyrec turned inside out: instead of tee-ing a
// live connection into a recording, this replays a recording onto live
// connections.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/internal/config"
	"github.com/reallyoldfogie/mcreplay/internal/logging"
	"github.com/reallyoldfogie/mcreplay/projector"
	"github.com/reallyoldfogie/mcreplay/scheduler"
	"github.com/reallyoldfogie/mcreplay/session"
	"github.com/rs/zerolog"
)

func main() {
	var configPath, replayPath string
	var autoplay bool

	flag.StringVar(&configPath, "config", "", "Path to mcreplay.toml (optional)")
	flag.StringVar(&replayPath, "replay", "", "Path to a .mcreplay container file")
	flag.BoolVar(&autoplay, "autoplay", true, "Start playback immediately instead of waiting for the first viewer")
	flag.Parse()

	if replayPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mcreplay-serve -replay <file.mcreplay> [-config mcreplay.toml]")
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Default("serve")

	reader, err := container.Open(replayPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", replayPath).Msg("open replay")
	}
	packets, err := reader.Packets()
	if err != nil {
		log.Fatal().Err(err).Msg("decode packet stream")
	}
	log.Info().Int("packets", len(packets)).Str("bot", reader.Meta.BotUsername).Msg("loaded replay")

	proj := projector.New()
	endTime := reader.Meta.EndTime - reader.Meta.StartTime
	sched := scheduler.New(packets, proj, endTime, scheduler.Handlers{}, nil)

	mgr := session.NewManager(sched, reader.Meta, session.Config{MaxPlayers: cfg.Server.MaxPlayers}, session.Handlers{
		OnJoin: func(s *session.ViewerSession) {
			log.Info().Str("viewer", s.Username).Msg("viewer joined")
			if !autoplay {
				sched.Start()
			}
		},
		OnLeave: func(s *session.ViewerSession) {
			log.Info().Str("viewer", s.Username).Msg("viewer left")
		},
		OnError: func(err error, tag string) {
			log.Warn().Err(err).Str("tag", tag).Msg("session error")
		},
		OnProgress: func(cursor, total int, currentTime int64) {
			log.Info().Int("cursor", cursor).Int("total", total).Int64("t_ms", currentTime).Msg("progress")
		},
		OnPlaybackEnd: func() {
			log.Info().Msg("playback ended")
		},
	})

	motd := cfg.Server.MOTD
	if motd == "" {
		motd = config.DurationMOTD(time.Duration(endTime) * time.Millisecond)
	}
	status := &serverStatus{motd: motd, maxPlayers: cfg.Server.MaxPlayers, version: cfg.Server.Version, mgr: mgr}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("config hot-reload disabled")
		} else {
			defer watcher.Close()
			watcher.OnChange(func(motd string, maxPlayers int) {
				status.update(motd, maxPlayers)
				mgr.SetMaxPlayers(maxPlayers)
				log.Info().Str("motd", motd).Int("max_players", maxPlayers).Msg("config reloaded")
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.RunLoop(ctx, scheduler.DefaultTickInterval)

	if autoplay {
		mgr.StartPlayback()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("listen")
	}
	log.Info().Str("addr", addr).Msg("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				mgr.Close()
				return
			default:
				log.Warn().Err(err).Msg("accept")
				continue
			}
		}
		go handleConn(conn, mgr, status, log)
	}
}

// serverStatus holds the fields a status (server list ping) response
// reports. motd and maxPlayers are live-reloadable (spec §6); version is
// fixed for the process lifetime.
type serverStatus struct {
	mu         sync.Mutex
	motd       string
	maxPlayers int
	version    string
	mgr        *session.Manager
}

func (s *serverStatus) update(motd string, maxPlayers int) {
	s.mu.Lock()
	s.motd = motd
	s.maxPlayers = maxPlayers
	s.mu.Unlock()
}

func (s *serverStatus) snapshot() (motd string, maxPlayers, onlinePlayers int, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motd, s.maxPlayers, s.mgr.ViewerCount(), s.version
}

func handleConn(conn net.Conn, mgr *session.Manager, status *serverStatus, log zerolog.Logger) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	r := bufio.NewReader(conn)

	username, isStatus, err := handleHandshake(r, conn, status)
	if err != nil {
		log.Warn().Err(err).Msg("handshake failed")
		return
	}
	if isStatus {
		return
	}
	conn.SetReadDeadline(time.Time{})

	sink := session.NewGoMCSink(session.NewTCPPacketConn(conn))
	viewer, err := mgr.Accept(sink, username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("accept viewer")
		return
	}
	defer mgr.Disconnect(viewer)

	// The connection only needs to stay open; all writes are driven by the
	// scheduler's tick loop through the session manager's broadcast. Block
	// until the client disconnects.
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
