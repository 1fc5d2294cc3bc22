// Command mcreplay-record is a transparent TCP proxy that records the
// server->client packets of the container's tracked types passing through
// it into a .mcreplay container,
// adapted from the teacher's examples/proxyrec: same split-and-record
// framing, generalized from an opaque (id, payload bytes) pair to this
// format's (name, decoded-field-tree) pair via recorder.DecodeFields.
package main

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/reallyoldfogie/mcreplay/container"
	"github.com/reallyoldfogie/mcreplay/internal/config"
	"github.com/reallyoldfogie/mcreplay/internal/logging"
	"github.com/reallyoldfogie/mcreplay/recorder"
	"github.com/rs/zerolog"
)

func main() {
	var configPath, listen, upstream, username string
	var assumeNoCompress, guessCompress bool

	flag.StringVar(&configPath, "config", "", "Path to mcreplay.toml (optional)")
	flag.StringVar(&listen, "listen", ":25566", "Local listen address (proxy)")
	flag.StringVar(&upstream, "upstream", "127.0.0.1:25565", "Upstream Minecraft server address")
	flag.StringVar(&username, "username", "replaybot", "Bot username to record into metadata")
	flag.BoolVar(&assumeNoCompress, "no-compress", false, "Assume the server never enables compression")
	flag.BoolVar(&guessCompress, "guess-compress", true, "Detect login SetCompression and enable compression handling")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Default("recorder").Level(logging.ParseLevel(cfg.Logging.Level))

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		log.Fatal().Err(err).Str("addr", listen).Msg("listen")
	}
	log.Info().Str("listen", listen).Str("upstream", upstream).Msg("waiting for a client connection")

	conn, err := ln.Accept()
	if err != nil {
		log.Fatal().Err(err).Msg("accept")
	}
	defer conn.Close()
	ln.Close()

	upstreamConn, err := net.Dial("tcp", upstream)
	if err != nil {
		log.Fatal().Err(err).Str("upstream", upstream).Msg("dial upstream")
	}
	defer upstreamConn.Close()

	rec, err := recorder.NewFile(cfg.Recorder.OutputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Recorder.OutputPath).Msg("create recording")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		go func() { <-ctx.Done(); conn.Close() }()
		io.Copy(upstreamConn, conn)
	}()

	go func() {
		defer wg.Done()
		go func() { <-ctx.Done(); upstreamConn.Close() }()

		pr, pw := io.Pipe()
		var parseWG sync.WaitGroup
		parseWG.Add(1)
		go func() {
			defer parseWG.Done()
			if err := parseAndRecord(pr, rec, assumeNoCompress, guessCompress, log); err != nil && !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Msg("parser stopped")
			}
			// Unblock the tee so forwarding continues after parsing stops.
			pr.Close()
		}()

		forwardWithTee(upstreamConn, conn, pw)
		pw.Close()
		parseWG.Wait()
	}()

	wg.Wait()

	if err := rec.Close(container.ReplayMetadata{BotUsername: username, VersionTag: cfg.Server.Version}); err != nil {
		log.Fatal().Err(err).Msg("finalize recording")
	}
	log.Info().Str("path", cfg.Recorder.OutputPath).Msg("recording finalized")
}

func forwardWithTee(src io.Reader, dst io.Writer, tee io.Writer) {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
			tee.Write(buf[:n])
		}
		if rerr != nil {
			return
		}
	}
}

// parseAndRecord reads VarInt-length-framed packets from r, decodes each
// into this format's field tree via recorder.DecodeFields, and records it.
// It stops, without erroring loudly, once framing stops looking valid
// (encryption start, or EOF) -- matching the teacher's own proxyrec, which
// accepts that a proxy recorder only captures the plaintext, pre-encryption
// portion of a session.
//
// Compression is off by default (a fresh connection is always uncompressed)
// and switched on by the same heuristic the teacher's proxyrec uses: login's
// SetCompression packet has a body that is exactly one VarInt, so a payload
// that decodes as a single VarInt with nothing left over is taken as the
// signal to start treating subsequent frames as compressed.
func parseAndRecord(r io.Reader, rec *recorder.Recorder, assumeNoCompress, guessCompress bool, log zerolog.Logger) error {
	br := bufio.NewReader(r)
	compressionEnabled := false
	const maxFrame = 8 << 20
	count := 0

	for {
		frameLen, err := readVarIntProxy(br)
		if err != nil {
			return err
		}
		if frameLen <= 0 || frameLen > maxFrame {
			return fmt.Errorf("invalid frame length %d", frameLen)
		}
		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(br, frame); err != nil {
			return err
		}

		data := frame
		if !assumeNoCompress && compressionEnabled {
			zr := bytes.NewReader(data)
			uncompressedSize, err := readVarIntProxy(zr)
			if err == nil {
				if uncompressedSize > 0 {
					if z, zerr := zlib.NewReader(zr); zerr == nil {
						var out bytes.Buffer
						if _, cerr := io.Copy(&out, z); cerr == nil {
							data = out.Bytes()
						}
						z.Close()
					}
				} else {
					data, _ = io.ReadAll(zr)
				}
			}
		}

		pr := bytes.NewReader(data)
		pid64, err := readVarIntProxy(pr)
		if err != nil {
			return err
		}
		payloadBytes, _ := io.ReadAll(pr)

		if guessCompress && !compressionEnabled && !assumeNoCompress {
			if _, ok := singleVarInt(payloadBytes); ok {
				compressionEnabled = true
			}
		}

		name, ok := container.NameByProtocolID(int32(pid64))
		if ok {
			body := recorder.DecodeFields(name, payloadBytes)
			if err := rec.RecordNow(name, body); err != nil {
				return fmt.Errorf("record %s: %w", name, err)
			}
			count++
			if count%100 == 0 {
				log.Info().Int("recorded", count).Msg("progress")
			}
		}
	}
}

// singleVarInt reports whether b decodes to exactly one VarInt with no
// trailing bytes, the shape of a login SetCompression packet's body.
func singleVarInt(b []byte) (int64, bool) {
	r := bytes.NewReader(b)
	val, err := readVarIntProxy(r)
	if err != nil {
		return 0, false
	}
	if r.Len() == 0 {
		return val, true
	}
	return 0, false
}

func readVarIntProxy(r io.ByteReader) (int64, error) {
	var num int64
	var shift uint
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		num |= int64(b&0x7F) << shift
		if b&0x80 == 0 {
			return num, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("varint too long")
}
