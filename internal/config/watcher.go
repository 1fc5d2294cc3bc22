package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a config file's motd and max-players fields --
// bounded to those two, since every other field is read once at bind time
// (spec §6's configuration surface is otherwise static). Modeled on
// writerslogic-witnessd's internal/config.Loader.Watch/watchLoop, trimmed
// to the single directory-watch shape this module needs: every write or
// create event on the file triggers a reload, with no debounce.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	current  *Config
	onChange []func(motd string, maxPlayers int)
}

// NewWatcher starts watching the directory containing path for changes to
// it. current is the already-loaded config to diff future reloads against.
func NewWatcher(path string, current *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	w := &Watcher{path: path, watcher: fw, current: current}
	go w.loop()
	return w, nil
}

// OnChange registers a callback invoked when motd or max_players changes.
func (w *Watcher) OnChange(cb func(motd string, maxPlayers int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, cb)
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		return
	}

	w.mu.Lock()
	motdChanged := cfg.Server.MOTD != w.current.Server.MOTD
	maxPlayersChanged := cfg.Server.MaxPlayers != w.current.Server.MaxPlayers
	w.current.Server.MOTD = cfg.Server.MOTD
	w.current.Server.MaxPlayers = cfg.Server.MaxPlayers
	callbacks := append([]func(string, int){}, w.onChange...)
	w.mu.Unlock()

	if motdChanged || maxPlayersChanged {
		for _, cb := range callbacks {
			cb(cfg.Server.MOTD, cfg.Server.MaxPlayers)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
