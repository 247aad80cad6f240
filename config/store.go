package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const defaultDebounce = 500 * time.Millisecond

// Store holds the current Settings snapshot loaded from a YAML file.
// Readers always see a complete snapshot; reloads swap it atomically.
type Store struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration

	current atomic.Pointer[Settings]

	mu        sync.Mutex
	listeners []func(*Settings)
	onReload  func(err error)
	timer     *time.Timer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithDebounce sets how long file events are coalesced before a reload.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *Store) { s.debounce = d }
}

// WithReloadHook registers a function called after every reload attempt,
// with a nil error on success.
func WithReloadHook(fn func(err error)) StoreOption {
	return func(s *Store) { s.onReload = fn }
}

// NewStore creates a Store for the settings file at path and loads it once.
// A missing file yields default settings. Option values that fail to resolve
// are logged and defaulted; only an unreadable or unparsable file is an error.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		path:     path,
		logger:   slog.Default(),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	settings, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current.Store(settings)
	return s, nil
}

// NewStaticStore returns a Store that always serves settings. It is never
// reloaded from disk.
func NewStaticStore(settings *Settings) *Store {
	s := &Store{logger: slog.Default(), debounce: defaultDebounce}
	if settings == nil {
		settings = Defaults()
	}
	s.current.Store(settings)
	return s
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the active snapshot. Callers must not modify it.
func (s *Store) Current() *Settings {
	return s.current.Load()
}

// OnChange registers fn to be called with each newly loaded snapshot.
func (s *Store) OnChange(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload reads the settings file again. On failure the previous snapshot
// stays active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	settings, err := s.load()
	if s.onReload != nil {
		s.onReload(err)
	}
	if err != nil {
		return err
	}
	s.current.Store(settings)

	s.mu.Lock()
	listeners := append([]func(*Settings){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(settings)
	}
	return nil
}

// LoadRaw reads a YAML settings file into the raw mapping Resolve takes. A
// missing file is reported with an error wrapping fs.ErrNotExist.
func LoadRaw(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load settings from %q: %w", path, err)
	}
	return k.Raw(), nil
}

func (s *Store) load() (*Settings, error) {
	raw, err := LoadRaw(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("settings file not found, using defaults", "path", s.path)
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}

	settings, err := Resolve(raw)
	if err != nil {
		s.logger.Warn("some settings were invalid and have been reset to defaults",
			"path", s.path, "error", err)
	}
	return settings, nil
}

// Watch reloads the settings whenever the file changes, until ctx is done.
// The parent directory is watched so that editors replacing the file
// atomically are picked up.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("settings store has no file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.logger.Info("watching settings for changes", "path", s.path, "debounce", s.debounce)

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				s.stopTimer()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				s.scheduleReload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("settings watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *Store) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Reload(); err != nil {
			s.logger.Error("Error reloading settings, keeping previous values", "error", err)
			return
		}
		s.logger.Info("settings reloaded", "path", s.path)
	})
}

func (s *Store) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}
