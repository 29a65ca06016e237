package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/camuig/quant-relay/internal/logger"
)

const watchDebounce = 500 * time.Millisecond

// Store holds the active configuration snapshot. Readers never block and
// always see a complete snapshot; reloads are serialized.
type Store struct {
	path    string
	current atomic.Pointer[Config]
	mu      sync.Mutex
}

// NewStore loads the file at path. A failure here is fatal to the caller.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path}
	s.current.Store(cfg)
	return s, nil
}

// NewStoreFromConfig wraps an already built snapshot.
func NewStoreFromConfig(path string, cfg *Config) *Store {
	s := &Store{path: path}
	s.current.Store(cfg)
	return s
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Current() *Config {
	return s.current.Load()
}

// Reload re-reads the file and swaps the snapshot. On error the previous
// snapshot stays active.
func (s *Store) Reload() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// Watch reloads the store whenever the config file is written or replaced.
// It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, log *logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(s.path)

	log.Info("watching configuration file", "path", s.path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher", "error", err)
		case <-debounce:
			debounce = nil
			log.Info("configuration file changed, reloading", "path", s.path)
			if _, err := s.Reload(); err != nil {
				log.Error("configuration reload failed, keeping previous configuration", "error", err)
				continue
			}
			log.Info("configuration reloaded")
		}
	}
}
