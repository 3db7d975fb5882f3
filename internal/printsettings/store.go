package printsettings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"autoprint/internal/logging"
)

const reloadDebounce = 250 * time.Millisecond

// Store holds the global defaults and the current per-document overrides.
// The override file is re-read when its modification time changes; a file
// that fails to parse leaves the previous overrides in effect.
type Store struct {
	path     string
	defaults Settings
	logger   *slog.Logger

	mu        sync.RWMutex
	overrides Overrides
	modTime   time.Time
	size      int64
	loaded    bool
}

// NewStore creates a store. An empty path disables overrides.
func NewStore(path string, defaults Settings, logger *slog.Logger) *Store {
	return &Store{
		path:      path,
		defaults:  defaults,
		logger:    logging.NewComponentLogger(logger, "print-settings"),
		overrides: Overrides{},
	}
}

// Defaults returns the global settings.
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Path returns the override file location.
func (s *Store) Path() string {
	return s.path
}

// Resolve returns the defaults merged with the override for name, if any.
func (s *Store) Resolve(name string) Settings {
	if s == nil {
		return Settings{}
	}
	override, ok := s.Lookup(name)
	if !ok {
		return s.defaults
	}
	return s.defaults.Merge(override)
}

// Lookup returns the override entry for a document name.
func (s *Store) Lookup(name string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides.Lookup(name)
}

// Count returns the number of override entries currently loaded.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}

// Refresh reloads the override file if it changed since the last load. A
// missing file clears all overrides.
func (s *Store) Refresh() error {
	if s == nil || s.path == "" {
		return nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.mu.Lock()
			cleared := len(s.overrides) > 0
			s.overrides = Overrides{}
			s.modTime = time.Time{}
			s.size = 0
			s.loaded = true
			s.mu.Unlock()
			if cleared {
				s.logger.Info("override file removed; using defaults only",
					logging.String("path", s.path),
					logging.String(logging.FieldEventType, "overrides_cleared"),
				)
			}
			return nil
		}
		return fmt.Errorf("stat override file: %w", err)
	}

	s.mu.RLock()
	unchanged := s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size
	s.mu.RUnlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read override file: %w", err)
	}
	parsed, err := ParseOverrides(s.path, data, s.defaults)
	if err != nil {
		// Remember the broken revision so it is not re-parsed every tick.
		s.mu.Lock()
		s.modTime = info.ModTime()
		s.size = info.Size()
		s.loaded = true
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.overrides = parsed
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("override file loaded",
		logging.String("path", s.path),
		logging.Int("entries", len(parsed)),
		logging.String(logging.FieldEventType, "overrides_loaded"),
	)
	return nil
}

// Watch reloads the override file whenever its directory reports a change to
// it, until ctx is cancelled. The caller should still call Refresh
// periodically; notifications are not guaranteed on every filesystem.
func (s *Store) Watch(ctx context.Context) error {
	if s == nil || s.path == "" {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure override directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create override watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch override directory: %w", err)
	}

	base := filepath.Base(s.path)
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(evt.Name) != base {
				continue
			}
			timer.Reset(reloadDebounce)
		case <-timer.C:
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("override watcher error", logging.Error(err))
		}
	}
}

func (s *Store) reload() {
	if err := s.Refresh(); err != nil {
		logging.WarnWithContext(s.logger, "override file rejected; keeping previous overrides", "overrides_invalid",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the override file; unknown keys and invalid values are rejected"),
			logging.String(logging.FieldImpact, "documents print with the last valid overrides"),
		)
	}
}
