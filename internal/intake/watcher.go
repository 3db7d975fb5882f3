package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"autoprint/internal/config"
	"autoprint/internal/logging"
)

// Event reports a write-stable candidate file in the intake directory.
type Event struct {
	Path      string
	Size      int64
	ModTime   time.Time
	FirstSeen time.Time
}

type observation struct {
	size      int64
	modTime   time.Time
	firstSeen time.Time
	checkedAt time.Time
	stable    int
}

// Watcher scans the top level of the intake directory and emits one Event per
// file once its size and modification time have been unchanged for the
// configured number of consecutive polls. Reported files are remembered by
// path and modification time; after a restart every file present is new.
type Watcher struct {
	dir         string
	allowed     map[string]struct{}
	stablePolls int
	interval    time.Duration
	logger      *slog.Logger

	pending map[string]*observation
	known   map[string]time.Time
	events  chan Event
}

// New constructs a watcher for dir using the intake configuration.
func New(dir string, cfg config.Intake, logger *slog.Logger) *Watcher {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		if ext = config.NormalizeExtension(ext); ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	stable := cfg.StablePolls
	if stable <= 0 {
		stable = 2
	}
	interval := cfg.PollIntervalDuration()
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		dir:         dir,
		allowed:     allowed,
		stablePolls: stable,
		interval:    interval,
		logger:      logging.NewComponentLogger(logger, "intake"),
		pending:     make(map[string]*observation),
		known:       make(map[string]time.Time),
		events:      make(chan Event, 64),
	}
}

// Events returns the channel Run publishes to.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Poll performs one scan and returns files that became stable in this pass,
// ordered by modification time then path. It must not be called concurrently
// with Run.
func (w *Watcher) Poll(now time.Time) ([]Event, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("scan intake directory: %w", err)
	}

	present := make(map[string]struct{}, len(entries))
	var ready []Event
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !w.accepts(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		present[path] = struct{}{}

		if mod, ok := w.known[path]; ok {
			if mod.Equal(info.ModTime()) {
				continue
			}
			// Rewritten in place after being reported; stabilize it again.
			delete(w.known, path)
		}

		obs, ok := w.pending[path]
		if !ok || obs.size != info.Size() || !obs.modTime.Equal(info.ModTime()) {
			firstSeen := now
			if ok {
				firstSeen = obs.firstSeen
			}
			w.pending[path] = &observation{size: info.Size(), modTime: info.ModTime(), firstSeen: firstSeen, checkedAt: now}
			continue
		}
		// Early polls triggered by notifications do not count towards stability.
		if now.Sub(obs.checkedAt) < w.interval/2 {
			continue
		}
		obs.checkedAt = now
		obs.stable++
		if obs.stable < w.stablePolls {
			continue
		}
		delete(w.pending, path)
		w.known[path] = info.ModTime()
		ready = append(ready, Event{
			Path:      path,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			FirstSeen: obs.firstSeen,
		})
	}

	for path := range w.pending {
		if _, ok := present[path]; !ok {
			delete(w.pending, path)
		}
	}
	for path := range w.known {
		if _, ok := present[path]; !ok {
			delete(w.known, path)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].ModTime.Equal(ready[j].ModTime) {
			return ready[i].ModTime.Before(ready[j].ModTime)
		}
		return ready[i].Path < ready[j].Path
	})
	return ready, nil
}

// Run polls until ctx is cancelled, publishing stable files to Events. Filesystem
// notifications shorten the wait before the next poll but never bypass the
// stability check.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	nudges := w.startNotify(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("intake watcher started",
		logging.String("dir", w.dir),
		logging.Duration("poll_interval", w.interval),
		logging.Int("stable_polls", w.stablePolls),
		logging.String(logging.FieldEventType, "intake_started"),
	)

	for {
		if err := w.pollAndPublish(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.WarnWithContext(w.logger, "intake scan failed", "intake_scan_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the intake directory exists and is readable"),
				logging.String(logging.FieldImpact, "new documents are not picked up until the scan succeeds"),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-nudges:
		}
	}
}

func (w *Watcher) pollAndPublish(ctx context.Context) error {
	events, err := w.Poll(time.Now())
	if err != nil {
		return err
	}
	for _, evt := range events {
		w.logger.Debug("candidate ready",
			logging.String(logging.FieldSource, evt.Path),
			logging.Int64("size", evt.Size),
		)
		select {
		case w.events <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// startNotify subscribes to directory changes. Failure leaves the watcher in
// pure polling mode.
func (w *Watcher) startNotify(ctx context.Context) <-chan struct{} {
	nudges := make(chan struct{}, 1)
	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		err = fsw.Add(w.dir)
		if err != nil {
			fsw.Close()
		}
	}
	if err != nil {
		w.logger.Debug("filesystem notifications unavailable; polling only", logging.Error(err))
		return nudges
	}
	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-fsw.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case nudges <- struct{}{}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Debug("filesystem notification error", logging.Error(err))
			}
		}
	}()
	return nudges
}

func (w *Watcher) accepts(name string) bool {
	if IsIgnoredName(name) {
		return false
	}
	_, ok := w.allowed[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsIgnoredName reports whether name is a hidden file or an editor lock or
// temporary file that must never become a job.
func IsIgnoredName(name string) bool {
	switch {
	case name == "":
		return true
	case strings.HasPrefix(name, "."):
		return true
	case strings.HasPrefix(name, "~$"):
		return true
	case strings.HasSuffix(name, "~"):
		return true
	case strings.HasSuffix(strings.ToLower(name), ".part"), strings.HasSuffix(strings.ToLower(name), ".crdownload"):
		return true
	}
	return false
}
