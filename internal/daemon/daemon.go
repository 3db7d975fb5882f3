package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"autoprint/internal/config"
	"autoprint/internal/deps"
	"autoprint/internal/engine"
	"autoprint/internal/intake"
	"autoprint/internal/ledger"
	"autoprint/internal/logging"
	"autoprint/internal/netlink"
	"autoprint/internal/printsettings"
)

// Components are the long-running pieces the daemon starts and stops.
// Monitor and Ledger are optional.
type Components struct {
	Engine   *engine.Engine
	Watcher  *intake.Watcher
	Settings *printsettings.Store
	Monitor  *netlink.Monitor
	Ledger   *ledger.Store
}

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	comp         Components
	dependencies []deps.Status

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu        sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	StartedAt    time.Time        `json:"started_at,omitempty"`
	LockFilePath string           `json:"lock_file"`
	LedgerPath   string           `json:"ledger_path,omitempty"`
	IntakeDir    string           `json:"intake_dir"`
	Printer      string           `json:"printer"`
	LinkMonitor  bool             `json:"link_monitor"`
	Dependencies []deps.Status    `json:"dependencies,omitempty"`
	Engine       *engine.Snapshot `json:"engine,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comp Components, logger *slog.Logger, dependencies []deps.Status) (*Daemon, error) {
	if cfg == nil || comp.Engine == nil || comp.Watcher == nil || comp.Settings == nil {
		return nil, errors.New("daemon requires config, engine, intake watcher, and settings store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		comp:         comp,
		dependencies: dependencies,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the watcher, override store,
// link monitor, engine and status API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another autoprint daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start status api: %w", err)
	}
	d.cancel = cancel

	d.goRun("intake watcher", func() error { return d.comp.Watcher.Run(runCtx) })
	d.goRun("override watcher", func() error { return d.comp.Settings.Watch(runCtx) })
	d.goRun("engine", func() error { return d.comp.Engine.Run(runCtx, d.comp.Watcher.Events()) })
	if err := d.comp.Monitor.Start(runCtx); err != nil {
		d.logger.Warn("link monitor unavailable", logging.Error(err))
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("autoprint daemon started",
		logging.String("lock", d.lockPath),
		logging.String("intake_dir", d.cfg.Paths.IntakeDir),
		logging.String("printer", d.cfg.Printer.Name),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) goRun(name string, run func() error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := run(); err != nil {
			logging.ErrorWithContext(d.logger, name+" stopped with error", "component_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the daemon log and restart autoprint"),
				logging.String(logging.FieldImpact, name+" is no longer running"),
			)
		}
	}()
}

// Stop stops background processing and releases the daemon lock. The engine
// finishes its current tick before Stop returns.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.comp.Monitor.Stop()
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("autoprint daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.comp.Ledger != nil {
		return d.comp.Ledger.Close()
	}
	return nil
}

// APIAddress returns the bound status API address, or "" when the API is disabled or stopped.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		IntakeDir:    d.cfg.Paths.IntakeDir,
		Printer:      d.cfg.Printer.Name,
		LinkMonitor:  d.comp.Monitor.Running(),
		Dependencies: d.dependencies,
		Engine:       d.comp.Engine.Snapshot(),
	}
	if status.Running {
		status.StartedAt = d.startedAt
	}
	if d.comp.Ledger != nil {
		status.LedgerPath = d.comp.Ledger.Path()
	}
	return status
}
