package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"autoprint/internal/config"
	"autoprint/internal/document"
	"autoprint/internal/intake"
	"autoprint/internal/logging"
	"autoprint/internal/notifications"
	"autoprint/internal/printsettings"
	"autoprint/internal/queue"
)

// Dependencies are the collaborators the engine drives. Converter, Ledger
// and Notifier are optional.
type Dependencies struct {
	Network    NetworkGate
	Printer    PrinterGate
	Converter  Converter
	Archiver   Archiver
	Classifier *document.Classifier
	Settings   *printsettings.Store
	Ledger     Recorder
	Notifier   notifications.Service
}

// Option configures optional engine behavior.
type Option func(*Engine)

// WithClock replaces the engine's time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is the job queue and retry engine.
type Engine struct {
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time

	tickInterval time.Duration
	jobTimeout   time.Duration
	callTimeout  time.Duration
	convTimeout  time.Duration
	maxAttempts  int
	backoffBase  time.Duration
	backoffMax   time.Duration
	renderedDir  string

	// Loop-owned state.
	queue       *queue.Queue
	networkView GateView
	printerView GateView
	totals      Totals
	startedAt   time.Time

	wake     chan struct{}
	snapshot atomic.Pointer[Snapshot]
}

// New constructs an engine from configuration and collaborators.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: config required")
	}
	switch {
	case deps.Network == nil:
		return nil, errors.New("engine: network gate required")
	case deps.Printer == nil:
		return nil, errors.New("engine: printer gate required")
	case deps.Archiver == nil:
		return nil, errors.New("engine: archiver required")
	case deps.Classifier == nil:
		return nil, errors.New("engine: classifier required")
	case deps.Settings == nil:
		return nil, errors.New("engine: print settings store required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(config.Notifications{})
	}

	e := &Engine{
		deps:         deps,
		logger:       logging.NewComponentLogger(logger, "engine"),
		now:          time.Now,
		tickInterval: cfg.Workflow.TickIntervalDuration(),
		jobTimeout:   cfg.Workflow.JobTimeoutDuration(),
		callTimeout:  cfg.Workflow.CallTimeoutDuration(),
		convTimeout:  cfg.Conversion.TimeoutDuration(),
		maxAttempts:  cfg.Workflow.MaxAttempts,
		backoffBase:  cfg.Workflow.RetryBackoffDuration(),
		backoffMax:   cfg.Workflow.RetryBackoffMaxDuration(),
		renderedDir:  cfg.RenderedDir(),
		queue:        queue.New(),
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tickInterval <= 0 {
		e.tickInterval = 5 * time.Second
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = 1
	}
	e.startedAt = e.now()
	e.publish(e.startedAt)
	return e, nil
}

// Snapshot returns the most recently published engine state.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Wake requests an immediate tick. It never blocks.
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Run drives the control loop until ctx is cancelled. Candidate files from
// events are enqueued as they arrive; a tick runs on every interval and on
// every Wake. The tick in progress when ctx is cancelled runs to completion.
func (e *Engine) Run(ctx context.Context, events <-chan intake.Event) error {
	e.CleanupRendered()

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	e.logger.Info("engine started",
		logging.Duration("tick_interval", e.tickInterval),
		logging.Duration("job_timeout", e.jobTimeout),
		logging.Int("max_attempts", e.maxAttempts),
		logging.String(logging.FieldEventType, "engine_started"),
	)

	loopCtx := context.WithoutCancel(ctx)
	e.Tick(loopCtx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped",
				logging.Int("queued_jobs", e.queue.Len()),
				logging.String(logging.FieldEventType, "engine_stopped"),
			)
			return nil
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.Enqueue(loopCtx, evt)
		case <-ticker.C:
			e.Tick(loopCtx)
		case <-e.wake:
			e.Tick(loopCtx)
		}
	}
}

// Tick performs at most one job advancement and publishes a snapshot.
func (e *Engine) Tick(ctx context.Context) {
	now := e.now()
	if err := e.deps.Settings.Refresh(); err != nil {
		logging.WarnWithContext(e.logger, "override file rejected; keeping previous overrides", "overrides_invalid",
			logging.Error(err),
			logging.String("path", e.deps.Settings.Path()),
			logging.String(logging.FieldErrorHint, "fix the override file; it is re-read when it changes"),
			logging.String(logging.FieldImpact, "documents print with the last valid overrides"),
		)
	}

	if active := e.queue.Active(); active != nil {
		e.advancePrinting(ctx, active, now)
	} else {
		e.advanceNext(ctx, now)
	}
	e.publish(e.now())
}

// CleanupRendered removes rendered PDFs left over from a previous run.
func (e *Engine) CleanupRendered() {
	if e.renderedDir == "" {
		return
	}
	entries, err := os.ReadDir(e.renderedDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.Debug("rendered dir cleanup skipped", logging.Error(err))
		}
		return
	}
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(e.renderedDir, entry.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		e.logger.Info("removed stale rendered documents",
			logging.Int("count", removed),
			logging.String("dir", e.renderedDir),
		)
	}
}

// withCallTimeout bounds one gate, submit, or poll call.
func (e *Engine) withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, e.callTimeout)
}

// withConvertTimeout bounds one conversion by conversion.timeout, which may
// be longer than the per-call limit.
func (e *Engine) withConvertTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.convTimeout <= 0 {
		return e.withCallTimeout(ctx)
	}
	return withTimeout(ctx, e.convTimeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// backoff returns the delay before the given attempt may run again.
func (e *Engine) backoff(attempt int) time.Duration {
	if e.backoffBase <= 0 || attempt <= 0 {
		return 0
	}
	delay := e.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if e.backoffMax > 0 && delay >= e.backoffMax {
			return e.backoffMax
		}
	}
	if e.backoffMax > 0 && delay > e.backoffMax {
		return e.backoffMax
	}
	return delay
}

func (e *Engine) renderedPath(job *queue.Job) string {
	stem := job.Name()
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	return filepath.Join(e.renderedDir, fmt.Sprintf("%s-%s.pdf", job.ID[:8], stem))
}
