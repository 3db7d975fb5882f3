package engine

import (
	"context"
	"fmt"
	"time"

	"autoprint/internal/logging"
	"autoprint/internal/metrics"
	"autoprint/internal/queue"
	"autoprint/internal/services"
)

// advanceNext moves the oldest eligible job one step. The head of the queue
// is printed only if both gates are ready; otherwise the oldest job still
// waiting for conversion is converted instead.
func (e *Engine) advanceNext(ctx context.Context, now time.Time) {
	head := e.queue.NextEligible(now, true)
	if head == nil {
		return
	}
	if head.NeedsConversion() {
		e.convert(ctx, head, now)
		return
	}
	if e.gatesReady(ctx, now) {
		e.submit(ctx, head, now)
		return
	}
	if next := e.queue.NextEligible(now, false); next != nil {
		e.convert(ctx, next, now)
	}
}

// gatesReady checks the network first; the printer is only asked when the
// link is up.
func (e *Engine) gatesReady(ctx context.Context, now time.Time) bool {
	callCtx, cancel := e.withCallTimeout(ctx)
	ready, err := e.deps.Network.Ready(callCtx)
	cancel()
	e.networkView = GateView{Ready: ready, CheckedAt: now}
	if err != nil {
		e.networkView.Detail = err.Error()
	}
	if !ready {
		metrics.GateChecksTotal.WithLabelValues("network", "not_ready").Inc()
		e.logger.Debug("network gate closed", logging.Error(err))
		return false
	}
	metrics.GateChecksTotal.WithLabelValues("network", "ready").Inc()

	callCtx, cancel = e.withCallTimeout(ctx)
	status, err := e.deps.Printer.Status(callCtx)
	cancel()
	e.printerView = viewPrinter(status, now)
	if err != nil && e.printerView.Detail == "" {
		e.printerView.Detail = err.Error()
	}
	if err != nil || !status.Ready() {
		metrics.GateChecksTotal.WithLabelValues("printer", string(status.State)).Inc()
		e.logger.Debug("printer gate closed",
			logging.String("printer_state", string(status.State)),
			logging.String("fault", status.Fault),
			logging.Error(err),
		)
		return false
	}
	metrics.GateChecksTotal.WithLabelValues("printer", "ready").Inc()
	return true
}

func (e *Engine) convert(ctx context.Context, job *queue.Job, now time.Time) {
	jobCtx := jobContext(ctx, job, "convert")
	logger := logging.WithContext(jobCtx, e.logger)

	if job.Status == queue.StatusPending {
		if err := job.Transition(queue.StatusConverting, now); err != nil {
			logger.Error("unexpected transition", logging.Error(err))
			return
		}
	}
	if e.deps.Converter == nil {
		e.fail(jobCtx, job, services.Permanent(services.Wrap(services.ErrConversion, "convert", "resolve converter", "Document conversion is not configured", nil)), now)
		return
	}

	logger.Info("converting document", logging.String(logging.FieldEventType, "conversion_started"))
	started := time.Now()
	callCtx, cancel := e.withConvertTimeout(jobCtx)
	rendered, err := e.deps.Converter.Convert(callCtx, job.SourcePath, e.renderedPath(job))
	err = services.FromContext(callCtx, "convert", "gotenberg", err)
	cancel()
	metrics.ConversionDurationSeconds.Observe(time.Since(started).Seconds())
	if err != nil {
		e.fail(jobCtx, job, err, e.now())
		return
	}
	job.RenderedPath = rendered
	job.UpdatedAt = e.now()
	logger.Info("document converted",
		logging.String("rendered_path", rendered),
		logging.String(logging.FieldEventType, "conversion_completed"),
	)
}

func (e *Engine) submit(ctx context.Context, job *queue.Job, now time.Time) {
	jobCtx := jobContext(ctx, job, "print")
	logger := logging.WithContext(jobCtx, e.logger)

	job.Settings = e.deps.Settings.Resolve(job.Name())
	callCtx, cancel := e.withCallTimeout(jobCtx)
	handle, err := e.deps.Printer.Submit(callCtx, job.PrintPath(), job.Settings)
	err = services.FromContext(callCtx, "print", "submit", err)
	cancel()
	if err != nil {
		e.fail(jobCtx, job, err, e.now())
		return
	}

	job.Handle = handle
	job.LastAttemptStartedAt = now
	if err := job.Transition(queue.StatusPrinting, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
		return
	}
	logger.Info("print job submitted",
		logging.String("handle", handle),
		logging.Int(logging.FieldAttempt, job.Attempts+1),
		logging.Int("copies", job.Settings.Copies),
		logging.Bool("duplex", job.Settings.Duplex),
		logging.String("paper_size", job.Settings.PaperSize),
		logging.String(logging.FieldEventType, "print_submitted"),
	)
}

// advancePrinting polls the active job and fails it once the job timeout has
// elapsed without confirmation.
func (e *Engine) advancePrinting(ctx context.Context, job *queue.Job, now time.Time) {
	jobCtx := jobContext(ctx, job, "print")
	logger := logging.WithContext(jobCtx, e.logger)

	elapsed := now.Sub(job.LastAttemptStartedAt)
	if e.jobTimeout > 0 && elapsed >= e.jobTimeout {
		e.cancelPrint(jobCtx, job)
		e.fail(jobCtx, job, services.Wrap(services.ErrTimeout, "print", "await completion",
			fmt.Sprintf("No completion confirmed within %s", e.jobTimeout), nil), now)
		return
	}

	callCtx, cancel := e.withCallTimeout(jobCtx)
	status, err := e.deps.Printer.Poll(callCtx, job.Handle)
	err = services.FromContext(callCtx, "print", "poll", err)
	cancel()
	if err != nil {
		e.cancelPrint(jobCtx, job)
		e.fail(jobCtx, job, err, now)
		return
	}

	switch status.Phase {
	case services.PrintSucceeded:
		metrics.PrintDurationSeconds.Observe(elapsed.Seconds())
		if err := job.Transition(queue.StatusCompleted, now); err != nil {
			logger.Error("unexpected transition", logging.Error(err))
			return
		}
		logger.Info("print confirmed",
			logging.Duration("elapsed", elapsed),
			logging.String(logging.FieldEventType, "print_completed"),
		)
		e.complete(jobCtx, job, now)
	case services.PrintFailed:
		failure := status.Err
		if failure == nil {
			failure = services.Wrap(services.ErrTransientDevice, "print", "poll", "Printer reported the job failed", nil)
		}
		e.fail(jobCtx, job, failure, now)
	default:
		logger.Debug("print in progress", logging.Duration("elapsed", elapsed))
	}
}

// cancelPrint withdraws a job that is being given up on so the retry does
// not produce a second copy. Errors are logged only.
func (e *Engine) cancelPrint(ctx context.Context, job *queue.Job) {
	canceler, ok := e.deps.Printer.(Canceler)
	if !ok || job.Handle == "" {
		return
	}
	callCtx, cancel := e.withCallTimeout(ctx)
	defer cancel()
	if err := canceler.Cancel(callCtx, job.Handle); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "failed to cancel print job", "print_cancel_failed",
			logging.Error(err),
			logging.String("handle", job.Handle),
			logging.String(logging.FieldErrorHint, "cancel the job manually with `cancel "+job.Handle+"`"),
			logging.String(logging.FieldImpact, "the document may print twice"),
		)
	}
}

func jobContext(ctx context.Context, job *queue.Job, stage string) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithSource(ctx, job.SourcePath)
	return services.WithStage(ctx, stage)
}
