package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autoprint/internal/archive"
	"autoprint/internal/ledger"
	"autoprint/internal/logging"
	"autoprint/internal/metrics"
	"autoprint/internal/queue"
	"autoprint/internal/services"
)

// fail routes a failed job to a retry or to the failed folder. Permanent
// failures never consume an attempt.
func (e *Engine) fail(ctx context.Context, job *queue.Job, cause error, now time.Time) {
	logger := logging.WithContext(ctx, e.logger)
	class := services.Classify(cause)
	kind := services.Kind(cause)

	job.Handle = ""
	job.LastError = cause.Error()
	job.ErrorKind = kind
	job.FailureClass = string(class)
	if err := job.Transition(queue.StatusFailed, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
		return
	}
	metrics.JobFailuresTotal.WithLabelValues(kind, string(class)).Inc()

	if class == services.ClassPermanent {
		logging.WarnWithContext(logger, "job failed permanently", "job_failed_permanent",
			logging.Error(cause),
			logging.String(logging.FieldErrorKind, kind),
			logging.String(logging.FieldFailureClass, string(class)),
			logging.String(logging.FieldErrorHint, "inspect the document in the failed folder"),
			logging.String(logging.FieldImpact, "document will not be printed"),
		)
		e.failForReview(ctx, job, now)
		return
	}

	job.Attempts++
	if job.Attempts >= job.MaxAttempts {
		logging.WarnWithContext(logger, "job exhausted its attempts", "job_attempts_exhausted",
			logging.Error(cause),
			logging.Int(logging.FieldAttempt, job.Attempts),
			logging.Int("max_attempts", job.MaxAttempts),
			logging.String(logging.FieldErrorKind, kind),
			logging.String(logging.FieldFailureClass, string(class)),
			logging.String(logging.FieldErrorHint, "check the printer and network, then drop the document in the intake folder again"),
			logging.String(logging.FieldImpact, "document will not be printed"),
		)
		e.failForReview(ctx, job, now)
		return
	}

	if err := job.Transition(queue.StatusRetrying, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
		return
	}
	delay := e.backoff(job.Attempts)
	job.NotBefore = now.Add(delay)
	if err := job.Transition(queue.StatusPending, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
		return
	}
	e.queue.Requeue(job, now)
	e.totals.Retried++
	metrics.JobsRetriedTotal.Inc()
	logging.WarnWithContext(logger, "job failed; retrying", "job_retry_scheduled",
		logging.Error(cause),
		logging.Int(logging.FieldAttempt, job.Attempts),
		logging.Int("max_attempts", job.MaxAttempts),
		logging.Duration("backoff", delay),
		logging.Time("not_before", job.NotBefore),
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldFailureClass, string(class)),
		logging.String(logging.FieldErrorHint, "transient failure; no action needed unless it repeats"),
		logging.String(logging.FieldImpact, "job moved to the back of the queue"),
	)
}

// failForReview marks the job PermanentlyFailed and moves its source to the
// failed folder. A relocation failure leaves the file in place.
func (e *Engine) failForReview(ctx context.Context, job *queue.Job, now time.Time) {
	logger := logging.WithContext(ctx, e.logger)
	if err := job.Transition(queue.StatusPermanentlyFailed, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
		return
	}
	e.queue.Remove(job.ID)
	e.removeRendered(job)

	rec := e.record(job, ledger.OutcomeFailed, archive.DestinationFailed, now)
	final, err := e.deps.Archiver.Relocate(ctx, archive.Request{Source: job.SourcePath, Destination: archive.DestinationFailed})
	if err != nil {
		e.archivalProblem(ctx, job, err)
		rec.ErrorMessage = joinMessages(rec.ErrorMessage, err.Error())
	} else {
		rec.FinalPath = final
	}
	e.totals.FailedReview++
	metrics.JobsFinishedTotal.WithLabelValues(string(ledger.OutcomeFailed)).Inc()
	e.appendRecord(ctx, rec)

	logger.Info("job moved to failed folder",
		logging.String("final_path", final),
		logging.Int(logging.FieldAttempt, job.Attempts),
		logging.String(logging.FieldStatus, string(job.Status)),
		logging.String(logging.FieldEventType, "job_failed_for_review"),
	)
	if err := e.deps.Notifier.NotifyFailedForReview(ctx, job.Name(), job.ErrorKind, job.LastError); err != nil {
		logger.Debug("failure notification not delivered", logging.Error(err))
	}
}

// complete archives a printed job. A converted job's original goes to the
// converted-original folder and its rendered PDF to the success archive. On
// an archival error the job stays Completed and the files are left for
// manual cleanup.
func (e *Engine) complete(ctx context.Context, job *queue.Job, now time.Time) {
	logger := logging.WithContext(ctx, e.logger)
	e.queue.Remove(job.ID)
	e.totals.Printed++
	metrics.JobsFinishedTotal.WithLabelValues(string(ledger.OutcomePrinted)).Inc()

	rec := e.record(job, ledger.OutcomePrinted, archive.DestinationSuccess, now)
	var archiveErr error
	if job.RenderedPath != "" {
		original, err := e.deps.Archiver.Relocate(ctx, archive.Request{Source: job.SourcePath, Destination: archive.DestinationConvertedOriginal})
		if err != nil {
			archiveErr = err
		} else {
			logger.Debug("original archived", logging.String("final_path", original))
		}
		name := strings.TrimSuffix(job.Name(), filepath.Ext(job.Name())) + ".pdf"
		final, err := e.deps.Archiver.Relocate(ctx, archive.Request{Source: job.RenderedPath, Destination: archive.DestinationSuccess, Name: name})
		if err != nil {
			archiveErr = errors.Join(archiveErr, err)
		} else {
			rec.FinalPath = final
		}
	} else {
		final, err := e.deps.Archiver.Relocate(ctx, archive.Request{Source: job.SourcePath, Destination: archive.DestinationSuccess})
		if err != nil {
			archiveErr = err
		} else {
			rec.FinalPath = final
		}
	}

	if archiveErr != nil {
		e.archivalProblem(ctx, job, archiveErr)
		rec.ErrorKind = services.Kind(archiveErr)
		rec.ErrorMessage = archiveErr.Error()
		e.appendRecord(ctx, rec)
		return
	}

	if err := job.Transition(queue.StatusArchived, now); err != nil {
		logger.Error("unexpected transition", logging.Error(err))
	}
	e.appendRecord(ctx, rec)
	logger.Info("job archived",
		logging.String("final_path", rec.FinalPath),
		logging.String(logging.FieldStatus, string(job.Status)),
		logging.String(logging.FieldEventType, "job_archived"),
	)
	if err := e.deps.Notifier.NotifyPrinted(ctx, job.Name(), rec.FinalPath); err != nil {
		logger.Debug("printed notification not delivered", logging.Error(err))
	}
}

func (e *Engine) archivalProblem(ctx context.Context, job *queue.Job, err error) {
	e.totals.ArchivalErrors++
	metrics.ArchivalErrorsTotal.Inc()
	logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "document could not be relocated", "archival_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, "move the file out of the intake folder manually"),
		logging.String(logging.FieldImpact, "file left in place; it is not printed again until the daemon restarts"),
	)
	if notifyErr := e.deps.Notifier.NotifyArchivalProblem(ctx, job.Name(), err); notifyErr != nil {
		e.logger.Debug("archive notification not delivered", logging.Error(notifyErr))
	}
}

func (e *Engine) record(job *queue.Job, outcome ledger.Outcome, dest archive.Destination, now time.Time) ledger.Record {
	return ledger.Record{
		JobID:        job.ID,
		SourcePath:   job.SourcePath,
		Kind:         string(job.Kind),
		Outcome:      outcome,
		Destination:  string(dest),
		Attempts:     job.Attempts,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.LastError,
		EnqueuedAt:   job.EnqueuedAt,
		FinishedAt:   now,
	}
}

// appendRecord writes to the history ledger. Ledger errors never affect the job.
func (e *Engine) appendRecord(ctx context.Context, rec ledger.Record) {
	if e.deps.Ledger == nil {
		return
	}
	callCtx, cancel := e.withCallTimeout(ctx)
	defer cancel()
	if _, err := e.deps.Ledger.Append(callCtx, rec); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "history ledger write failed", "ledger_append_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check disk space and permissions on the state directory"),
			logging.String(logging.FieldImpact, "outcome missing from `autoprint history`"),
		)
	}
}

func (e *Engine) removeRendered(job *queue.Job) {
	if job.RenderedPath == "" {
		return
	}
	if err := os.Remove(job.RenderedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Debug("rendered document not removed", logging.Error(err), logging.String("path", job.RenderedPath))
	}
	job.RenderedPath = ""
}

func joinMessages(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
