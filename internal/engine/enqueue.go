package engine

import (
	"context"
	"errors"
	"os"

	"autoprint/internal/document"
	"autoprint/internal/intake"
	"autoprint/internal/logging"
	"autoprint/internal/metrics"
	"autoprint/internal/queue"
	"autoprint/internal/services"
)

// Enqueue classifies a candidate file and adds a job for it. Rejected
// documents become jobs that fail permanently right away so the file lands in
// the failed folder. Files already covered by a live job are ignored.
func (e *Engine) Enqueue(ctx context.Context, evt intake.Event) *queue.Job {
	now := e.now()
	if e.queue.ContainsSource(evt.Path) {
		e.logger.Debug("candidate already queued", logging.String(logging.FieldSource, evt.Path))
		return nil
	}

	class, err := e.deps.Classifier.Classify(evt.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.logger.Debug("candidate vanished before classification", logging.String(logging.FieldSource, evt.Path))
			return nil
		}
		class.Kind = document.KindRejected
		class.Reason = "file is not readable: " + err.Error()
	}

	job := queue.NewJob(evt.Path, class.Kind, evt.FirstSeen, e.maxAttempts, now)
	job.Settings = e.deps.Settings.Resolve(job.Name())
	e.queue.Push(job)
	metrics.JobsEnqueuedTotal.WithLabelValues(string(class.Kind)).Inc()

	jobCtx := services.WithSource(services.WithJobID(ctx, job.ID), job.SourcePath)
	logger := logging.WithContext(jobCtx, e.logger)
	logger.Info("job enqueued",
		logging.String("kind", string(job.Kind)),
		logging.Int("queue_length", e.queue.Len()),
		logging.String(logging.FieldStatus, string(job.Status)),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)

	if class.Kind == document.KindRejected {
		e.fail(jobCtx, job, class.Err(), now)
	}
	e.publish(e.now())
	return job
}
