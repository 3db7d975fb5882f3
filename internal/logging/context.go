package logging

import (
	"context"
	"log/slog"

	"autoprint/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the line (engine, intake, archive...).
	FieldComponent = "component"
	// FieldJobID is the print job identifier.
	FieldJobID = "job_id"
	// FieldSource is the path of the document in the intake directory.
	FieldSource = "source"
	// FieldStage is the pipeline step (convert, print, archive).
	FieldStage = "stage"
	// FieldStatus is the job status after a transition.
	FieldStatus = "status"
	// FieldAttempt is the job's consumed transient-failure count.
	FieldAttempt = "attempt"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorKind is the error taxonomy name (TimeoutError, ConversionError...).
	FieldErrorKind = "error_kind"
	// FieldFailureClass is transient or permanent.
	FieldFailureClass = "failure_class"
	// FieldCorrelationID is the status API request identifier.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if src, ok := services.SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, src))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
