package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientDevice     = errors.New("transient device error")
	ErrTransientLink       = errors.New("transient link error")
	ErrConversion          = errors.New("conversion error")
	ErrUnsupportedDocument = errors.New("unsupported document")
	ErrTimeout             = errors.New("timeout")
	ErrArchival            = errors.New("archival error")
	ErrConfiguration       = errors.New("configuration error")
)

// FailureClass tells the engine whether a failed job may be retried.
type FailureClass string

const (
	ClassTransient FailureClass = "transient"
	ClassPermanent FailureClass = "permanent"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent tags err so Classify reports it as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	var existing *permanentError
	if errors.As(err, &existing) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries a permanent failure tag.
func IsPermanent(err error) bool {
	return Classify(err) == ClassPermanent
}

// Classify maps a collaborator error to its failure class. Errors are
// transient unless tagged with Permanent or marked as an unsupported document
// or configuration problem.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassTransient
	}
	var perm *permanentError
	switch {
	case errors.As(err, &perm),
		errors.Is(err, ErrUnsupportedDocument),
		errors.Is(err, ErrConfiguration):
		return ClassPermanent
	default:
		return ClassTransient
	}
}

// Kind returns the taxonomy name recorded in logs and the history ledger.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedDocument):
		return "UnsupportedDocument"
	case errors.Is(err, ErrConversion):
		return "ConversionError"
	case errors.Is(err, ErrTimeout):
		return "TimeoutError"
	case errors.Is(err, ErrTransientLink):
		return "TransientLinkError"
	case errors.Is(err, ErrTransientDevice):
		return "TransientDeviceError"
	case errors.Is(err, ErrArchival):
		return "ArchivalError"
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	default:
		return "UnknownError"
	}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransientDevice
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FromContext converts a deadline expiry on ctx (or inside err) into a
// TimeoutError. Other errors are returned unchanged.
func FromContext(ctx context.Context, stage, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	deadline := errors.Is(err, context.DeadlineExceeded)
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		deadline = true
	}
	if !deadline {
		return err
	}
	return Wrap(ErrTimeout, stage, operation, "call exceeded its timeout", err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
