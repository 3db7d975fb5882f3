package engine

import (
	"context"

	"autoprint/internal/archive"
	"autoprint/internal/ledger"
	"autoprint/internal/printsettings"
	"autoprint/internal/services"
)

// NetworkGate reports whether the link to the printer is usable. A false
// result should carry an error explaining why.
type NetworkGate interface {
	Ready(ctx context.Context) (bool, error)
}

// PrinterGate submits documents and reports device and job state.
type PrinterGate interface {
	Status(ctx context.Context) (services.PrinterStatus, error)
	Submit(ctx context.Context, path string, settings printsettings.Settings) (string, error)
	Poll(ctx context.Context, handle string) (services.PrintStatus, error)
}

// Canceler is implemented by printer gates that can withdraw a submitted job.
type Canceler interface {
	Cancel(ctx context.Context, handle string) error
}

// Converter renders a document to PDF at dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) (string, error)
}

// Archiver relocates documents out of the intake directory.
type Archiver interface {
	Relocate(ctx context.Context, req archive.Request) (string, error)
}

// Recorder appends terminal outcomes to the history ledger.
type Recorder interface {
	Append(ctx context.Context, rec ledger.Record) (int64, error)
}
