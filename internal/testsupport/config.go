package testsupport

import (
	"path/filepath"
	"testing"

	"autoprint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry backoff is disabled so retried jobs are eligible on the next tick.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	intakeDir := filepath.Join(base, "inbox")
	cfgVal.Paths.IntakeDir = intakeDir
	cfgVal.Paths.ArchiveDir = filepath.Join(intakeDir, "PRINTED")
	cfgVal.Paths.ConvertedDir = filepath.Join(intakeDir, "CONVERTED")
	cfgVal.Paths.FailedDir = filepath.Join(intakeDir, "FAILED")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OverridesFile = filepath.Join(base, "overrides.yaml")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Printer.Name = "Test_Printer"
	cfgVal.Workflow.RetryBackoff = 0
	cfgVal.Network.MonitorEvents = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxAttempts = n
	}
}

// WithJobTimeout overrides the Printing timeout in seconds.
func WithJobTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.JobTimeout = seconds
	}
}

// WithRetryBackoff sets the base and maximum retry backoff in seconds.
func WithRetryBackoff(base, maxSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.RetryBackoff = base
		b.cfg.Workflow.RetryBackoffMax = maxSeconds
	}
}

// WithTimeouts sets the per-call and conversion timeouts in seconds.
func WithTimeouts(callSeconds, conversionSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.CallTimeout = callSeconds
		b.cfg.Conversion.Timeout = conversionSeconds
	}
}

// WithConversionDisabled routes convertible documents to rejection.
func WithConversionDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intake.ConversionEnabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
