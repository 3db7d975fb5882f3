package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

var (
	validPaperSizes   = []string{"A4", "A5", "LETTER", "LEGAL"}
	validDuplexModes  = []string{"long-edge", "short-edge"}
	validOrientations = []string{"portrait", "landscape"}
	validLogFormats   = []string{"console", "json"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePrinter(); err != nil {
		return err
	}
	if err := c.validatePrintSettings(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	intake := filepath.Clean(c.Paths.IntakeDir)
	for key, dir := range map[string]string{
		"paths.archive_dir":   c.Paths.ArchiveDir,
		"paths.converted_dir": c.Paths.ConvertedDir,
		"paths.failed_dir":    c.Paths.FailedDir,
	} {
		if filepath.Clean(dir) == intake {
			return fmt.Errorf("%s must differ from paths.intake_dir", key)
		}
	}
	if filepath.Clean(c.Paths.StateDir) == intake {
		return errors.New("paths.state_dir must differ from paths.intake_dir")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if len(c.Intake.AllowedExtensions) == 0 {
		return errors.New("intake.allowed_extensions must include at least one extension")
	}
	for _, ext := range c.Intake.DirectExtensions {
		if slices.Contains(c.Intake.ConvertExtensions, ext) {
			return fmt.Errorf("extension %q cannot be both a direct and a convert extension", ext)
		}
	}
	return ensurePositiveMap(map[string]int{
		"intake.poll_interval": c.Intake.PollInterval,
		"intake.stable_polls":  c.Intake.StablePolls,
	})
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.tick_interval":        c.Workflow.TickInterval,
		"workflow.job_timeout":          c.Workflow.JobTimeout,
		"workflow.call_timeout":         c.Workflow.CallTimeout,
		"workflow.max_attempts":         c.Workflow.MaxAttempts,
		"conversion.timeout":            c.Conversion.Timeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"printer.status_timeout":        c.Printer.StatusTimeout,
		"conversion.breaker_failures":   c.Conversion.BreakerFailures,
		"conversion.breaker_cooldown":   c.Conversion.BreakerCooldown,
	}); err != nil {
		return err
	}
	if c.Workflow.RetryBackoff < 0 {
		return errors.New("workflow.retry_backoff must be >= 0")
	}
	if c.Workflow.RetryBackoffMax < 0 {
		return errors.New("workflow.retry_backoff_max must be >= 0")
	}
	return nil
}

func (c *Config) validatePrinter() error {
	if strings.TrimSpace(c.Printer.Name) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("printer.name is required. Set AUTOPRINT_PRINTER env var or edit %s (create with 'autoprint config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePrintSettings() error {
	ps := c.PrintSettings
	if ps.Copies < 1 {
		return errors.New("print_settings.copies must be >= 1")
	}
	if !slices.Contains(validPaperSizes, ps.PaperSize) {
		return fmt.Errorf("print_settings.paper_size %q is not one of %s", ps.PaperSize, strings.Join(validPaperSizes, ", "))
	}
	if !slices.Contains(validDuplexModes, ps.DuplexMode) {
		return fmt.Errorf("print_settings.duplex_mode %q is not one of %s", ps.DuplexMode, strings.Join(validDuplexModes, ", "))
	}
	if !slices.Contains(validOrientations, ps.Orientation) {
		return fmt.Errorf("print_settings.orientation %q is not one of %s", ps.Orientation, strings.Join(validOrientations, ", "))
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	if !slices.Contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format %q is not one of %s", c.Logging.Format, strings.Join(validLogFormats, ", "))
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not one of %s", c.Logging.Level, strings.Join(validLogLevels, ", "))
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
