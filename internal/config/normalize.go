package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultOverridesFile = "~/.config/autoprint/overrides.yaml"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeWorkflow()
	c.normalizePrinter()
	c.normalizeNetwork()
	c.normalizeConversion()
	c.normalizePrintSettings()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.IntakeDir) == "" {
		c.Paths.IntakeDir = defaultIntakeDir
	}
	if c.Paths.IntakeDir, err = expandPath(c.Paths.IntakeDir); err != nil {
		return fmt.Errorf("paths.intake_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = filepath.Join(c.Paths.IntakeDir, defaultPrintedFolder)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ConvertedDir) == "" {
		c.Paths.ConvertedDir = filepath.Join(c.Paths.IntakeDir, defaultConvertedFolder)
	}
	if c.Paths.ConvertedDir, err = expandPath(c.Paths.ConvertedDir); err != nil {
		return fmt.Errorf("paths.converted_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FailedDir) == "" {
		c.Paths.FailedDir = filepath.Join(c.Paths.IntakeDir, defaultFailedFolder)
	}
	if c.Paths.FailedDir, err = expandPath(c.Paths.FailedDir); err != nil {
		return fmt.Errorf("paths.failed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OverridesFile) == "" {
		c.Paths.OverridesFile = defaultOverridesFile
	}
	if c.Paths.OverridesFile, err = expandPath(c.Paths.OverridesFile); err != nil {
		return fmt.Errorf("paths.overrides_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeIntake() {
	c.Intake.DirectExtensions = normalizeExtensions(c.Intake.DirectExtensions)
	if len(c.Intake.DirectExtensions) == 0 {
		c.Intake.DirectExtensions = append([]string(nil), defaultDirectExtensions...)
	}
	c.Intake.ConvertExtensions = normalizeExtensions(c.Intake.ConvertExtensions)
	// Every routed extension is watched.
	combined := append([]string(nil), c.Intake.AllowedExtensions...)
	combined = append(combined, c.Intake.DirectExtensions...)
	combined = append(combined, c.Intake.ConvertExtensions...)
	c.Intake.AllowedExtensions = normalizeExtensions(combined)
	if c.Intake.PollInterval <= 0 {
		c.Intake.PollInterval = defaultPollInterval
	}
	if c.Intake.StablePolls <= 0 {
		c.Intake.StablePolls = defaultStablePolls
	}
}

// NormalizeExtension lower-cases an extension and ensures the leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func normalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := NormalizeExtension(value)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.TickInterval <= 0 {
		c.Workflow.TickInterval = defaultTickInterval
	}
	if c.Workflow.CallTimeout <= 0 {
		c.Workflow.CallTimeout = defaultCallTimeout
	}
	if c.Workflow.RetryBackoffMax > 0 && c.Workflow.RetryBackoffMax < c.Workflow.RetryBackoff {
		c.Workflow.RetryBackoffMax = c.Workflow.RetryBackoff
	}
}

func (c *Config) normalizePrinter() {
	c.Printer.Name = strings.TrimSpace(c.Printer.Name)
	if c.Printer.Name == "" {
		if value, ok := os.LookupEnv("AUTOPRINT_PRINTER"); ok {
			c.Printer.Name = strings.TrimSpace(value)
		}
	}
	c.Printer.LPBinary = defaultString(c.Printer.LPBinary, defaultLPBinary)
	c.Printer.LPStatBinary = defaultString(c.Printer.LPStatBinary, defaultLPStatBinary)
	c.Printer.CancelBinary = defaultString(c.Printer.CancelBinary, defaultCancelBinary)
	if c.Printer.StatusTimeout <= 0 {
		c.Printer.StatusTimeout = defaultStatusTimeout
	}
}

func (c *Config) normalizeNetwork() {
	c.Network.Interface = strings.TrimSpace(c.Network.Interface)
	c.Network.SSID = strings.TrimSpace(c.Network.SSID)
	c.Network.SysfsRoot = defaultString(c.Network.SysfsRoot, defaultSysfsRoot)
	c.Network.SSIDProbeBinary = defaultString(c.Network.SSIDProbeBinary, defaultSSIDProbeBinary)
}

func (c *Config) normalizeConversion() {
	c.Conversion.URL = strings.TrimSpace(c.Conversion.URL)
	if value, ok := os.LookupEnv("GOTENBERG_URL"); ok && strings.TrimSpace(value) != "" {
		c.Conversion.URL = strings.TrimSpace(value)
	}
	if c.Conversion.URL == "" {
		c.Conversion.URL = defaultGotenbergURL
	}
	c.Conversion.URL = strings.TrimRight(c.Conversion.URL, "/")
	if c.Conversion.Timeout <= 0 {
		c.Conversion.Timeout = defaultConversionTimeout
	}
	if c.Conversion.BreakerFailures <= 0 {
		c.Conversion.BreakerFailures = defaultBreakerFailures
	}
	if c.Conversion.BreakerCooldown <= 0 {
		c.Conversion.BreakerCooldown = defaultBreakerCooldown
	}
}

func (c *Config) normalizePrintSettings() {
	c.PrintSettings.PaperSize = strings.ToUpper(strings.TrimSpace(c.PrintSettings.PaperSize))
	if c.PrintSettings.PaperSize == "" {
		c.PrintSettings.PaperSize = defaultPaperSize
	}
	c.PrintSettings.DuplexMode = strings.ToLower(strings.TrimSpace(c.PrintSettings.DuplexMode))
	if c.PrintSettings.DuplexMode == "" {
		c.PrintSettings.DuplexMode = defaultDuplexMode
	}
	c.PrintSettings.Orientation = strings.ToLower(strings.TrimSpace(c.PrintSettings.Orientation))
	if c.PrintSettings.Orientation == "" {
		c.PrintSettings.Orientation = defaultOrientation
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("AUTOPRINT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
