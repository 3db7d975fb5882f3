package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	IntakeDir     string `toml:"intake_dir"`
	ArchiveDir    string `toml:"archive_dir"`
	ConvertedDir  string `toml:"converted_dir"`
	FailedDir     string `toml:"failed_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	OverridesFile string `toml:"overrides_file"`
	APIBind       string `toml:"api_bind"`
}

// Intake contains configuration for the intake directory watcher and document classifier.
type Intake struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
	DirectExtensions  []string `toml:"direct_extensions"`
	ConvertExtensions []string `toml:"convert_extensions"`
	ConversionEnabled bool     `toml:"conversion_enabled"`
	PollInterval      int      `toml:"poll_interval"`
	StablePolls       int      `toml:"stable_polls"`
}

// Workflow contains configuration for the engine control loop and retry policy.
// All durations are expressed in seconds.
type Workflow struct {
	TickInterval    int `toml:"tick_interval"`
	JobTimeout      int `toml:"job_timeout"`
	CallTimeout     int `toml:"call_timeout"`
	MaxAttempts     int `toml:"max_attempts"`
	RetryBackoff    int `toml:"retry_backoff"`
	RetryBackoffMax int `toml:"retry_backoff_max"`
}

// Printer contains configuration for the CUPS print queue.
type Printer struct {
	Name          string `toml:"name"`
	LPBinary      string `toml:"lp_binary"`
	LPStatBinary  string `toml:"lpstat_binary"`
	CancelBinary  string `toml:"cancel_binary"`
	StatusTimeout int    `toml:"status_timeout"`
}

// Network contains configuration for the wireless link readiness check.
type Network struct {
	Interface       string `toml:"interface"`
	SSID            string `toml:"ssid"`
	SysfsRoot       string `toml:"sysfs_root"`
	SSIDProbeBinary string `toml:"ssid_probe_binary"`
	MonitorEvents   bool   `toml:"monitor_events"`
}

// Conversion contains configuration for the Gotenberg document conversion service.
type Conversion struct {
	URL             string `toml:"url"`
	Timeout         int    `toml:"timeout"`
	BreakerFailures int    `toml:"breaker_failures"`
	BreakerCooldown int    `toml:"breaker_cooldown"`
}

// PrintSettings contains the global print defaults. Per-document overrides
// replace individual keys of this table.
type PrintSettings struct {
	Copies      int    `toml:"copies"`
	Duplex      bool   `toml:"duplex"`
	DuplexMode  string `toml:"duplex_mode"`
	PaperSize   string `toml:"paper_size"`
	Color       bool   `toml:"color"`
	TonerSave   bool   `toml:"toner_save"`
	Orientation string `toml:"orientation"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Printed        bool   `toml:"printed"`
	Failed         bool   `toml:"failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for autoprint.
//
// Configuration sections by subsystem:
//   - Paths: intake, archive and state directories plus the status API bind address
//   - Intake: watched extensions, stability polling and conversion routing
//   - Workflow: engine tick interval, job timeout and retry policy
//   - Printer: CUPS queue name and tool binaries
//   - Network: wireless interface readiness
//   - Conversion: Gotenberg endpoint and circuit breaker
//   - PrintSettings: global print defaults
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Intake        Intake        `toml:"intake"`
	Workflow      Workflow      `toml:"workflow"`
	Printer       Printer       `toml:"printer"`
	Network       Network       `toml:"network"`
	Conversion    Conversion    `toml:"conversion"`
	PrintSettings PrintSettings `toml:"print_settings"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autoprint.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the intake, archive and state directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.IntakeDir,
		c.Paths.ArchiveDir,
		c.Paths.ConvertedDir,
		c.Paths.FailedDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
		c.RenderedDir(),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RenderedDir is where converted documents are written before printing.
// It lives outside the intake directory so the watcher never sees them.
func (c *Config) RenderedDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "rendered")
}

// LedgerPath returns the SQLite history database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "autoprint.lock")
}

// TickIntervalDuration returns the engine control loop interval.
func (w Workflow) TickIntervalDuration() time.Duration {
	return seconds(w.TickInterval)
}

// JobTimeoutDuration returns the maximum time a job may spend in Printing.
func (w Workflow) JobTimeoutDuration() time.Duration {
	return seconds(w.JobTimeout)
}

// CallTimeoutDuration bounds each individual gate, submit, or poll call.
func (w Workflow) CallTimeoutDuration() time.Duration {
	return seconds(w.CallTimeout)
}

// RetryBackoffDuration returns the base delay before a retried job becomes eligible.
func (w Workflow) RetryBackoffDuration() time.Duration {
	return seconds(w.RetryBackoff)
}

// RetryBackoffMaxDuration caps the exponential retry backoff.
func (w Workflow) RetryBackoffMaxDuration() time.Duration {
	return seconds(w.RetryBackoffMax)
}

// TimeoutDuration bounds one document conversion.
func (c Conversion) TimeoutDuration() time.Duration {
	return seconds(c.Timeout)
}

// PollIntervalDuration returns the intake directory scan interval.
func (i Intake) PollIntervalDuration() time.Duration {
	return seconds(i.PollInterval)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}
