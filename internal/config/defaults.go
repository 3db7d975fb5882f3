package config

const (
	defaultConfigPath        = "~/.config/autoprint/config.toml"
	defaultIntakeDir         = "~/autoprint/inbox"
	defaultStateDir          = "~/.local/share/autoprint"
	defaultLogDir            = "~/.local/share/autoprint/logs"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultPrintedFolder     = "PRINTED"
	defaultConvertedFolder   = "CONVERTED"
	defaultFailedFolder      = "FAILED"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultPollInterval      = 2
	defaultStablePolls       = 2
	defaultTickInterval      = 5
	defaultJobTimeout        = 600
	defaultCallTimeout       = 30
	defaultMaxAttempts       = 3
	defaultRetryBackoff      = 10
	defaultRetryBackoffMax   = 300
	defaultLPBinary          = "lp"
	defaultLPStatBinary      = "lpstat"
	defaultCancelBinary      = "cancel"
	defaultStatusTimeout     = 10
	defaultSysfsRoot         = "/sys/class/net"
	defaultSSIDProbeBinary   = "iwgetid"
	defaultGotenbergURL      = "http://localhost:3000"
	defaultConversionTimeout = 30
	defaultBreakerFailures   = 3
	defaultBreakerCooldown   = 60
	defaultNotifyTimeout     = 10
	defaultPaperSize         = "A4"
	defaultDuplexMode        = "long-edge"
	defaultOrientation       = "portrait"
)

var (
	defaultDirectExtensions  = []string{".pdf"}
	defaultConvertExtensions = []string{".docx"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IntakeDir: defaultIntakeDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Intake: Intake{
			AllowedExtensions: append(append([]string(nil), defaultDirectExtensions...), defaultConvertExtensions...),
			DirectExtensions:  append([]string(nil), defaultDirectExtensions...),
			ConvertExtensions: append([]string(nil), defaultConvertExtensions...),
			ConversionEnabled: true,
			PollInterval:      defaultPollInterval,
			StablePolls:       defaultStablePolls,
		},
		Workflow: Workflow{
			TickInterval:    defaultTickInterval,
			JobTimeout:      defaultJobTimeout,
			CallTimeout:     defaultCallTimeout,
			MaxAttempts:     defaultMaxAttempts,
			RetryBackoff:    defaultRetryBackoff,
			RetryBackoffMax: defaultRetryBackoffMax,
		},
		Printer: Printer{
			LPBinary:      defaultLPBinary,
			LPStatBinary:  defaultLPStatBinary,
			CancelBinary:  defaultCancelBinary,
			StatusTimeout: defaultStatusTimeout,
		},
		Network: Network{
			SysfsRoot:       defaultSysfsRoot,
			SSIDProbeBinary: defaultSSIDProbeBinary,
			MonitorEvents:   true,
		},
		Conversion: Conversion{
			URL:             defaultGotenbergURL,
			Timeout:         defaultConversionTimeout,
			BreakerFailures: defaultBreakerFailures,
			BreakerCooldown: defaultBreakerCooldown,
		},
		PrintSettings: PrintSettings{
			Copies:      1,
			DuplexMode:  defaultDuplexMode,
			PaperSize:   defaultPaperSize,
			Orientation: defaultOrientation,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Printed:        true,
			Failed:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
