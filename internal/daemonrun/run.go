// Package daemonrun builds the autoprint component graph from configuration
// and runs the daemon until a termination signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"autoprint/internal/archive"
	"autoprint/internal/config"
	"autoprint/internal/daemon"
	"autoprint/internal/deps"
	"autoprint/internal/document"
	"autoprint/internal/engine"
	"autoprint/internal/intake"
	"autoprint/internal/ledger"
	"autoprint/internal/logging"
	"autoprint/internal/netlink"
	"autoprint/internal/notifications"
	"autoprint/internal/printsettings"
	"autoprint/internal/services/cups"
	"autoprint/internal/services/gotenberg"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the autoprint daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("autoprint-%s.log", runID))
	logger, err := logging.NewFromConfig(&runCfg, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "ledger_open_failed",
			logging.Error(err),
			logging.String("path", cfg.LedgerPath()),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "terminal outcomes are logged but not recorded in history"),
		)
		store = nil
	}

	comp, conv, err := Build(cfg, logger, store)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return err
	}

	dependencies := logDependencySnapshot(signalCtx, logger, cfg, conv)

	d, err := daemon.New(cfg, comp, logger, dependencies)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("autoprint daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// Build constructs the engine and its collaborators. The returned converter
// is nil when conversion is disabled.
func Build(cfg *config.Config, logger *slog.Logger, store *ledger.Store) (daemon.Components, *gotenberg.Client, error) {
	printer, err := cups.New(cfg.Printer)
	if err != nil {
		return daemon.Components{}, nil, fmt.Errorf("printer gate: %w", err)
	}

	settings := printsettings.NewStore(cfg.Paths.OverridesFile, printsettings.FromConfig(cfg.PrintSettings), logger)
	if err := settings.Refresh(); err != nil {
		logging.WarnWithContext(logger, "override file rejected at startup", "overrides_invalid",
			logging.Error(err),
			logging.String("path", settings.Path()),
			logging.String(logging.FieldErrorHint, "fix the override file; it is re-read when it changes"),
			logging.String(logging.FieldImpact, "documents print with the global defaults"),
		)
	}

	engineDeps := engine.Dependencies{
		Network:    netlink.NewGate(cfg.Network),
		Printer:    printer,
		Archiver:   archive.New(cfg.Paths, logger),
		Classifier: document.NewClassifier(cfg.Intake),
		Settings:   settings,
		Notifier:   notifications.NewService(cfg.Notifications),
	}
	if store != nil {
		engineDeps.Ledger = store
	}

	var conv *gotenberg.Client
	if cfg.Intake.ConversionEnabled {
		conv, err = gotenberg.New(cfg.Conversion)
		if err != nil {
			return daemon.Components{}, nil, fmt.Errorf("conversion gateway: %w", err)
		}
		engineDeps.Converter = conv
	}

	eng, err := engine.New(cfg, engineDeps, logger)
	if err != nil {
		return daemon.Components{}, nil, err
	}

	comp := daemon.Components{
		Engine:   eng,
		Watcher:  intake.New(cfg.Paths.IntakeDir, cfg.Intake, logger),
		Settings: settings,
		Ledger:   store,
	}
	if cfg.Network.MonitorEvents {
		comp.Monitor = netlink.NewMonitor(cfg.Network.Interface, logger, eng.Wake)
	}
	return comp, conv, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, conv *gotenberg.Client) []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if conv != nil {
		status := deps.Status{
			Name:        "gotenberg",
			Command:     conv.URL(),
			Description: "Converts office documents to PDF",
			Optional:    true,
		}
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := conv.Health(healthCtx); err != nil {
			status.Detail = err.Error()
		} else {
			status.Available = true
		}
		cancel()
		statuses = append(statuses, status)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("printer", cfg.Printer.Name),
		logging.String("interface", cfg.Network.Interface),
		logging.Bool("conversion_enabled", cfg.Intake.ConversionEnabled),
	}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(strings.ReplaceAll(status.Name, " ", "_")+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	if missing := deps.Missing(statuses); len(missing) > 0 {
		logging.WarnWithContext(logger, "required tools missing", "dependency_missing",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String(logging.FieldErrorHint, "install the CUPS client tools (lp, lpstat)"),
			logging.String(logging.FieldImpact, "print submissions will fail and be retried"),
		)
	}
	return statuses
}
