package cups

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"autoprint/internal/config"
	"autoprint/internal/printsettings"
	"autoprint/internal/services"
)

const stage = "print"

var requestIDPattern = regexp.MustCompile(`request id is (\S+)`)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives a single CUPS queue.
type Client struct {
	printer       string
	lp            string
	lpstat        string
	cancel        string
	statusTimeout time.Duration
	exec          Executor
}

// New constructs a CUPS client for the configured printer.
func New(cfg config.Printer, opts ...Option) (*Client, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, errors.New("printer name required")
	}
	client := &Client{
		printer:       name,
		lp:            defaultBinary(cfg.LPBinary, "lp"),
		lpstat:        defaultBinary(cfg.LPStatBinary, "lpstat"),
		cancel:        defaultBinary(cfg.CancelBinary, "cancel"),
		statusTimeout: time.Duration(cfg.StatusTimeout) * time.Second,
		exec:          commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Printer returns the CUPS queue name.
func (c *Client) Printer() string {
	return c.printer
}

// Status reports whether the queue can take a job right now.
func (c *Client) Status(ctx context.Context) (services.PrinterStatus, error) {
	lines, err := c.run(ctx, c.lpstat, "-p", c.printer)
	if err != nil {
		status := services.PrinterStatus{State: services.PrinterOffline, Detail: strings.Join(lines, " ")}
		if mentionsUnknownPrinter(lines) {
			status = services.PrinterStatus{State: services.PrinterFault, Fault: "unknown-printer", Detail: status.Detail}
		}
		return status, services.Wrap(services.ErrTransientDevice, stage, "lpstat -p", "Printer status unavailable", services.FromContext(ctx, stage, "lpstat -p", err))
	}
	status := ParsePrinterState(c.printer, lines)
	if status.State != services.PrinterReady && status.State != services.PrinterBusy {
		return status, nil
	}

	lines, err = c.run(ctx, c.lpstat, "-a", c.printer)
	if err != nil {
		return services.PrinterStatus{State: services.PrinterOffline, Detail: strings.Join(lines, " ")},
			services.Wrap(services.ErrTransientDevice, stage, "lpstat -a", "Printer acceptance unavailable", services.FromContext(ctx, stage, "lpstat -a", err))
	}
	if !ParseAccepting(c.printer, lines) {
		return services.PrinterStatus{State: services.PrinterFault, Fault: "not-accepting", Detail: strings.Join(lines, " ")}, nil
	}
	return status, nil
}

// Submit sends path to the printer and returns the CUPS request id.
func (c *Client) Submit(ctx context.Context, path string, settings printsettings.Settings) (string, error) {
	args := append([]string{"-d", c.printer}, Options(settings)...)
	args = append(args, "--", path)
	lines, err := c.run(ctx, c.lp, args...)
	if err != nil {
		cause := services.FromContext(ctx, stage, "lp", err)
		if rejectsDocument(lines) {
			return "", services.Permanent(services.Wrap(services.ErrUnsupportedDocument, stage, "lp", strings.Join(lines, " "), cause))
		}
		return "", services.Wrap(services.ErrTransientDevice, stage, "lp", "Print submission failed", withOutput(cause, lines))
	}
	for _, line := range lines {
		if match := requestIDPattern.FindStringSubmatch(line); match != nil {
			return match[1], nil
		}
	}
	return "", services.Wrap(services.ErrTransientDevice, stage, "lp", "No request id in lp output", errors.New(strings.Join(lines, " ")))
}

// Poll reports the progress of a submitted request.
func (c *Client) Poll(ctx context.Context, handle string) (services.PrintStatus, error) {
	pending, err := c.run(ctx, c.lpstat, "-W", "not-completed", "-o", c.printer)
	if err != nil {
		return services.PrintStatus{}, services.Wrap(services.ErrTransientDevice, stage, "lpstat -W not-completed", "Job status unavailable", services.FromContext(ctx, stage, "poll", err))
	}
	if ListsJob(pending, handle) {
		return services.PrintStatus{Phase: services.PrintInProgress}, nil
	}

	completed, err := c.run(ctx, c.lpstat, "-l", "-W", "completed", "-o", c.printer)
	if err != nil {
		return services.PrintStatus{}, services.Wrap(services.ErrTransientDevice, stage, "lpstat -W completed", "Job status unavailable", services.FromContext(ctx, stage, "poll", err))
	}
	// CUPS lists canceled and aborted jobs as completed too; the reasons tell them apart.
	if reasons, ok := JobReasons(completed, handle); ok {
		if reason, failed := unsuccessfulReason(reasons); failed {
			return services.PrintStatus{
				Phase: services.PrintFailed,
				Err:   services.Wrap(services.ErrTransientDevice, stage, "poll", fmt.Sprintf("Job %s ended with %s", handle, reason), nil),
			}, nil
		}
		return services.PrintStatus{Phase: services.PrintSucceeded}, nil
	}
	return services.PrintStatus{
		Phase: services.PrintFailed,
		Err:   services.Wrap(services.ErrTransientDevice, stage, "poll", fmt.Sprintf("Job %s disappeared from the printer queue", handle), nil),
	}, nil
}

// Cancel withdraws a submitted request.
func (c *Client) Cancel(ctx context.Context, handle string) error {
	lines, err := c.run(ctx, c.cancel, handle)
	if err != nil {
		return services.Wrap(services.ErrTransientDevice, stage, "cancel", "Cancel failed", withOutput(err, lines))
	}
	return nil
}

// Options maps print settings to `lp` arguments.
func Options(s printsettings.Settings) []string {
	copies := s.Copies
	if copies < 1 {
		copies = 1
	}
	sides := "one-sided"
	if s.Duplex {
		sides = "two-sided-long-edge"
		if s.DuplexMode == printsettings.DuplexShortEdge {
			sides = "two-sided-short-edge"
		}
	}
	orientation := "3"
	if s.Orientation == "landscape" {
		orientation = "4"
	}
	colorMode := "monochrome"
	if s.Color {
		colorMode = "color"
	}
	args := []string{
		"-n", strconv.Itoa(copies),
		"-o", "sides=" + sides,
		"-o", "media=" + strings.ToUpper(s.PaperSize),
		"-o", "orientation-requested=" + orientation,
		"-o", "print-color-mode=" + colorMode,
	}
	if s.TonerSave {
		args = append(args, "-o", "print-quality=3")
	}
	return args
}

// ParsePrinterState decodes `lpstat -p <printer>` output.
func ParsePrinterState(printer string, lines []string) services.PrinterStatus {
	prefix := "printer " + printer + " "
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		switch {
		case strings.HasPrefix(rest, "disabled"):
			return services.PrinterStatus{State: services.PrinterOffline, Detail: rest}
		case strings.HasPrefix(rest, "now printing"):
			return services.PrinterStatus{State: services.PrinterBusy, Detail: rest}
		case strings.HasPrefix(rest, "is idle"):
			return services.PrinterStatus{State: services.PrinterReady, Detail: rest}
		}
	}
	return services.PrinterStatus{State: services.PrinterFault, Fault: "unknown-state", Detail: strings.Join(lines, " ")}
}

// ParseAccepting decodes `lpstat -a <printer>` output.
func ParseAccepting(printer string, lines []string) bool {
	prefix := printer + " "
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := strings.TrimPrefix(line, prefix)
		return strings.HasPrefix(rest, "accepting")
	}
	return false
}

// ListsJob reports whether an `lpstat -o` listing contains handle.
func ListsJob(lines []string, handle string) bool {
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == handle {
			return true
		}
	}
	return false
}

// JobReasons finds handle in an `lpstat -l -o` listing and returns the
// job-state-reasons from its indented "Alerts:" line.
func JobReasons(lines []string, handle string) ([]string, bool) {
	found := false
	var reasons []string
	for _, line := range lines {
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if !indented {
			if found {
				break
			}
			fields := strings.Fields(line)
			found = len(fields) > 0 && fields[0] == handle
			continue
		}
		if !found {
			continue
		}
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Alerts:"); ok {
			reasons = append(reasons, strings.Fields(strings.ReplaceAll(rest, ",", " "))...)
		}
	}
	return reasons, found
}

func unsuccessfulReason(reasons []string) (string, bool) {
	for _, reason := range reasons {
		lower := strings.ToLower(reason)
		if strings.Contains(lower, "canceled") || strings.Contains(lower, "aborted") || lower == "job-completed-with-errors" {
			return reason, true
		}
	}
	return "", false
}

func (c *Client) run(ctx context.Context, binary string, args ...string) ([]string, error) {
	if c.statusTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.statusTimeout)
		defer cancel()
	}
	var lines []string
	err := c.exec.Run(ctx, binary, args, func(line string) {
		if line = strings.TrimRight(line, " \t"); line != "" {
			lines = append(lines, line)
		}
	})
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return lines, err
}

func rejectsDocument(lines []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "unsupported document-format") || strings.Contains(lower, "unsupported format") {
			return true
		}
	}
	return false
}

func mentionsUnknownPrinter(lines []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "invalid destination") || strings.Contains(lower, "does not exist") {
			return true
		}
	}
	return false
}

func withOutput(err error, lines []string) error {
	if len(lines) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, strings.Join(lines, " "))
}

func defaultBinary(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
