package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"autoprint/internal/archive"
	"autoprint/internal/config"
	"autoprint/internal/document"
	"autoprint/internal/engine"
	"autoprint/internal/intake"
	"autoprint/internal/ledger"
	"autoprint/internal/logging"
	"autoprint/internal/printsettings"
	"autoprint/internal/queue"
	"autoprint/internal/services"
	"autoprint/internal/testsupport"
)

var archiveTime = time.Date(2026, 6, 1, 14, 30, 0, 0, time.Local)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeNetwork struct {
	ready bool
	calls int
}

func (f *fakeNetwork) Ready(context.Context) (bool, error) {
	f.calls++
	if !f.ready {
		return false, services.Wrap(services.ErrTransientLink, "network", "operstate", "Interface wlan0 is down", nil)
	}
	return true, nil
}

type submission struct {
	path     string
	handle   string
	settings printsettings.Settings
}

type fakePrinter struct {
	status      services.PrinterStatus
	submitErrs  []error
	submissions []submission
	// pollResults is consumed per handle; when exhausted the last entry repeats.
	pollResults map[string][]services.PrintStatus
	defaultPoll services.PrintStatus
	canceled    []string
	next        int
}

func newFakePrinter() *fakePrinter {
	return &fakePrinter{
		status:      services.PrinterStatus{State: services.PrinterReady},
		pollResults: map[string][]services.PrintStatus{},
		defaultPoll: services.PrintStatus{Phase: services.PrintSucceeded},
	}
}

func (f *fakePrinter) Status(context.Context) (services.PrinterStatus, error) {
	return f.status, nil
}

func (f *fakePrinter) Submit(_ context.Context, path string, settings printsettings.Settings) (string, error) {
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			f.submissions = append(f.submissions, submission{path: path, settings: settings})
			return "", err
		}
	}
	f.next++
	handle := "Test_Printer-" + strconv.Itoa(f.next)
	f.submissions = append(f.submissions, submission{path: path, handle: handle, settings: settings})
	return handle, nil
}

func (f *fakePrinter) Poll(_ context.Context, handle string) (services.PrintStatus, error) {
	results := f.pollResults[handle]
	if len(results) == 0 {
		return f.defaultPoll, nil
	}
	status := results[0]
	if len(results) > 1 {
		f.pollResults[handle] = results[1:]
	}
	return status, nil
}

func (f *fakePrinter) Cancel(_ context.Context, handle string) error {
	f.canceled = append(f.canceled, handle)
	return nil
}

func (f *fakePrinter) submittedNames() []string {
	names := make([]string, 0, len(f.submissions))
	for _, s := range f.submissions {
		names = append(names, filepath.Base(s.path))
	}
	return names
}

type fakeConverter struct {
	err   error
	calls int
	// delay simulates a slow conversion service; the call honors ctx.
	delay time.Duration
}

func (f *fakeConverter) Convert(ctx context.Context, src, dst string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, []byte("%PDF-1.7 rendered from "+filepath.Base(src)), 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

type failingArchiver struct{}

func (failingArchiver) Relocate(context.Context, archive.Request) (string, error) {
	return "", services.Wrap(services.ErrArchival, "archive", "check destination", "Destination folder is not writable", errors.New("permission denied"))
}

type recordingNotifier struct {
	printed  []string
	failed   []string
	archival []string
}

func (n *recordingNotifier) NotifyPrinted(_ context.Context, document, _ string) error {
	n.printed = append(n.printed, document)
	return nil
}

func (n *recordingNotifier) NotifyFailedForReview(_ context.Context, document, _, _ string) error {
	n.failed = append(n.failed, document)
	return nil
}

func (n *recordingNotifier) NotifyArchivalProblem(_ context.Context, document string, _ error) error {
	n.archival = append(n.archival, document)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type harness struct {
	t         *testing.T
	logs      *bytes.Buffer
	cfg       *config.Config
	engine    *engine.Engine
	clock     *manualClock
	network   *fakeNetwork
	printer   *fakePrinter
	converter *fakeConverter
	ledger    *ledger.Store
	notifier  *recordingNotifier
}

type harnessOption func(*engine.Dependencies)

func withArchiver(a engine.Archiver) harnessOption {
	return func(d *engine.Dependencies) { d.Archiver = a }
}

func newHarness(t *testing.T, cfgOpts []testsupport.ConfigOption, opts ...harnessOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	clock := &manualClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}

	arch := archive.New(cfg.Paths, logging.NewNop())
	arch.SetClock(func() time.Time { return archiveTime })

	h := &harness{
		t:         t,
		logs:      &bytes.Buffer{},
		cfg:       cfg,
		clock:     clock,
		network:   &fakeNetwork{ready: true},
		printer:   newFakePrinter(),
		converter: &fakeConverter{},
		ledger:    testsupport.MustOpenLedger(t, cfg),
		notifier:  &recordingNotifier{},
	}
	deps := engine.Dependencies{
		Network:    h.network,
		Printer:    h.printer,
		Converter:  h.converter,
		Archiver:   arch,
		Classifier: document.NewClassifier(cfg.Intake),
		Settings:   printsettings.NewStore(cfg.Paths.OverridesFile, printsettings.FromConfig(cfg.PrintSettings), logging.NewNop()),
		Ledger:     h.ledger,
		Notifier:   h.notifier,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	logger := slog.New(slog.NewJSONHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	eng, err := engine.New(cfg, deps, logger, engine.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	h.engine = eng
	return h
}

func (h *harness) drop(name string) string {
	h.t.Helper()
	path := filepath.Join(h.cfg.Paths.IntakeDir, name)
	if filepath.Ext(name) == ".docx" {
		testsupport.WriteDocx(h.t, path)
	} else {
		testsupport.WritePDF(h.t, path)
	}
	return path
}

func (h *harness) enqueue(name string) *queue.Job {
	h.t.Helper()
	path := h.drop(name)
	job := h.engine.Enqueue(context.Background(), intake.Event{Path: path, FirstSeen: h.clock.Now()})
	if job == nil {
		h.t.Fatalf("expected job for %s", name)
	}
	h.clock.Advance(time.Second)
	return job
}

func (h *harness) tick() {
	h.engine.Tick(context.Background())
	h.clock.Advance(time.Second)
}

func (h *harness) queuedNames() []string {
	snap := h.engine.Snapshot()
	names := make([]string, 0, len(snap.Jobs))
	for _, job := range snap.Jobs {
		names = append(names, job.Name)
	}
	return names
}

func (h *harness) records() []ledger.Record {
	h.t.Helper()
	records, err := h.ledger.Recent(context.Background(), 100)
	if err != nil {
		h.t.Fatalf("ledger.Recent: %v", err)
	}
	return records
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names
}
