package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autoprint/internal/daemon"
	"autoprint/internal/engine"
	"autoprint/internal/ledger"
	"autoprint/internal/queue"
	"autoprint/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, apiBind string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("AUTOPRINT_PRINTER", "")
	t.Setenv("AUTOPRINT_NTFY_TOPIC", "")
	t.Setenv("GOTENBERG_URL", "")
	if apiBind == "" {
		apiBind = "127.0.0.1:1"
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
intake_dir = %q
state_dir = %q
log_dir = %q
overrides_file = %q
api_bind = %q

[printer]
name = "Test_Printer"
`,
		filepath.Join(base, "inbox"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "overrides.yaml"),
		apiBind,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	env := setupCLITestEnv(t, "")
	target := filepath.Join(env.baseDir, "fresh", "autoprint.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention %s, got %q", target, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to fail without --overwrite")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsResolvedPaths(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{env.configPath, filepath.Join(env.baseDir, "inbox", "PRINTED"), "Test_Printer"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestClassifyCommandRoutesFiles(t *testing.T) {
	env := setupCLITestEnv(t, "")
	dir := filepath.Join(env.baseDir, "docs")
	genuine := filepath.Join(dir, "real.pdf")
	fake := filepath.Join(dir, "fake.pdf")
	letter := filepath.Join(dir, "letter.docx")
	testsupport.WritePDF(t, genuine)
	testsupport.WriteFile(t, fake, 32)
	testsupport.WriteDocx(t, letter)

	out, err := env.run(t, "classify", genuine, fake, letter)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"print directly", "rejected", "convert, then print"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = env.run(t, "classify", "--json", fake)
	if err != nil {
		t.Fatalf("classify --json: %v", err)
	}
	var results []classifyResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 1 || results[0].Reason == "" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestSettingsCommandShowsOverrides(t *testing.T) {
	env := setupCLITestEnv(t, "")
	overrides := "report.pdf:\n  copies: 3\n  paper_size: letter\n"
	if err := os.WriteFile(filepath.Join(env.baseDir, "overrides.yaml"), []byte(overrides), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "settings", "--json", "report.pdf")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	var resolved struct {
		Copies    int    `json:"copies"`
		PaperSize string `json:"paper_size"`
		Duplex    bool   `json:"duplex"`
	}
	if err := json.Unmarshal([]byte(out), &resolved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resolved.Copies != 3 || resolved.PaperSize != "LETTER" {
		t.Fatalf("override not applied: %+v", resolved)
	}

	out, err = env.run(t, "settings", "report.pdf")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got := strings.Count(out, " override "); got != 2 {
		t.Fatalf("expected copies and paper_size marked as overrides, got %d:\n%s", got, out)
	}

	out, err = env.run(t, "settings", "other.pdf")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if strings.Contains(out, " override ") {
		t.Fatalf("other.pdf should use defaults only:\n%s", out)
	}
}

func TestHistoryCommandListsRecords(t *testing.T) {
	env := setupCLITestEnv(t, "")
	store, err := ledger.Open(filepath.Join(env.baseDir, "state", "history.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	now := time.Now()
	_, err = store.Append(context.Background(), ledger.Record{
		JobID:       "0d2c7a1e-0000-5000-8000-000000000000",
		SourcePath:  filepath.Join(env.baseDir, "inbox", "invoice.pdf"),
		Kind:        "direct",
		Outcome:     ledger.OutcomePrinted,
		Destination: "printed",
		FinalPath:   filepath.Join(env.baseDir, "inbox", "PRINTED", "invoice_20260601_143000.pdf"),
		Attempts:    1,
		EnqueuedAt:  now.Add(-time.Minute),
		FinishedAt:  now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.Close()

	out, err := env.run(t, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"invoice.pdf", "Printed", "invoice_20260601_143000.pdf"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	if _, err := env.run(t, "history", "--limit", "0"); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestStatusCommandRendersSnapshot(t *testing.T) {
	status := daemon.Status{
		Running:   true,
		PID:       42,
		StartedAt: time.Now().Add(-time.Hour),
		Printer:   "Test_Printer",
		Engine: &engine.Snapshot{
			Jobs: []queue.JobView{
				{Name: "report.pdf", Status: queue.StatusPermanentlyFailed, Attempts: 3, MaxAttempts: 3, ErrorKind: "TransientDeviceError"},
				{Name: "memo.docx", Status: queue.StatusPending, Attempts: 1, MaxAttempts: 3},
			},
			Network: engine.GateView{Ready: true, CheckedAt: time.Now()},
			Printer: engine.GateView{Ready: false, State: "fault", Fault: "not-accepting", CheckedAt: time.Now()},
			Totals:  engine.Totals{Printed: 7},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(status)
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, strings.TrimPrefix(srv.URL, "http://"))
	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"running (pid 42", "Permanently Failed", "memo.docx", "1/3", "not-accepting", "[OK] Up"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatusCommandReportsUnreachableDaemon(t *testing.T) {
	env := setupCLITestEnv(t, "127.0.0.1:1")
	_, err := env.run(t, "status")
	if err == nil || !strings.Contains(err.Error(), "autoprint run") {
		t.Fatalf("expected hint to start the daemon, got %v", err)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t, "")
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if !strings.Contains(out, "not configured") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAPIBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7488": "http://127.0.0.1:7488",
		":7488":          "http://127.0.0.1:7488",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		"[::]:9000":      "http://127.0.0.1:9000",
		"printhost:80":   "http://printhost:80",
	}
	for bind, want := range tests {
		if got := apiBaseURL(bind); got != want {
			t.Errorf("apiBaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := displayLabel("permanently_failed"); got != "Permanently Failed" {
		t.Fatalf("displayLabel = %q", got)
	}
	if got := displayLabel(""); got != "-" {
		t.Fatalf("displayLabel(\"\") = %q", got)
	}
}
