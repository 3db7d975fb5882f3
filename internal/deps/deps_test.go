package deps

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"autoprint/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestRequirementsFollowNetworkConfig(t *testing.T) {
	cfg := config.Default()
	if got := len(Requirements(&cfg)); got != 3 {
		t.Fatalf("expected printer tools only, got %d requirements", got)
	}

	cfg.Network.Interface = "wlan0"
	reqs := Requirements(&cfg)
	if len(reqs) != 4 || !reqs[3].Optional {
		t.Fatalf("expected optional ssid probe, got %+v", reqs)
	}

	cfg.Network.SSID = "office"
	reqs = Requirements(&cfg)
	if reqs[3].Optional {
		t.Fatal("ssid probe must be required once an SSID is configured")
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []Status{
		{Name: "lp", Available: false},
		{Name: "cancel", Available: false, Optional: true},
		{Name: "lpstat", Available: true},
	}
	if got := Missing(statuses); !slices.Equal(got, []string{"lp"}) {
		t.Fatalf("Missing = %v", got)
	}
}
