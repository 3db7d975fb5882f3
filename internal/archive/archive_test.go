package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoprint/internal/archive"
	"autoprint/internal/config"
	"autoprint/internal/logging"
	"autoprint/internal/services"
)

func newArchiver(t *testing.T) (*archive.Archiver, config.Paths) {
	t.Helper()
	base := t.TempDir()
	paths := config.Paths{
		IntakeDir:    base,
		ArchiveDir:   filepath.Join(base, "PRINTED"),
		ConvertedDir: filepath.Join(base, "CONVERTED"),
		FailedDir:    filepath.Join(base, "FAILED"),
	}
	a := archive.New(paths, logging.NewNop())
	a.SetClock(func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local) })
	return a, paths
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCandidateName(t *testing.T) {
	tests := []struct {
		name  string
		stamp string
		n     int
		want  string
	}{
		{"report.pdf", "20260314_092653", 0, "report_20260314_092653.pdf"},
		{"report.pdf", "20260314_092653", 2, "report_20260314_092653_2.pdf"},
		{"invoice.docx", "", 0, "invoice.docx"},
		{"invoice.docx", "", 1, "invoice_1.docx"},
		{"README", "", 3, "README_3"},
	}
	for _, tc := range tests {
		if got := archive.CandidateName(tc.name, tc.stamp, tc.n); got != tc.want {
			t.Errorf("CandidateName(%q, %q, %d) = %q, want %q", tc.name, tc.stamp, tc.n, got, tc.want)
		}
	}
}

func TestRelocateSuccessAddsTimestamp(t *testing.T) {
	a, paths := newArchiver(t)
	src := filepath.Join(paths.IntakeDir, "report.pdf")
	writeFile(t, src, "%PDF-1.4")

	final, err := a.Relocate(context.Background(), archive.Request{Source: src, Destination: archive.DestinationSuccess})
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	want := filepath.Join(paths.ArchiveDir, "report_20260314_092653.pdf")
	if final != want {
		t.Fatalf("final path = %q, want %q", final, want)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source removed from intake")
	}
	entries, err := os.ReadDir(paths.ArchiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one archived file, got %d", len(entries))
	}
}

func TestRelocateCollisionAddsSuffix(t *testing.T) {
	a, paths := newArchiver(t)
	if err := os.MkdirAll(paths.FailedDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(paths.FailedDir, "scan.pdf"), "earlier")
	writeFile(t, filepath.Join(paths.FailedDir, "scan_1.pdf"), "earlier")
	src := filepath.Join(paths.IntakeDir, "scan.pdf")
	writeFile(t, src, "new")

	final, err := a.Relocate(context.Background(), archive.Request{Source: src, Destination: archive.DestinationFailed})
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if filepath.Base(final) != "scan_2.pdf" {
		t.Fatalf("expected scan_2.pdf, got %s", final)
	}
	got, _ := os.ReadFile(filepath.Join(paths.FailedDir, "scan.pdf"))
	if string(got) != "earlier" {
		t.Fatal("existing archive entry was overwritten")
	}
}

func TestRelocateUsesRequestedName(t *testing.T) {
	a, _ := newArchiver(t)
	rendered := filepath.Join(t.TempDir(), "0a1b2c3d-invoice.pdf")
	writeFile(t, rendered, "%PDF-1.4")

	final, err := a.Relocate(context.Background(), archive.Request{
		Source:      rendered,
		Destination: archive.DestinationSuccess,
		Name:        "invoice.pdf",
	})
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if filepath.Base(final) != "invoice_20260314_092653.pdf" {
		t.Fatalf("unexpected name %s", final)
	}
}

func TestRelocateMissingSourceIsArchivalError(t *testing.T) {
	a, paths := newArchiver(t)
	_, err := a.Relocate(context.Background(), archive.Request{
		Source:      filepath.Join(paths.IntakeDir, "gone.pdf"),
		Destination: archive.DestinationSuccess,
	})
	if !errors.Is(err, services.ErrArchival) {
		t.Fatalf("expected ErrArchival, got %v", err)
	}
}

func TestRelocateUnwritableDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	a, paths := newArchiver(t)
	if err := os.MkdirAll(paths.ArchiveDir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(paths.ArchiveDir, 0o755) })
	src := filepath.Join(paths.IntakeDir, "report.pdf")
	writeFile(t, src, "%PDF-1.4")

	_, err := a.Relocate(context.Background(), archive.Request{Source: src, Destination: archive.DestinationSuccess})
	if !errors.Is(err, services.ErrArchival) {
		t.Fatalf("expected ErrArchival, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("source must stay in place for manual cleanup")
	}
}

func TestRelocateLeavesNoCopyWhenSourceIsPinned(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	a, paths := newArchiver(t)
	pinned := t.TempDir()
	src := filepath.Join(pinned, "memo.pdf")
	writeFile(t, src, "%PDF-1.4")
	if err := os.Chmod(pinned, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(pinned, 0o755) })

	_, err := a.Relocate(context.Background(), archive.Request{Source: src, Destination: archive.DestinationFailed})
	if !errors.Is(err, services.ErrArchival) {
		t.Fatalf("expected ErrArchival, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must stay in place: %v", err)
	}
	entries, _ := os.ReadDir(paths.FailedDir)
	if len(entries) != 0 {
		t.Fatalf("failed folder should hold no copy, found %d entries", len(entries))
	}
}
