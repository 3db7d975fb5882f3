package ledger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"autoprint/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := ledger.Record{
		JobID:       "job-1",
		SourcePath:  "/inbox/report.pdf",
		Kind:        "direct",
		Outcome:     ledger.OutcomePrinted,
		Destination: "success",
		FinalPath:   "/inbox/PRINTED/report_20260301_090000.pdf",
		EnqueuedAt:  base,
		FinishedAt:  base.Add(time.Minute),
	}
	second := ledger.Record{
		JobID:        "job-2",
		SourcePath:   "/inbox/invoice.docx",
		Kind:         "convert",
		Outcome:      ledger.OutcomeFailed,
		Destination:  "failed",
		FinalPath:    "/inbox/FAILED/invoice.docx",
		ErrorKind:    "ConversionError",
		ErrorMessage: "gotenberg rejected document",
		EnqueuedAt:   base,
		FinishedAt:   base.Add(2 * time.Minute),
	}
	for _, rec := range []ledger.Record{first, second} {
		if _, err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].JobID != "job-2" || got[1].JobID != "job-1" {
		t.Fatalf("expected newest first, got %s then %s", got[0].JobID, got[1].JobID)
	}
	if got[0].ErrorKind != "ConversionError" || got[0].Attempts != 0 {
		t.Fatalf("unexpected failed record: %+v", got[0])
	}
	if !got[1].FinishedAt.Equal(first.FinishedAt) {
		t.Fatalf("finished_at round trip mismatch: %v", got[1].FinishedAt)
	}

	counts, err := store.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[ledger.OutcomePrinted] != 1 || counts[ledger.OutcomeFailed] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(context.Background(), ledger.Record{JobID: "a", SourcePath: "/a.pdf", Kind: "direct", Outcome: ledger.OutcomePrinted, Destination: "success"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected persisted record, got %d", len(got))
	}
}
