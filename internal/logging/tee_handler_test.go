package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestTeeCollapsesNilSinks(t *testing.T) {
	if _, ok := tee(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := tee(nil, inner); h != inner {
		t.Fatal("expected a single sink to be returned unwrapped")
	}
}

func TestTeeRespectsSinkLevels(t *testing.T) {
	var console, file bytes.Buffer
	h := tee(
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee enabled for debug")
	}
	slog.New(h).Debug("gate probe")

	if console.Len() != 0 {
		t.Errorf("console sink received debug record: %s", console.String())
	}
	if file.Len() == 0 {
		t.Error("file sink missed debug record")
	}
}

func TestTeeAttrsReachEverySink(t *testing.T) {
	var a, b bytes.Buffer
	h := tee(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h.WithAttrs([]slog.Attr{slog.String(FieldJobID, "abc")})).Info("queued", slog.String("name", "memo.pdf"))

	for i, buf := range []*bytes.Buffer{&a, &b} {
		if !bytes.Contains(buf.Bytes(), []byte(`"job_id":"abc"`)) || !bytes.Contains(buf.Bytes(), []byte(`"name":"memo.pdf"`)) {
			t.Errorf("sink %d missing attributes: %s", i, buf.String())
		}
	}
}

type brokenSink struct{ slog.Handler }

func (brokenSink) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeKeepsWritingAfterSinkError(t *testing.T) {
	var buf bytes.Buffer
	h := tee(brokenSink{slog.NewJSONHandler(&bytes.Buffer{}, nil)}, slog.NewJSONHandler(&buf, nil))
	var rec slog.Record
	rec.Message = "printed"
	err := h.Handle(context.Background(), rec)
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected sink error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("healthy sink should still receive the record")
	}
}
