package gotenberg_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autoprint/internal/config"
	"autoprint/internal/services"
	"autoprint/internal/services/gotenberg"
)

func writeDocx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.docx")
	if err := os.WriteFile(path, []byte("PK\x03\x04 fake docx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newClient(t *testing.T, url string, failures int) *gotenberg.Client {
	t.Helper()
	client, err := gotenberg.New(config.Conversion{URL: url + "/", Timeout: 5, BreakerFailures: failures, BreakerCooldown: 60})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestConvertWritesPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/forms/libreoffice/convert" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "invoice.docx" {
			t.Errorf("filename = %q", header.Filename)
		}
		_, _ = io.WriteString(w, "%PDF-1.7 rendered")
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "rendered", "invoice.pdf")
	got, err := newClient(t, srv.URL, 3).Convert(context.Background(), writeDocx(t), dst)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != dst {
		t.Fatalf("path = %q, want %q", got, dst)
	}
	data, err := os.ReadFile(dst)
	if err != nil || !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatalf("unexpected output %q (%v)", data, err)
	}
}

func TestConvertClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "LibreOffice failed to process a document", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, 1)
	_, err := client.Convert(context.Background(), writeDocx(t), filepath.Join(t.TempDir(), "out.pdf"))
	if !errors.Is(err, services.ErrConversion) || !services.IsPermanent(err) {
		t.Fatalf("expected permanent conversion error, got %v", err)
	}
	if client.BreakerState() != "closed" {
		t.Fatalf("permanent failures must not trip the breaker, state=%s", client.BreakerState())
	}
}

func TestConvertServerErrorIsTransientAndTripsBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, 2)
	src := writeDocx(t)
	dst := filepath.Join(t.TempDir(), "out.pdf")
	for i := 0; i < 2; i++ {
		_, err := client.Convert(context.Background(), src, dst)
		if err == nil || services.IsPermanent(err) {
			t.Fatalf("attempt %d: expected transient error, got %v", i, err)
		}
	}
	_, err := client.Convert(context.Background(), src, dst)
	if !errors.Is(err, services.ErrConversion) || services.IsPermanent(err) {
		t.Fatalf("expected transient breaker error, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("open breaker should short-circuit, hits=%d", hits.Load())
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("no output expected on failure")
	}
}

func TestConvertTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newClient(t, srv.URL, 3).Convert(ctx, writeDocx(t), filepath.Join(t.TempDir(), "out.pdf"))
	if !errors.Is(err, services.ErrTimeout) || services.IsPermanent(err) {
		t.Fatalf("expected transient timeout, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"status":"up"}`)
	}))
	defer srv.Close()

	if err := newClient(t, srv.URL, 3).Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := gotenberg.New(config.Conversion{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
