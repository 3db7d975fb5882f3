package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"autoprint/internal/config"
	"autoprint/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.NotifyPrinted(context.Background(), "report.pdf", ""); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	svc := notifications.NewService(config.Notifications{NtfyTopic: srv.URL, Printed: true, Failed: true})
	ctx := context.Background()

	if err := svc.NotifyPrinted(ctx, "report.pdf", "/inbox/PRINTED/report_20260101_120000.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyFailedForReview(ctx, "invoice.docx", "ConversionError", "Gotenberg returned 400"); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyArchivalProblem(ctx, "scan.pdf", errors.New("read-only file system")); err != nil {
		t.Fatal(err)
	}
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatal(err)
	}

	want := []captured{
		{
			title: "autoprint - Printed",
			body:  "🖨️ Printed: report.pdf\nArchived as: /inbox/PRINTED/report_20260101_120000.pdf",
			tags:  "autoprint,print,completed",
		},
		{
			title:    "autoprint - Needs Review",
			body:     "❌ Not printed: invoice.docx (ConversionError)\nGotenberg returned 400\nMoved to the failed folder for review",
			tags:     "autoprint,failed,review",
			priority: "high",
		},
		{
			title:    "autoprint - Archive Error",
			body:     "Printed scan.pdf but could not archive it: read-only file system\nManual cleanup required",
			tags:     "autoprint,archive,error",
			priority: "high",
		},
		{
			title:    "autoprint - Test",
			body:     "🧪 Notification system test",
			tags:     "autoprint,test",
			priority: "low",
		},
	}
	if len(*got) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(*got))
	}
	for i, w := range want {
		if (*got)[i] != w {
			t.Errorf("request %d = %+v, want %+v", i, (*got)[i], w)
		}
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	svc := notifications.NewService(config.Notifications{NtfyTopic: srv.URL})
	ctx := context.Background()
	if err := svc.NotifyPrinted(ctx, "a.pdf", ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.NotifyFailedForReview(ctx, "b.pdf", "", ""); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 0 {
		t.Fatalf("expected disabled events to be skipped, got %d requests", len(*got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)
	svc := notifications.NewService(config.Notifications{NtfyTopic: srv.URL})
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
