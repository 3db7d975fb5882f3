package document_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"autoprint/internal/config"
	"autoprint/internal/document"
	"autoprint/internal/services"
)

func newClassifier(conversion bool) *document.Classifier {
	return document.NewClassifier(config.Intake{
		DirectExtensions:  []string{".pdf"},
		ConvertExtensions: []string{"DOCX", ".odt"},
		ConversionEnabled: conversion,
	})
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		file       string
		data       []byte
		conversion bool
		want       document.Kind
	}{
		{"pdf", "report.pdf", []byte("%PDF-1.7\n..."), true, document.KindDirectPrint},
		{"upper case pdf", "SCAN.PDF", []byte("%PDF-1.4"), true, document.KindDirectPrint},
		{"docx", "invoice.docx", []byte("PK\x03\x04rest"), true, document.KindNeedsConversion},
		{"docx conversion disabled", "letter.docx", []byte("PK\x03\x04rest"), false, document.KindRejected},
		{"renamed text as pdf", "fake.pdf", []byte("hello world"), true, document.KindRejected},
		{"empty pdf", "empty.pdf", nil, true, document.KindRejected},
		{"unknown extension", "notes.txt", []byte("hello"), true, document.KindRejected},
		{"no extension", "README", []byte("hello"), true, document.KindRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, tc.file, tc.data)
			got, err := newClassifier(tc.conversion).Classify(path)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Kind != tc.want {
				t.Fatalf("Kind = %s, want %s (reason %q)", got.Kind, tc.want, got.Reason)
			}
			if tc.want == document.KindRejected {
				if err := got.Err(); !errors.Is(err, services.ErrUnsupportedDocument) {
					t.Fatalf("expected unsupported document error, got %v", err)
				}
				if got.Reason == "" {
					t.Fatal("expected rejection reason")
				}
			} else if got.Err() != nil {
				t.Fatalf("expected nil error for %s", tc.want)
			}
		})
	}
}

func TestClassifyMissingFile(t *testing.T) {
	_, err := newClassifier(true).Classify(filepath.Join(t.TempDir(), "gone.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClassifyNameIgnoresContent(t *testing.T) {
	got := newClassifier(true).ClassifyName("/nowhere/draft.odt")
	if got.Kind != document.KindNeedsConversion {
		t.Fatalf("expected convert kind, got %s", got.Kind)
	}
	if got.Extension != ".odt" {
		t.Fatalf("unexpected extension %q", got.Extension)
	}
}
