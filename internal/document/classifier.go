package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"autoprint/internal/config"
	"autoprint/internal/services"
)

// Kind is the routing decision for a document.
type Kind string

const (
	KindDirectPrint     Kind = "direct"
	KindNeedsConversion Kind = "convert"
	KindRejected        Kind = "rejected"
)

// sniffLimit bounds how much of a file is read to confirm its type. PDF
// readers accept the header anywhere in the first kilobyte.
const sniffLimit = 1024

var (
	pdfMagic  = []byte("%PDF-")
	zipMagic  = []byte("PK\x03\x04")
	oleMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	rtfMagic  = []byte("{\\rtf")
	zipFormat = map[string]struct{}{
		".docx": {}, ".xlsx": {}, ".pptx": {},
		".odt": {}, ".ods": {}, ".odp": {},
	}
	oleFormat = map[string]struct{}{".doc": {}, ".xls": {}, ".ppt": {}}
)

// Classification describes how a document should be handled.
type Classification struct {
	Path      string
	Extension string
	Kind      Kind
	Reason    string
}

// Err returns an UnsupportedDocument error for rejected documents and nil otherwise.
func (c Classification) Err() error {
	if c.Kind != KindRejected {
		return nil
	}
	return services.Wrap(services.ErrUnsupportedDocument, "classify", filepath.Base(c.Path), c.Reason, nil)
}

// Classifier tags documents as directly printable, needing conversion, or
// rejected. It holds no per-file state.
type Classifier struct {
	direct            map[string]struct{}
	convert           map[string]struct{}
	conversionEnabled bool
}

// NewClassifier builds a classifier from the intake configuration.
func NewClassifier(cfg config.Intake) *Classifier {
	c := &Classifier{
		direct:            make(map[string]struct{}, len(cfg.DirectExtensions)),
		convert:           make(map[string]struct{}, len(cfg.ConvertExtensions)),
		conversionEnabled: cfg.ConversionEnabled,
	}
	for _, ext := range cfg.DirectExtensions {
		c.direct[config.NormalizeExtension(ext)] = struct{}{}
	}
	for _, ext := range cfg.ConvertExtensions {
		c.convert[config.NormalizeExtension(ext)] = struct{}{}
	}
	return c
}

// ClassifyName routes a file by extension alone.
func (c *Classifier) ClassifyName(path string) Classification {
	ext := strings.ToLower(filepath.Ext(path))
	result := Classification{Path: path, Extension: ext}
	switch {
	case ext == "":
		result.Kind = KindRejected
		result.Reason = "file has no extension"
	case c.isDirect(ext):
		result.Kind = KindDirectPrint
	case c.isConvert(ext) && !c.conversionEnabled:
		result.Kind = KindRejected
		result.Reason = fmt.Sprintf("conversion disabled for %s", ext)
	case c.isConvert(ext):
		result.Kind = KindNeedsConversion
	default:
		result.Kind = KindRejected
		result.Reason = fmt.Sprintf("extension %s is neither printable nor convertible", ext)
	}
	return result
}

// Classify routes a file by extension and confirms the content matches the
// extension's format signature. A read failure is returned as an error; a
// signature mismatch yields KindRejected.
func (c *Classifier) Classify(path string) (Classification, error) {
	result := c.ClassifyName(path)
	if result.Kind == KindRejected {
		return result, nil
	}
	head, err := readHead(path)
	if err != nil {
		return result, err
	}
	if len(head) == 0 {
		result.Kind = KindRejected
		result.Reason = "file is empty"
		return result, nil
	}
	if ok, want := signatureMatches(result.Extension, head); !ok {
		result.Kind = KindRejected
		result.Reason = fmt.Sprintf("content does not look like %s", want)
	}
	return result, nil
}

func (c *Classifier) isDirect(ext string) bool {
	_, ok := c.direct[ext]
	return ok
}

func (c *Classifier) isConvert(ext string) bool {
	_, ok := c.convert[ext]
	return ok
}

func readHead(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()
	buf := make([]byte, sniffLimit)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return buf[:n], nil
}

func signatureMatches(ext string, head []byte) (bool, string) {
	if ext == ".pdf" {
		return bytes.Contains(head, pdfMagic), "a PDF"
	}
	if _, ok := zipFormat[ext]; ok {
		return bytes.HasPrefix(head, zipMagic), "an Office Open XML or OpenDocument archive"
	}
	if _, ok := oleFormat[ext]; ok {
		return bytes.HasPrefix(head, oleMagic), "a legacy Office document"
	}
	if ext == ".rtf" {
		return bytes.HasPrefix(head, rtfMagic), "an RTF document"
	}
	return true, ""
}
