package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	write(t, path, buf)
}

// WritePDF writes a minimal file carrying the PDF signature.
func WritePDF(t testing.TB, path string) {
	t.Helper()
	write(t, path, []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"))
}

// WriteDocx writes a file carrying the OOXML (zip) signature.
func WriteDocx(t testing.TB, path string) {
	t.Helper()
	write(t, path, []byte("PK\x03\x04\x14\x00\x06\x00[Content_Types].xml"))
}

func write(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
