package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"autoprint/internal/config"
	"autoprint/internal/fileutil"
	"autoprint/internal/logging"
	"autoprint/internal/services"
)

// Destination names a terminal folder.
type Destination string

const (
	DestinationSuccess           Destination = "printed"
	DestinationConvertedOriginal Destination = "converted"
	DestinationFailed            Destination = "failed"
)

// TimestampLayout is appended to printed document names.
const TimestampLayout = "20060102_150405"

const maxCollisionSuffix = 10000

// Request describes one relocation.
type Request struct {
	Source      string
	Destination Destination
	// Name overrides the destination base name. Defaults to the source's base name.
	Name string
}

// Archiver moves terminal documents into their destination folders.
type Archiver struct {
	dirs   map[Destination]string
	logger *slog.Logger
	now    func() time.Time
}

// New builds an Archiver for the configured folders.
func New(paths config.Paths, logger *slog.Logger) *Archiver {
	return &Archiver{
		dirs: map[Destination]string{
			DestinationSuccess:           paths.ArchiveDir,
			DestinationConvertedOriginal: paths.ConvertedDir,
			DestinationFailed:            paths.FailedDir,
		},
		logger: logging.NewComponentLogger(logger, "archive"),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for timestamp suffixes.
func (a *Archiver) SetClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// Dir returns the folder for a destination.
func (a *Archiver) Dir(dest Destination) string {
	return a.dirs[dest]
}

// Relocate moves req.Source into its destination folder and returns the final
// path. All failures carry services.ErrArchival; the source is left in place
// whenever the error is returned before the destination was written.
func (a *Archiver) Relocate(ctx context.Context, req Request) (string, error) {
	logger := logging.WithContext(ctx, a.logger)
	dir := strings.TrimSpace(a.dirs[req.Destination])
	if dir == "" {
		return "", services.Wrap(services.ErrArchival, "archive", "resolve destination",
			fmt.Sprintf("No folder configured for %s documents", req.Destination), nil)
	}
	if _, err := os.Stat(req.Source); err != nil {
		return "", services.Wrap(services.ErrArchival, "archive", "stat source", "Source document is missing", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrArchival, "archive", "ensure destination", "Failed to create destination folder", err)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return "", services.Wrap(services.ErrArchival, "archive", "check destination",
			fmt.Sprintf("Destination folder %s is not writable", dir), err)
	}

	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = filepath.Base(req.Source)
	}
	stamp := ""
	if req.Destination == DestinationSuccess {
		stamp = a.now().Format(TimestampLayout)
	}

	for n := 0; n < maxCollisionSuffix; n++ {
		target := filepath.Join(dir, CandidateName(name, stamp, n))
		err := fileutil.MoveNoClobber(req.Source, target)
		switch {
		case err == nil:
			logger.Info("document relocated",
				logging.String("destination", string(req.Destination)),
				logging.String("final_path", target),
			)
			return target, nil
		case errors.Is(err, os.ErrExist):
			continue
		default:
			return "", services.Wrap(services.ErrArchival, "archive", "move document",
				fmt.Sprintf("Failed to move document into %s", dir), err)
		}
	}
	return "", services.Wrap(services.ErrArchival, "archive", "allocate name",
		fmt.Sprintf("Exhausted collision suffixes in %s", dir), nil)
}

// CandidateName builds the n-th destination name for a document. The
// timestamp, when present, goes between stem and extension; n > 0 appends
// a disambiguating `_n`.
func CandidateName(name, stamp string, n int) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stamp != "" {
		stem += "_" + stamp
	}
	if n > 0 {
		stem = fmt.Sprintf("%s_%d", stem, n)
	}
	return stem + ext
}
