package printsettings

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"autoprint/internal/config"
)

const (
	DuplexLongEdge  = "long-edge"
	DuplexShortEdge = "short-edge"
)

var (
	paperSizes   = []string{"A4", "A5", "LETTER", "LEGAL"}
	duplexModes  = []string{DuplexLongEdge, DuplexShortEdge}
	orientations = []string{"portrait", "landscape"}
)

// Settings is the fully resolved set of options a job is printed with.
type Settings struct {
	Copies      int    `json:"copies"`
	Duplex      bool   `json:"duplex"`
	DuplexMode  string `json:"duplex_mode"`
	PaperSize   string `json:"paper_size"`
	Color       bool   `json:"color"`
	TonerSave   bool   `json:"toner_save"`
	Orientation string `json:"orientation"`
}

// FromConfig converts the [print_settings] table into Settings.
func FromConfig(cfg config.PrintSettings) Settings {
	return Settings{
		Copies:      cfg.Copies,
		Duplex:      cfg.Duplex,
		DuplexMode:  NormalizeDuplexMode(cfg.DuplexMode),
		PaperSize:   strings.ToUpper(strings.TrimSpace(cfg.PaperSize)),
		Color:       cfg.Color,
		TonerSave:   cfg.TonerSave,
		Orientation: strings.ToLower(strings.TrimSpace(cfg.Orientation)),
	}
}

// Validate reports the first invalid value.
func (s Settings) Validate() error {
	if s.Copies < 1 {
		return errors.New("copies must be >= 1")
	}
	if !slices.Contains(paperSizes, s.PaperSize) {
		return fmt.Errorf("paper_size %q is not one of %s", s.PaperSize, strings.Join(paperSizes, ", "))
	}
	if !slices.Contains(duplexModes, s.DuplexMode) {
		return fmt.Errorf("duplex_mode %q is not one of %s", s.DuplexMode, strings.Join(duplexModes, ", "))
	}
	if !slices.Contains(orientations, s.Orientation) {
		return fmt.Errorf("orientation %q is not one of %s", s.Orientation, strings.Join(orientations, ", "))
	}
	return nil
}

// Merge overlays the keys present in o. Keys the override omits keep their
// default value.
func (s Settings) Merge(o Override) Settings {
	out := s
	if o.Copies != nil {
		out.Copies = *o.Copies
	}
	if o.Duplex != nil {
		out.Duplex = *o.Duplex
	}
	if o.DuplexMode != nil {
		out.DuplexMode = NormalizeDuplexMode(*o.DuplexMode)
	}
	if o.PaperSize != nil {
		out.PaperSize = strings.ToUpper(strings.TrimSpace(*o.PaperSize))
	}
	if o.Color != nil {
		out.Color = *o.Color
	}
	if o.TonerSave != nil {
		out.TonerSave = *o.TonerSave
	}
	if o.Orientation != nil {
		out.Orientation = strings.ToLower(strings.TrimSpace(*o.Orientation))
	}
	return out
}

// NormalizeDuplexMode accepts the CUPS style names as well as the Ghostscript
// DuplexVertical/DuplexHorizontal spellings.
func NormalizeDuplexMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "long", "long-edge", "two-sided-long-edge", "duplexvertical", "vertical":
		return DuplexLongEdge
	case "short", "short-edge", "two-sided-short-edge", "duplexhorizontal", "horizontal":
		return DuplexShortEdge
	default:
		return strings.ToLower(strings.TrimSpace(mode))
	}
}
