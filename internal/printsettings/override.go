package printsettings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Override holds the keys a per-document entry sets. A nil field means the
// key is absent and the default applies.
type Override struct {
	Copies      *int    `json:"copies,omitempty" yaml:"copies" toml:"copies"`
	Duplex      *bool   `json:"duplex,omitempty" yaml:"duplex" toml:"duplex"`
	DuplexMode  *string `json:"duplex_mode,omitempty" yaml:"duplex_mode" toml:"duplex_mode"`
	PaperSize   *string `json:"paper_size,omitempty" yaml:"paper_size" toml:"paper_size"`
	Color       *bool   `json:"color,omitempty" yaml:"color" toml:"color"`
	TonerSave   *bool   `json:"toner_save,omitempty" yaml:"toner_save" toml:"toner_save"`
	Orientation *string `json:"orientation,omitempty" yaml:"orientation" toml:"orientation"`
}

// Keys lists the keys present in the override, in declaration order.
func (o Override) Keys() []string {
	var keys []string
	if o.Copies != nil {
		keys = append(keys, "copies")
	}
	if o.Duplex != nil {
		keys = append(keys, "duplex")
	}
	if o.DuplexMode != nil {
		keys = append(keys, "duplex_mode")
	}
	if o.PaperSize != nil {
		keys = append(keys, "paper_size")
	}
	if o.Color != nil {
		keys = append(keys, "color")
	}
	if o.TonerSave != nil {
		keys = append(keys, "toner_save")
	}
	if o.Orientation != nil {
		keys = append(keys, "orientation")
	}
	return keys
}

// Overrides maps a document file name to its override entry.
type Overrides map[string]Override

// Lookup finds the entry for a file name, falling back to a case-insensitive match.
func (o Overrides) Lookup(name string) (Override, bool) {
	name = filepath.Base(name)
	if entry, ok := o[name]; ok {
		return entry, true
	}
	for key, entry := range o {
		if strings.EqualFold(key, name) {
			return entry, true
		}
	}
	return Override{}, false
}

// ParseOverrides decodes an override document. The format is picked from the
// file extension of path (.yaml, .yml, .toml, .json). Unknown keys are errors,
// and every entry must produce valid settings when merged over defaults.
func ParseOverrides(path string, data []byte, defaults Settings) (Overrides, error) {
	out := Overrides{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&out)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&out)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&out)
	default:
		return nil, fmt.Errorf("override file %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse override file %s: %w", path, err)
	}

	for name, entry := range out {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("override file %s: empty document name", path)
		}
		if err := defaults.Merge(entry).Validate(); err != nil {
			return nil, fmt.Errorf("override for %q: %w", name, err)
		}
	}
	return out, nil
}
