package configfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/junioryono/unify"
)

// LoadFile loads a document, choosing the format by extension: .yaml, .yml
// or .hcl.
func LoadFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configfile: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadYAML(bytes.NewReader(src))
	case ".hcl":
		return LoadHCL(src, path)
	default:
		return nil, fmt.Errorf("configfile: unsupported file extension %q", ext)
	}
}

// Load reads the files in order and applies them to one builder. Later
// files replace components only when they mark them overwrite.
func Load(types *unify.TypeRegistry, paths ...string) (*unify.Config, error) {
	b := unify.NewConfigBuilder()
	for _, path := range paths {
		d, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := d.Apply(b, types); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return b.Build(), nil
}
