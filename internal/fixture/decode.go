package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

var (
	// supportedFormats accepts every 1.x fixture.
	supportedFormats = mustConstraint(">= 1.0, < 2.0")
	// lazyFormat is the first format with lazy conformances.
	lazyFormat = semver.MustParse("1.1.0")
)

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(fmt.Errorf("fixture: bad format constraint %q: %w", expr, err))
	}
	return c
}

// decode picks the syntax from the file extension: .yaml and .yml are YAML,
// everything else is TOML.
func decode(path string, data []byte) (*file, error) {
	var (
		f   *file
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err = decodeYAML(data)
	default:
		f, err = decodeTOML(data)
	}
	if err != nil {
		return nil, err
	}
	if err := checkFormat(f); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeTOML(data []byte) (*file, error) {
	var f file
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if !meta.IsDefined("module") {
		return nil, errors.New("missing [module]")
	}
	if !meta.IsDefined("module", "name") || strings.TrimSpace(f.Module.Name) == "" {
		return nil, errors.New("missing [module].name")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	return &f, nil
}

func decodeYAML(data []byte) (*file, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing [module]")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if strings.TrimSpace(f.Module.Name) == "" {
		return nil, errors.New("missing [module].name")
	}
	return &f, nil
}

// checkFormat validates [module].format and the features that need a newer format.
func checkFormat(f *file) error {
	raw := strings.TrimSpace(f.Module.Format)
	if raw == "" {
		raw = "1.0"
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("invalid [module].format %q: %w", f.Module.Format, err)
	}
	if !supportedFormats.Check(v) {
		return fmt.Errorf("unsupported fixture format %s (supported: %s)", v, supportedFormats)
	}
	if v.LessThan(lazyFormat) {
		for i, cs := range f.Conformances {
			if cs.Lazy {
				return fmt.Errorf("conformance #%d: lazy requires format %s or later", i+1, lazyFormat)
			}
		}
	}
	return nil
}
