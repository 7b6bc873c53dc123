package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Errors returned by Read. They abort a run before any target file is
// touched.
var (
	ErrConfigNotFound  = errors.New("manifest not found")
	ErrConfigMalformed = errors.New("manifest is malformed")
	ErrMissingVersion  = errors.New("no version found in manifest")
	ErrInvalidVersion  = errors.New("manifest version is not a semantic version")
)

// Format identifies the document syntax of a manifest
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the manifest format from the file extension.
// Unknown extensions are treated as JSON, the package.json case.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Read loads the manifest at path and returns the string stored under
// field. Field is a dotted path into nested tables, e.g. "package.version".
func Read(path, field string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}

	doc, err := decode(FormatFor(path), data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrConfigMalformed, path, err)
	}

	raw, ok := lookup(doc, field)
	if !ok {
		return "", fmt.Errorf("%w: field %q is absent in %s", ErrMissingVersion, field, path)
	}

	version, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q in %s is a %T, not a string", ErrMissingVersion, field, path, raw)
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return "", fmt.Errorf("%w: field %q is empty in %s", ErrMissingVersion, field, path)
	}

	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return "", fmt.Errorf("%w: %q in %s: %w", ErrInvalidVersion, version, path, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return "", fmt.Errorf("%w: %q in %s must be MAJOR.MINOR.PATCH without prerelease or build metadata",
			ErrInvalidVersion, version, path)
	}

	return version, nil
}

func decode(format Format, data []byte) (map[string]any, error) {
	doc := make(map[string]any)

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(field, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Drift describes how found relates to expected: "behind", "ahead", or
// "" when either side is not a semantic version or both are equal.
func Drift(found, expected string) string {
	f, err := semver.NewVersion(found)
	if err != nil {
		return ""
	}
	e, err := semver.NewVersion(expected)
	if err != nil {
		return ""
	}

	switch f.Compare(e) {
	case -1:
		return "behind"
	case 1:
		return "ahead"
	default:
		return ""
	}
}
