package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the rule file looked up at the project root
	DefaultFileName = ".versync.yaml"

	DefaultManifestPath  = "package.json"
	DefaultManifestField = "version"
	DefaultHint          = `Run "versync sync" to fix.`

	// VersionPlaceholder is the variable replacement templates may reference
	// as ${version} or $version.
	VersionPlaceholder = "version"

	// versionGroup captures a whole semantic version, so a stale prerelease
	// or build suffix in a document is replaced along with the core.
	versionGroup = `(\d+\.\d+\.\d+(?:-[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?(?:\+[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*)?)`
)

// ErrMalformed marks every problem with a rule file other than it being
// unreadable.
var ErrMalformed = errors.New("rule file is malformed")

// Config represents the complete versync configuration
type Config struct {
	Manifest ManifestConfig `yaml:"manifest"`
	Hint     string         `yaml:"hint"`
	Files    []FileRule     `yaml:"files"`
}

// ManifestConfig locates the canonical version
type ManifestConfig struct {
	Path  string `yaml:"path"`
	Field string `yaml:"field"`
}

// FileRule lists the patterns checked in one target file. Path may be a
// doublestar glob.
type FileRule struct {
	Path     string        `yaml:"path"`
	Patterns []PatternRule `yaml:"patterns"`
}

// PatternRule locates a version token inside a target file
type PatternRule struct {
	Name        string `yaml:"name"`
	Regex       string `yaml:"regex"`
	Replacement string `yaml:"replacement"`

	re *regexp.Regexp
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %w", ErrMalformed, err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %w", ErrMalformed, err)
	}

	return &cfg, nil
}

// Default returns the built-in rule table used when no rule file exists.
func Default() *Config {
	cfg := &Config{
		Files: []FileRule{
			{
				Path: "README.md",
				Patterns: []PatternRule{{
					Name:        "Version field",
					Regex:       `\*\*Version:\*\* ` + versionGroup,
					Replacement: "**Version:** ${version}",
				}},
			},
			{
				Path: "docs/index.md",
				Patterns: []PatternRule{{
					Name:        "Version field",
					Regex:       `\| \*\*Version\*\*    \| ` + versionGroup,
					Replacement: "| **Version**    | ${version}",
				}},
			},
			{
				Path: "docs/faq.md",
				Patterns: []PatternRule{{
					Name:        "Production-ready answer",
					Regex:       `Version ` + versionGroup + ` is in Draft status`,
					Replacement: "Version ${version} is in Draft status",
				}},
			},
			{
				Path: "docs/meta/change-log.md",
				Patterns: []PatternRule{{
					Name:        "Current version header",
					Regex:       `## Version ` + versionGroup + ` \(Current\)`,
					Replacement: "## Version ${version} (Current)",
				}},
			},
		},
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("built-in configuration is invalid: %v", err))
	}

	return cfg
}

// expandEnv expands environment variables in path fields. Regexes and
// templates are left alone since "$" is meaningful in both.
func (c *Config) expandEnv() {
	c.Manifest.Path = os.ExpandEnv(c.Manifest.Path)
	for i := range c.Files {
		c.Files[i].Path = os.ExpandEnv(c.Files[i].Path)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Manifest.Path == "" {
		c.Manifest.Path = DefaultManifestPath
	}
	if c.Manifest.Field == "" {
		c.Manifest.Field = DefaultManifestField
	}
	if c.Hint == "" {
		c.Hint = DefaultHint
	}
}

// Validate checks the configuration for errors and compiles every pattern.
// All problems are reported together.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if c.Manifest.Path == "" {
		merr = multierror.Append(merr, errors.New("manifest.path is required"))
	}
	if c.Manifest.Field == "" {
		merr = multierror.Append(merr, errors.New("manifest.field is required"))
	}

	seen := make(map[string]bool, len(c.Files))
	for i := range c.Files {
		f := &c.Files[i]

		if f.Path == "" {
			merr = multierror.Append(merr, fmt.Errorf("files[%d].path is required", i))
		} else if seen[f.Path] {
			merr = multierror.Append(merr, fmt.Errorf("files[%d].path %q is listed more than once", i, f.Path))
		}
		seen[f.Path] = true

		if len(f.Patterns) == 0 {
			merr = multierror.Append(merr, fmt.Errorf("files[%d].patterns must not be empty", i))
		}

		for j := range f.Patterns {
			if err := f.Patterns[j].compile(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("files[%d].patterns[%d]: %w", i, j, err))
			}
		}
	}

	return merr.ErrorOrNil()
}

func (p *PatternRule) compile() error {
	if p.Regex == "" {
		return errors.New("regex is required")
	}

	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	if n := re.NumSubexp(); n != 1 {
		return fmt.Errorf("regex %q must have exactly one capturing group, has %d", p.Regex, n)
	}

	var unknown []string
	os.Expand(p.Replacement, func(key string) string {
		if key != VersionPlaceholder {
			unknown = append(unknown, key)
		}
		return ""
	})
	if len(unknown) > 0 {
		return fmt.Errorf("replacement %q references unknown variables %v", p.Replacement, unknown)
	}

	p.re = re
	return nil
}

// Label returns the human-readable name of the rule, falling back to the
// regex itself.
func (p PatternRule) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Regex
}

// Find returns the version captured by the first match in content.
// The rule must belong to a validated Config.
func (p PatternRule) Find(content string) (string, bool) {
	m := p.re.FindStringSubmatchIndex(content)
	if m == nil || m[2] < 0 {
		return "", false
	}
	return content[m[2]:m[3]], true
}

// Apply replaces the first match in content with the rule's replacement
// for version. With no replacement template only the captured group is
// rewritten. The bool reports whether the pattern matched at all.
func (p PatternRule) Apply(content, version string) (string, bool) {
	m := p.re.FindStringSubmatchIndex(content)
	if m == nil || m[2] < 0 {
		return content, false
	}

	var repl string
	if p.Replacement == "" {
		repl = content[m[0]:m[2]] + version + content[m[3]:m[1]]
	} else {
		repl = os.Expand(p.Replacement, func(string) string { return version })
	}

	return content[:m[0]] + repl + content[m[1]:], true
}
