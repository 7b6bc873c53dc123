package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schaermu/versync/internal/config"
	"github.com/schaermu/versync/internal/docfile"
	"github.com/schaermu/versync/internal/manifest"
)

var (
	// ErrVersionMismatch fails a run in which at least one pattern captured
	// a version different from the canonical one.
	ErrVersionMismatch = errors.New("version mismatch detected")
	// ErrMissingTargets fails a strict run in which a file or pattern was
	// not found.
	ErrMissingTargets = errors.New("version patterns missing")
)

// Status is the outcome of examining one pattern (or one missing file)
type Status int

const (
	StatusMatched Status = iota
	StatusMismatched
	StatusNotFound
	StatusFileNotFound
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusMismatched:
		return "mismatched"
	case StatusNotFound:
		return "not-found"
	case StatusFileNotFound:
		return "file-not-found"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is one reported line of a check run
type Result struct {
	File     string // display path
	Pattern  string // rule label, empty for StatusFileNotFound
	Status   Status
	Found    string
	Expected string
}

// Report collects the results of a check run in configuration order
type Report struct {
	Expected string
	Results  []Result
}

// Mismatched returns true if any pattern captured a non-canonical version
func (r *Report) Mismatched() bool {
	for _, res := range r.Results {
		if res.Status == StatusMismatched {
			return true
		}
	}
	return false
}

// Missing returns true if any file or pattern could not be found
func (r *Report) Missing() bool {
	for _, res := range r.Results {
		if res.Status == StatusNotFound || res.Status == StatusFileNotFound {
			return true
		}
	}
	return false
}

// Err turns the report into the run's verdict. Missing files and patterns
// only fail the run in strict mode.
func (r *Report) Err(strict bool) error {
	if r.Mismatched() {
		return ErrVersionMismatch
	}
	if strict && r.Missing() {
		return ErrMissingTargets
	}
	return nil
}

// Checker compares the configured patterns against the canonical version
type Checker struct {
	cfg    *config.Config
	root   string
	cwd    string
	logger *slog.Logger
}

// NewChecker creates a new checker. Relative rule paths resolve against
// root; reported paths are relative to cwd.
func NewChecker(cfg *config.Config, root, cwd string, logger *slog.Logger) *Checker {
	return &Checker{
		cfg:    cfg,
		root:   root,
		cwd:    cwd,
		logger: logger,
	}
}

// Run examines every pattern of every target file without modifying
// anything.
func (c *Checker) Run(ctx context.Context, version string) (*Report, error) {
	c.logger.Info("starting check", "expected", version, "files", len(c.cfg.Files))

	targets, err := docfile.Resolve(c.root, c.cwd, c.cfg.Files)
	if err != nil {
		return nil, err
	}

	report := &Report{Expected: version}
	for _, tgt := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var content string
		missing := tgt.Missing
		if !missing {
			var readErr error
			content, readErr = docfile.Read(tgt.Path)
			if readErr != nil && !docfile.IsNotExist(readErr) {
				return report, fmt.Errorf("failed to read %s: %w", tgt.Display, readErr)
			}
			missing = readErr != nil
		}

		if missing {
			c.logger.Debug("file not found", "file", tgt.Display)
			report.Results = append(report.Results, Result{
				File:     tgt.Display,
				Status:   StatusFileNotFound,
				Expected: version,
			})
			continue
		}

		for _, p := range tgt.Patterns() {
			report.Results = append(report.Results, c.checkPattern(tgt, p, content, version))
		}
	}

	c.logger.Info("check finished", "results", len(report.Results), "mismatched", report.Mismatched())
	return report, nil
}

func (c *Checker) checkPattern(tgt docfile.Target, p config.PatternRule, content, version string) Result {
	res := Result{
		File:     tgt.Display,
		Pattern:  p.Label(),
		Expected: version,
	}

	found, ok := p.Find(content)
	switch {
	case !ok:
		res.Status = StatusNotFound
		c.logger.Debug("pattern not found", "file", tgt.Display, "pattern", res.Pattern)
	case found != version:
		res.Status = StatusMismatched
		res.Found = found
		c.logger.Debug("version mismatch",
			"file", tgt.Display,
			"pattern", res.Pattern,
			"found", found,
			"expected", version,
			"drift", manifest.Drift(found, version))
	default:
		res.Status = StatusMatched
		res.Found = found
		c.logger.Debug("version matched", "file", tgt.Display, "pattern", res.Pattern)
	}

	return res
}
