package check_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/versync/internal/check"
	"github.com/schaermu/versync/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheckerAllMatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "README.md", "# Project\n\n**Version:** 2.3.0\n")
	writeFile(t, root, "docs/index.md", "| **Version**    | 2.3.0 |\n")
	writeFile(t, root, "docs/faq.md", "Version 2.3.0 is in Draft status.\n")
	writeFile(t, root, "docs/meta/change-log.md", "## Version 2.3.0 (Current)\n")

	report, err := check.NewChecker(config.Default(), root, root, testLogger()).Run(context.Background(), "2.3.0")
	require.NoError(t, err)

	require.Len(t, report.Results, 4)
	for _, res := range report.Results {
		assert.Equal(t, check.StatusMatched, res.Status, res.File)
		assert.Equal(t, "2.3.0", res.Found)
	}
	assert.False(t, report.Mismatched())
	assert.False(t, report.Missing())
	assert.NoError(t, report.Err(true))
}

func TestCheckerMismatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "README.md", "**Version:** 2.2.9\n")
	writeFile(t, root, "docs/index.md", "| **Version**    | 2.3.0 |\n")
	writeFile(t, root, "docs/faq.md", "Version 2.3.0 is in Draft status.\n")
	writeFile(t, root, "docs/meta/change-log.md", "## Version 2.3.0 (Current)\n")

	report, err := check.NewChecker(config.Default(), root, root, testLogger()).Run(context.Background(), "2.3.0")
	require.NoError(t, err)

	require.Len(t, report.Results, 4)
	assert.Equal(t, check.Result{
		File:     "README.md",
		Pattern:  "Version field",
		Status:   check.StatusMismatched,
		Found:    "2.2.9",
		Expected: "2.3.0",
	}, report.Results[0])
	assert.True(t, report.Mismatched())
	require.ErrorIs(t, report.Err(false), check.ErrVersionMismatch)
}

func TestCheckerMissingFileAndPattern(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "README.md", "no version here\n")
	writeFile(t, root, "docs/faq.md", "Version 2.3.0 is in Draft status.\n")
	writeFile(t, root, "docs/meta/change-log.md", "## Version 2.3.0 (Current)\n")

	report, err := check.NewChecker(config.Default(), root, root, testLogger()).Run(context.Background(), "2.3.0")
	require.NoError(t, err)

	var statuses []check.Status
	for _, res := range report.Results {
		statuses = append(statuses, res.Status)
	}
	assert.Equal(t, []check.Status{
		check.StatusNotFound,
		check.StatusFileNotFound,
		check.StatusMatched,
		check.StatusMatched,
	}, statuses)
	assert.Equal(t, "docs/index.md", report.Results[1].File)
	assert.Empty(t, report.Results[1].Pattern)

	// Warnings alone do not fail the run unless strict.
	assert.NoError(t, report.Err(false))
	require.ErrorIs(t, report.Err(true), check.ErrMissingTargets)
}

func TestCheckerMismatchWinsOverMissing(t *testing.T) {
	t.Parallel()

	report := &check.Report{Results: []check.Result{
		{Status: check.StatusFileNotFound},
		{Status: check.StatusMismatched},
	}}
	require.ErrorIs(t, report.Err(true), check.ErrVersionMismatch)
}

func TestCheckerOrderFollowsConfiguration(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "b.md", "v1.0.0 r1.0.0")
	writeFile(t, root, "a.md", "v1.0.0")

	cfg := &config.Config{
		Manifest: config.ManifestConfig{Path: "package.json", Field: "version"},
		Files: []config.FileRule{
			{Path: "b.md", Patterns: []config.PatternRule{
				{Name: "second", Regex: `r(\d+\.\d+\.\d+)`},
				{Name: "first", Regex: `v(\d+\.\d+\.\d+)`},
			}},
			{Path: "a.md", Patterns: []config.PatternRule{
				{Name: "only", Regex: `v(\d+\.\d+\.\d+)`},
			}},
		},
	}
	require.NoError(t, cfg.Validate())

	report, err := check.NewChecker(cfg, root, root, testLogger()).Run(context.Background(), "1.0.0")
	require.NoError(t, err)

	var got []string
	for _, res := range report.Results {
		got = append(got, res.File+":"+res.Pattern)
	}
	assert.Equal(t, []string{"b.md:second", "b.md:first", "a.md:only"}, got)
}

func TestCheckerGlobRule(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "docs/v1/install.md", "helm install --version 1.0.0")
	writeFile(t, root, "docs/v2/install.md", "helm install --version 0.9.0")

	cfg := &config.Config{
		Manifest: config.ManifestConfig{Path: "package.json", Field: "version"},
		Files: []config.FileRule{{
			Path:     "docs/**/install.md",
			Patterns: []config.PatternRule{{Name: "helm", Regex: `--version (\d+\.\d+\.\d+)`}},
		}},
	}
	require.NoError(t, cfg.Validate())

	report, err := check.NewChecker(cfg, root, root, testLogger()).Run(context.Background(), "1.0.0")
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "docs/v1/install.md", report.Results[0].File)
	assert.Equal(t, check.StatusMatched, report.Results[0].Status)
	assert.Equal(t, "docs/v2/install.md", report.Results[1].File)
	assert.Equal(t, check.StatusMismatched, report.Results[1].Status)
}

func TestCheckerDoesNotModifyFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "README.md", "**Version:** 2.2.9\n")

	_, err := check.NewChecker(config.Default(), root, root, testLogger()).Run(context.Background(), "2.3.0")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "**Version:** 2.2.9\n", string(data))
}

func TestCheckerCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := check.NewChecker(config.Default(), t.TempDir(), "", testLogger()).Run(ctx, "2.3.0")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "matched", check.StatusMatched.String())
	assert.Equal(t, "file-not-found", check.StatusFileNotFound.String())
	assert.Equal(t, "status(9)", check.Status(9).String())
}
