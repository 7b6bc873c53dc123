package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schaermu/versync/internal/check"
	"github.com/schaermu/versync/internal/config"
	"github.com/schaermu/versync/internal/manifest"
	"github.com/schaermu/versync/internal/project"
	"github.com/schaermu/versync/internal/report"
	"github.com/schaermu/versync/internal/sync"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile      string
	manifestPath string
	workDir      string
	logLevel     string
	logFormat    string
	colorMode    string

	// Command flags
	dryRun bool
	strict bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Verdicts were already reported by the printer.
		if !errors.Is(err, check.ErrVersionMismatch) && !errors.Is(err, check.ErrMissingTargets) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "versync",
	Short: "Keep documentation version strings in sync with the manifest",
	Long: `versync reads the canonical version from a manifest (package.json by default)
and keeps the version strings embedded in documentation files consistent with it.

Use "versync check" in CI to fail on drift and "versync sync" to fix it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that documentation files carry the manifest version",
	Long: `Check searches every configured file for its version patterns and reports
each one as matched, mismatched or not found.

The command exits non-zero when at least one pattern captured a version that
differs from the manifest. Missing files and patterns are warnings unless
--strict is set.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rewrite documentation files to carry the manifest version",
	Long: `Sync replaces the first match of every configured pattern with the manifest
version and rewrites changed files in place. Running it twice is a no-op.

Missing files and patterns are reported but never fail the run.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "versync %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "rule file (default is "+config.DefaultFileName+" at the project root, else built-in rules)")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "manifest to read the version from (overrides the rule file)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "chdir", "C", ".", "run as if started in this directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", string(report.ColorAuto), "colorize output (auto, always, never)")

	// Command flags
	checkCmd.Flags().BoolVar(&strict, "strict", false, "also fail when a file or pattern is missing")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Add commands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

// workspace is everything a run needs once configuration and manifest are
// loaded
type workspace struct {
	cfg     *config.Config
	root    string
	cwd     string
	version string
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger(cmd.ErrOrStderr())

	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace(logger)
	if err != nil {
		return err
	}

	checker := check.NewChecker(ws.cfg, ws.root, ws.cwd, logger)
	rep, err := checker.Run(ctx, ws.version)
	if err != nil {
		logger.Error("check failed", "error", err)
		return err
	}

	printer.Check(rep, ws.cfg.Hint, strict)
	return rep.Err(strict)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger(cmd.ErrOrStderr())

	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	ws, err := loadWorkspace(logger)
	if err != nil {
		return err
	}

	engine := sync.NewEngine(ws.cfg, ws.root, ws.cwd, logger, dryRun)
	outcome, err := engine.Run(ctx, ws.version)
	if outcome != nil {
		printer.Sync(outcome)
	}
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}

	return nil
}

func newPrinter(cmd *cobra.Command) (*report.Printer, error) {
	mode, err := report.ParseColorMode(colorMode)
	if err != nil {
		return nil, err
	}
	return report.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode), nil
}

func setupLogger(w io.Writer) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug", "trace":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// loadWorkspace loads the rules and reads the canonical version. Every
// error here is fatal and happens before any documentation file is read.
func loadWorkspace(logger *slog.Logger) (*workspace, error) {
	cwd, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	cfg, root, err := loadConfig(logger, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	manifestFile := project.Resolve(root, cfg.Manifest.Path)
	if manifestPath != "" {
		manifestFile = project.Resolve(cwd, manifestPath)
	}

	logger.Info("reading manifest", "path", manifestFile, "field", cfg.Manifest.Field)
	v, err := manifest.Read(manifestFile, cfg.Manifest.Field)
	if err != nil {
		return nil, err
	}

	return &workspace{
		cfg:     cfg,
		root:    root,
		cwd:     cwd,
		version: v,
	}, nil
}

// loadConfig returns the rule table and the directory its paths are
// relative to.
func loadConfig(logger *slog.Logger, cwd string) (*config.Config, string, error) {
	if cfgFile != "" {
		path := project.Resolve(cwd, os.ExpandEnv(cfgFile))
		logger.Info("loading configuration", "path", path)

		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, filepath.Dir(path), nil
	}

	root, err := project.FindRoot(cwd, config.DefaultFileName, config.DefaultManifestPath)
	if err != nil {
		logger.Debug("no project root found, using working directory", "cwd", cwd)
		root = cwd
	}

	path := filepath.Join(root, config.DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		logger.Info("no rule file found, using built-in rules", "root", root)
		return config.Default(), root, nil
	}

	logger.Info("loading configuration", "path", path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	logger.Debug("configuration loaded",
		"manifest", cfg.Manifest.Path,
		"field", cfg.Manifest.Field,
		"files", len(cfg.Files))

	return cfg, root, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
