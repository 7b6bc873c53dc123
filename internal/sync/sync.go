package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/schaermu/versync/internal/config"
	"github.com/schaermu/versync/internal/docfile"
)

// Engine orchestrates the sync process
type Engine struct {
	cfg    *config.Config
	root   string
	cwd    string
	logger *slog.Logger
	dryRun bool
}

// NewEngine creates a new sync engine. Relative rule paths resolve against
// root; reported paths are relative to cwd.
func NewEngine(cfg *config.Config, root, cwd string, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:    cfg,
		root:   root,
		cwd:    cwd,
		logger: logger,
		dryRun: dryRun,
	}
}

// Run rewrites every target file so its patterns carry version. Missing
// files and patterns are recorded, not fatal. Write failures are collected
// and returned once every file was attempted, together with the outcome.
func (e *Engine) Run(ctx context.Context, version string) (*Outcome, error) {
	e.logger.Info("starting sync",
		"version", version,
		"files", len(e.cfg.Files),
		"dry_run", e.dryRun)

	outcome := &Outcome{Version: version, DryRun: e.dryRun}

	plan, err := e.buildPlan(ctx, version, outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync plan: %w", err)
	}

	e.logger.Info("sync plan", "update", len(plan.Update))

	// check for dry-run mode
	if e.dryRun {
		e.logPlanDetails(plan)
		e.logger.Info("dry-run complete, no changes applied")
		return outcome, nil
	}

	if err := e.applyPlan(plan, outcome); err != nil {
		return outcome, fmt.Errorf("failed to apply sync plan: %w", err)
	}

	e.logger.Info("sync completed", "updated", outcome.Updated())
	return outcome, nil
}

// buildPlan reads every target and computes its new content
func (e *Engine) buildPlan(ctx context.Context, version string, outcome *Outcome) (*Plan, error) {
	plan := &Plan{Update: make([]FileOp, 0)}

	targets, err := docfile.Resolve(e.root, e.cwd, e.cfg.Files)
	if err != nil {
		return nil, err
	}

	for _, tgt := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var content string
		missing := tgt.Missing
		if !missing {
			var readErr error
			content, readErr = docfile.Read(tgt.Path)
			if readErr != nil && !docfile.IsNotExist(readErr) {
				return nil, fmt.Errorf("failed to read %s: %w", tgt.Display, readErr)
			}
			missing = readErr != nil
		}
		if missing {
			e.logger.Debug("file not found", "file", tgt.Display)
			outcome.Files = append(outcome.Files, FileOutcome{File: tgt.Display, Status: FileNotFound})
			continue
		}

		updated, applied := e.rewrite(tgt, content, version)
		if updated == content {
			e.logger.Debug("no changes needed", "file", tgt.Display)
			outcome.Files = append(outcome.Files, FileOutcome{File: tgt.Display, Status: FileUnchanged})
			continue
		}

		plan.Update = append(plan.Update, FileOp{
			Path:    tgt.Path,
			File:    tgt.Display,
			Content: updated,
		})
		outcome.Files = append(outcome.Files, FileOutcome{
			File:    tgt.Display,
			Status:  FileUpdated,
			Applied: applied,
		})
	}

	return plan, nil
}

// rewrite applies each pattern of the target's rule in declared order and
// returns the new content plus the labels of patterns that changed it.
func (e *Engine) rewrite(tgt docfile.Target, content, version string) (string, []string) {
	var applied []string

	for _, p := range tgt.Patterns() {
		next, matched := p.Apply(content, version)
		switch {
		case !matched:
			e.logger.Debug("pattern not found", "file", tgt.Display, "pattern", p.Label())
		case next != content:
			applied = append(applied, p.Label())
			content = next
		}
	}

	return content, applied
}

// applyPlan writes every planned rewrite. A failed write does not stop the
// others.
func (e *Engine) applyPlan(plan *Plan, outcome *Outcome) error {
	var merr *multierror.Error

	for _, op := range plan.Update {
		e.logger.Info("updating file", "file", op.File)
		if err := docfile.WriteInPlace(op.Path, op.Content); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to update file %s: %w", op.File, err))
			outcome.markFailed(op.File, err)
		}
	}

	return merr.ErrorOrNil()
}

// logPlanDetails logs detailed plan information for dry-run
func (e *Engine) logPlanDetails(plan *Plan) {
	for _, op := range plan.Update {
		e.logger.Info("[dry-run] would update", "file", op.File)
	}
}

func (o *Outcome) markFailed(file string, err error) {
	for i := range o.Files {
		if o.Files[i].File == file {
			o.Files[i].Status = FileFailed
			o.Files[i].Err = err
		}
	}
}
