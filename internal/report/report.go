package report

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/schaermu/versync/internal/check"
	"github.com/schaermu/versync/internal/sync"
)

// ColorMode controls styling of the console markers
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color flag value
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (must be auto, always, or never)", s)
	}
}

// Markers used at the start of every reported line
const (
	MarkSuccess   = "✓"
	MarkFailure   = "✗"
	MarkWarning   = "⚠"
	MarkUnchanged = "-"
	MarkPlanned   = "~"
)

// Printer writes the human-readable console contract. Success lines go to
// out, failures and warnings to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

// NewPrinter creates a printer. In auto mode color is used only when out
// is a terminal.
func NewPrinter(out, errOut io.Writer, mode ColorMode) *Printer {
	r := lipgloss.NewRenderer(out)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	default:
		if !isTerminal(out) {
			r.SetColorProfile(termenv.Ascii)
		}
	}

	return &Printer{
		out:     out,
		errOut:  errOut,
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		failure: r.NewStyle().Foreground(lipgloss.Color("1")),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// CheckHeader announces a check run
func (p *Printer) CheckHeader(expected string) {
	fmt.Fprintf(p.out, "Checking version consistency (expected: %s)...\n\n", expected)
}

// CheckResult prints the line for one result
func (p *Printer) CheckResult(res check.Result) {
	switch res.Status {
	case check.StatusMatched:
		fmt.Fprintf(p.out, "%s %s (%s): %s\n", p.success.Render(MarkSuccess), res.File, res.Pattern, res.Found)
	case check.StatusMismatched:
		fmt.Fprintf(p.errOut, "%s %s (%s): Found %s, expected %s\n",
			p.failure.Render(MarkFailure), res.File, res.Pattern, res.Found, res.Expected)
	case check.StatusNotFound:
		fmt.Fprintf(p.errOut, "%s %s (%s): Pattern not found\n", p.warning.Render(MarkWarning), res.File, res.Pattern)
	case check.StatusFileNotFound:
		p.fileNotFound(res.File)
	}
}

// CheckSummary prints the closing line of a check run. The hint is shown
// when versions are out of sync.
func (p *Printer) CheckSummary(rep *check.Report, hint string, strict bool) {
	fmt.Fprintln(p.out)

	switch {
	case rep.Mismatched():
		fmt.Fprintf(p.errOut, "Version mismatch detected! %s\n", hint)
	case strict && rep.Missing():
		fmt.Fprintln(p.errOut, "Version patterns missing in strict mode.")
	default:
		fmt.Fprintln(p.out, "All version numbers are in sync.")
	}
}

// Check prints a complete check report
func (p *Printer) Check(rep *check.Report, hint string, strict bool) {
	p.CheckHeader(rep.Expected)
	for _, res := range rep.Results {
		p.CheckResult(res)
	}
	p.CheckSummary(rep, hint, strict)
}

// SyncHeader announces a sync run
func (p *Printer) SyncHeader(version string) {
	fmt.Fprintf(p.out, "Syncing version %s across documentation files...\n\n", version)
}

// SyncFile prints the line for one file
func (p *Printer) SyncFile(f sync.FileOutcome, dryRun bool) {
	switch f.Status {
	case sync.FileUpdated:
		if dryRun {
			fmt.Fprintf(p.out, "%s Would update %s\n", p.warning.Render(MarkPlanned), f.File)
			return
		}
		fmt.Fprintf(p.out, "%s Updated %s\n", p.success.Render(MarkSuccess), f.File)
	case sync.FileUnchanged:
		fmt.Fprintf(p.out, "%s No changes needed in %s\n", MarkUnchanged, f.File)
	case sync.FileNotFound:
		p.fileNotFound(f.File)
	case sync.FileFailed:
		fmt.Fprintf(p.errOut, "%s Failed to update %s: %v\n", p.failure.Render(MarkFailure), f.File, f.Err)
	}
}

// SyncSummary prints the closing line of a sync run
func (p *Printer) SyncSummary(o *sync.Outcome) {
	if o.DryRun {
		fmt.Fprintf(p.out, "\nDry run complete. Would update %d file(s).\n", o.Updated())
		return
	}
	fmt.Fprintf(p.out, "\nSync complete. Updated %d file(s).\n", o.Updated())
}

// Sync prints a complete sync outcome
func (p *Printer) Sync(o *sync.Outcome) {
	p.SyncHeader(o.Version)
	for _, f := range o.Files {
		p.SyncFile(f, o.DryRun)
	}
	p.SyncSummary(o)
}

func (p *Printer) fileNotFound(file string) {
	fmt.Fprintf(p.errOut, "%s: File not found: %s\n", p.warning.Render("Warning"), file)
}
