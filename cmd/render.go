package cmd

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pterm/pterm"

	"github.com/illustraitor/cli/internal/adapter"
	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/util"
)

type rendererOptions struct {
	// Spinner shows an animated spinner while a call is loading.
	Spinner bool
	// Quiet suppresses status lines, for machine-readable output.
	Quiet bool
}

// ptermRenderer shows adapter events as terminal status lines. Failures are
// reported by the command that returns them, except while ReportErrors is
// set (a long-running watch, where the command keeps going).
type ptermRenderer struct {
	mu      sync.Mutex
	w       io.Writer
	opts    rendererOptions
	spinner *pterm.SpinnerPrinter

	reportErrors bool
	timestamps   bool
}

var _ adapter.Renderer = (*ptermRenderer)(nil)

func newRenderer(w io.Writer, opts rendererOptions) *ptermRenderer {
	return &ptermRenderer{w: w, opts: opts}
}

// ReportErrors makes the renderer print failures itself and prefix lines
// with the time of day.
func (r *ptermRenderer) ReportErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reportErrors = true
	r.timestamps = true
}

func (r *ptermRenderer) Render(e adapter.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.State {
	case adapter.StateLoading:
		r.stopLocked()
		if r.opts.Quiet || !r.opts.Spinner {
			return
		}
		r.spinner, _ = pterm.DefaultSpinner.
			WithRemoveWhenDone(true).
			WithWriter(r.w).
			Start(e.Message + "...")

	case adapter.StateSuccess:
		r.stopLocked()
		if r.opts.Quiet {
			return
		}
		pterm.Success.Println(r.prefix() + e.Message)
		if e.Hint != "" {
			pterm.Warning.Println(e.Hint)
		}

	case adapter.StateError:
		r.stopLocked()
		if r.opts.Quiet {
			return
		}
		if r.reportErrors {
			pterm.Error.Println(r.prefix() + e.Message)
		}
		if v, ok := e.Result.(adapter.CreditsView); ok && v.Cached {
			pterm.Info.Printfln("Last known balance: %s (cached)", util.Plural(v.Credits, "credit"))
		}
	}
}

// Stop clears a running spinner.
func (r *ptermRenderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *ptermRenderer) stopLocked() {
	if r.spinner != nil {
		_ = r.spinner.Stop()
		r.spinner = nil
	}
}

func (r *ptermRenderer) prefix() string {
	if !r.timestamps {
		return ""
	}
	return time.Now().Format("15:04:05") + "  "
}

// Styled reports whether output goes to an interactive terminal.
func (r *ptermRenderer) Styled() bool { return r.opts.Spinner }

var (
	aiBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#1FA382")).
		Padding(0, 1)
	demoBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#1F1F1F")).
		Background(lipgloss.Color("#F59E0B")).
		Padding(0, 1)
)

// modeBadge labels which backend produced res.
func modeBadge(res *illustraitor.GenerationResult, styled bool) string {
	label := res.ModeLabel()
	if !styled {
		return label
	}
	if res.IsAI() {
		return aiBadge.Render(label)
	}
	return demoBadge.Render(label)
}
