// Package cliui provides reusable terminal UI helpers (styled marks, aligned
// key/value output, run summaries) for testwise CLI commands.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/testwiseco/testwise/pkg/execution"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	SkipMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("-")

	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderSummary writes the final execution summary for the run command.
func RenderSummary(w io.Writer, summary *execution.Summary, elapsed time.Duration) {
	mark := SuccessMark
	if summary.Failed > 0 {
		mark = FailMark
	}

	fmt.Fprintf(w, "\n%s %s\n", mark, KeyStyle.Render("Test run finished"))
	fmt.Fprintf(w, "  %s %d\n", DimStyle.Render("total:"), summary.Total)
	fmt.Fprintf(w, "  %s %d\n", DimStyle.Render("passed:"), summary.Passed)
	fmt.Fprintf(w, "  %s %d\n", DimStyle.Render("failed:"), summary.Failed)
	fmt.Fprintf(w, "  %s %d\n", DimStyle.Render("skipped:"), summary.Skipped)
	fmt.Fprintf(w, "  %s %s\n", DimStyle.Render("elapsed:"), FormatDuration(elapsed))
}
