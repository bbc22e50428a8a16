// Package report renders a finished batch for people (Text) and for
// machines (JSON).
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Iron-Ham/ssbatch/internal/batch"
	"github.com/Iron-Ham/ssbatch/internal/errors"
	"github.com/Iron-Ham/ssbatch/internal/pair"
	"github.com/Iron-Ham/ssbatch/internal/util"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DefaultOutputLines is how many trailing output lines are shown per
// failed pair.
const DefaultOutputLines = 20

// maxErrorWidth bounds the inline error column.
const maxErrorWidth = 100

// Options controls text rendering.
type Options struct {
	// Color enables lipgloss styling.
	Color bool
	// OutputLines is the number of captured output lines shown for failed
	// pairs; zero means DefaultOutputLines, negative hides output.
	OutputLines int
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type painter bool

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p {
		return s
	}
	return style.Render(s)
}

// Text writes a human-readable summary: one line per pair in index order,
// captured output under each failure, and a closing tally.
func Text(w io.Writer, res *batch.Result, opts Options) error {
	p := painter(opts.Color)
	lines := opts.OutputLines
	if lines == 0 {
		lines = DefaultOutputLines
	}

	var idWidth, dirWidth int
	for _, e := range res.Entries {
		idWidth = max(idWidth, len(e.ID.String()))
		dirWidth = max(dirWidth, len(e.Dir))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.paint(headerStyle, fmt.Sprintf("Batch %s (%s)", res.RunID, res.Duration().Round(time.Millisecond))))

	for _, e := range res.Entries {
		mark, style := statusMark(e)
		status := util.PadRight(e.Status.String(), len("success"))
		fmt.Fprintf(&b, "  %s %s  %s  %s",
			p.paint(style, mark),
			util.PadRight(e.ID.String(), idWidth),
			util.PadRight(e.Dir, dirWidth),
			p.paint(style, status),
		)

		switch {
		case e.Err != nil:
			fmt.Fprintf(&b, "  %s", util.TruncateString(e.Err.Error(), maxErrorWidth))
		case e.Warning != nil:
			fmt.Fprintf(&b, "  %s", p.paint(warningStyle, "warning: "+util.TruncateString(e.Warning.Error(), maxErrorWidth)))
		case e.Duration > 0:
			fmt.Fprintf(&b, "  %s", e.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n")

		if e.Status == pair.StatusFailed && lines > 0 {
			for _, l := range util.TailLines(failureOutput(e.Err), lines) {
				fmt.Fprintf(&b, "      %s\n", p.paint(outputStyle, "| "+l))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(tally(res.Counts()))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func statusMark(e pair.Outcome) (string, lipgloss.Style) {
	switch {
	case e.Status == pair.StatusFailed:
		return "x", failedStyle
	case e.Status == pair.StatusSkipped:
		return "-", skippedStyle
	case e.Warning != nil:
		return "!", warningStyle
	default:
		return "+", successStyle
	}
}

func failureOutput(err error) string {
	var pe *errors.PairError
	if errors.As(err, &pe) {
		return pe.Output
	}
	return ""
}

func tally(c batch.Counts) string {
	parts := []string{
		fmt.Sprintf("%d succeeded", c.Succeeded),
		fmt.Sprintf("%d failed", c.Failed),
	}
	if c.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", c.Skipped))
	}
	if c.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d with warnings", c.Warnings))
	}
	noun := "pairs"
	if c.Total == 1 {
		noun = "pair"
	}
	return fmt.Sprintf("%d %s: %s", c.Total, noun, strings.Join(parts, ", "))
}
