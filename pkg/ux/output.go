// Package ux renders CHTL compiler diagnostics and compile summaries for
// the cmd/chtl CLI.
//
// Adapted from the teacher's pkg/ux/output.go: the lipgloss.Style table
// and semantic Success/Warning/Error color scheme are kept as-is, but the
// chat-personality machinery (personality.go, spinner.go, prompt.go,
// chat.go, stream.go, reader.go) is dropped — a batch source-to-source
// compiler has no interactive chat surface to style, only a diagnostic
// report to print once per compile.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/chtl-lang/chtl/internal/compiler/diag"
)

var (
	ColorTealBright = lipgloss.Color("#2CD7C7")
	ColorTealDeep   = lipgloss.Color("#16858E")
	ColorSlate      = lipgloss.Color("#2C4A54")
	ColorSuccess    = lipgloss.Color("#2CD7C7")
	ColorWarning    = lipgloss.Color("#F4D03F")
	ColorError      = lipgloss.Color("#E74C3C")
	ColorMuted      = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles for diagnostic output.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a themed status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
)

func (i Icon) styled() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// PrintDiagnostic writes one position-tagged compiler Diagnostic to
// stderr, colored by severity.
func PrintDiagnostic(filename string, d diag.Diagnostic) {
	icon := IconWarning
	style := Styles.Warning
	if d.Severity == diag.SeverityError {
		icon = IconError
		style = Styles.Error
	}
	fmt.Fprintf(os.Stderr, "%s %s %s:%d:%d: %s\n",
		icon.styled(), style.Render(string(d.Phase)), filename,
		d.Position.Line, d.Position.Column, d.Message)
}

// PrintSummary prints a one-line box summarizing a compile's outcome.
func PrintSummary(filename string, success bool, errCount, warnCount int, durationMs int64) {
	status := Styles.Success.Render("OK")
	if !success {
		status = Styles.Error.Render("FAILED")
	}
	body := fmt.Sprintf("%s  %s  errors=%d warnings=%d  %dms",
		status, filename, errCount, warnCount, durationMs)
	fmt.Println(Styles.Box.Render(body))
}

// Info prints a muted informational line (e.g. `chtl watch` rebuild notices).
func Info(text string) {
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}
