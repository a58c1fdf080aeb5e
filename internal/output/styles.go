package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all lipgloss styles for text output
var Styles = struct {
	// Section headers
	Header     lipgloss.Style
	BlockLabel lipgloss.Style

	// Detection styles
	Category   lipgloss.Style
	LineRef    lipgloss.Style
	MatchText  lipgloss.Style
	Suggestion lipgloss.Style

	// Window line styles
	Matched   lipgloss.Style
	ErrorLike lipgloss.Style
	WarnLike  lipgloss.Style
	Plain     lipgloss.Style
	LineNo    lipgloss.Style

	// Status styles
	Success lipgloss.Style
	Failure lipgloss.Style
	Info    lipgloss.Style
	Hint    lipgloss.Style
	Dimmed  lipgloss.Style
	Link    lipgloss.Style
}{
	Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),  // Blue bold
	BlockLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")), // Orange bold

	Category:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),                                // Red bold
	LineRef:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),                                // Bright red bold
	MatchText:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("52")), // White on dark red
	Suggestion: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),                                           // Yellow

	Matched:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("52")),
	ErrorLike: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	WarnLike:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	Plain:     lipgloss.NewStyle().Foreground(lipgloss.Color("243")), // Gray
	LineNo:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),

	Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	Failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	Hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("51")), // Cyan
	Dimmed:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	Link:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Underline(true),
}

// LineStyle returns the style for a window line class
func LineStyle(class LineClass) lipgloss.Style {
	switch class {
	case LineMatched:
		return Styles.Matched
	case LineErrorLike:
		return Styles.ErrorLike
	case LineWarnLike:
		return Styles.WarnLike
	default:
		return Styles.Plain
	}
}

// StatusText returns styled build status text
func StatusText(status string) string {
	if status == "failed" {
		return Styles.Failure.Render(status)
	}
	if status == "success" {
		return Styles.Success.Render(status)
	}
	return Styles.Info.Render(status)
}
