package output

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes rendered reports and status lines to a terminal, applying
// lipgloss styles per block type. All styling decisions live here; the
// renderer itself emits plain blocks.
type Printer struct {
	w       io.Writer
	noColor bool
	quiet   bool
}

// NewPrinter creates a printer for the given writer
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, noColor: noColor}
}

// SetQuiet suppresses informational lines (Info and Dimmed). Headers,
// results, and errors still print.
func (p *Printer) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Header prints a section header underlined with equal signs
func (p *Printer) Header(text string) {
	fmt.Fprintf(p.w, "\n%s\n%s\n",
		p.style(Styles.Header, text),
		p.style(Styles.Header, strings.Repeat("=", len(text))))
}

// Info prints an informational line with an arrow indicator
func (p *Printer) Info(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.style(Styles.Info, "→"), fmt.Sprintf(format, args...))
}

// Success prints a line with a green checkmark indicator
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.style(Styles.Success, "✓"), p.style(Styles.Success, fmt.Sprintf(format, args...)))
}

// Error prints a line with a red cross indicator
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s %s\n", p.style(Styles.Failure, "✗"), p.style(Styles.Failure, fmt.Sprintf(format, args...)))
}

// Dimmed prints a muted status line
func (p *Printer) Dimmed(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.w, p.style(Styles.Dimmed, fmt.Sprintf(format, args...)))
}

// Link prints a line containing a URL with link styling
func (p *Printer) Link(format string, args ...interface{}) {
	fmt.Fprintln(p.w, p.style(Styles.Link, fmt.Sprintf(format, args...)))
}

// Plain prints an unstyled line
func (p *Printer) Plain(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Report prints every block of a rendered report in order
func (p *Printer) Report(r Report) {
	for _, block := range r.Blocks {
		p.block(block)
	}
}

func (p *Printer) block(b Block) {
	if b.Label != "" {
		fmt.Fprintf(p.w, "\n%s\n", p.style(Styles.BlockLabel, "=== "+b.Label+" ==="))
	}

	switch b.Kind {
	case BlockFullLog:
		fmt.Fprintln(p.w, b.Raw)
	case BlockTail:
		for _, line := range b.Lines {
			fmt.Fprintln(p.w, line)
		}
	case BlockDetection:
		p.detection(b)
	case BlockWindow:
		for _, line := range b.Window {
			p.windowLine(line)
		}
	case BlockNextSteps:
		for _, hint := range b.Hints {
			fmt.Fprintf(p.w, "%s\n", p.style(Styles.Hint, "• "+hint))
		}
	}
}

func (p *Printer) detection(b Block) {
	if b.Notice != "" {
		fmt.Fprintln(p.w, p.style(Styles.Info, b.Notice))
		return
	}

	fmt.Fprintf(p.w, "Found %d error pattern(s):\n", len(b.Entries))
	for _, e := range b.Entries {
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.style(Styles.Category, "["+e.Category+"]"),
			p.style(Styles.LineRef, fmt.Sprintf("Line %d:", e.LineNumber)),
			p.style(Styles.MatchText, e.Line))
		if e.Suggestion != "" {
			fmt.Fprintf(p.w, "%s %s\n",
				p.style(Styles.Suggestion, "💡"),
				p.style(Styles.Suggestion, "Suggestion: "+e.Suggestion))
		}
	}
}

func (p *Printer) windowLine(line WindowLine) {
	num := fmt.Sprintf("%5d", line.Number)
	if line.Class == LineMatched {
		fmt.Fprintf(p.w, "%s %s %s\n",
			p.style(Styles.LineRef, num),
			p.style(Styles.LineRef, "►"),
			p.style(Styles.Matched, line.Text))
		return
	}
	fmt.Fprintf(p.w, "%s │ %s\n",
		p.style(Styles.LineNo, num),
		p.style(LineStyle(line.Class), line.Text))
}

// Status returns a build status string colored by outcome
func (p *Printer) Status(status string) string {
	if p.noColor {
		return status
	}
	return StatusText(status)
}

func (p *Printer) style(s interface{ Render(...string) string }, text string) string {
	if p.noColor {
		return text
	}
	return s.Render(text)
}
