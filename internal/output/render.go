// Package output turns scan results and raw log text into displayable
// report blocks. Rendering is a pure transformation; styling happens in the
// printer so the renderer stays testable without a terminal.
package output

import (
	"fmt"
	"strings"

	"github.com/silouanwright/cdb/internal/analyze"
)

// TailWindow is the number of trailing lines shown in the default view.
const TailWindow = 50

// Mode selects the disclosure level for log output.
type Mode int

const (
	// ModeDefault shows smart detection plus the last TailWindow lines
	ModeDefault Mode = iota
	// ModeFull dumps the entire log, bypassing detection
	ModeFull
	// ModeTail shows only the last N lines, no detection
	ModeTail
)

// BlockKind identifies the type of a report block.
type BlockKind string

const (
	BlockFullLog   BlockKind = "full_log"
	BlockTail      BlockKind = "tail"
	BlockDetection BlockKind = "detection"
	BlockWindow    BlockKind = "window"
	BlockNextSteps BlockKind = "next_steps"
)

// LineClass drives per-line styling in the default-mode tail window.
type LineClass string

const (
	LineMatched   LineClass = "matched"
	LineErrorLike LineClass = "error"
	LineWarnLike  LineClass = "warning"
	LinePlain     LineClass = "plain"
)

// NoMatchNotice is shown when the catalogue found nothing.
const NoMatchNotice = "No specific error patterns detected"

// WindowLine is one numbered, classified line of the tail window.
type WindowLine struct {
	Number int       `json:"number"`
	Text   string    `json:"text"`
	Class  LineClass `json:"class"`
}

// DetectionEntry is one catalogue match prepared for display.
type DetectionEntry struct {
	Category   string `json:"category"`
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Block is one labeled section of a rendered report. Only the fields
// relevant to its kind are populated.
type Block struct {
	Kind    BlockKind        `json:"kind"`
	Label   string           `json:"label,omitempty"`
	Raw     string           `json:"raw,omitempty"`
	Lines   []string         `json:"lines,omitempty"`
	Entries []DetectionEntry `json:"entries,omitempty"`
	Notice  string           `json:"notice,omitempty"`
	Window  []WindowLine     `json:"window,omitempty"`
	Hints   []string         `json:"hints,omitempty"`
}

// Report is an ordered sequence of blocks, consumed once by a printer.
type Report struct {
	Blocks []Block `json:"blocks"`
}

// RenderOptions configures one render call.
type RenderOptions struct {
	Mode      Mode
	TailN     int    // line count for ModeTail
	CachePath string // where the full log was saved, for the next-steps hint
}

// Render produces the report blocks for a log body under the selected
// disclosure mode. Full mode wins if both full and tail were requested
// upstream; that precedence is resolved by the caller choosing the Mode.
func Render(body string, res analyze.ScanResult, opts RenderOptions) Report {
	switch opts.Mode {
	case ModeFull:
		return Report{Blocks: []Block{{
			Kind:  BlockFullLog,
			Label: "FULL LOG OUTPUT",
			Raw:   body,
		}}}
	case ModeTail:
		return Report{Blocks: []Block{{
			Kind:  BlockTail,
			Label: fmt.Sprintf("LAST %d LINES", opts.TailN),
			Lines: lastLines(splitLines(body), opts.TailN),
		}}}
	default:
		return renderDefault(body, res, opts.CachePath)
	}
}

func renderDefault(body string, res analyze.ScanResult, cachePath string) Report {
	detection := Block{
		Kind:  BlockDetection,
		Label: "SMART ERROR DETECTION",
	}
	if len(res.Matches) == 0 {
		detection.Notice = NoMatchNotice
	} else {
		for _, m := range res.Matches {
			detection.Entries = append(detection.Entries, DetectionEntry{
				Category:   m.Category,
				LineNumber: m.LineNumber,
				Line:       strings.TrimSpace(m.Line),
				Suggestion: analyze.SuggestionFor(m.Category, m.Line),
			})
		}
	}

	lines := splitLines(body)
	start := 0
	if len(lines) > TailWindow {
		start = len(lines) - TailWindow
	}

	window := Block{
		Kind:  BlockWindow,
		Label: fmt.Sprintf("LAST %d LINES (BUILD EXIT ZONE)", TailWindow),
	}
	for i, line := range lines[start:] {
		num := start + i + 1
		trimmed := strings.TrimSpace(line)
		window.Window = append(window.Window, WindowLine{
			Number: num,
			Text:   trimmed,
			Class:  classify(trimmed, res.MatchedLines[num]),
		})
	}

	hints := []string{
		"Use --full to see complete logs",
		"Use --tail 100 to see more context",
	}
	if cachePath != "" {
		hints = append(hints, "Full logs saved at: "+cachePath)
	}
	hints = append(hints, "For AI: If error not found above, rerun with --full flag")

	return Report{Blocks: []Block{
		detection,
		window,
		{Kind: BlockNextSteps, Label: "DIDN'T FIND YOUR ERROR?", Hints: hints},
	}}
}

// classify picks the style class for a window line. Matched status takes
// precedence over text-based heuristics.
func classify(trimmed string, matched bool) LineClass {
	if matched {
		return LineMatched
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") ||
		strings.Contains(trimmed, "✗") || strings.Contains(trimmed, "FAIL") {
		return LineErrorLike
	}
	if strings.Contains(lower, "warn") {
		return LineWarnLike
	}
	return LinePlain
}

// splitLines splits log text into lines, dropping the empty trailing
// element a final newline would produce. An empty body has zero lines.
func splitLines(body string) []string {
	if body == "" {
		return nil
	}
	lines := strings.Split(body, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// lastLines returns the final n lines in original order, or all of them
// when the log is shorter.
func lastLines(lines []string, n int) []string {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
