// Package filter normalizes raw log text before analysis: ANSI escape
// removal and optional substring restriction.
package filter

import (
	"regexp"
	"strings"
)

// ansiRe matches SGR color/formatting escape sequences
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes terminal color escape sequences from log text
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// SubstringResult reports the outcome of a substring restriction.
type SubstringResult struct {
	Text     string // filtered text, or the original when nothing matched
	Matched  int    // number of lines kept
	Total    int    // number of lines in the input
	Fallback bool   // true when no line matched and the original text was kept
}

// Substring keeps only the lines containing needle. When no line matches,
// the original text is returned unchanged so downstream analysis still has
// something to work with.
func Substring(s, needle string) SubstringResult {
	// A trailing newline does not start a new line
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	res := SubstringResult{Total: len(lines)}

	if needle == "" {
		res.Text = s
		res.Matched = len(lines)
		return res
	}

	var kept []string
	for _, line := range lines {
		if strings.Contains(line, needle) {
			kept = append(kept, line)
		}
	}

	if len(kept) == 0 {
		res.Text = s
		res.Fallback = true
		return res
	}

	res.Text = strings.Join(kept, "\n")
	res.Matched = len(kept)
	return res
}
