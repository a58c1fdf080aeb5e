// Package analyze contains the error-signature detection engine: a fixed,
// ordered catalogue of failure patterns applied to normalized log text.
package analyze

import (
	"regexp"
	"strings"
)

// MatchCap bounds the number of matches returned per scan so output stays
// readable for pathologically repetitive logs.
const MatchCap = 5

// ErrorSignature is one entry of the detection catalogue: a case-insensitive
// pattern and the category label attributed to lines it matches.
type ErrorSignature struct {
	re       *regexp.Regexp
	Category string
}

// signatures is ordered by confidence, most specific first. Order is
// load-bearing: scanning stops once MatchCap matches are collected, so a
// repetitive early signature can exhaust the cap before later ones run.
var signatures = compileSignatures([]signatureSpec{
	// High confidence, specific errors
	{`(?i)\[commonjs--resolver\].*failed to resolve`, "Module Resolution"},
	{`(?i)cannot find module`, "Missing Module"},
	{`(?i)ENOENT:.*no such file or directory`, "File Not Found"},
	{`(?i)syntaxerror:`, "Syntax Error"},
	{`(?i)typeerror:`, "Type Error"},
	{`(?i)referenceerror:`, "Reference Error"},
	{`(?i)segmentation fault`, "Segfault"},
	{`(?i)(oom|out of memory|memory limit)`, "Out of Memory"},
	// Build & compilation
	{`(?i)build failed`, "Build Failure"},
	{`(?i)compilation failed`, "Compilation Error"},
	{`(?i)error TS\d+:`, "TypeScript Error"},
	{`(?i)eslint.*error`, "Lint Error"},
	// Test failures
	{`(?i)test.*failed`, "Test Failure"},
	{`(?i)assertion.*failed`, "Assertion Failure"},
	{`(?i)\d+ (test|tests|spec|specs) failed`, "Test Suite Failure"},
	// Package & dependency
	{`(?i)npm err!`, "NPM Error"},
	{`(?i)yarn error`, "Yarn Error"},
	{`(?i)dependency.*not found`, "Missing Dependency"},
	// Exit indicators
	{`(?i)exited with (code|status) [1-9]`, "Non-zero Exit"},
	{`(?i)command failed`, "Command Failure"},
})

type signatureSpec struct {
	pattern  string
	category string
}

// compileSignatures compiles the static catalogue once at startup. A
// malformed pattern is a configuration error and panics before any scan
// can run.
func compileSignatures(specs []signatureSpec) []ErrorSignature {
	sigs := make([]ErrorSignature, len(specs))
	for i, s := range specs {
		sigs[i] = ErrorSignature{
			re:       regexp.MustCompile(s.pattern),
			Category: s.category,
		}
	}
	return sigs
}

// Match is one attributed hit from a scan.
type Match struct {
	Category   string `json:"category"`
	Line       string `json:"line"`
	LineNumber int    `json:"line_number"` // 1-based
}

// ScanResult holds the matches of one scan plus the set of matched line
// numbers, used by the renderer to cross-highlight the tail window.
type ScanResult struct {
	Matches      []Match
	MatchedLines map[int]bool
}

// Scan applies the signature catalogue to the log body in priority order
// and returns at most MatchCap matches. Line numbers are 1-based. Matches
// appear in catalogue order first, then line order within a signature.
func Scan(body string) ScanResult {
	res := ScanResult{MatchedLines: make(map[int]bool)}
	lines := strings.Split(body, "\n")

outer:
	for _, sig := range signatures {
		for i, line := range lines {
			if sig.re.MatchString(line) {
				res.Matches = append(res.Matches, Match{
					Category:   sig.Category,
					Line:       line,
					LineNumber: i + 1,
				})
				res.MatchedLines[i+1] = true
				if len(res.Matches) >= MatchCap {
					break outer
				}
			}
		}
	}

	return res
}
