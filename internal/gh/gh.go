// Package gh wraps the GitHub CLI for pull-request status lookups. All
// GitHub interaction is delegated to the gh binary; this package only
// shells out and interprets its output.
package gh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNotInstalled is returned when the gh binary is not on PATH
var ErrNotInstalled = errors.New("GitHub CLI (gh) is not installed or not in PATH")

// buildURLRe extracts CircleCI build URLs from gh check output
var buildURLRe = regexp.MustCompile(`https://circleci\.com/gh/[^\s]+/\d+`)

// Runner executes external commands; swapped out in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// Client runs gh commands and parses their output.
type Client struct {
	run Runner
	log *zap.Logger
}

// NewClient creates a gh client using the real binary
func NewClient(log *zap.Logger) *Client {
	return NewClientWithRunner(execRunner{}, log)
}

// NewClientWithRunner creates a gh client with a custom command runner
func NewClientWithRunner(run Runner, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{run: run, log: log}
}

// Installed reports whether the gh binary is available
func (c *Client) Installed() bool {
	_, err := exec.LookPath("gh")
	return err == nil
}

// CurrentPRNumber auto-detects the PR for the current branch
func (c *Client) CurrentPRNumber(ctx context.Context) (string, error) {
	stdout, _, err := c.run.Run(ctx, "gh", "pr", "view", "--json", "number", "-q", ".number")
	if err != nil {
		return "", fmt.Errorf("failed to run 'gh pr view' (is GitHub CLI installed and authenticated?): %w", err)
	}
	num := strings.TrimSpace(string(stdout))
	if num == "" {
		return "", errors.New("no PR found for current branch; create a PR first or specify a PR number")
	}
	c.log.Debug("auto-detected PR", zap.String("number", num))
	return num, nil
}

// CurrentRepo auto-detects the org/repo of the current directory
func (c *Client) CurrentRepo(ctx context.Context) (string, error) {
	stdout, _, err := c.run.Run(ctx, "gh", "repo", "view", "--json", "nameWithOwner", "-q", ".nameWithOwner")
	if err != nil {
		return "", fmt.Errorf("could not determine repository (specify with --repo org/repo): %w", err)
	}
	repo := strings.TrimSpace(string(stdout))
	if repo == "" {
		return "", errors.New("could not determine repository; specify with --repo org/repo")
	}
	return repo, nil
}

// Checks returns the raw status-check listing for a PR. gh exits non-zero
// when checks failed but still prints the listing, so output is taken from
// stdout first and stderr as a fallback before the exit status matters.
func (c *Client) Checks(ctx context.Context, pr, repo string) (string, error) {
	stdout, stderr, err := c.run.Run(ctx, "gh", "pr", "checks", pr, "--repo", repo)
	if len(stdout) > 0 {
		return string(stdout), nil
	}
	if len(stderr) > 0 {
		return string(stderr), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to run 'gh pr checks' (is GitHub CLI installed and authenticated?): %w", err)
	}
	return "", errors.New("no output from gh pr checks command")
}

// PRDetails holds the fields shown in the PR summary.
type PRDetails struct {
	Title  string `json:"title"`
	State  string `json:"state"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// Details fetches PR metadata via gh's JSON output
func (c *Client) Details(ctx context.Context, pr, repo string) (PRDetails, error) {
	stdout, _, err := c.run.Run(ctx, "gh", "pr", "view", pr, "--repo", repo, "--json", "state,title,author,url")
	if err != nil {
		return PRDetails{}, fmt.Errorf("failed to fetch PR details: %w", err)
	}

	body := gjson.ParseBytes(stdout)
	return PRDetails{
		Title:  body.Get("title").String(),
		State:  body.Get("state").String(),
		Author: body.Get("author.login").String(),
		URL:    body.Get("url").String(),
	}, nil
}

// CheckLine is one parsed status-check row.
type CheckLine struct {
	Text     string `json:"text"`
	Name     string `json:"name"`
	Failed   bool   `json:"failed"`
	Passed   bool   `json:"passed"`
	Pending  bool   `json:"pending"`
	BuildURL string `json:"build_url,omitempty"` // CircleCI build URL if one appears in the row
}

// ParsePRNumber accepts a bare number or a GitHub PR URL
func ParsePRNumber(input string) (string, error) {
	if !strings.Contains(input, "github.com") {
		return input, nil
	}
	parts := strings.Split(strings.TrimRight(input, "/"), "/")
	num := parts[len(parts)-1]
	if num == "" {
		return "", fmt.Errorf("invalid PR URL: %s", input)
	}
	return num, nil
}

// FilterCircleChecks keeps only the CircleCI rows of a checks listing and
// classifies each one.
func FilterCircleChecks(checks string) []CheckLine {
	var result []CheckLine
	for _, line := range strings.Split(checks, "\n") {
		if !strings.Contains(line, "circleci") && !strings.Contains(line, "CircleCI") {
			continue
		}
		cl := CheckLine{
			Text:     line,
			Name:     strings.SplitN(line, "\t", 2)[0],
			Failed:   strings.Contains(line, "fail") || strings.Contains(line, "✗"),
			Passed:   strings.Contains(line, "pass") || strings.Contains(line, "✓"),
			Pending:  strings.Contains(line, "pending") || strings.Contains(line, "○"),
			BuildURL: buildURLRe.FindString(line),
		}
		result = append(result, cl)
	}
	return result
}

// FailedChecks returns only the failed rows
func FailedChecks(checks []CheckLine) []CheckLine {
	var failed []CheckLine
	for _, c := range checks {
		if c.Failed {
			failed = append(failed, c)
		}
	}
	return failed
}

// PendingChecks returns only the pending rows
func PendingChecks(checks []CheckLine) []CheckLine {
	var pending []CheckLine
	for _, c := range checks {
		if c.Pending {
			pending = append(pending, c)
		}
	}
	return pending
}
