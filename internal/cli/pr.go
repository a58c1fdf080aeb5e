package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/silouanwright/cdb/internal/gh"
	"github.com/silouanwright/cdb/internal/output"
)

// PrCmd shows the CircleCI check status for a pull request. With --watch it
// polls until no check is pending anymore.
type PrCmd struct {
	PR       string        `arg:"" optional:"" help:"PR number or GitHub PR URL (defaults to the current branch's PR)"`
	Repo     string        `short:"r" help:"Repository as org/repo (defaults to the current directory's repo)"`
	Watch    bool          `short:"w" help:"Poll until all CircleCI checks finish"`
	Interval time.Duration `default:"${config_watch_interval}" help:"Polling interval for --watch"`

	gh  *gh.Client  // injected in tests
	clk clock.Clock // injected in tests
}

// prReport is the json output of the pr command
type prReport struct {
	Type    string         `json:"type"`
	PR      string         `json:"pr"`
	Repo    string         `json:"repo"`
	Details *gh.PRDetails  `json:"details,omitempty"`
	Checks  []gh.CheckLine `json:"checks"`
	Failed  int            `json:"failed"`
	Passed  int            `json:"passed"`
	Pending int            `json:"pending"`
}

// Run executes the pr command
func (c *PrCmd) Run(globals *Globals) error {
	ctx := context.Background()

	client := c.gh
	if client == nil {
		client = gh.NewClient(globals.Log)
		if !client.Installed() {
			return c.outputError(globals, "GH_NOT_INSTALLED", gh.ErrNotInstalled.Error(), hintForGH())
		}
	}

	clk := c.clk
	if clk == nil {
		clk = clock.New()
	}

	pr := c.PR
	if pr != "" {
		parsed, err := gh.ParsePRNumber(pr)
		if err != nil {
			return c.outputError(globals, "INVALID_PR", err.Error())
		}
		pr = parsed
	} else {
		detected, err := client.CurrentPRNumber(ctx)
		if err != nil {
			return c.outputError(globals, "PR_NOT_FOUND", err.Error())
		}
		pr = detected
	}

	repo := c.Repo
	if repo == "" {
		repo = globals.Config.Defaults.Repo
	}
	if repo == "" {
		detected, err := client.CurrentRepo(ctx)
		if err != nil {
			return c.outputError(globals, "REPO_NOT_FOUND", err.Error())
		}
		repo = detected
	}

	p := globals.Printer()
	text := globals.Format != "json"

	if text {
		p.Header("PR #" + pr + " CircleCI Checks")
		p.Info("Repository: %s", repo)
	}

	checks, err := c.fetchChecks(ctx, client, pr, repo)
	if err != nil {
		return c.outputError(globals, "CHECKS_FAILED", err.Error(), hintForGH())
	}

	if c.Watch {
		checks, err = c.watchChecks(ctx, globals, client, clk, pr, repo, checks)
		if err != nil {
			return c.outputError(globals, "CHECKS_FAILED", err.Error())
		}
	}

	details, detailsErr := client.Details(ctx, pr, repo)
	if detailsErr != nil {
		globals.Log.Debug("failed to fetch PR details", zap.Error(detailsErr))
	}

	if !text {
		report := prReport{
			Type:    "pr_checks",
			PR:      pr,
			Repo:    repo,
			Checks:  checks,
			Failed:  len(gh.FailedChecks(checks)),
			Passed:  len(passedChecks(checks)),
			Pending: len(gh.PendingChecks(checks)),
		}
		if detailsErr == nil {
			report.Details = &details
		}
		return json.NewEncoder(globals.Stdout).Encode(report)
	}

	if detailsErr == nil {
		p.Plain("%s", details.Title)
		p.Dimmed("%s by %s • %s", details.State, details.Author, details.URL)
	}

	c.printChecks(p, checks)
	return nil
}

func (c *PrCmd) fetchChecks(ctx context.Context, client *gh.Client, pr, repo string) ([]gh.CheckLine, error) {
	raw, err := client.Checks(ctx, pr, repo)
	if err != nil {
		return nil, err
	}
	return gh.FilterCircleChecks(raw), nil
}

// watchChecks polls until no CircleCI check is pending. The final listing is
// returned for display.
func (c *PrCmd) watchChecks(ctx context.Context, globals *Globals, client *gh.Client, clk clock.Clock, pr, repo string, checks []gh.CheckLine) ([]gh.CheckLine, error) {
	p := globals.Printer()
	text := globals.Format != "json"

	for len(gh.PendingChecks(checks)) > 0 {
		if text {
			p.Dimmed("%d check(s) still pending, next poll in %s...",
				len(gh.PendingChecks(checks)), c.Interval)
		}
		clk.Sleep(c.Interval)

		next, err := c.fetchChecks(ctx, client, pr, repo)
		if err != nil {
			return nil, err
		}
		checks = next
	}
	return checks, nil
}

func (c *PrCmd) printChecks(p *output.Printer, checks []gh.CheckLine) {
	if len(checks) == 0 {
		p.Info("No CircleCI checks found on this PR")
		return
	}

	p.Plain("")
	for _, check := range checks {
		switch {
		case check.Failed:
			p.Error("%s", check.Name)
		case check.Passed:
			p.Success("%s", check.Name)
		case check.Pending:
			p.Dimmed("○ %s", check.Name)
		default:
			p.Plain("  %s", check.Name)
		}
	}

	failed := gh.FailedChecks(checks)
	if len(failed) == 0 {
		p.Plain("")
		p.Success("All CircleCI checks passed")
		return
	}

	p.Header("Failed Checks")
	for _, check := range failed {
		p.Error("%s", check.Name)
		if check.BuildURL != "" {
			p.Plain("  Debug with: cdb build %s", check.BuildURL)
		}
	}
}

func passedChecks(checks []gh.CheckLine) []gh.CheckLine {
	var passed []gh.CheckLine
	for _, c := range checks {
		if c.Passed {
			passed = append(passed, c)
		}
	}
	return passed
}

func (c *PrCmd) outputError(globals *Globals, code, message string, hints ...string) error {
	return outputErrorCommon(globals, code, message, hints...)
}
