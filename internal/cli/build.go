package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/silouanwright/cdb/internal/analyze"
	"github.com/silouanwright/cdb/internal/circle"
	"github.com/silouanwright/cdb/internal/domain"
	"github.com/silouanwright/cdb/internal/filter"
	"github.com/silouanwright/cdb/internal/output"
)

// BuildCmd analyzes a failed build from its URL.
//
// Default behavior is progressive disclosure: smart error detection plus
// the last 50 lines of output. --full dumps everything; --tail N shows a
// custom window. Full wins when both are set.
type BuildCmd struct {
	URL     string `arg:"" required:"" help:"CircleCI build URL (e.g. https://circleci.com/gh/org/repo/12345)"`
	Full    bool   `help:"Show complete logs when the default summary doesn't show the error"`
	Output  string `short:"o" help:"Save clean logs to file (automatic: <cache_dir>/cdb-<build>.log)"`
	Tail    int    `help:"Show only the last N lines of output"`
	Filter  string `help:"Filter logs to show only lines containing this text"`
	NoFetch bool   `help:"Skip fetching and analyzing logs (only show build metadata)"`
	Pick    bool   `help:"Interactively pick one failed action to analyze (requires a terminal)"`

	client *circle.Client // injected in tests
}

// failedAction pairs a failed action with the step it belongs to
type failedAction struct {
	step   string
	action domain.Action
}

// filterStats describes the outcome of a --filter restriction
type filterStats struct {
	Needle   string `json:"needle"`
	Matched  int    `json:"matched"`
	Total    int    `json:"total"`
	Fallback bool   `json:"fallback"`
}

// actionAnalysis is the per-action result carried between fetch and display
type actionAnalysis struct {
	Step       string         `json:"step"`
	Action     string         `json:"action"`
	OutputURL  string         `json:"output_url,omitempty"`
	Skipped    bool           `json:"skipped,omitempty"`
	FetchError string         `json:"fetch_error,omitempty"`
	CachePath  string         `json:"cache_path,omitempty"`
	Filter     *filterStats   `json:"filter,omitempty"`
	TotalLines int            `json:"total_lines,omitempty"`
	SizeKB     int            `json:"size_kb,omitempty"`
	Report     *output.Report `json:"report,omitempty"`
}

// timingReport is the timing section of the json output
type timingReport struct {
	TotalMillis   int64                `json:"total_millis"`
	Total         string               `json:"total"`
	Steps         []analyze.StepTiming `json:"steps,omitempty"`
	Bottleneck    string               `json:"bottleneck,omitempty"`
	BottleneckPct int                  `json:"bottleneck_pct,omitempty"`
}

// buildReport is the complete json output of the build command
type buildReport struct {
	Type     string           `json:"type"`
	URL      string           `json:"url"`
	Org      string           `json:"org"`
	Project  string           `json:"project"`
	BuildNum int              `json:"build_num"`
	Status   string           `json:"status"`
	Branch   string           `json:"branch,omitempty"`
	Subject  string           `json:"subject,omitempty"`
	Actions  []actionAnalysis `json:"actions"`
	Timing   timingReport     `json:"timing"`
}

// Run executes the build command
func (c *BuildCmd) Run(globals *Globals) error {
	ctx := context.Background()

	ref, err := circle.ParseBuildURL(c.URL)
	if err != nil {
		return c.outputError(globals, "INVALID_URL", err.Error(), hintForBuildURL(err))
	}

	client := c.client
	if client == nil {
		client, err = circle.New(globals.Config.Token, globals.Log)
		if err != nil {
			return c.outputError(globals, "TOKEN_MISSING", err.Error(), hintForToken(err))
		}
	}

	p := globals.Printer()
	text := globals.Format != "json"

	if text {
		p.Header("Analyzing CircleCI Build")
		p.Info("Organization: %s", ref.Org)
		p.Info("Project: %s", ref.Project)
		p.Info("Build Number: %d", ref.BuildNum)
		p.Dimmed("\nFetching build details...")
	}

	build, err := client.Build(ctx, ref)
	if err != nil {
		return c.outputError(globals, "API_ERROR", err.Error(), hintForAPI(err))
	}

	failed := collectFailedActions(build)

	if c.Pick && len(failed) > 1 && text {
		chosen, err := pickFailedAction(failed)
		if err != nil {
			return c.outputError(globals, "PICK_FAILED", err.Error())
		}
		failed = []failedAction{chosen}
	}

	analyses := c.analyzeActions(ctx, globals, client, ref, failed)

	if !text {
		return c.writeJSON(globals, ref, build, analyses)
	}

	c.printSummary(p, build)
	c.printFailedActions(globals, p, analyses)
	c.printTiming(globals, p, build)
	c.printQuickActions(p)

	return nil
}

func collectFailedActions(build *domain.Build) []failedAction {
	var failed []failedAction
	for _, step := range build.Steps {
		for _, action := range step.Actions {
			if action.IsFailed() {
				failed = append(failed, failedAction{step: step.Name, action: action})
			}
		}
	}
	return failed
}

// analyzeActions fetches the logs for every failed action concurrently and
// runs detection and rendering over each. Results keep the original action
// order regardless of fetch completion order.
func (c *BuildCmd) analyzeActions(ctx context.Context, globals *Globals, client *circle.Client, ref circle.BuildRef, failed []failedAction) []actionAnalysis {
	analyses := make([]actionAnalysis, len(failed))

	g, gctx := errgroup.WithContext(ctx)
	for i, fa := range failed {
		analyses[i] = actionAnalysis{
			Step:      fa.step,
			Action:    fa.action.Name,
			OutputURL: fa.action.OutputURL,
		}

		if fa.action.OutputURL == "" {
			analyses[i].Skipped = true
			continue
		}
		if c.NoFetch {
			analyses[i].Skipped = true
			continue
		}

		i := i
		url := fa.action.OutputURL
		g.Go(func() error {
			logs, err := client.Logs(gctx, url)
			if err != nil {
				analyses[i].FetchError = err.Error()
				return nil // other fetches continue
			}
			c.processLogs(globals, ref, logs, &analyses[i])
			return nil
		})
	}
	_ = g.Wait()

	return analyses
}

// processLogs normalizes one action's log text, caches it, applies the
// optional filter, and renders the report for the selected disclosure mode.
func (c *BuildCmd) processLogs(globals *Globals, ref circle.BuildRef, logs string, a *actionAnalysis) {
	clean := filter.StripANSI(logs)

	cachePath := filepath.Join(globals.Config.Defaults.CacheDir, fmt.Sprintf("cdb-%d.log", ref.BuildNum))
	if err := os.WriteFile(cachePath, []byte(clean), 0o644); err != nil {
		globals.Log.Warn("failed to cache logs", zap.String("path", cachePath), zap.Error(err))
		cachePath = ""
	} else {
		globals.Log.Debug("cached logs", zap.String("path", cachePath), zap.Int("bytes", len(clean)))
	}
	a.CachePath = cachePath

	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(clean), 0o644); err != nil {
			globals.Log.Warn("failed to write output file", zap.String("path", c.Output), zap.Error(err))
		}
	}

	body := clean
	if c.Filter != "" {
		res := filter.Substring(clean, c.Filter)
		a.Filter = &filterStats{
			Needle:   c.Filter,
			Matched:  res.Matched,
			Total:    res.Total,
			Fallback: res.Fallback,
		}
		body = res.Text
	}

	a.TotalLines = countLines(body)
	a.SizeKB = len(logs) / 1024

	opts := output.RenderOptions{Mode: output.ModeDefault, CachePath: cachePath}
	switch {
	case c.Full:
		opts.Mode = output.ModeFull
	case c.Tail > 0:
		opts.Mode = output.ModeTail
		opts.TailN = c.Tail
	}

	var res analyze.ScanResult
	if opts.Mode == output.ModeDefault {
		res = analyze.Scan(body)
	}

	report := output.Render(body, res, opts)
	a.Report = &report
}

func (c *BuildCmd) printSummary(p *output.Printer, build *domain.Build) {
	p.Header("Build Summary")
	p.Info("Status: %s", p.Status(build.Status))
	if build.Branch != "" {
		p.Info("Branch: %s", build.Branch)
	}
	if build.Subject != "" {
		p.Info("Commit: %s", build.Subject)
	}
}

func (c *BuildCmd) printFailedActions(globals *Globals, p *output.Printer, analyses []actionAnalysis) {
	if len(analyses) == 0 {
		p.Success("No failed steps found")
		return
	}

	p.Header("Failed Steps")
	lastStep := ""
	for _, a := range analyses {
		if a.Step != lastStep {
			p.Plain("\n▸ %s", a.Step)
			lastStep = a.Step
		}
		p.Error("  %s", a.Action)

		switch {
		case a.FetchError != "":
			p.Error("  Failed to fetch logs: %s", a.FetchError)
		case a.Skipped && a.OutputURL != "":
			p.Plain("\n=== LOG FETCHING SKIPPED ===")
			p.Plain("View logs directly at:")
			p.Link("  %s", a.OutputURL)
		case a.Skipped:
			p.Dimmed("  (no output recorded for this action)")
		default:
			if a.CachePath != "" {
				p.Dimmed("  Auto-saved full logs to: %s", a.CachePath)
			}
			if c.Output != "" {
				p.Dimmed("  Logs also saved to: %s", c.Output)
			}
			if a.Filter != nil {
				if a.Filter.Fallback {
					p.Dimmed("  No lines matching filter: '%s' (showing unfiltered logs)", a.Filter.Needle)
				} else {
					p.Dimmed("  Filter '%s': %d of %d lines", a.Filter.Needle, a.Filter.Matched, a.Filter.Total)
				}
			}
			p.Dimmed("  Total: %d lines, %d KB", a.TotalLines, a.SizeKB)
			if a.Report != nil {
				p.Report(*a.Report)
			}
		}
	}
}

func (c *BuildCmd) printTiming(globals *Globals, p *output.Printer, build *domain.Build) {
	p.Header("Timing Analysis")

	timings, total := analyze.StepTimings(build)
	if len(timings) == 0 {
		p.Plain("No timing data available for this build")
		return
	}

	p.Plain("Total build time: %s", analyze.FormatDuration(total))
	p.Plain("\nSlowest steps:")

	table := tablewriter.NewTable(globals.Stdout)
	table.Header("#", "Step", "Duration", "Share")
	top := timings
	if len(top) > 5 {
		top = top[:5]
	}
	for i, t := range top {
		_ = table.Append(
			strconv.Itoa(i+1),
			t.Name,
			analyze.FormatDuration(t.Millis),
			fmt.Sprintf("%d%%", t.Percentage(total)),
		)
	}
	_ = table.Render()

	if slowest, pct, ok := analyze.Bottleneck(timings, total); ok {
		p.Plain("")
		p.Info("Bottleneck detected: '%s' takes %d%% of total time", slowest.Name, pct)
		p.Plain("  Consider optimizing or parallelizing this step")
	}
}

func (c *BuildCmd) printQuickActions(p *output.Printer) {
	p.Header("Quick Actions")
	p.Link("• Rerun: %s/retry", c.URL)
	p.Plain("• SSH Debug: Click 'Rerun' → 'Rerun job with SSH' in CircleCI UI")
	p.Link("• View artifacts: %s/artifacts", c.URL)
}

func (c *BuildCmd) writeJSON(globals *Globals, ref circle.BuildRef, build *domain.Build, analyses []actionAnalysis) error {
	timings, total := analyze.StepTimings(build)
	timing := timingReport{
		TotalMillis: total,
		Total:       analyze.FormatDuration(total),
		Steps:       timings,
	}
	if slowest, pct, ok := analyze.Bottleneck(timings, total); ok {
		timing.Bottleneck = slowest.Name
		timing.BottleneckPct = pct
	}

	report := buildReport{
		Type:     "build_analysis",
		URL:      c.URL,
		Org:      ref.Org,
		Project:  ref.Project,
		BuildNum: build.BuildNum,
		Status:   build.Status,
		Branch:   build.Branch,
		Subject:  build.Subject,
		Actions:  analyses,
		Timing:   timing,
	}
	return json.NewEncoder(globals.Stdout).Encode(report)
}

func countLines(body string) int {
	if body == "" {
		return 0
	}
	n := 1
	for _, r := range body {
		if r == '\n' {
			n++
		}
	}
	// A trailing newline does not start a new line
	if body[len(body)-1] == '\n' {
		n--
	}
	return n
}

func (c *BuildCmd) outputError(globals *Globals, code, message string, hints ...string) error {
	return outputErrorCommon(globals, code, message, hints...)
}
