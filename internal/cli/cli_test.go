package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/silouanwright/cdb/internal/circle"
	"github.com/silouanwright/cdb/internal/config"
	"github.com/silouanwright/cdb/internal/gh"
)

// testGlobals creates a Globals struct with captured stdout/stderr
func testGlobals(format string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Globals{
		Format:  format,
		NoColor: true,
		Stdout:  stdout,
		Stderr:  stderr,
		Config:  config.Default(),
		Log:     zap.NewNop(),
	}, stdout, stderr
}

// fakeRunner serves canned gh output keyed by the joined argv
type fakeRunner struct {
	responses map[string]string
}

func (f fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	key := name + " " + strings.Join(args, " ")
	if out, ok := f.responses[key]; ok {
		return []byte(out), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command: %s", key)
}

// --- Version Command Tests ---

func TestVersionCmd_Run(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &VersionCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "cdb version dev")
	})

	t.Run("json format", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		cmd := &VersionCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "version", result["type"])
		assert.Equal(t, "dev", result["version"])
	})
}

// --- Doctor Command Tests ---

func TestDoctorCmd_Run(t *testing.T) {
	t.Run("reports missing token as error", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		globals.Config.Token = ""
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &DoctorCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "cdb Doctor")
		assert.Contains(t, out, "CircleCI token")
		assert.Contains(t, out, "no token configured")
		assert.Contains(t, out, "Errors:")
	})

	t.Run("json report structure", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		globals.Config.Token = "secret"
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &DoctorCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var report doctorReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, "doctor", report.Type)
		require.Len(t, report.Checks, 4)

		names := make([]string, 0, len(report.Checks))
		for _, check := range report.Checks {
			names = append(names, check.Name)
		}
		assert.Contains(t, names, "CircleCI token")
		assert.Contains(t, names, "Cache directory")
	})

	t.Run("unwritable cache dir is an error", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		globals.Config.Token = "secret"
		globals.Config.Defaults.CacheDir = "/nonexistent/cdb-cache"
		cmd := &DoctorCmd{}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var report doctorReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.False(t, report.AllPassed)
	})
}

// --- Build Command Tests ---

func TestBuildCmd_Run_Errors(t *testing.T) {
	t.Run("invalid URL", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		cmd := &BuildCmd{URL: "https://example.com/foo"}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Error [INVALID_URL]")
		assert.Contains(t, stderr.String(), "help:")
	})

	t.Run("missing token", func(t *testing.T) {
		globals, _, stderr := testGlobals("text")
		globals.Config.Token = ""
		cmd := &BuildCmd{URL: "https://circleci.com/gh/acme/widgets/42"}

		err := cmd.Run(globals)
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Error [TOKEN_MISSING]")
		assert.Contains(t, stderr.String(), "CIRCLECI_TOKEN")
	})

	t.Run("invalid URL in json format goes to stdout", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		cmd := &BuildCmd{URL: "not-a-url"}

		err := cmd.Run(globals)
		require.Error(t, err)

		var result cliError
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.Equal(t, "error", result.Type)
		assert.Equal(t, "INVALID_URL", result.Code)
	})
}

// buildTestServer serves a failed build and its action logs
func buildTestServer(t *testing.T, logLines string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/project/github/acme/widgets/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"build_num": 42,
			"status": "failed",
			"branch": "main",
			"subject": "Bump deps",
			"steps": [
				{"name": "Checkout", "actions": [
					{"name": "checkout code", "status": "success", "run_time_millis": 4000}
				]},
				{"name": "Run tests", "actions": [
					{"name": "npm test", "status": "failed", "failed": true,
					 "output_url": %q, "run_time_millis": 96000}
				]}
			]
		}`, server.URL+"/output/1")
	})
	mux.HandleFunc("/output/1", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := json.Marshal([]map[string]string{{"message": logLines}})
		w.Write(payload)
	})

	return server
}

func TestBuildCmd_Run_Analysis(t *testing.T) {
	logText := "starting tests\nError: Cannot find module 'lodash'\nnpm ERR! code ELIFECYCLE\n"

	newClient := func(t *testing.T, server *httptest.Server) *circle.Client {
		client, err := circle.New("token", zap.NewNop(), circle.WithBaseURL(server.URL))
		require.NoError(t, err)
		return client
	}

	t.Run("default mode shows detection and exit zone", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Build Summary")
		assert.Contains(t, out, "Branch: main")
		assert.Contains(t, out, "Run tests")
		assert.Contains(t, out, "npm test")
		assert.Contains(t, out, "SMART ERROR DETECTION")
		assert.Contains(t, out, "[Missing Module]")
		assert.Contains(t, out, "BUILD EXIT ZONE")
		assert.Contains(t, out, "DIDN'T FIND YOUR ERROR?")
		assert.Contains(t, out, "Timing Analysis")
		assert.Contains(t, out, "Quick Actions")
		// Successful steps are not listed as failed
		assert.NotContains(t, out, "checkout code")
	})

	t.Run("quiet suppresses informational lines", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		globals.Quiet = true
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		// Findings still print
		assert.Contains(t, out, "SMART ERROR DETECTION")
		assert.Contains(t, out, "npm test")
		// Status chatter does not
		assert.NotContains(t, out, "Fetching build details")
		assert.NotContains(t, out, "Auto-saved full logs")
		assert.NotContains(t, out, "Organization:")
	})

	t.Run("full mode dumps everything verbatim", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			Full:   true,
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "FULL LOG OUTPUT")
		assert.Contains(t, out, "starting tests")
		assert.NotContains(t, out, "SMART ERROR DETECTION")
	})

	t.Run("tail mode shows only the window", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			Tail:   2,
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "LAST 2 LINES")
		assert.Contains(t, out, "npm ERR!")
		assert.NotContains(t, out, "starting tests")
	})

	t.Run("filter restricts lines", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			Filter: "npm ERR",
			Full:   true,
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Filter 'npm ERR': 1 of 3 lines")
		assert.NotContains(t, out, "starting tests")
	})

	t.Run("no-fetch prints output URL instead of logs", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("text")
		cmd := &BuildCmd{
			URL:     "https://circleci.com/gh/acme/widgets/42",
			NoFetch: true,
			client:  newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "LOG FETCHING SKIPPED")
		assert.Contains(t, out, "/output/1")
		assert.NotContains(t, out, "SMART ERROR DETECTION")
	})

	t.Run("json format emits one report object", func(t *testing.T) {
		server := buildTestServer(t, logText)
		globals, stdout, _ := testGlobals("json")
		globals.Config.Defaults.CacheDir = t.TempDir()
		cmd := &BuildCmd{
			URL:    "https://circleci.com/gh/acme/widgets/42",
			client: newClient(t, server),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var report buildReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, "build_analysis", report.Type)
		assert.Equal(t, "acme", report.Org)
		assert.Equal(t, 42, report.BuildNum)
		assert.Equal(t, "failed", report.Status)
		require.Len(t, report.Actions, 1)
		assert.Equal(t, "npm test", report.Actions[0].Action)
		require.NotNil(t, report.Actions[0].Report)
		assert.Equal(t, "Run tests", report.Actions[0].Step)
		assert.NotEmpty(t, report.Timing.Bottleneck)
	})
}

// --- PR Command Tests ---

func TestPrCmd_Run(t *testing.T) {
	checksOutput := "build-and-test\tfail\t1m2s\thttps://circleci.com/gh/acme/widgets/42\n" +
		"lint (circleci)\tpass\t30s\thttps://circleci.com/gh/acme/widgets/43\n" +
		"coverage\tpass\t10s\thttps://codecov.io/x\n"

	newFakeGH := func(responses map[string]string) *gh.Client {
		return gh.NewClientWithRunner(fakeRunner{responses: responses}, zap.NewNop())
	}

	t.Run("shows failed checks with debug hint", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &PrCmd{
			PR:   "7",
			Repo: "acme/widgets",
			gh: newFakeGH(map[string]string{
				"gh pr checks 7 --repo acme/widgets": "build-and-test (circleci)\tfail\t1m2s\thttps://circleci.com/gh/acme/widgets/42\n",
				"gh pr view 7 --repo acme/widgets --json state,title,author,url": `{"title":"Add feature","state":"OPEN","author":{"login":"octocat"},"url":"https://github.com/acme/widgets/pull/7"}`,
			}),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "PR #7 CircleCI Checks")
		assert.Contains(t, out, "Add feature")
		assert.Contains(t, out, "octocat")
		assert.Contains(t, out, "Failed Checks")
		assert.Contains(t, out, "Debug with: cdb build https://circleci.com/gh/acme/widgets/42")
	})

	t.Run("accepts a PR URL", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &PrCmd{
			PR:   "https://github.com/acme/widgets/pull/7",
			Repo: "acme/widgets",
			gh: newFakeGH(map[string]string{
				"gh pr checks 7 --repo acme/widgets": "lint (circleci)\tpass\t30s\n",
				"gh pr view 7 --repo acme/widgets --json state,title,author,url": `{"title":"T","state":"OPEN","author":{"login":"a"},"url":"u"}`,
			}),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "All CircleCI checks passed")
	})

	t.Run("auto-detects PR and repo", func(t *testing.T) {
		globals, stdout, _ := testGlobals("text")
		cmd := &PrCmd{
			gh: newFakeGH(map[string]string{
				"gh pr view --json number -q .number":                "7\n",
				"gh repo view --json nameWithOwner -q .nameWithOwner": "acme/widgets\n",
				"gh pr checks 7 --repo acme/widgets":                  checksOutput,
				"gh pr view 7 --repo acme/widgets --json state,title,author,url": `{"title":"T","state":"OPEN","author":{"login":"a"},"url":"u"}`,
			}),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Repository: acme/widgets")
		// Non-CircleCI checks never show up
		assert.NotContains(t, out, "coverage")
	})

	t.Run("json report counts outcomes", func(t *testing.T) {
		globals, stdout, _ := testGlobals("json")
		cmd := &PrCmd{
			PR:   "7",
			Repo: "acme/widgets",
			gh: newFakeGH(map[string]string{
				"gh pr checks 7 --repo acme/widgets": checksOutput,
				"gh pr view 7 --repo acme/widgets --json state,title,author,url": `{"title":"T","state":"OPEN","author":{"login":"a"},"url":"u"}`,
			}),
		}

		err := cmd.Run(globals)
		require.NoError(t, err)

		var report prReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, "pr_checks", report.Type)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 1, report.Passed)
		assert.Equal(t, 0, report.Pending)
		require.Len(t, report.Checks, 2)
	})

	t.Run("watch polls until checks settle", func(t *testing.T) {
		pending := "build-and-test (circleci)\tpending\t-\n"
		done := "build-and-test (circleci)\tpass\t1m\n"

		var calls atomic.Int32
		runner := runnerFunc(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
			key := name + " " + strings.Join(args, " ")
			switch key {
			case "gh pr checks 7 --repo acme/widgets":
				if calls.Add(1) < 3 {
					return []byte(pending), nil, nil
				}
				return []byte(done), nil, nil
			case "gh pr view 7 --repo acme/widgets --json state,title,author,url":
				return []byte(`{"title":"T","state":"OPEN","author":{"login":"a"},"url":"u"}`), nil, nil
			}
			return nil, nil, fmt.Errorf("unexpected command: %s", key)
		})

		mockClock := clock.NewMock()
		globals, stdout, _ := testGlobals("text")
		cmd := &PrCmd{
			PR:       "7",
			Repo:     "acme/widgets",
			Watch:    true,
			Interval: 10 * time.Second,
			gh:       gh.NewClientWithRunner(runner, zap.NewNop()),
			clk:      mockClock,
		}

		done2 := make(chan error, 1)
		go func() { done2 <- cmd.Run(globals) }()

		// Two sleeps happen before the pass result comes back
		require.Eventually(t, func() bool {
			mockClock.Add(10 * time.Second)
			return calls.Load() >= 3
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, <-done2)
		assert.Equal(t, int32(3), calls.Load())
		assert.Contains(t, stdout.String(), "All CircleCI checks passed")
	})
}

// runnerFunc adapts a function to the gh.Runner interface
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}
