package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/silouanwright/cdb/internal/circle"
	"github.com/silouanwright/cdb/internal/config"
)

// DoctorCmd checks system requirements and configuration
type DoctorCmd struct {
	Online bool `help:"Also verify the CircleCI token against the API"`
}

// checkResult represents a single diagnostic check
type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// doctorReport is the complete diagnostic report
type doctorReport struct {
	Type       string        `json:"type"`
	Timestamp  string        `json:"timestamp"`
	Checks     []checkResult `json:"checks"`
	AllPassed  bool          `json:"all_passed"`
	ErrorCount int           `json:"error_count"`
	WarnCount  int           `json:"warn_count"`
}

// Run executes the doctor command
func (c *DoctorCmd) Run(globals *Globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var checks []checkResult

	checks = append(checks, c.checkToken(ctx, globals))
	checks = append(checks, c.checkGH())
	checks = append(checks, c.checkConfig())
	checks = append(checks, c.checkCacheDir(globals))

	errorCount := 0
	warnCount := 0
	for _, check := range checks {
		if check.Status == "error" {
			errorCount++
		} else if check.Status == "warning" {
			warnCount++
		}
	}

	report := doctorReport{
		Type:       "doctor",
		Timestamp:  time.Now().Format(time.RFC3339),
		Checks:     checks,
		AllPassed:  errorCount == 0,
		ErrorCount: errorCount,
		WarnCount:  warnCount,
	}

	if globals.Format == "json" {
		return json.NewEncoder(globals.Stdout).Encode(report)
	}

	fmt.Fprintln(globals.Stdout, "cdb Doctor")
	fmt.Fprintln(globals.Stdout, "==========")
	fmt.Fprintln(globals.Stdout)

	for _, check := range checks {
		var icon string
		switch check.Status {
		case "ok":
			icon = "✓"
		case "warning":
			icon = "⚠"
		case "error":
			icon = "✗"
		}

		fmt.Fprintf(globals.Stdout, "%s %s\n", icon, check.Name)
		if check.Message != "" {
			fmt.Fprintf(globals.Stdout, "  %s\n", check.Message)
		}
		if check.Details != "" {
			fmt.Fprintf(globals.Stdout, "  %s\n", check.Details)
		}
	}

	fmt.Fprintln(globals.Stdout)
	if errorCount == 0 && warnCount == 0 {
		fmt.Fprintln(globals.Stdout, "All checks passed!")
	} else {
		fmt.Fprintf(globals.Stdout, "Errors: %d, Warnings: %d\n", errorCount, warnCount)
	}

	return nil
}

func (c *DoctorCmd) checkToken(ctx context.Context, globals *Globals) checkResult {
	token := globals.Config.Token
	if token == "" {
		return checkResult{
			Name:    "CircleCI token",
			Status:  "error",
			Message: "no token configured",
			Details: "Set " + circle.TokenEnvVar + " or add 'token' to your config file",
		}
	}

	result := checkResult{
		Name:    "CircleCI token",
		Status:  "ok",
		Message: fmt.Sprintf("token present (%d chars)", len(token)),
	}

	if c.Online {
		client, err := circle.New(token, globals.Log,
			circle.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
		if err != nil {
			result.Status = "error"
			result.Message = err.Error()
			return result
		}
		if err := client.Ping(ctx); err != nil {
			result.Status = "error"
			result.Message = "token rejected by CircleCI API"
			result.Details = err.Error()
			return result
		}
		result.Message = "token accepted by CircleCI API"
	}

	return result
}

func (c *DoctorCmd) checkGH() checkResult {
	path, err := exec.LookPath("gh")
	if err != nil {
		return checkResult{
			Name:    "GitHub CLI (gh)",
			Status:  "warning",
			Message: "gh not found in PATH",
			Details: "'cdb pr' needs it; install from https://cli.github.com",
		}
	}
	return checkResult{
		Name:    "GitHub CLI (gh)",
		Status:  "ok",
		Message: path,
	}
}

func (c *DoctorCmd) checkConfig() checkResult {
	path := config.ConfigFile()
	if path == "" {
		return checkResult{
			Name:    "Config file",
			Status:  "ok",
			Message: "no config file (using defaults)",
			Details: "Create .cdb.yaml in your project or home directory to customize",
		}
	}

	if _, err := config.LoadFromFile(path); err != nil {
		return checkResult{
			Name:    "Config file",
			Status:  "error",
			Message: fmt.Sprintf("failed to parse %s", path),
			Details: err.Error(),
		}
	}

	return checkResult{
		Name:    "Config file",
		Status:  "ok",
		Message: path,
	}
}

func (c *DoctorCmd) checkCacheDir(globals *Globals) checkResult {
	dir := globals.Config.Defaults.CacheDir

	probe := filepath.Join(dir, ".cdb-doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return checkResult{
			Name:    "Cache directory",
			Status:  "error",
			Message: fmt.Sprintf("%s is not writable", dir),
			Details: err.Error(),
		}
	}
	_ = os.Remove(probe)

	return checkResult{
		Name:    "Cache directory",
		Status:  "ok",
		Message: dir,
	}
}
