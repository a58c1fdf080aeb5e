package cli

import (
	"errors"
	"strings"

	"github.com/silouanwright/cdb/internal/circle"
)

func hintForToken(err error) string {
	if errors.Is(err, circle.ErrNoToken) {
		return "Set the CIRCLECI_TOKEN environment variable (create a token at https://app.circleci.com/settings/user/tokens), or add `token:` to .cdb.yaml"
	}
	return ""
}

func hintForBuildURL(err error) string {
	if err == nil {
		return ""
	}
	if strings.Contains(err.Error(), "cannot parse CircleCI URL") {
		return "Expected a URL like https://circleci.com/gh/org/repo/12345; copy it from the CircleCI UI or a PR check"
	}
	return ""
}

func hintForGH() string {
	return "Install GitHub CLI (macOS: `brew install gh`, Linux: https://cli.github.com/, Windows: `winget install GitHub.cli`), then run `gh auth login`. The 'build' command works without it."
}

func hintForAPI(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return "Check that CIRCLECI_TOKEN is valid and has access to this project"
	}
	if strings.Contains(msg, "404") {
		return "Build not found; check the URL and that your token can see this project"
	}
	return "Run `cdb doctor` for diagnostics"
}
