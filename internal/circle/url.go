package circle

import (
	"fmt"
	"regexp"
	"strconv"
)

// buildURLRe matches legacy and app-style CircleCI build URLs, e.g.
// https://circleci.com/gh/org/repo/12345
var buildURLRe = regexp.MustCompile(`circleci\.com/gh/([^/]+)/([^/]+)/(\d+)`)

// BuildRef identifies a single build within a GitHub-backed project.
type BuildRef struct {
	Org      string
	Project  string
	BuildNum int
}

// String returns the canonical build URL for the reference
func (r BuildRef) String() string {
	return fmt.Sprintf("https://circleci.com/gh/%s/%s/%d", r.Org, r.Project, r.BuildNum)
}

// ParseBuildURL extracts the organization, project, and build number from a
// CircleCI build URL.
func ParseBuildURL(url string) (BuildRef, error) {
	caps := buildURLRe.FindStringSubmatch(url)
	if caps == nil {
		return BuildRef{}, fmt.Errorf("cannot parse CircleCI URL %q (expected https://circleci.com/gh/org/repo/12345)", url)
	}

	num, err := strconv.Atoi(caps[3])
	if err != nil {
		return BuildRef{}, fmt.Errorf("invalid build number in URL %q: %w", url, err)
	}

	return BuildRef{Org: caps[1], Project: caps[2], BuildNum: num}, nil
}
