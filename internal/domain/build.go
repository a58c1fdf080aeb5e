package domain

import "time"

// Build represents CircleCI build information returned by the v1.1 API.
type Build struct {
	BuildNum int    `json:"build_num"`
	Status   string `json:"status"`
	Branch   string `json:"branch,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Steps    []Step `json:"steps"`
}

// IsFailed reports whether the build finished with status "failed"
func (b *Build) IsFailed() bool {
	return b.Status == "failed"
}

// IsSuccess reports whether the build finished with status "success"
func (b *Build) IsSuccess() bool {
	return b.Status == "success"
}

// FailedSteps returns the steps that contain at least one failed action
func (b *Build) FailedSteps() []Step {
	var failed []Step
	for _, step := range b.Steps {
		if step.HasFailures() {
			failed = append(failed, step)
		}
	}
	return failed
}

// FailedActions returns every failed action across all steps
func (b *Build) FailedActions() []Action {
	var failed []Action
	for _, step := range b.Steps {
		for _, action := range step.Actions {
			if action.IsFailed() {
				failed = append(failed, action)
			}
		}
	}
	return failed
}

// Step groups related actions that are executed sequentially in a build
type Step struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// HasFailures reports whether any action in the step failed
func (s *Step) HasFailures() bool {
	for _, a := range s.Actions {
		if a.IsFailed() {
			return true
		}
	}
	return false
}

// RunTimeMillis returns the total run time of all actions in the step
func (s *Step) RunTimeMillis() int64 {
	var total int64
	for _, a := range s.Actions {
		total += a.RunTimeMillis
	}
	return total
}

// Action is the smallest unit of execution in a CircleCI build. Each action
// has its own status and, when output was produced, a URL to fetch its logs.
type Action struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	Failed        bool   `json:"failed"`
	OutputURL     string `json:"output_url,omitempty"`
	Type          string `json:"type"`
	RunTimeMillis int64  `json:"run_time_millis"`
}

// IsFailed reports whether the action failed. The API sometimes omits the
// failed flag for timed-out actions, so the status string is checked too.
func (a *Action) IsFailed() bool {
	return a.Failed || a.Status == "failed"
}

// Duration returns the action run time as a time.Duration
func (a *Action) Duration() time.Duration {
	return time.Duration(a.RunTimeMillis) * time.Millisecond
}
