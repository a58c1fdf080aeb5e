package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_StatusHelpers(t *testing.T) {
	failed := &Build{Status: "failed"}
	assert.True(t, failed.IsFailed())
	assert.False(t, failed.IsSuccess())

	success := &Build{Status: "success"}
	assert.False(t, success.IsFailed())
	assert.True(t, success.IsSuccess())

	running := &Build{Status: "running"}
	assert.False(t, running.IsFailed())
	assert.False(t, running.IsSuccess())
}

func TestBuild_FailedSteps(t *testing.T) {
	build := &Build{
		BuildNum: 123,
		Status:   "failed",
		Steps: []Step{
			{
				Name:    "Checkout",
				Actions: []Action{{Name: "checkout", Status: "success"}},
			},
			{
				Name: "Test",
				Actions: []Action{
					{Name: "npm test", Status: "failed", Failed: true, OutputURL: "https://example.com/logs"},
				},
			},
		},
	}

	failed := build.FailedSteps()
	require.Len(t, failed, 1)
	assert.Equal(t, "Test", failed[0].Name)

	actions := build.FailedActions()
	require.Len(t, actions, 1)
	assert.Equal(t, "npm test", actions[0].Name)
}

func TestAction_IsFailed(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   bool
	}{
		{"explicit failed flag", Action{Failed: true, Status: "failed"}, true},
		{"status only", Action{Status: "failed"}, true},
		{"timed out without flag", Action{Status: "timedout"}, false},
		{"success", Action{Status: "success"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.IsFailed())
		})
	}
}

func TestAction_Duration(t *testing.T) {
	a := Action{RunTimeMillis: 5000}
	assert.Equal(t, 5*time.Second, a.Duration())

	zero := Action{}
	assert.Equal(t, time.Duration(0), zero.Duration())
}

func TestStep_RunTimeMillis(t *testing.T) {
	step := Step{
		Name: "Build",
		Actions: []Action{
			{RunTimeMillis: 1500},
			{RunTimeMillis: 500},
		},
	}
	assert.Equal(t, int64(2000), step.RunTimeMillis())
}

func TestBuild_UnmarshalAPIResponse(t *testing.T) {
	// Shape matches the v1.1 single-build endpoint. Null fields must not
	// break decoding.
	payload := `{
		"build_num": 42,
		"status": "failed",
		"branch": "main",
		"subject": "Fix flaky test",
		"steps": [
			{
				"name": "Run tests",
				"actions": [
					{
						"name": "npm test",
						"status": "failed",
						"failed": true,
						"output_url": "https://circle-production-action-output.s3.amazonaws.com/abc",
						"type": "test",
						"run_time_millis": 93000
					}
				]
			}
		]
	}`

	var build Build
	require.NoError(t, json.Unmarshal([]byte(payload), &build))

	assert.Equal(t, 42, build.BuildNum)
	assert.Equal(t, "main", build.Branch)
	require.Len(t, build.Steps, 1)
	assert.True(t, build.Steps[0].Actions[0].IsFailed())
	assert.Equal(t, int64(93000), build.Steps[0].Actions[0].RunTimeMillis)

	var nullFailed Build
	require.NoError(t, json.Unmarshal([]byte(`{"build_num":1,"status":"failed","steps":[{"name":"s","actions":[{"name":"a","status":"failed","failed":null,"type":"test"}]}]}`), &nullFailed))
	assert.True(t, nullFailed.Steps[0].Actions[0].IsFailed())
}
