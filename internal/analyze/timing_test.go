package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silouanwright/cdb/internal/domain"
)

func timedBuild() *domain.Build {
	return &domain.Build{
		Steps: []domain.Step{
			{Name: "Checkout", Actions: []domain.Action{{RunTimeMillis: 2000}}},
			{Name: "Install deps", Actions: []domain.Action{{RunTimeMillis: 30000}, {RunTimeMillis: 10000}}},
			{Name: "Run tests", Actions: []domain.Action{{RunTimeMillis: 58000}}},
			{Name: "No timing", Actions: []domain.Action{{}}},
		},
	}
}

func TestStepTimings(t *testing.T) {
	timings, total := StepTimings(timedBuild())

	require.Len(t, timings, 3) // step without timing data is skipped
	assert.Equal(t, int64(100000), total)

	// Sorted longest first
	assert.Equal(t, "Run tests", timings[0].Name)
	assert.Equal(t, int64(58000), timings[0].Millis)
	assert.Equal(t, "Install deps", timings[1].Name)
	assert.Equal(t, "Checkout", timings[2].Name)

	assert.Equal(t, 58, timings[0].Percentage(total))
}

func TestBottleneck(t *testing.T) {
	timings, total := StepTimings(timedBuild())

	slowest, pct, ok := Bottleneck(timings, total)
	require.True(t, ok)
	assert.Equal(t, "Run tests", slowest.Name)
	assert.Equal(t, 58, pct)

	// Balanced build has no bottleneck
	balanced := &domain.Build{
		Steps: []domain.Step{
			{Name: "A", Actions: []domain.Action{{RunTimeMillis: 5000}}},
			{Name: "B", Actions: []domain.Action{{RunTimeMillis: 5000}}},
		},
	}
	timings, total = StepTimings(balanced)
	_, _, ok = Bottleneck(timings, total)
	assert.False(t, ok)

	_, _, ok = Bottleneck(nil, 0)
	assert.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		millis int64
		want   string
	}{
		{0, "0s"},
		{999, "0s"},
		{1000, "1s"},
		{45000, "45s"},
		{59999, "59s"},
		{60000, "1m 0s"},
		{150000, "2m 30s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.millis))
	}
}
