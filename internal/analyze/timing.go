package analyze

import (
	"fmt"
	"sort"

	"github.com/silouanwright/cdb/internal/domain"
)

// bottleneckThreshold is the share of total build time above which a single
// step is called out as a bottleneck.
const bottleneckThreshold = 50

// StepTiming is the aggregated run time of one build step.
type StepTiming struct {
	Name   string `json:"name"`
	Millis int64  `json:"run_time_millis"`
}

// Percentage returns the step's share of the total, as an integer percent
func (t StepTiming) Percentage(totalMillis int64) int {
	if totalMillis == 0 {
		return 0
	}
	return int(float64(t.Millis) / float64(totalMillis) * 100)
}

// StepTimings sums action run times per step and returns the steps sorted
// longest first, along with the total. Steps with no timing data are
// skipped.
func StepTimings(build *domain.Build) ([]StepTiming, int64) {
	var timings []StepTiming
	var total int64

	for _, step := range build.Steps {
		millis := step.RunTimeMillis()
		if millis > 0 {
			timings = append(timings, StepTiming{Name: step.Name, Millis: millis})
			total += millis
		}
	}

	sort.SliceStable(timings, func(i, j int) bool {
		return timings[i].Millis > timings[j].Millis
	})

	return timings, total
}

// Bottleneck reports the slowest step when it dominates the build (more
// than half of total time).
func Bottleneck(timings []StepTiming, totalMillis int64) (StepTiming, int, bool) {
	if len(timings) == 0 || totalMillis == 0 {
		return StepTiming{}, 0, false
	}
	pct := timings[0].Percentage(totalMillis)
	if pct > bottleneckThreshold {
		return timings[0], pct, true
	}
	return StepTiming{}, 0, false
}

// FormatDuration renders milliseconds as "2m 30s" or "45s"
func FormatDuration(millis int64) string {
	seconds := millis / 1000
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
