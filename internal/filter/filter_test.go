package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes color codes",
			input:    "\x1b[31mError:\x1b[0m build failed",
			expected: "Error: build failed",
		},
		{
			name:     "removes multi-parameter sequences",
			input:    "\x1b[1;32mPASS\x1b[0m tests",
			expected: "PASS tests",
		},
		{
			name:     "leaves plain text alone",
			input:    "no escapes here",
			expected: "no escapes here",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripANSI(tt.input))
		})
	}
}

func TestSubstring(t *testing.T) {
	logs := "building @pkg/api\nbuilding @pkg/web\ndone"

	t.Run("keeps matching lines", func(t *testing.T) {
		res := Substring(logs, "@pkg/api")
		assert.Equal(t, "building @pkg/api", res.Text)
		assert.Equal(t, 1, res.Matched)
		assert.Equal(t, 3, res.Total)
		assert.False(t, res.Fallback)
	})

	t.Run("falls back to original when nothing matches", func(t *testing.T) {
		res := Substring(logs, "@pkg/missing")
		assert.Equal(t, logs, res.Text)
		assert.True(t, res.Fallback)
	})

	t.Run("empty needle keeps everything", func(t *testing.T) {
		res := Substring(logs, "")
		assert.Equal(t, logs, res.Text)
		assert.Equal(t, 3, res.Matched)
	})

	t.Run("trailing newline is not a line", func(t *testing.T) {
		res := Substring("one\ntwo\n", "two")
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 1, res.Matched)
	})
}
