package analyze

import "strings"

// SuggestionFor maps an error category to a one-line remediation hint.
// "File Not Found" branches on the matched line text. Categories without a
// hint return the empty string.
func SuggestionFor(category, line string) string {
	switch category {
	case "File Not Found":
		switch {
		case strings.Contains(line, "README") || strings.Contains(line, "readme"):
			return "Check file case sensitivity (README.md vs readme.md)"
		case strings.Contains(line, "package.json"):
			return "Run 'npm install' to ensure dependencies are installed"
		default:
			return "Verify file exists and path is correct"
		}
	case "Missing Module", "Missing Dependency":
		return "Run 'npm install' or check package.json dependencies"
	case "TypeScript Error":
		return "Run 'npm run typecheck' locally to see full type errors"
	case "Lint Error":
		return "Run 'npm run lint -- --fix' to auto-fix some issues"
	case "Test Failure", "Test Suite Failure":
		return "Run tests locally with '--verbose' for more details"
	case "Out of Memory":
		return "Increase Node memory: NODE_OPTIONS='--max-old-space-size=4096'"
	case "NPM Error", "Yarn Error":
		return "Clear cache (npm cache clean --force) and reinstall"
	}
	return ""
}
