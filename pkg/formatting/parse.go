package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when model output cannot be decoded as JSON.
var ErrParseFailed = errors.New("failed to parse response")

// maxEcho bounds how much of the rejected content is quoted in errors.
const maxEcho = 200

var fencePattern = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse decodes model output into T. It tries, in order, the whole content,
// the first markdown code fence, and the outermost brace-delimited span.
// Returns ErrParseFailed if none decode.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		var attempt T
		if err := json.Unmarshal([]byte(candidate), &attempt); err == nil {
			return attempt, nil
		}
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, truncate(content, maxEcho))
}

func candidates(content string) []string {
	out := []string{content}

	if m := fencePattern.FindStringSubmatch(content); len(m) >= 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}

	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
