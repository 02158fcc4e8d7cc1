package recog

import (
	"strings"
)

const (
	// MaxCandidateRunes bounds the body of a single report line.
	MaxCandidateRunes = 1000
	// MaxAnnotationRunes bounds the final message text.
	MaxAnnotationRunes = 4000

	ellipsis = "…"
)

// Aggregate joins report lines with newlines. A body longer than
// MaxCandidateRunes is cut and marked with an ellipsis.
func Aggregate(reports []Report) string {
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		body := r.Body()
		if cut := Truncate(body, MaxCandidateRunes); cut != body {
			body = cut + ellipsis
		}
		lines = append(lines, r.line(body))
	}
	return strings.Join(lines, "\n")
}

// Truncate returns the first max runes of s.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
