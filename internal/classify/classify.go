// Package classify splits raw generated text into rejected and accepted output.
package classify

import "strings"

// Marker is the token the generation service emits when it refuses the input.
const Marker = "[ERROR]"

// Result is the outcome of classifying one generation.
type Result struct {
	IsError bool
	// Detail is the text after the marker with surrounding whitespace removed.
	// It may be empty for a failed result.
	Detail string
	// Content is the unmodified text of a successful result.
	Content string
}

// Classify reports a failure when raw contains Marker, otherwise passes raw through as content.
func Classify(raw string) Result {
	idx := strings.Index(raw, Marker)
	if idx < 0 {
		return Result{Content: raw}
	}
	return Result{
		IsError: true,
		Detail:  strings.TrimSpace(raw[idx+len(Marker):]),
	}
}
