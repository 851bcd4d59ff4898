package tts

import (
	"regexp"
	"strings"
)

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
	breaker    = strings.NewReplacer("!", "!\n", "?", "?\n", ".", ".\n")
)

// Humanize adds pauses the voice model reads as natural phrasing: an
// ellipsis after commas and a line break after sentence punctuation.
func Humanize(s string) string {
	s = strings.TrimSpace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ", ", ", … ")
	s = breaker.Replace(s)
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
