package ai

import (
	"regexp"

	"secbrief/internal/textutil"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```[a-z]*\n?|```")
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}\s+[^\n]*\n?`)
	emphasisRe  = regexp.MustCompile(`\*\*?|__?`)
	noteLineRe  = regexp.MustCompile(`(?im)^\s*[\[(]?note\s*:[^\n]*[\])]?\s*$`)
)

// Sanitize cleans raw model output into a single plain paragraph: fences,
// headings and emphasis markers go, disclaimer lines go, a leading label
// goes, and an unfinished trailing sentence is cut back.
func Sanitize(s string) string {
	s = codeFenceRe.ReplaceAllString(s, "")
	s = noteLineRe.ReplaceAllString(s, "")
	s = headingRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "")
	s = textutil.Normalize(s)
	s = textutil.StripLeadingLabel(s)
	return textutil.TrimToSentence(s)
}
