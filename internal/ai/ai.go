// Package ai wraps the external summarization backends behind one Rewriter
// interface so the summary resolver (and its tests) never care which vendor
// is configured.
package ai

import "context"

// Rewriter turns a full article body into a digest-ready summary paragraph.
type Rewriter interface {
	Rewrite(ctx context.Context, title, body string) (string, error)
}

// systemPrompt is shared by every backend.
const systemPrompt = `You are the editor of a weekly cybersecurity news digest.
Rewrite the article you are given as one dense paragraph of 4 to 6 complete sentences,
in a neutral, factual briefing voice.

Rules:
1. Plain text only: no headings, no markdown, no bullet points, no quotes around the text.
2. Keep concrete facts: product names, CVE identifiers, numbers, dates, vendors.
3. Do not prepend a label such as "Summary:".
4. Never stop mid-sentence; the last sentence must be complete.`

func userPrompt(title, body string) string {
	return "Title: " + title + "\n\nArticle:\n" + body
}

// maxBodyRunes caps the article text shipped to a backend.
const maxBodyRunes = 6000

// clampBody trims an over-long body on a rune boundary, preferring to end
// at a sentence break.
func clampBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyRunes {
		return body
	}
	trimmed := string(runes[:maxBodyRunes])
	if idx := lastSentenceEnd(trimmed); idx > 1200 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
