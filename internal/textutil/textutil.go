// Package textutil holds the text cleanup helpers shared by the pipeline:
// whitespace/entity normalization, HTML fragment to plain text, and
// rune-safe truncation.
package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

var leadingLabelRe = regexp.MustCompile(`(?i)^(summary|tl;dr|digest|paragraph|here is the summary)\s*[:\-–—]\s*`)

// Ellipsis marks truncated summaries.
const Ellipsis = "…"

// Normalize unescapes HTML entities, collapses any run of whitespace to a
// single space and trims both ends. Empty input stays empty.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// HTMLToText parses an HTML fragment, drops script/style/noscript content
// and returns the normalized visible text. Text nodes are joined with a
// space so adjacent blocks ("<p>a</p><p>b</p>") never run together.
// Unparsable input yields "".
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return Normalize(strings.Join(parts, " "))
}

// Truncate hard-caps s at max runes, replacing the tail with a single
// ellipsis. The result never exceeds max runes and never splits a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := strings.TrimRight(string(runes[:max-1]), " ")
	return cut + Ellipsis
}

// StripLeadingLabel removes editor-style label prefixes ("Summary: ...")
// that summarization models like to prepend despite instructions.
func StripLeadingLabel(s string) string {
	return leadingLabelRe.ReplaceAllString(s, "")
}

// TrimToSentence cuts s back to its last complete sentence. Used to repair
// AI output that stops mid-sentence; returns s unchanged when no terminator
// is found or s already ends on one.
func TrimToSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if strings.ContainsRune(".!?", rune(s[len(s)-1])) {
		return s
	}
	idx := strings.LastIndexAny(s, ".!?")
	if idx <= 0 {
		return s
	}
	return strings.TrimSpace(s[:idx+1])
}
