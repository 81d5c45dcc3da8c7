package summary

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"secbrief/internal/fetch"
	"secbrief/internal/textutil"
)

const (
	// leadParagraphMin / leadParagraphCap bound the paragraph heuristic.
	// It is a fragile best-effort default, nothing downstream may rely on
	// its exact shape.
	leadParagraphMin = 60
	leadParagraphCap = 600

	bodyParagraphMin = 20
	bodyCap          = 8000
)

// pageLoader fetches and parses the article page at most once per item, so
// the scrape and AI tiers share a single request.
type pageLoader struct {
	fetcher *fetch.Client
	url     string
	doc     *goquery.Document
	tried   bool
}

// load returns the parsed page, or nil when the fetch or parse failed.
// Failures are remembered so the page is not re-requested by a later tier.
func (p *pageLoader) load(ctx context.Context) *goquery.Document {
	if p.tried {
		return p.doc
	}
	p.tried = true

	resp, err := p.fetcher.Get(ctx, p.url)
	if err != nil {
		slog.Debug("page fetch failed", "url", p.url, "err", err)
		return nil
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		slog.Debug("page parse failed", "url", p.url, "err", err)
		return nil
	}
	p.doc = doc
	return doc
}

// metaDescription returns the first non-empty description meta tag, in
// priority order.
func metaDescription(doc *goquery.Document) string {
	selectors := []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	}
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if text := textutil.Normalize(content); text != "" {
				return text
			}
		}
	}
	return ""
}

// leadParagraphs concatenates the first two substantial paragraphs of the
// page, capped, as a last-resort description.
func leadParagraphs(doc *goquery.Document) string {
	var chunks []string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := textutil.Normalize(s.Text())
		if len(text) > leadParagraphMin {
			chunks = append(chunks, text)
		}
		return len(chunks) < 2
	})
	joined := strings.Join(chunks, " ")
	runes := []rune(joined)
	if len(runes) > leadParagraphCap {
		joined = strings.TrimSpace(string(runes[:leadParagraphCap]))
	}
	return joined
}

// articleBody extracts the readable article text for the AI tier, trying
// article-ish containers before falling back to all paragraphs.
func articleBody(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		".article p",
		".post-content p",
		".entry-content p",
		".content p",
		"main p",
		"p",
	}

	var paragraphs, fallback []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := textutil.Normalize(s.Text())
			if len(text) > bodyParagraphMin {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
		if len(paragraphs) > len(fallback) {
			fallback = paragraphs
		}
		paragraphs = nil
	}
	if len(paragraphs) == 0 {
		paragraphs = fallback
	}
	if len(paragraphs) == 0 {
		return ""
	}

	body := strings.Join(paragraphs, "\n\n")
	runes := []rune(body)
	if len(runes) > bodyCap {
		body = string(runes[:bodyCap])
	}
	return body
}
