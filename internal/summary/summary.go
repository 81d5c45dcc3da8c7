// Package summary resolves the display text for one item through ordered
// fallback tiers: embedded feed text, article page scrape, AI rewrite.
// Every tier is fail-soft; an empty summary is a valid final outcome.
package summary

import (
	"context"
	"log/slog"
	"time"

	"secbrief/internal/ai"
	"secbrief/internal/cache"
	"secbrief/internal/fetch"
	"secbrief/internal/metrics"
	"secbrief/internal/news"
	"secbrief/internal/ratelimit"
	"secbrief/internal/textutil"
)

const (
	// MaxLen caps the resolved summary, ellipsis included.
	MaxLen = 420

	// minEmbedded is the length under which embedded feed text is
	// considered insufficient and the page scrape tier kicks in.
	minEmbedded = 80

	// minAIBody is the shortest article body worth an AI call.
	minAIBody = 400

	cacheTTL = 12 * time.Hour
)

// tier is one fallback strategy. try returns replacement text for the item
// and whether it should supersede the text resolved so far; page gives
// every tier access to the (lazily fetched, shared) article document.
type tier interface {
	name() string
	try(ctx context.Context, it *news.Item, page *pageLoader, current string) (string, bool)
}

// Resolver runs the tier chain for one item at a time. It is safe for
// concurrent use across items.
type Resolver struct {
	fetcher *fetch.Client
	tiers   []tier
	maxLen  int
}

// Options configures the optional tiers.
type Options struct {
	// AllowFetch enables the network fallbacks (page scrape, AI body fetch).
	AllowFetch bool
	// Rewriter enables the AI tier when non-nil.
	Rewriter ai.Rewriter
	// AIBudget caps AI calls per run; nil means unlimited.
	AIBudget *ratelimit.Budget
}

// NewResolver builds the tier chain. The fetcher is shared with the image
// resolver so all page traffic uses the same discipline.
func NewResolver(fetcher *fetch.Client, opts Options) *Resolver {
	tiers := []tier{embeddedTier{}}
	if opts.AllowFetch {
		tiers = append(tiers, scrapeTier{})
		if opts.Rewriter != nil {
			tiers = append(tiers, &aiTier{
				rewriter: opts.Rewriter,
				budget:   opts.AIBudget,
				cache:    cache.New(),
			})
		}
	}
	return &Resolver{fetcher: fetcher, tiers: tiers, maxLen: MaxLen}
}

// Resolve produces the final summary text for it. Never returns an error:
// all failure modes degrade to the best text the earlier tiers produced.
func (r *Resolver) Resolve(ctx context.Context, it *news.Item) string {
	page := &pageLoader{fetcher: r.fetcher, url: it.Link}

	var text string
	for _, t := range r.tiers {
		got, ok := t.try(ctx, it, page, text)
		if ok {
			text = got
		}
	}

	return textutil.Truncate(textutil.Normalize(text), r.maxLen)
}

// embeddedTier takes the entry's own summary/description field.
type embeddedTier struct{}

func (embeddedTier) name() string { return "embedded" }

func (embeddedTier) try(_ context.Context, it *news.Item, _ *pageLoader, _ string) (string, bool) {
	if it.Entry == nil {
		return "", false
	}
	raw := it.Entry.Description
	if raw == "" {
		raw = it.Entry.Content
	}
	text := textutil.HTMLToText(raw)
	return text, text != ""
}

// scrapeTier pulls a description off the article page when the embedded
// text is missing or too short.
type scrapeTier struct{}

func (scrapeTier) name() string { return "scrape" }

func (scrapeTier) try(ctx context.Context, it *news.Item, page *pageLoader, current string) (string, bool) {
	if len([]rune(current)) >= minEmbedded {
		return "", false
	}
	doc := page.load(ctx)
	if doc == nil {
		return "", false
	}

	text := metaDescription(doc)
	if text == "" {
		text = leadParagraphs(doc)
	}
	if text == "" || len(text) <= len(current) {
		return "", false
	}
	metrics.Global.IncSummariesScraped()
	return text, true
}

// aiTier rewrites the full article body into a digest paragraph. It
// replaces the prior best text on success and silently yields otherwise.
type aiTier struct {
	rewriter ai.Rewriter
	budget   *ratelimit.Budget
	cache    *cache.Cache
}

func (*aiTier) name() string { return "ai" }

func (t *aiTier) try(ctx context.Context, it *news.Item, page *pageLoader, _ string) (string, bool) {
	key := cache.Key(it.Link)
	if cached, ok := t.cache.Get(key); ok {
		return cached, true
	}

	doc := page.load(ctx)
	if doc == nil {
		return "", false
	}
	body := articleBody(doc)
	if len([]rune(body)) < minAIBody {
		return "", false
	}

	if t.budget != nil && !t.budget.Take() {
		slog.Debug("ai budget exhausted, keeping prior summary", "link", it.Link)
		return "", false
	}

	text, err := t.rewriter.Rewrite(ctx, it.Title, body)
	if err != nil || text == "" {
		metrics.Global.IncAIFailures()
		slog.Warn("ai rewrite failed, keeping prior summary", "link", it.Link, "err", err)
		return "", false
	}

	metrics.Global.IncAIRewrites()
	t.cache.Set(key, text, cacheTTL)
	return text, true
}
