// Package news defines the pipeline's item model and the pure collection
// steps: raw feed entry extraction, lookback filtering, deduplication and
// ordering. No I/O happens here.
package news

import (
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"secbrief/internal/textutil"
)

// Image is a validated, re-encoded image artifact stored in a temp file.
// The consumer of the final collection owns Path and removes it once used.
type Image struct {
	Path   string
	Format string // always "jpeg" after normalization
}

// Item is one normalized, enriched article.
type Item struct {
	Source    string
	Title     string
	Link      string
	Published time.Time
	Summary   string
	Image     *Image

	// Entry is the raw feed entry, retained only so the image resolver can
	// inspect feed-native media fields. Cleared before the item leaves the
	// pipeline.
	Entry *gofeed.Item
}

// ExtractEntry turns one raw feed entry into an item candidate. Entries
// without a usable timestamp, title or link are expected feed noise and
// yield nil rather than an error.
func ExtractEntry(sourceName string, entry *gofeed.Item) *Item {
	published := entryTime(entry)
	if published.IsZero() {
		return nil
	}

	title := textutil.Normalize(entry.Title)
	link := textutil.Normalize(entry.Link)
	if title == "" || link == "" {
		return nil
	}

	return &Item{
		Source:    sourceName,
		Title:     title,
		Link:      link,
		Published: published.UTC(),
		Entry:     entry,
	}
}

// entryTime picks the publish timestamp: published wins over updated.
func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}

// FilterSince keeps items published at or after cutoff.
func FilterSince(items []*Item, cutoff time.Time) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if !it.Published.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// dedupKey pairs the case-folded title with the link, matching the
// first-occurrence-wins dedup contract.
func dedupKey(it *Item) string {
	return strings.ToLower(strings.TrimSpace(it.Title)) + "|" + strings.TrimSpace(it.Link)
}

// Deduplicate drops later items whose (lowercased title, link) pair was
// already seen, preserving input order.
func Deduplicate(items []*Item) []*Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		key := dedupKey(it)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// SortNewestFirst orders items by publish time descending. The sort is
// stable so equal timestamps keep their source-then-feed order.
func SortNewestFirst(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Published.After(items[j].Published)
	})
}
