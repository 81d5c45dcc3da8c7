// Package app drives a full aggregation run: fan out over the configured
// sources, collect and normalize their entries, then filter, dedupe, order
// and enrich the survivors with summaries and images.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"secbrief/internal/ai"
	"secbrief/internal/config"
	"secbrief/internal/feed"
	"secbrief/internal/fetch"
	"secbrief/internal/images"
	"secbrief/internal/metrics"
	"secbrief/internal/news"
	"secbrief/internal/ratelimit"
	"secbrief/internal/summary"
)

// Digest is the result of one aggregation run.
type Digest struct {
	Items        []*news.Item
	Lookback     time.Duration
	GeneratedAt  time.Time
	SourceCounts map[string]int
}

// Pipeline owns the per-run collaborators. Build one per invocation.
type Pipeline struct {
	cfg       *config.Config
	sources   []feed.Source
	fetcher   *feed.Fetcher
	summaries *summary.Resolver
	images    *images.Resolver

	now func() time.Time
}

// New assembles the pipeline from config. A nil rewriter disables the AI
// summary tier; everything else still runs.
func New(cfg *config.Config, rewriter ai.Rewriter) (*Pipeline, error) {
	sources := feed.DefaultSources()
	if cfg.SourcesPath != "" {
		loaded, err := feed.LoadSources(cfg.SourcesPath)
		if err != nil {
			return nil, fmt.Errorf("load sources: %w", err)
		}
		sources = loaded
	}

	var budget *ratelimit.Budget
	if rewriter != nil {
		budget = ratelimit.NewBudget(cfg.MaxAIRequests)
	}

	return &Pipeline{
		cfg:     cfg,
		sources: sources,
		fetcher: feed.NewFetcher(cfg.FeedTimeout),
		summaries: summary.NewResolver(fetch.NewClient(cfg.PageTimeout), summary.Options{
			AllowFetch: cfg.AllowFetch,
			Rewriter:   rewriter,
			AIBudget:   budget,
		}),
		images: images.NewResolver(fetch.NewClient(cfg.ImageTimeout)),
		now:    time.Now,
	}, nil
}

// Run executes one aggregation pass. A failing source is logged and
// skipped; even all sources failing just yields an empty digest, so the
// run itself never aborts over retrieval problems.
func (p *Pipeline) Run(ctx context.Context) (*Digest, error) {
	start := p.now()
	cutoff := start.AddDate(0, 0, -p.cfg.LookbackDays)

	collected := p.collect(ctx)

	kept := news.FilterSince(collected, cutoff)
	metrics.Global.IncEntriesDroppedBy(len(collected) - len(kept))

	deduped := news.Deduplicate(kept)
	metrics.Global.IncDuplicatesFilteredBy(len(kept) - len(deduped))

	news.SortNewestFirst(deduped)

	p.enrich(ctx, deduped)

	counts := make(map[string]int, len(p.sources))
	for _, it := range deduped {
		counts[it.Source]++
		it.Entry = nil // raw entry no longer needed past this point
	}

	metrics.Global.RecordRun(p.now().Sub(start))
	slog.Info("aggregation run complete",
		"collected", len(collected),
		"kept", len(deduped),
		"duration", p.now().Sub(start))

	return &Digest{
		Items:        deduped,
		Lookback:     time.Duration(p.cfg.LookbackDays) * 24 * time.Hour,
		GeneratedAt:  start,
		SourceCounts: counts,
	}, nil
}

// collect fetches every source concurrently and merges the results in
// source registry order, so dedup's first-wins rule stays deterministic.
func (p *Pipeline) collect(ctx context.Context) []*news.Item {
	slots := make([][]*news.Item, len(p.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SourceConcurrency)
	failed := 0
	var mu sync.Mutex
	for i, src := range p.sources {
		g.Go(func() error {
			items, err := p.fetcher.Fetch(gctx, src, p.cfg.PerSourceLimit)
			if err != nil {
				metrics.Global.IncFeedsFailed()
				slog.Warn("source failed, skipping", "source", src.Name, "err", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			metrics.Global.IncFeedsFetched()
			metrics.Global.IncEntriesSeenBy(len(items))
			slog.Debug("source fetched", "source", src.Name, "items", len(items))
			slots[i] = items
			return nil
		})
	}
	g.Wait()

	if failed == len(p.sources) {
		slog.Warn("every source failed this run", "sources", len(p.sources))
	}

	var merged []*news.Item
	for _, slot := range slots {
		merged = append(merged, slot...)
	}
	return merged
}

// enrich resolves summaries and images for every item. Both steps are
// fail-soft per item; an item without an image or summary still ships.
func (p *Pipeline) enrich(ctx context.Context, items []*news.Item) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SourceConcurrency)
	for _, it := range items {
		g.Go(func() error {
			it.Summary = p.summaries.Resolve(gctx, it)
			if p.cfg.AllowFetch {
				it.Image = p.images.Resolve(gctx, it)
			}
			return nil
		})
	}
	g.Wait()
}
