// Package feed holds the source registry and the RSS/Atom retrieval layer.
package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"secbrief/internal/fetch"
	"secbrief/internal/news"
	"secbrief/internal/retry"
)

// Source is one configured feed.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// registryFile is the YAML shape of a sources file:
//
//	sources:
//	  - name: The Hacker News
//	    url: https://...
type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// DefaultSources is the built-in registry used when no sources file is given.
func DefaultSources() []Source {
	return []Source{
		{Name: "The Hacker News", URL: "https://thehackernews.com/feeds/posts/default?alt=rss"},
		{Name: "BleepingComputer", URL: "https://www.bleepingcomputer.com/feed/"},
		{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/"},
		{Name: "Cisco Talos Intelligence", URL: "https://blog.talosintelligence.com/rss/"},
		{Name: "PortSwigger Research", URL: "https://portswigger.net/research/rss"},
	}
}

// LoadSources reads a YAML sources file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reg registryFile
	if err := yaml.NewDecoder(f).Decode(&reg); err != nil {
		return nil, fmt.Errorf("decode sources file %s: %w", path, err)
	}
	if len(reg.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no feeds", path)
	}
	for i, s := range reg.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("sources file %s: entry %d needs both name and url", path, i)
		}
	}
	return reg.Sources, nil
}

// Fetcher retrieves and parses feeds.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	retries int
}

// NewFetcher creates a feed fetcher with a per-feed timeout. Each feed is
// attempted twice before its source is written off for the run.
func NewFetcher(timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = fetch.UserAgent
	return &Fetcher{parser: parser, timeout: timeout, retries: 2}
}

// Fetch downloads and parses one source, returning up to limit extracted
// item candidates in feed order. Malformed entries are skipped silently.
func (f *Fetcher) Fetch(ctx context.Context, src Source, limit int) ([]*news.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var parsed *gofeed.Feed
	err := retry.Do(ctx, retry.Config{MaxAttempts: f.retries, Delay: time.Second}, func() error {
		var perr error
		parsed, perr = f.parser.ParseURLWithContext(src.URL, ctx)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	items := make([]*news.Item, 0, min(limit, len(parsed.Items)))
	for _, entry := range parsed.Items {
		if len(items) >= limit {
			break
		}
		if it := news.ExtractEntry(src.Name, entry); it != nil {
			items = append(items, it)
		}
	}
	return items, nil
}
