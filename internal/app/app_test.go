package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secbrief/internal/config"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
<link>https://example.com</link>
%s
</channel>
</rss>`

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf("<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>",
		title, link, published.Format(time.RFC1123Z))
}

func serveRSS(t *testing.T, name, items string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssTemplate, name, items)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeSources registers the given feed URLs as the run's source file.
func writeSources(t *testing.T, urls map[string]string) string {
	t.Helper()
	content := "sources:\n"
	// deterministic registry order matters for dedup, write in given order
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if u, ok := urls[name]; ok {
			content += fmt.Sprintf("  - name: %s\n    url: %s\n", name, u)
		}
	}
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(sourcesPath string) *config.Config {
	return &config.Config{
		LookbackDays:      7,
		PerSourceLimit:    25,
		AllowFetch:        false,
		SourcesPath:       sourcesPath,
		FeedTimeout:       5 * time.Second,
		SourceConcurrency: 2,
	}
}

func TestRunMergesSourcesNewestFirst(t *testing.T) {
	now := time.Now()
	alpha := serveRSS(t, "Alpha", rssItem("Older story", "https://a.example.com/1", now.Add(-48*time.Hour)))
	beta := serveRSS(t, "Beta", rssItem("Newer story", "https://b.example.com/1", now.Add(-2*time.Hour)))

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL, "Beta": beta.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, digest.Items, 2)
	assert.Equal(t, "Newer story", digest.Items[0].Title)
	assert.Equal(t, "Older story", digest.Items[1].Title)
	assert.Equal(t, map[string]int{"Alpha": 1, "Beta": 1}, digest.SourceCounts)
	assert.Equal(t, 7*24*time.Hour, digest.Lookback)
	assert.False(t, digest.GeneratedAt.IsZero())
}

func TestRunSkipsFailingSource(t *testing.T) {
	now := time.Now()
	alpha := serveRSS(t, "Alpha", rssItem("Survivor", "https://a.example.com/1", now.Add(-time.Hour)))
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL, "Beta": dead.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err, "one dead source does not abort the run")
	require.Len(t, digest.Items, 1)
	assert.Equal(t, "Survivor", digest.Items[0].Title)
}

func TestRunAllSourcesFailedYieldsEmptyDigest(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": dead.URL, "Beta": dead.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err, "retrieval problems never abort the run")
	require.NotNil(t, digest)
	assert.Empty(t, digest.Items)
	assert.Empty(t, digest.SourceCounts)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	now := time.Now()
	story := rssItem("Shared Story", "https://shared.example.com/1", now.Add(-time.Hour))
	alpha := serveRSS(t, "Alpha", story)
	beta := serveRSS(t, "Beta", story)

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL, "Beta": beta.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, digest.Items, 1)
	assert.Equal(t, "Alpha", digest.Items[0].Source, "first source in registry order wins")
}

func TestRunDropsItemsOutsideLookback(t *testing.T) {
	now := time.Now()
	alpha := serveRSS(t, "Alpha",
		rssItem("Fresh", "https://a.example.com/1", now.Add(-time.Hour))+
			rssItem("Stale", "https://a.example.com/2", now.AddDate(0, 0, -30)))

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, digest.Items, 1)
	assert.Equal(t, "Fresh", digest.Items[0].Title)
}

func TestRunClearsRawEntries(t *testing.T) {
	now := time.Now()
	alpha := serveRSS(t, "Alpha", rssItem("Story", "https://a.example.com/1", now.Add(-time.Hour)))

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err)
	for _, it := range digest.Items {
		assert.Nil(t, it.Entry)
	}
}

func TestRunEmptyResultIsNotAnError(t *testing.T) {
	alpha := serveRSS(t, "Alpha", rssItem("Ancient", "https://a.example.com/1", time.Now().AddDate(-1, 0, 0)))

	p, err := New(testConfig(writeSources(t, map[string]string{"Alpha": alpha.URL})), nil)
	require.NoError(t, err)

	digest, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, digest.Items)
}
