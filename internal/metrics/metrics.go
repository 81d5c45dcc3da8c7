// Package metrics tracks pipeline counters for the optional monitoring
// endpoint.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched       int64
	FeedsFailed        int64
	EntriesSeen        int64
	EntriesDropped     int64
	DuplicatesFiltered int64
	SummariesScraped   int64
	AIRewrites         int64
	AIFailures         int64
	ImagesResolved     int64
	ImagesRejected     int64

	// Timings
	LastRunDuration time.Duration

	// Status
	LastRunTime time.Time
	LastError   string
	IsHealthy   bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncFeedsFetched() { m.add(&m.FeedsFetched) }

func (m *Metrics) IncFeedsFailed() { m.add(&m.FeedsFailed) }

func (m *Metrics) IncEntriesSeenBy(n int) { m.addN(&m.EntriesSeen, n) }

func (m *Metrics) IncEntriesDroppedBy(n int) { m.addN(&m.EntriesDropped, n) }

func (m *Metrics) IncDuplicatesFilteredBy(n int) { m.addN(&m.DuplicatesFiltered, n) }

func (m *Metrics) IncSummariesScraped() { m.add(&m.SummariesScraped) }

func (m *Metrics) IncAIRewrites() { m.add(&m.AIRewrites) }

func (m *Metrics) IncAIFailures() { m.add(&m.AIFailures) }

func (m *Metrics) IncImagesResolved() { m.add(&m.ImagesResolved) }

func (m *Metrics) IncImagesRejected() { m.add(&m.ImagesRejected) }

func (m *Metrics) add(counter *int64) { m.addN(counter, 1) }

func (m *Metrics) addN(counter *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += int64(n)
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunDuration = duration
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feeds_fetched":        m.FeedsFetched,
		"feeds_failed":         m.FeedsFailed,
		"entries_seen":         m.EntriesSeen,
		"entries_dropped":      m.EntriesDropped,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"summaries_scraped":    m.SummariesScraped,
		"ai_rewrites":          m.AIRewrites,
		"ai_failures":          m.AIFailures,
		"images_resolved":      m.ImagesResolved,
		"images_rejected":      m.ImagesRejected,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
