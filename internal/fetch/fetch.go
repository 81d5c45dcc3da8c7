// Package fetch is the single HTTP door for the pipeline: article pages,
// feed documents and images all go through the same bounded-timeout client.
// Callers treat every failure the same way (fallback unavailable), so
// transport errors, timeouts and non-2xx statuses all collapse into *Error.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserAgent identifies the pipeline to remote sites.
const UserAgent = "Mozilla/5.0 (compatible; SecbriefBot/1.0)"

// DefaultPageTimeout bounds article page fetches.
const DefaultPageTimeout = 12 * time.Second

// DefaultImageTimeout bounds image downloads.
const DefaultImageTimeout = 15 * time.Second

// Error is the one failure kind the fetcher reports. URL and Status carry
// context for logs; callers only ever branch on "failed or not".
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client performs single GET requests with a fixed user agent.
type Client struct {
	http *http.Client
}

// NewClient returns a fetcher whose every request is bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Get fetches url and returns the response on any 2xx status. The caller
// owns the body and must close it.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &Error{URL: url, Status: resp.StatusCode}
	}
	return resp, nil
}

// Download streams the body of url into memory, aborting once the read
// passes maxBytes. It returns the payload and the declared Content-Type.
func (c *Client) Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	ctype := resp.Header.Get("Content-Type")

	// read one byte past the cap so an exactly-at-cap payload still passes
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", &Error{URL: url, Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, "", &Error{URL: url, Err: fmt.Errorf("payload exceeds %d bytes", maxBytes)}
	}
	return data, ctype, nil
}
