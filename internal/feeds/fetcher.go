// Package feeds fetches recent headlines from RSS and Atom feeds. They are
// offered to the models as context when a post is generated.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout  = 10 * time.Second
	maxConcurrent   = 4
	rateLimitDelay  = 1 * time.Second
	defaultMaxItems = 5
)

// HeadlineFetcher collects headlines from a fixed list of feeds with
// per-domain rate limiting and bounded concurrency.
type HeadlineFetcher struct {
	feeds       []string
	max         int
	client      *http.Client
	rateLimiter map[string]time.Time // per-domain last request time
	mu          sync.Mutex           // protects rateLimiter
}

// NewHeadlineFetcher creates a HeadlineFetcher over feedURLs returning at
// most maxHeadlines titles. A zero timeout means 10 seconds.
func NewHeadlineFetcher(feedURLs []string, maxHeadlines int, timeout time.Duration) *HeadlineFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxHeadlines <= 0 {
		maxHeadlines = defaultMaxItems
	}
	return &HeadlineFetcher{
		feeds: feedURLs,
		max:   maxHeadlines,
		client: &http.Client{
			Timeout: timeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		rateLimiter: make(map[string]time.Time),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject a custom User-Agent
// header on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "AIFeedBot/1.0 (+https://github.com/aifeed/aifeed)")
	req.Header.Set("Accept", "application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
	return t.base.RoundTrip(req)
}

// Headlines fetches every feed concurrently and returns up to the configured
// number of titles, preferring those that share a word with topic. Failed
// feeds are logged and skipped; an error is returned only when all of them
// failed.
func (f *HeadlineFetcher) Headlines(ctx context.Context, topic string) ([]string, error) {
	if len(f.feeds) == 0 {
		return nil, nil
	}

	var (
		items []headline
		errs  []error
		mu    sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, feedURL := range f.feeds {
		g.Go(func() error {
			got, err := f.fetchFeed(ctx, feedURL)
			if err != nil {
				slog.Warn("failed to fetch feed", "url", feedURL, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil // skip failures, don't fail the batch
			}

			mu.Lock()
			items = append(items, got...)
			mu.Unlock()

			slog.Debug("fetched feed", "url", feedURL, "items", len(got))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching feeds: %w", err)
	}

	if len(errs) == len(f.feeds) {
		return nil, fmt.Errorf("all feeds failed: %w", errors.Join(errs...))
	}

	return selectHeadlines(items, topic, f.max), nil
}

// fetchFeed retrieves and parses a single feed.
func (f *HeadlineFetcher) fetchFeed(ctx context.Context, feedURL string) ([]headline, error) {
	f.waitForRateLimit(extractDomain(feedURL))

	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", feedURL, err)
	}

	return parseFeedItems(feed, lookbackDays, time.Now()), nil
}

// waitForRateLimit enforces a minimum delay of 1 second between requests to
// the same domain. It blocks until the delay has elapsed.
func (f *HeadlineFetcher) waitForRateLimit(domain string) {
	f.mu.Lock()
	lastReq, ok := f.rateLimiter[domain]
	if ok {
		elapsed := time.Since(lastReq)
		if elapsed < rateLimitDelay {
			f.mu.Unlock()
			time.Sleep(rateLimitDelay - elapsed)
			f.mu.Lock()
		}
	}
	f.rateLimiter[domain] = time.Now()
	f.mu.Unlock()
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
