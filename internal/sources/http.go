package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxBodySize           = 10 << 20
)

var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// ErrRateLimited is returned when an upstream answers 429.
var ErrRateLimited = errors.New("rate limited by upstream")

// StatusError is returned for any other non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// NewHTTPClient returns the client shared by adapters that do not bring
// their own.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultRequestTimeout}
}

func randomUserAgent() string {
	return browserUserAgents[rand.IntN(len(browserUserAgents))]
}

func get(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, url)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, v any) error {
	body, err := get(ctx, client, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}

// fetchDocument downloads an HTML page the way a browser would and parses it.
func fetchDocument(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	body, err := get(ctx, client, url, map[string]string{
		"User-Agent":      randomUserAgent(),
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "ja,en;q=0.9",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return doc, nil
}

// fetchFeed downloads and parses an RSS or Atom feed.
func fetchFeed(ctx context.Context, client *http.Client, url string) (*gofeed.Feed, error) {
	body, err := get(ctx, client, url, map[string]string{
		"User-Agent": randomUserAgent(),
		"Accept":     "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}
	return feed, nil
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
