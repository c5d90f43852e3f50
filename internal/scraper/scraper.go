// Package scraper downloads article pages and extracts their readable text.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ainews/aggregator/internal/normalize"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 3
	DefaultDelay       = 500 * time.Millisecond
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	minContentLength = 50
	minBlockLength   = 100
	excerptLength    = 200
	maxPageSize      = 5 << 20
)

// ErrContentTooShort is returned when a page has too little text to summarize.
var ErrContentTooShort = errors.New("extracted content too short")

var boilerplateSelectors = strings.Join([]string{
	"script", "style", "nav", "header", "footer", "aside", "iframe", "noscript",
	".advertisement", ".ads", ".ad", ".sidebar", ".comments", ".comment",
	".social-share", ".related-posts",
	"[role='navigation']", "[role='banner']", "[role='complementary']",
}, ", ")

var contentSelectors = []string{
	"article", "[role='main']", "main", ".post-content", ".article-content",
	".entry-content", ".content", ".post-body", "#content",
}

// Article is the text extracted from one page.
type Article struct {
	URL      string
	Title    string
	Content  string
	Excerpt  string
	SiteName string
	Byline   string
}

// Result pairs a URL with its extraction outcome.
type Result struct {
	Article *Article
	Err     error
}

type Options struct {
	Timeout     time.Duration
	Concurrency int
	// Delay is the pause between two batches.
	Delay     time.Duration
	UserAgent string
}

type Scraper struct {
	client *http.Client
	opts   Options
}

func New(opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Scraper{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Scrape fetches pageURL and extracts its main text.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid article URL %q", pageURL)
	}

	body, err := s.download(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	article := &Article{
		URL:      pageURL,
		Title:    pageTitle(doc),
		SiteName: siteName(doc),
	}

	if parsed, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		article.Content = normalize.CleanText(parsed.TextContent)
		article.Byline = parsed.Byline
		if article.Title == "" {
			article.Title = parsed.Title
		}
		if article.SiteName == "" {
			article.SiteName = parsed.SiteName
		}
	} else {
		log.Debug().Err(err).Str("url", pageURL).Msg("Readability failed, using selector extraction")
	}

	if len([]rune(article.Content)) < minContentLength {
		article.Content = selectorContent(doc)
	}
	if len([]rune(article.Content)) < minContentLength {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrContentTooShort)
	}

	article.Excerpt = normalize.Truncate(article.Content, excerptLength)
	return article, nil
}

func (s *Scraper) download(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return body, nil
}

func pageTitle(doc *goquery.Document) string {
	if v, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(v) != "" {
		return normalize.CleanText(v)
	}
	if v := normalize.CleanText(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return normalize.CleanText(doc.Find("h1").First().Text())
}

func siteName(doc *goquery.Document) string {
	if v, ok := doc.Find("meta[property='og:site_name']").Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	v, _ := doc.Find("meta[name='application-name']").Attr("content")
	return strings.TrimSpace(v)
}

// selectorContent strips boilerplate and returns the text of the first
// content container that has enough text, falling back to the whole body.
func selectorContent(doc *goquery.Document) string {
	doc.Find(boilerplateSelectors).Remove()

	for _, sel := range contentSelectors {
		text := normalize.CleanText(doc.Find(sel).First().Text())
		if len([]rune(text)) > minBlockLength {
			return text
		}
	}
	return normalize.CleanText(doc.Find("body").Text())
}

// ScrapeMany scrapes urls in batches of Concurrency pages, pausing Delay
// between batches. Every URL gets an entry in the result, failures included.
func (s *Scraper) ScrapeMany(ctx context.Context, urls []string) map[string]Result {
	results := make(map[string]Result, len(urls))
	var mu sync.Mutex

	for start := 0; start < len(urls); start += s.opts.Concurrency {
		end := min(start+s.opts.Concurrency, len(urls))

		if err := ctx.Err(); err != nil {
			for _, u := range urls[start:] {
				results[u] = Result{Err: err}
			}
			break
		}

		var g errgroup.Group
		for _, u := range urls[start:end] {
			g.Go(func() error {
				article, err := s.Scrape(ctx, u)
				if err != nil {
					log.Warn().Err(err).Str("url", u).Msg("Failed to scrape article")
				}
				mu.Lock()
				results[u] = Result{Article: article, Err: err}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(urls) && s.opts.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.Delay):
			}
		}
	}

	log.Info().Int("urls", len(urls)).Int("succeeded", countSucceeded(results)).Msg("Scraped articles")
	return results
}

func countSucceeded(results map[string]Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
