package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="Scaling laws revisited">
  <meta property="og:site_name" content="Example AI Blog">
</head>
<body>
  <nav>Home | About | Contact</nav>
  <article>
    <h1>Scaling laws revisited</h1>
    <p>Researchers found that doubling the training data improved accuracy far more than doubling the parameter count.</p>
    <p>The study covered forty models trained over eighteen months on a mix of public and licensed corpora.</p>
    <p>The authors argue that data quality now matters more than raw model size for most practical workloads.</p>
  </article>
  <footer>Copyright 2025</footer>
</body>
</html>`

func TestScrape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") != "ja,en;q=0.9" {
			t.Errorf("unexpected Accept-Language %q", r.Header.Get("Accept-Language"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	s := New(Options{})
	article, err := s.Scrape(context.Background(), srv.URL+"/post")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if article.Title != "Scaling laws revisited" {
		t.Fatalf("unexpected title %q", article.Title)
	}
	if article.SiteName != "Example AI Blog" {
		t.Fatalf("unexpected site name %q", article.SiteName)
	}
	if !strings.Contains(article.Content, "doubling the training data") {
		t.Fatalf("content missing article text: %q", article.Content)
	}
	if len([]rune(article.Excerpt)) > excerptLength+3 {
		t.Fatalf("excerpt too long: %d runes", len([]rune(article.Excerpt)))
	}
}

func TestScrapeErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			w.Write([]byte(`<html><body><p>Too short.</p></body></html>`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	s := New(Options{})
	if _, err := s.Scrape(context.Background(), srv.URL+"/short"); !errors.Is(err, ErrContentTooShort) {
		t.Fatalf("expected ErrContentTooShort, got %v", err)
	}
	if _, err := s.Scrape(context.Background(), srv.URL+"/forbidden"); err == nil {
		t.Fatal("expected error for 403")
	}
	if _, err := s.Scrape(context.Background(), "ftp://example.com/file"); err == nil {
		t.Fatal("expected error for non-http URL")
	}
}

func TestSelectorContentPrefersContainers(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Model evaluation needs careful benchmark design. ", 4)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
	  <div class="sidebar">` + long + `</div>
	  <div class="entry-content">` + long + `</div>
	  <div class="comments">Nice post!</div>
	</body></html>`))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	got := selectorContent(doc)
	if got != strings.TrimSpace(long) {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestScrapeManyBatches(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/bad", srv.URL + "/4", srv.URL + "/5"}
	s := New(Options{Concurrency: 2, Delay: 10 * time.Millisecond})

	results := s.ScrapeMany(context.Background(), urls)
	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}
	if results[srv.URL+"/bad"].Err == nil {
		t.Fatal("expected error for /bad")
	}
	if r := results[srv.URL+"/4"]; r.Err != nil || r.Article == nil {
		t.Fatalf("unexpected result for /4: %+v", r)
	}
	if got := maxInFlight.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent fetches, saw %d", got)
	}
}

func TestScrapeManyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Options{}).ScrapeMany(ctx, []string{"https://example.com/a", "https://example.com/b"})
	for u, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("%s: expected context.Canceled, got %v", u, r.Err)
		}
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}
