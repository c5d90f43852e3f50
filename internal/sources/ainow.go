package sources

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const AINOWURL = "https://ainow.ai/"

var urlDatePath = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)

// AINOW scrapes the AINOW front page.
type AINOW struct {
	client  *http.Client
	pageURL string
	enabled bool
}

func NewAINOW(client *http.Client, pageURL string, enabled bool) *AINOW {
	if pageURL == "" {
		pageURL = AINOWURL
	}
	return &AINOW{client: client, pageURL: pageURL, enabled: enabled}
}

func (s *AINOW) Config() SourceConfig {
	return SourceConfig{Name: "AINOW", Type: models.SourceAINOW, Language: Japanese, Enabled: s.enabled}
}

func (s *AINOW) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	doc, err := fetchDocument(ctx, s.client, s.pageURL)
	if err != nil {
		return nil, err
	}

	items := s.parseArticles(doc, limit)
	if len(items) == 0 {
		log.Debug().Str("url", s.pageURL).Msg("No AINOW article cards found, falling back to dated links")
		items = s.parseDatedLinks(doc, limit)
	}
	return items, nil
}

func (s *AINOW) parseArticles(doc *goquery.Document, limit int) []models.NewsItem {
	var items []models.NewsItem
	seen := make(map[string]struct{})

	doc.Find("article, .post, .entry, [class*='article'], [class*='post']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}

		link := sel.Find("h2 a, h3 a, .entry-title a, [class*='title'] a").First()
		title := normalize.CleanText(link.Text())
		if link.Length() == 0 {
			link = sel.Find("a[href*='ainow.ai']").First()
			title = normalize.CleanText(sel.Find("h2, h3, [class*='title']").First().Text())
		}
		href, ok := link.Attr("href")
		if !ok || href == "" || title == "" {
			return true
		}
		href = normalize.ResolveURL(s.pageURL, href)
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}

		dateSel := sel.Find("time, .entry-date, [class*='date']").First()
		raw, ok := dateSel.Attr("datetime")
		if !ok || raw == "" {
			raw = dateSel.Text()
		}
		published, parsed := normalize.ParseJapaneseDate(raw)

		items = append(items, models.NewsItem{
			ID:            "ainow-" + normalize.ShortHash(href),
			Title:         title,
			URL:           href,
			Author:        normalize.CleanText(sel.Find(".author, .entry-author, [class*='author']").First().Text()),
			PublishedAt:   published,
			DateEstimated: !parsed,
			Source:        models.SourceAINOW,
			Metadata:      models.FeedMetadata{Feed: "AINOW"},
		})
		return true
	})
	return items
}

// parseDatedLinks picks up article links of the form /YYYY/MM/DD/slug when
// the page has no recognisable article containers.
func (s *AINOW) parseDatedLinks(doc *goquery.Document, limit int) []models.NewsItem {
	var items []models.NewsItem
	seen := make(map[string]struct{})

	doc.Find("a[href*='ainow.ai/20']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		title := normalize.CleanText(a.Text())
		if href == "" || len([]rune(title)) < 10 {
			return true
		}
		if strings.Contains(href, "/tag/") || strings.Contains(href, "/category/") {
			return true
		}
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}

		published, parsed := dateFromURL(href)
		items = append(items, models.NewsItem{
			ID:            "ainow-" + normalize.ShortHash(href),
			Title:         title,
			URL:           href,
			PublishedAt:   published,
			DateEstimated: !parsed,
			Source:        models.SourceAINOW,
			Metadata:      models.FeedMetadata{Feed: "AINOW"},
		})
		return true
	})
	return items
}

func dateFromURL(href string) (time.Time, bool) {
	m := urlDatePath.FindStringSubmatch(href)
	if m == nil {
		return time.Now(), false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Now(), false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}
