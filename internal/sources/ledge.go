package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const (
	LedgeURL         = "https://ledge.ai/"
	ledgeArticleBase = "https://ledge.ai/articles/"
)

// ledgeDataPattern finds the start of each "data" array in the payload.
var ledgeDataPattern = regexp.MustCompile(`"data":\s*\[`)

type ledgeArticle struct {
	ID         json.RawMessage `json:"id"`
	Attributes struct {
		Title       string `json:"title"`
		Slug        string `json:"slug"`
		ScheduledAt string `json:"scheduled_at"`
		PublishedAt string `json:"publishedAt"`
		Editor      struct {
			Data struct {
				Attributes struct {
					Name string `json:"name"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"editor"`
	} `json:"attributes"`
}

// Ledge reads Ledge.ai. The front page embeds its article list as JSON in
// the Nuxt payload; when that is missing the article links are scraped.
type Ledge struct {
	client  *http.Client
	pageURL string
	enabled bool
}

func NewLedge(client *http.Client, pageURL string, enabled bool) *Ledge {
	if pageURL == "" {
		pageURL = LedgeURL
	}
	return &Ledge{client: client, pageURL: pageURL, enabled: enabled}
}

func (s *Ledge) Config() SourceConfig {
	return SourceConfig{Name: "Ledge.ai", Type: models.SourceLedge, Language: Japanese, Enabled: s.enabled}
}

func (s *Ledge) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	doc, err := fetchDocument(ctx, s.client, s.pageURL)
	if err != nil {
		return nil, err
	}

	if items := s.parseEmbedded(doc, limit); len(items) > 0 {
		return items, nil
	}
	log.Debug().Str("url", s.pageURL).Msg("No embedded Ledge payload, scraping links")
	return s.parseLinks(doc, limit), nil
}

func (s *Ledge) parseEmbedded(doc *goquery.Document, limit int) []models.NewsItem {
	var items []models.NewsItem

	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, "__NUXT__") && !strings.Contains(text, "fetchNewestArticles") {
			return true
		}
		for _, loc := range ledgeDataPattern.FindAllStringIndex(text, -1) {
			items = s.appendArticles(items, decodeLedgeArray(text[loc[1]-1:]), limit)
			if len(items) > 0 {
				return false
			}
		}
		return true
	})
	return items
}

// decodeLedgeArray decodes the JSON array at the start of payload. Anything
// after the array is ignored, so nested arrays do not cut it short.
func decodeLedgeArray(payload string) []ledgeArticle {
	var articles []ledgeArticle
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(&articles); err != nil {
		log.Debug().Err(err).Msg("Ledge data array is not plain JSON")
		return nil
	}
	return articles
}

func (s *Ledge) appendArticles(items []models.NewsItem, articles []ledgeArticle, limit int) []models.NewsItem {
	for _, a := range articles {
		if limit > 0 && len(items) >= limit {
			break
		}
		attrs := a.Attributes
		if attrs.Title == "" || attrs.Slug == "" {
			continue
		}
		raw := attrs.ScheduledAt
		if raw == "" {
			raw = attrs.PublishedAt
		}
		published, ok := normalize.ParseDate(raw)
		id := strings.Trim(string(a.ID), `"`)
		if id == "" || id == "null" {
			id = attrs.Slug
		}
		items = append(items, models.NewsItem{
			ID:            "ledge-" + id,
			Title:         attrs.Title,
			URL:           ledgeArticleBase + attrs.Slug,
			Author:        attrs.Editor.Data.Attributes.Name,
			PublishedAt:   published,
			DateEstimated: !ok,
			Source:        models.SourceLedge,
			Metadata:      models.FeedMetadata{Feed: "Ledge.ai"},
		})
	}
	return items
}

func (s *Ledge) parseLinks(doc *goquery.Document, limit int) []models.NewsItem {
	var items []models.NewsItem
	seen := make(map[string]struct{})

	doc.Find("a[href*='/articles/']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		if href == "" {
			return true
		}
		href = normalize.ResolveURL(s.pageURL, href)
		if _, dup := seen[href]; dup {
			return true
		}

		card := a.Closest("article, div, li")
		title := normalize.CleanText(card.Find("h2, h3, [class*='title']").First().Text())
		if title == "" {
			title = normalize.CleanText(a.Text())
		}
		if len([]rune(title)) < 5 {
			return true
		}
		seen[href] = struct{}{}

		published, ok := normalize.ParseJapaneseDate(card.Find("time, [class*='date']").First().Text())
		items = append(items, models.NewsItem{
			ID:            "ledge-" + normalize.ShortHash(href),
			Title:         title,
			URL:           href,
			PublishedAt:   published,
			DateEstimated: !ok,
			Source:        models.SourceLedge,
			Metadata:      models.FeedMetadata{Feed: "Ledge.ai"},
		})
		return true
	})
	return items
}
