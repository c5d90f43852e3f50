package sources

import (
	"context"
	"net/http"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const AIShinbunURL = "https://community.exawizards.com/aishinbun/"

const aiShinbunCards = ".exa-archive-card--type-1, .exa-archive-card--type-2, .exa-archive-card--type-3, " +
	".exa-archive-two-columns-layout__list-of-articles__card"

var slashDate = regexp.MustCompile(`(\d{4}/\d{1,2}/\d{1,2})`)

// AIShinbun scrapes the archive cards of ExaWizards' AI新聞.
type AIShinbun struct {
	client  *http.Client
	pageURL string
	enabled bool
}

func NewAIShinbun(client *http.Client, pageURL string, enabled bool) *AIShinbun {
	if pageURL == "" {
		pageURL = AIShinbunURL
	}
	return &AIShinbun{client: client, pageURL: pageURL, enabled: enabled}
}

func (s *AIShinbun) Config() SourceConfig {
	return SourceConfig{Name: "AI新聞", Type: models.SourceAIShinbun, Language: Japanese, Enabled: s.enabled}
}

func (s *AIShinbun) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	doc, err := fetchDocument(ctx, s.client, s.pageURL)
	if err != nil {
		return nil, err
	}
	return s.parse(doc, limit), nil
}

func (s *AIShinbun) parse(doc *goquery.Document, limit int) []models.NewsItem {
	var items []models.NewsItem
	seen := make(map[string]struct{})

	doc.Find(aiShinbunCards).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}
		a := card.Find("a").First()
		href, _ := a.Attr("href")
		if href == "" {
			return true
		}
		href = normalize.ResolveURL(s.pageURL, href)
		if _, dup := seen[href]; dup {
			return true
		}

		title := normalize.CleanText(card.Find("h2, h3").First().Text())
		if title == "" {
			title = normalize.CleanText(a.Text())
		}
		if title == "" {
			return true
		}
		seen[href] = struct{}{}

		published, ok := normalize.ParseJapaneseDate("")
		if m := slashDate.FindString(card.Text()); m != "" {
			published, ok = normalize.ParseJapaneseDate(m)
		}

		items = append(items, models.NewsItem{
			ID:            "aishinbun-" + normalize.ShortHash(href),
			Title:         title,
			URL:           href,
			PublishedAt:   published,
			DateEstimated: !ok,
			Source:        models.SourceAIShinbun,
			Metadata:      models.FeedMetadata{Feed: "AI新聞"},
		})
		return true
	})
	return items
}
