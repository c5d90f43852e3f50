package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ArticleID is the id of a persisted article. Older data files carry numeric
// ids; they decode into their decimal string and are always written back as
// strings.
type ArticleID string

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (id *ArticleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ArticleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("article id must be a string or number: %w", err)
	}
	*id = ArticleID(n.String())
	return nil
}

// Sentiment of a summarized article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// MaxKeyPoints bounds NewsSummary.KeyPoints.
const MaxKeyPoints = 3

// NewsSummary is one article of the active set or of a monthly archive.
type NewsSummary struct {
	ID        ArticleID `json:"id"`
	Title     string    `json:"title"`
	URL       *string   `json:"url"`
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"keyPoints"`
	Category  string    `json:"category"`
	Sentiment Sentiment `json:"sentiment"`
	CreatedAt time.Time `json:"createdAt"`
}

// URLOrEmpty dereferences URL.
func (s NewsSummary) URLOrEmpty() string {
	if s.URL == nil {
		return ""
	}
	return *s.URL
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewsData is the active news file.
type NewsData struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	Articles    []NewsSummary `json:"articles"`
}

// ArchiveData is one monthly archive file, keyed by Month ("YYYY-MM").
type ArchiveData struct {
	Month      string        `json:"month"`
	ArchivedAt time.Time     `json:"archivedAt"`
	Articles   []NewsSummary `json:"articles"`
}

// MonthlyStats is the article count of one archive month.
type MonthlyStats struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// NewsStats is recomputed from scratch on every archive rotation.
type NewsStats struct {
	TotalArticles    int            `json:"totalArticles"`
	ActiveArticles   int            `json:"activeArticles"`
	ArchivedArticles int            `json:"archivedArticles"`
	MonthlyStats     []MonthlyStats `json:"monthlyStats"`
	LastUpdated      time.Time      `json:"lastUpdated"`
}
