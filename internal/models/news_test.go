package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestArticleIDDecodesNumbersAndStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want ArticleID
	}{
		{name: "string", in: `"hn-42"`, want: "hn-42"},
		{name: "number", in: `1000000123`, want: "1000000123"},
		{name: "null", in: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ArticleID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if id != tt.want {
				t.Fatalf("got %q, want %q", id, tt.want)
			}
		})
	}
}

func TestArticleIDRejectsObjects(t *testing.T) {
	t.Parallel()

	var id ArticleID
	if err := json.Unmarshal([]byte(`{"a":1}`), &id); err == nil {
		t.Fatalf("expected error for object id")
	}
}

func TestNewsSummaryWritesStringIDAndNullURL(t *testing.T) {
	t.Parallel()

	var s NewsSummary
	legacy := `{"id":7,"title":"t","url":null,"summary":"s","keyPoints":[],"category":"AI","sentiment":"neutral","createdAt":"2024-01-15T10:00:00.000Z"}`
	if err := json.Unmarshal([]byte(legacy), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.URL != nil {
		t.Fatalf("expected nil url")
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"id":"7"`) {
		t.Fatalf("id not written as string: %s", out)
	}
	if !strings.Contains(string(out), `"url":null`) {
		t.Fatalf("url not written as null: %s", out)
	}
}

func TestSentimentValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if Sentiment("mixed").Valid() {
		t.Fatalf("mixed should be invalid")
	}
}

func TestDescriptionOnlyForFeedMetadata(t *testing.T) {
	t.Parallel()

	item := NewsItem{Metadata: FeedMetadata{Description: "desc"}}
	if item.Description() != "desc" {
		t.Fatalf("got %q", item.Description())
	}
	item.Metadata = HackerNewsMetadata{Score: 3}
	if item.Description() != "" {
		t.Fatalf("expected empty description for HN metadata")
	}
}

func TestDataFilesAcceptDateOnlyTimestamps(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	var news NewsData
	in := `{"generatedAt":"2025-01-02","articles":[{"id":"a","title":"t","url":"https://example.com/a","summary":"s","keyPoints":[],"category":"AI","sentiment":"neutral","createdAt":"2025-01-02"}]}`
	if err := json.Unmarshal([]byte(in), &news); err != nil {
		t.Fatalf("NewsData: %v", err)
	}
	if !news.GeneratedAt.Equal(day) || len(news.Articles) != 1 || !news.Articles[0].CreatedAt.Equal(day) {
		t.Fatalf("unexpected news %+v", news)
	}
	if news.Articles[0].ID != "a" || news.Articles[0].URLOrEmpty() != "https://example.com/a" {
		t.Fatalf("other fields lost: %+v", news.Articles[0])
	}

	var archive ArchiveData
	if err := json.Unmarshal([]byte(`{"month":"2025-01","archivedAt":"2025-01-02","articles":[]}`), &archive); err != nil {
		t.Fatalf("ArchiveData: %v", err)
	}
	if archive.Month != "2025-01" || !archive.ArchivedAt.Equal(day) {
		t.Fatalf("unexpected archive %+v", archive)
	}

	var stats NewsStats
	if err := json.Unmarshal([]byte(`{"lastUpdated":"2025-01-02 00:00:00"}`), &stats); err != nil {
		t.Fatalf("NewsStats: %v", err)
	}
	if !stats.LastUpdated.Equal(day) {
		t.Fatalf("lastUpdated = %v", stats.LastUpdated)
	}
}

func TestDataFilesRejectUnknownTimestamps(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`{"id":"a","createdAt":"last tuesday"}`,
		`{"id":"a","createdAt":12345}`,
	} {
		var s NewsSummary
		if err := json.Unmarshal([]byte(in), &s); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestTimestampWritesRFC3339(t *testing.T) {
	t.Parallel()

	ts := Timestamp{time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	out, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `"2025-03-15T12:00:00Z"` {
		t.Fatalf("got %s", out)
	}

	var back Timestamp
	if err := json.Unmarshal(out, &back); err != nil || !back.Equal(ts.Time) {
		t.Fatalf("round trip = %v, %v", back, err)
	}
}
