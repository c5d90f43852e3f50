package models

import "time"

// SourceType tags the adapter an item came from.
type SourceType string

const (
	SourceHackerNews SourceType = "hackernews"
	SourceReddit     SourceType = "reddit"
	SourceBlog       SourceType = "blog"
	SourceITmedia    SourceType = "itmedia"
	SourceQiita      SourceType = "qiita"
	SourceAINOW      SourceType = "ainow"
	SourceLedge      SourceType = "ledge"
	SourceAIShinbun  SourceType = "aishinbun"
)

// NewsItem is the normalized shape every adapter produces. It only lives in
// memory between fetching and summarization.
type NewsItem struct {
	ID          string
	Title       string
	URL         string // empty when the item has no linkable page
	Author      string
	PublishedAt time.Time
	// DateEstimated is set when the upstream date was missing or unparseable
	// and PublishedAt holds the fetch time instead.
	DateEstimated bool
	Source        SourceType
	Metadata      Metadata
}

// HasURL reports whether the item links anywhere.
func (n NewsItem) HasURL() bool {
	return n.URL != ""
}

// Metadata is the per-source payload attached to a NewsItem. The concrete
// types below are the only implementations.
type Metadata interface {
	metadata()
}

// HackerNewsMetadata carries the story's ranking signals.
type HackerNewsMetadata struct {
	HNID     int64
	Score    int
	Comments int
}

// RedditMetadata carries the post's ranking signals.
type RedditMetadata struct {
	Subreddit string
	Score     int
	Comments  int
	Permalink string
}

// FeedMetadata is attached by RSS/Atom based adapters.
type FeedMetadata struct {
	Feed        string
	Description string
}

func (HackerNewsMetadata) metadata() {}
func (RedditMetadata) metadata()     {}
func (FeedMetadata) metadata()       {}

// Description returns the feed-provided text of an item, if any.
func (n NewsItem) Description() string {
	if fm, ok := n.Metadata.(FeedMetadata); ok {
		return fm.Description
	}
	return ""
}
