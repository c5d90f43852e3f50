// Package sources contains the news adapters and the Manager that fans out
// to them.
package sources

import (
	"context"

	"ainews/aggregator/internal/models"
)

// Language of a source's content.
type Language string

const (
	Japanese Language = "ja"
	English  Language = "en"
)

// SourceConfig describes an adapter.
type SourceConfig struct {
	Name     string            `json:"name"`
	Type     models.SourceType `json:"type"`
	Language Language          `json:"language"`
	Enabled  bool              `json:"enabled"`
}

// Source is implemented by every adapter.
//
// FetchNews treats limit as a soft cap. An error means the whole source
// failed; partial problems are logged by the adapter and skipped.
type Source interface {
	Config() SourceConfig
	FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error)
}
