package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/store"
)

// NewsRepository defines read-only access to the published data files.
type NewsRepository interface {
	FetchNews(ctx context.Context, limit int, cursorTimestamp *time.Time, cursorID *string) ([]models.NewsSummary, error)
	ListArchives(ctx context.Context) ([]string, error)
	GetArchive(ctx context.Context, month string) (*models.ArchiveData, error)
	GetStats(ctx context.Context) (*models.NewsStats, error)
}

// DataFiles is the subset of store.FileStore the repository reads.
type DataFiles interface {
	LoadNews() (*models.NewsData, error)
	LoadArchive(month string) (*models.ArchiveData, error)
	ListArchiveMonths() ([]string, error)
	LoadStats() (*models.NewsStats, error)
}

type fileRepository struct {
	files DataFiles
}

// NewRepository creates a repository over the data directory.
func NewRepository(files DataFiles) NewsRepository {
	return &fileRepository{files: files}
}

// FetchNews returns up to limit active articles ordered by createdAt then id,
// both descending. With a cursor only articles strictly after it are returned.
// A missing news file yields an empty page.
func (r *fileRepository) FetchNews(ctx context.Context, limit int, cursorTimestamp *time.Time, cursorID *string) ([]models.NewsSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if (cursorTimestamp == nil) != (cursorID == nil) {
		return nil, fmt.Errorf("cursor timestamp and id must be provided together")
	}

	data, err := r.files.LoadNews()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []models.NewsSummary{}, nil
		}
		return nil, fmt.Errorf("failed to load news: %w", err)
	}

	articles := make([]models.NewsSummary, len(data.Articles))
	copy(articles, data.Articles)
	sort.SliceStable(articles, func(i, j int) bool {
		return ahead(articles[i].CreatedAt, string(articles[i].ID), articles[j].CreatedAt, string(articles[j].ID))
	})

	start := 0
	if cursorTimestamp != nil {
		start = sort.Search(len(articles), func(i int) bool {
			return ahead(*cursorTimestamp, *cursorID, articles[i].CreatedAt, string(articles[i].ID))
		})
	}

	page := articles[start:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

// ahead reports whether position (ts, id) sorts strictly before (ts2, id2)
// in newest first order.
func ahead(ts time.Time, id string, ts2 time.Time, id2 string) bool {
	if !ts.Equal(ts2) {
		return ts.After(ts2)
	}
	return id > id2
}

func (r *fileRepository) ListArchives(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	months, err := r.files.ListArchiveMonths()
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	if months == nil {
		months = []string{}
	}
	return months, nil
}

// GetArchive returns store.ErrInvalidMonth or store.ErrNotFound unwrapped
// through %w so callers can map them to status codes.
func (r *fileRepository) GetArchive(ctx context.Context, month string) (*models.ArchiveData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.files.LoadArchive(month)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %s: %w", month, err)
	}
	return data, nil
}

func (r *fileRepository) GetStats(ctx context.Context) (*models.NewsStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats, err := r.files.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
