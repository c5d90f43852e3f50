// Package archive moves aged articles out of the active news file into
// monthly archive files and keeps the stats file in sync.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/store"
)

const DefaultThresholdDays = 30

// Store is the part of store.FileStore the rotator needs.
type Store interface {
	LoadNews() (*models.NewsData, error)
	SaveNews(*models.NewsData) error
	LoadArchive(month string) (*models.ArchiveData, error)
	SaveArchive(*models.ArchiveData) error
	ListArchiveMonths() ([]string, error)
	SaveStats(*models.NewsStats) error
}

// Options configures a Rotator. Zero values pick the defaults.
type Options struct {
	ThresholdDays int
	// Location decides which calendar month an article belongs to.
	Location *time.Location
	Now      func() time.Time
}

// Result reports what a rotation did.
type Result struct {
	Archived  int `json:"archived"`
	Remaining int `json:"remaining"`
}

// Rotator runs archive rotations. It must not run concurrently with another
// rotator on the same data directory.
type Rotator struct {
	store     Store
	threshold time.Duration
	loc       *time.Location
	now       func() time.Time
}

// NewRotator creates a rotator over st.
func NewRotator(st Store, opts Options) *Rotator {
	if opts.ThresholdDays <= 0 {
		opts.ThresholdDays = DefaultThresholdDays
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Rotator{
		store:     st,
		threshold: time.Duration(opts.ThresholdDays) * 24 * time.Hour,
		loc:       opts.Location,
		now:       opts.Now,
	}
}

// MonthKey returns the YYYY-MM bucket of t in loc.
func MonthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

// Rotate archives every active article whose createdAt lies strictly more
// than the threshold before now.
func (r *Rotator) Rotate(ctx context.Context) (Result, error) {
	now := r.now()

	news, err := r.store.LoadNews()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info().Msg("No active news file, nothing to archive")
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("failed to load active news: %w", err)
	}

	var active, expired []models.NewsSummary
	for _, a := range news.Articles {
		if now.Sub(a.CreatedAt) > r.threshold {
			expired = append(expired, a)
		} else {
			active = append(active, a)
		}
	}

	if len(expired) == 0 {
		log.Info().Int("active", len(news.Articles)).Msg("No articles old enough to archive")
		return Result{Archived: 0, Remaining: len(news.Articles)}, nil
	}

	byMonth := make(map[string][]models.NewsSummary)
	var months []string
	for _, a := range expired {
		key := MonthKey(a.CreatedAt, r.loc)
		if _, ok := byMonth[key]; !ok {
			months = append(months, key)
		}
		byMonth[key] = append(byMonth[key], a)
	}

	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		added, err := r.mergeMonth(month, byMonth[month], now)
		if err != nil {
			return Result{}, err
		}
		log.Info().Str("month", month).Int("added", added).Msg("Archived articles")
	}

	if active == nil {
		active = []models.NewsSummary{}
	}
	if err := r.store.SaveNews(&models.NewsData{
		GeneratedAt: news.GeneratedAt,
		Articles:    active,
	}); err != nil {
		return Result{}, fmt.Errorf("failed to rewrite active news: %w", err)
	}

	stats, err := ComputeStats(r.store, len(active), now)
	if err != nil {
		return Result{}, err
	}
	if err := r.store.SaveStats(stats); err != nil {
		return Result{}, fmt.Errorf("failed to save stats: %w", err)
	}

	log.Info().
		Int("archived", len(expired)).
		Int("remaining", len(active)).
		Int("total", stats.TotalArticles).
		Msg("Archive rotation finished")

	return Result{Archived: len(expired), Remaining: len(active)}, nil
}

// mergeMonth adds the candidates whose id is not archived yet and rewrites
// the month newest first. It returns how many articles were new.
func (r *Rotator) mergeMonth(month string, candidates []models.NewsSummary, now time.Time) (int, error) {
	existing, err := r.store.LoadArchive(month)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("failed to load archive %s: %w", month, err)
		}
		existing = &models.ArchiveData{Month: month}
	}

	seen := make(map[models.ArticleID]struct{}, len(existing.Articles))
	for _, a := range existing.Articles {
		seen[a.ID] = struct{}{}
	}

	merged := make([]models.NewsSummary, 0, len(existing.Articles)+len(candidates))
	merged = append(merged, existing.Articles...)
	added := 0
	for _, a := range candidates {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		merged = append(merged, a)
		added++
	}

	SortNewestFirst(merged)

	if err := r.store.SaveArchive(&models.ArchiveData{
		Month:      month,
		ArchivedAt: now,
		Articles:   merged,
	}); err != nil {
		return 0, fmt.Errorf("failed to save archive %s: %w", month, err)
	}
	return added, nil
}

// SortNewestFirst orders articles by createdAt descending, keeping the
// relative order of equal timestamps.
func SortNewestFirst(articles []models.NewsSummary) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
}

// ComputeStats rebuilds the stats from every archive file plus the given
// active count.
func ComputeStats(st Store, active int, now time.Time) (*models.NewsStats, error) {
	months, err := st.ListArchiveMonths()
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	monthly := make([]models.MonthlyStats, 0, len(months))
	archived := 0
	for _, m := range months {
		data, err := st.LoadArchive(m)
		if err != nil {
			return nil, fmt.Errorf("failed to load archive %s: %w", m, err)
		}
		month := data.Month
		if month == "" {
			month = m
		}
		monthly = append(monthly, models.MonthlyStats{Month: month, Count: len(data.Articles)})
		archived += len(data.Articles)
	}

	sort.SliceStable(monthly, func(i, j int) bool {
		return monthly[i].Month > monthly[j].Month
	})

	return &models.NewsStats{
		TotalArticles:    active + archived,
		ActiveArticles:   active,
		ArchivedArticles: archived,
		MonthlyStats:     monthly,
		LastUpdated:      now,
	}, nil
}
