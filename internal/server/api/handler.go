package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/server/pagination"
	"ainews/aggregator/internal/server/storage"
	"ainews/aggregator/internal/store"
)

const defaultLimit = 50
const maxLimit = 500

// NewsResponse is the body of GET /v1/news.
type NewsResponse struct {
	Articles   []models.NewsSummary `json:"articles"`
	NextCursor *string              `json:"next_cursor,omitempty"`
}

// ArchivesResponse is the body of GET /v1/archive.
type ArchivesResponse struct {
	Months []string `json:"months"`
}

// NewsHandler serves the data files. It retrieves its logger from the
// request context.
type NewsHandler struct {
	repo storage.NewsRepository
}

func NewNewsHandler(repo storage.NewsRepository) *NewsHandler {
	return &NewsHandler{repo: repo}
}

// GetNews pages through the active articles, newest first.
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing news request")

	query := r.URL.Query()
	limitStr := query.Get("limit")
	cursorStr := query.Get("cursor")

	limit := defaultLimit
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	var cursorTimestamp *time.Time
	var cursorID *string
	if cursorStr != "" {
		ts, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		cursorTimestamp = &ts
		cursorID = &id
	}

	// One extra article tells whether another page exists.
	articles, err := h.repo.FetchNews(r.Context(), limit+1, cursorTimestamp, cursorID)
	if err != nil {
		log.Error().Err(err).Str("cursor", cursorStr).Msg("Error fetching news from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := NewsResponse{Articles: articles}
	if len(articles) > limit {
		resp.Articles = articles[:limit]
		last := resp.Articles[limit-1]
		cursor := pagination.EncodeCursor(last.CreatedAt, string(last.ID))
		resp.NextCursor = &cursor
	}

	writeJSON(w, r, resp)
}

func (h *NewsHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	months, err := h.repo.ListArchives(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error listing archives")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, ArchivesResponse{Months: months})
}

// GetArchive serves one monthly archive. Malformed months are a 400,
// months without a file a 404.
func (h *NewsHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	month := r.PathValue("month")

	data, err := h.repo.GetArchive(r.Context(), month)
	switch {
	case errors.Is(err, store.ErrInvalidMonth):
		log.Warn().Str("month", month).Msg("Invalid archive month")
		http.Error(w, "Invalid month: use YYYY-MM", http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Archive not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("month", month).Msg("Error loading archive")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, data)
}

func (h *NewsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Stats not found", http.StatusNotFound)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error loading stats")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, stats)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
