// Package client is a Go client for the read-only news API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/server/api"
)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %d - Body: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	retrier *retrier.Retrier
}

// New creates a client for the API at baseURL. An empty apiKey sends no
// X-API-Key header; a nil httpClient gets a default one.
func New(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base API URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    httpClient,
		retrier: retrier.New(retrier.ExponentialBackoff(maxRetries, initialBackoff), classifier{}),
	}, nil
}

type classifier struct{}

// Classify retries network failures, 429 and 5xx answers.
func (classifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	if errors.Is(err, context.Canceled) {
		return retrier.Fail
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return retrier.Retry
		}
		return retrier.Fail
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return retrier.Retry
	}
	return retrier.Fail
}

// News fetches one page of active articles. An empty cursor starts from
// the newest article.
func (c *Client) News(ctx context.Context, limit int, cursor string) (*api.NewsResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp api.NewsResponse
	if err := c.get(ctx, "/v1/news", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AllNews follows the cursors until the last page.
func (c *Client) AllNews(ctx context.Context, pageSize int) ([]models.NewsSummary, error) {
	var all []models.NewsSummary
	cursor := ""
	for {
		page, err := c.News(ctx, pageSize, cursor)
		if err != nil {
			return all, err
		}
		all = append(all, page.Articles...)

		if page.NextCursor == nil || *page.NextCursor == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) Archives(ctx context.Context) ([]string, error) {
	var resp api.ArchivesResponse
	if err := c.get(ctx, "/v1/archive", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Months, nil
}

func (c *Client) Archive(ctx context.Context, month string) (*models.ArchiveData, error) {
	var data models.ArchiveData
	if err := c.get(ctx, "/v1/archive/"+url.PathEscape(month), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) Stats(ctx context.Context) (*models.NewsStats, error) {
	var stats models.NewsStats
	if err := c.get(ctx, "/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()
	reqURL := endpoint.String()

	attempt := 0
	return c.retrier.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			log.Debug().Str("url", reqURL).Int("attempt", attempt).Msg("Retrying API request")
		}
		return c.fetch(ctx, reqURL, v)
	})
}

func (c *Client) fetch(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}
