// Package backend holds the typed HTTP clients for the two remote services:
// the query service (semantic search, media status) and the upload service
// (media ingest, library listings). Each client is bound to its own base URL
// and performs no caching, validation, or retries; failures surface as
// *APIError or a wrapped transport error.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// QueryClient talks to the query service.
type QueryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewQueryClient(baseURL string, logger *slog.Logger) *QueryClient {
	return &QueryClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// GetMediaStatus fetches the processing-status snapshot for one media item.
// An unknown identifier surfaces as *APIError with IsNotFound().
func (c *QueryClient) GetMediaStatus(ctx context.Context, mediaID string) (*MediaStatusSnapshot, error) {
	u := fmt.Sprintf("%s/media/%s/status", c.baseURL, url.PathEscape(mediaID))

	var snap MediaStatusSnapshot
	if err := getJSON(ctx, c.httpClient, u, &snap); err != nil {
		return nil, err
	}

	c.logger.Debug("media status fetched",
		"media_id", mediaID,
		"status", snap.Status,
	)
	return &snap, nil
}

// Query submits a semantic query and returns the answer with its citations.
func (c *QueryClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	u := c.baseURL + "/Query"

	c.logger.Info("submitting query",
		"question_len", len(req.Question),
		"time_ranges", len(req.TimeRanges),
		"top_k", req.TopK,
	)

	var resp QueryResponse
	if err := postJSON(ctx, c.httpClient, u, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("query answered",
		"answer_len", len(resp.Answer),
		"source_count", len(resp.Sources),
	)
	return &resp, nil
}
