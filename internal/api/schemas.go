package api

import (
	"github.com/scribesearch/scribe-agent/internal/backend"
	"github.com/scribesearch/scribe-agent/internal/library"
	"github.com/scribesearch/scribe-agent/internal/status"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        string `json:"state"`
	MediaCount   int    `json:"media_count"`
	WatchedCount int    `json:"watched_count"`
	WSClients    int    `json:"ws_clients"`
	SyncPaused   bool   `json:"sync_paused"`
}

type UploadResponse struct {
	MediaID  string              `json:"media_id"`
	FileName string              `json:"file_name"`
	Model    string              `json:"model,omitempty"`
	Status   backend.MediaStatus `json:"status"`
}

type MediaListResponse struct {
	Media []*library.MediaRecord `json:"media"`
}

type MediaStatusResponse struct {
	MediaID  string              `json:"media_id"`
	Status   backend.MediaStatus `json:"status,omitempty"`
	Loading  bool                `json:"loading"`
	Fetching bool                `json:"fetching"`
	Error    string              `json:"error,omitempty"`
}

type WatchResponse struct {
	MediaID string `json:"media_id"`
}

type RangeRequest struct {
	StartSeconds *float64 `json:"start_seconds,omitempty"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
}

type SearchRequest struct {
	Question    string                  `json:"question"`
	MediaIDs    []string                `json:"media_ids,omitempty"`
	Ranges      map[string]RangeRequest `json:"ranges,omitempty"`
	TopK        int                     `json:"top_k,omitempty"`
	MaxDistance *float64                `json:"max_distance,omitempty"`
	Model       string                  `json:"model,omitempty"`
}

type SourceResponse struct {
	MediaID   string  `json:"media_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Relevance int     `json:"relevance"`
}

type SearchResponse struct {
	Answer    string           `json:"answer"`
	Sources   []SourceResponse `json:"sources"`
	FromCache bool             `json:"from_cache"`
}

type SearchesResponse struct {
	Searches []*library.SearchRecord `json:"searches"`
}

type ExportRequest struct {
	Format string `json:"format,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SnapshotToResponse(mediaID string, snap status.Snapshot) MediaStatusResponse {
	resp := MediaStatusResponse{
		MediaID:  mediaID,
		Loading:  snap.Loading,
		Fetching: snap.Fetching,
	}
	if snap.Status != nil {
		resp.Status = snap.Status.Status
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return resp
}

func QueryToSearchResponse(resp backend.QueryResponse, fromCache bool) SearchResponse {
	out := SearchResponse{
		Answer:    resp.Answer,
		Sources:   make([]SourceResponse, len(resp.Sources)),
		FromCache: fromCache,
	}
	for i, src := range resp.Sources {
		out.Sources[i] = SourceResponse{
			MediaID:   src.MediaID,
			Start:     src.Start,
			End:       src.End,
			Text:      src.Text,
			Relevance: src.RelevancePercent(),
		}
	}
	return out
}
