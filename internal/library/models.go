package library

import (
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

// MediaRecord is one row of the local library mirror: the last state the
// agent observed for a backend media item. Rows are replaced wholesale by a
// sync and patched in place when a status refresh resolves.
type MediaRecord struct {
	ID              string              `json:"id"`
	FileName        string              `json:"file_name"`
	ContentType     string              `json:"content_type"`
	FileSizeBytes   int64               `json:"file_size_bytes"`
	Status          backend.MediaStatus `json:"status"`
	DurationSeconds *float64            `json:"duration_seconds,omitempty"`
	Model           string              `json:"model,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// SearchRecord is one entry of the local search history.
type SearchRecord struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	RequestJSON string    `json:"request_json"`
	Answer      string    `json:"answer"`
	SourceCount int       `json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func recordFromItem(item backend.MediaItem, now time.Time) *MediaRecord {
	created := now
	if item.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			created = t
		}
	}
	return &MediaRecord{
		ID:              item.ID,
		FileName:        item.FileName,
		ContentType:     item.ContentType,
		FileSizeBytes:   item.FileSizeBytes,
		Status:          item.Status,
		DurationSeconds: item.DurationSeconds,
		CreatedAt:       created,
		UpdatedAt:       now,
	}
}
