package backend

import "math"

// MediaStatus is the canonical processing-state vocabulary used across both
// backend services. The upload pipeline moves a media item through
// Uploaded -> TranscriptionProcessing -> TranscriptionCompleted ->
// EmbeddingProcessing -> Completed, with Failed reachable from any
// non-terminal state.
type MediaStatus string

const (
	StatusUploaded                MediaStatus = "Uploaded"
	StatusTranscriptionProcessing MediaStatus = "TranscriptionProcessing"
	StatusTranscriptionCompleted  MediaStatus = "TranscriptionCompleted"
	StatusEmbeddingProcessing     MediaStatus = "EmbeddingProcessing"
	StatusCompleted               MediaStatus = "Completed"
	StatusFailed                  MediaStatus = "Failed"
)

// IsTerminal reports whether no further state transition can occur.
func (s MediaStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MediaItem is one entry of the unpaginated media list.
type MediaItem struct {
	ID              string      `json:"id"`
	FileName        string      `json:"fileName"`
	ContentType     string      `json:"contentType"`
	FileSizeBytes   int64       `json:"fileSizeBytes"`
	Status          MediaStatus `json:"status"`
	DurationSeconds *float64    `json:"durationSeconds,omitempty"`
	CreatedAt       string      `json:"createdAt"`
}

// MediaStatusSnapshot is the status-poll response. The two status endpoints
// historically returned slightly different field sets; this merges them under
// one schema, with everything past MediaID optional.
type MediaStatusSnapshot struct {
	MediaID               string      `json:"mediaId"`
	FileName              string      `json:"fileName,omitempty"`
	Status                MediaStatus `json:"status"`
	TranscriptionProgress float64     `json:"transcriptionProgress,omitempty"`
	EmbeddingProgress     float64     `json:"embeddingProgress,omitempty"`
	UploadedAt            string      `json:"uploadedAt,omitempty"`
	UpdatedAt             string      `json:"updatedAt,omitempty"`
	Model                 string      `json:"model,omitempty"`
}

// TranscribedMedia is the full detail of one transcribed item, including the
// transcription text once processing has completed.
type TranscribedMedia struct {
	MediaID           string      `json:"mediaId"`
	FileName          string      `json:"fileName,omitempty"`
	MediaType         string      `json:"mediaType,omitempty"`
	Duration          float64     `json:"duration"`
	Status            MediaStatus `json:"status,omitempty"`
	TranscriptionText string      `json:"transcriptionText,omitempty"`
	CreatedAt         string      `json:"createdAt,omitempty"`
	Model             string      `json:"model"`
}

// TranscribedMediaPage is the pagination envelope for transcribed media.
// Page numbers are 1-based; the request's page and pageSize are echoed back.
type TranscribedMediaPage struct {
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Total    int                `json:"total"`
	Items    []TranscribedMedia `json:"items"`
}

// TimeRange scopes a query to a portion of one media item's transcript.
// A range with only MediaID set means "restrict to this media, full duration".
type TimeRange struct {
	MediaID      string   `json:"mediaId"`
	StartSeconds *float64 `json:"startSeconds,omitempty"`
	EndSeconds   *float64 `json:"endSeconds,omitempty"`
}

// QueryRequest is a semantic query against the knowledge base. A nil
// TimeRanges slice means "no media restriction" and the field is omitted from
// the wire body entirely; an empty slice must never be sent.
type QueryRequest struct {
	Question    string      `json:"question"`
	TimeRanges  []TimeRange `json:"timeRanges,omitempty"`
	TopK        int         `json:"topK,omitempty"`
	MaxDistance *float64    `json:"maxDistance,omitempty"`
	ModelName   string      `json:"modelName,omitempty"`
}

// QuerySource is one cited passage backing an answer. Distance is a relevance
// score in [0, ~1] where lower means a closer semantic match.
type QuerySource struct {
	MediaID  string  `json:"mediaId"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// RelevancePercent converts the distance score into the user-facing inverted
// percentage: (1 - distance) * 100, rounded.
func (s QuerySource) RelevancePercent() int {
	return int(math.Round((1 - s.Distance) * 100))
}

// QueryResponse is the answer plus its ordered source citations.
type QueryResponse struct {
	Answer  string        `json:"answer"`
	Sources []QuerySource `json:"sources,omitempty"`
}
