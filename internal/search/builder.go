// Package search turns user filter selections into query requests and tracks
// the single active search. Submitting a new search fully supersedes the
// previous one; responses belonging to a superseded request are never
// surfaced.
package search

import (
	"errors"
	"strings"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

// ErrEmptyQuestion means the question was blank after trimming; callers must
// treat this as a no-op and issue no network call.
var ErrEmptyQuestion = errors.New("question must not be empty")

const (
	DefaultTopK = 3
	MinTopK     = 1
	MaxTopK     = 25
)

// Range bounds one media item's transcript in seconds. Either bound may be
// absent.
type Range struct {
	StartSeconds *float64
	EndSeconds   *float64
}

// Selection is the raw filter state a UI collects before a search: the
// question, which media are selected (in selection order), optional per-media
// time bounds, and the result controls.
type Selection struct {
	Question    string
	MediaIDs    []string
	Ranges      map[string]Range
	TopK        int
	MaxDistance *float64
	Model       string
}

// BuildRequest assembles the wire request from a selection.
//
// The question is trimmed and must be non-empty. With no media selected the
// time-range list is omitted entirely (nil, not an empty slice). A selected
// media id without an explicit range still contributes an entry carrying only
// the id, meaning "this media, full duration". TopK defaults to 3 and is
// clamped to [1, 25].
func (s Selection) BuildRequest() (*backend.QueryRequest, error) {
	question := strings.TrimSpace(s.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	req := &backend.QueryRequest{
		Question:    question,
		TopK:        clampTopK(s.TopK),
		MaxDistance: s.MaxDistance,
		ModelName:   s.Model,
	}

	if len(s.MediaIDs) > 0 {
		req.TimeRanges = make([]backend.TimeRange, 0, len(s.MediaIDs))
		for _, id := range s.MediaIDs {
			tr := backend.TimeRange{MediaID: id}
			if r, ok := s.Ranges[id]; ok {
				tr.StartSeconds = r.StartSeconds
				tr.EndSeconds = r.EndSeconds
			}
			req.TimeRanges = append(req.TimeRanges, tr)
		}
	}

	return req, nil
}

func clampTopK(k int) int {
	switch {
	case k == 0:
		return DefaultTopK
	case k < MinTopK:
		return MinTopK
	case k > MaxTopK:
		return MaxTopK
	}
	return k
}
