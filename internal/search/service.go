package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
	"github.com/scribesearch/scribe-agent/internal/cache"
)

// ErrSuperseded means a newer search was submitted while this one was in
// flight; its response was discarded unseen.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Results stay cached this long, matching the UI's stale window.
const resultTTL = 5 * time.Minute

// QueryFetcher submits one query. Satisfied by backend.QueryClient.
type QueryFetcher interface {
	Query(ctx context.Context, req backend.QueryRequest) (*backend.QueryResponse, error)
}

// Result pairs a request with its response. FromCache marks answers served
// without a network call.
type Result struct {
	Request   backend.QueryRequest
	Response  backend.QueryResponse
	FromCache bool
}

// Service tracks exactly one active search at a time. Results are cached by
// the full request identity, so any parameter change is a distinct query and
// never reuses a stale entry.
type Service struct {
	fetcher QueryFetcher
	store   *cache.Store
	logger  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	latest *Result
}

func NewService(fetcher QueryFetcher, store *cache.Store, logger *slog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
}

// Submit builds the request from sel and runs it. A blank question returns
// ErrEmptyQuestion without touching the network. A submit that is overtaken
// by a newer one returns ErrSuperseded and its response is dropped. Failed
// searches are not auto-retried.
func (s *Service) Submit(ctx context.Context, sel Selection) (*Result, error) {
	req, err := sel.BuildRequest()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.gen++
	myGen := s.gen
	s.mu.Unlock()

	key, err := requestKey(*req)
	if err != nil {
		return nil, err
	}

	if v, ok := s.store.Get(key); ok {
		resp := v.(backend.QueryResponse)
		result := &Result{Request: *req, Response: resp, FromCache: true}
		s.finish(myGen, result)
		s.logger.Debug("search served from cache", "key", key)
		return result, nil
	}

	resp, err := s.fetcher.Query(ctx, *req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen != myGen {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded search response", "question_len", len(req.Question))
		return nil, ErrSuperseded
	}
	s.mu.Unlock()

	s.store.Set(key, *resp, resultTTL)

	result := &Result{Request: *req, Response: *resp}
	s.finish(myGen, result)
	return result, nil
}

// Latest returns the most recent non-superseded result, or nil before the
// first successful search.
func (s *Service) Latest() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Service) finish(gen uint64, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.latest = result
	}
}

// requestKey derives the cache key from the complete parameter set.
func requestKey(req backend.QueryRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request for cache key: %w", err)
	}
	return "knowledge/search/" + string(payload), nil
}
