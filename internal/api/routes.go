package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scribesearch/scribe-agent/internal/backend"
	"github.com/scribesearch/scribe-agent/internal/cache"
	"github.com/scribesearch/scribe-agent/internal/config"
	"github.com/scribesearch/scribe-agent/internal/library"
	"github.com/scribesearch/scribe-agent/internal/search"
	"github.com/scribesearch/scribe-agent/internal/status"
	"github.com/scribesearch/scribe-agent/internal/ws"
)

const (
	maxUploadBytes   = 2 << 30 // 2GB
	transcribedTTL   = 30 * time.Second
	defaultPageSize  = 10
	maxPageSize      = 100
	defaultSearchLog = 20
)

// Uploader is the slice of the upload backend the handlers need.
type Uploader interface {
	UploadMedia(ctx context.Context, upload backend.MediaUpload) (*backend.UploadReceipt, error)
	GetTranscribedMedia(ctx context.Context, page, pageSize int) (*backend.TranscribedMediaPage, error)
	GetTranscribedMediaByID(ctx context.Context, id string) (*backend.TranscribedMedia, error)
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	// Browsers cannot set headers on websocket upgrades; the server only
	// binds loopback, so the event stream stays outside the auth group.
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/upload", uploadHandler(cfg))
		r.Get("/media", listMediaHandler(cfg))
		r.Get("/media/{id}/status", mediaStatusHandler(cfg))
		r.Post("/media/{id}/watch", watchHandler(cfg))
		r.Delete("/media/{id}/watch", unwatchHandler(cfg))
		r.Get("/transcribed", transcribedHandler(cfg))
		r.Get("/transcribed/{id}", transcribedByIDHandler(cfg))
		r.Post("/transcribed/{id}/export", exportTranscriptHandler(cfg))
		r.Post("/search", searchHandler(cfg))
		r.Post("/search/export", exportAnswerHandler(cfg))
		r.Get("/searches", searchesHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaCount, err := cfg.Library.Count(r.Context())
		if err != nil {
			cfg.Logger.Error("count media", "error", err)
		}

		resp := StatusResponse{
			State:        "idle",
			MediaCount:   mediaCount,
			WatchedCount: cfg.Status.Count(),
		}
		if cfg.Hub != nil {
			resp.WSClients = cfg.Hub.ClientCount()
		}
		if cfg.Syncer != nil {
			resp.SyncPaused = cfg.Syncer.IsPaused()
		}
		if resp.WatchedCount > 0 {
			resp.State = "watching"
		}
		if resp.SyncPaused {
			resp.State = "paused"
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file field is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		model := r.FormValue("model")
		if model == "" {
			model = r.URL.Query().Get("model")
		}
		if model == "" {
			model = cfg.DefaultModel
		}

		receipt, err := cfg.Uploader.UploadMedia(r.Context(), backend.MediaUpload{
			FileName: header.Filename,
			Content:  file,
			Model:    model,
		})
		if err != nil {
			writeBackendError(w, cfg.Logger, "upload media", err)
			return
		}

		mediaID := receipt.MediaID
		if mediaID == "" {
			mediaID = uuid.NewString()
		}

		uploadStatus := receipt.Status
		if uploadStatus == "" {
			uploadStatus = backend.StatusUploaded
		}

		contentType := header.Header.Get("Content-Type")
		if err := cfg.Library.RecordUpload(r.Context(), mediaID, header.Filename, contentType, header.Size, model); err != nil {
			cfg.Logger.Error("record upload", "media_id", mediaID, "error", err)
		}

		if receipt.MediaID != "" {
			store := cfg.Cache
			if _, err := cfg.Status.Watch(receipt.MediaID, func() {
				if store != nil {
					store.InvalidatePrefix("knowledge/")
				}
			}); err != nil {
				cfg.Logger.Error("start status watch", "media_id", receipt.MediaID, "error", err)
			}
		}

		WriteJSON(w, http.StatusAccepted, UploadResponse{
			MediaID:  mediaID,
			FileName: header.Filename,
			Model:    model,
			Status:   uploadStatus,
		})
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			records []*library.MediaRecord
			err     error
		)
		if r.URL.Query().Get("refresh") == "1" {
			records, err = cfg.Library.Sync(r.Context())
			if err != nil {
				writeBackendError(w, cfg.Logger, "sync media", err)
				return
			}
		} else {
			records, err = cfg.Library.List(r.Context())
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
				return
			}
		}

		if records == nil {
			records = []*library.MediaRecord{}
		}
		WriteJSON(w, http.StatusOK, MediaListResponse{Media: records})
	}
}

func mediaStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		snap, ok := cfg.Status.Snapshot(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "media is not being watched", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, SnapshotToResponse(id, snap))
	}
}

func watchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		store := cfg.Cache
		if _, err := cfg.Status.Watch(id, func() {
			if store != nil {
				store.InvalidatePrefix("knowledge/")
			}
		}); err != nil {
			if errors.Is(err, status.ErrMediaIDRequired) {
				WriteError(w, http.StatusBadRequest, "media id required", "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusCreated, WatchResponse{MediaID: id})
	}
}

func unwatchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := cfg.Status.Snapshot(id); !ok {
			WriteError(w, http.StatusNotFound, "media is not being watched", "NOT_FOUND")
			return
		}
		cfg.Status.Unwatch(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func transcribedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		pageSize := queryInt(r, "pageSize", defaultPageSize)
		if pageSize < 1 {
			pageSize = defaultPageSize
		}
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		key := cache.Key([]string{"knowledge", "transcribed"}, map[string]string{
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(pageSize),
		})
		if cfg.Cache != nil {
			if v, ok := cfg.Cache.Get(key); ok {
				WriteJSON(w, http.StatusOK, v.(*backend.TranscribedMediaPage))
				return
			}
		}

		result, err := cfg.Uploader.GetTranscribedMedia(r.Context(), page, pageSize)
		if err != nil {
			writeBackendError(w, cfg.Logger, "list transcribed media", err)
			return
		}
		if result.Items == nil {
			result.Items = []backend.TranscribedMedia{}
		}

		if cfg.Cache != nil {
			cfg.Cache.Set(key, result, transcribedTTL)
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func transcribedByIDHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		key := cache.Key([]string{"knowledge", "transcribed", id}, nil)
		if cfg.Cache != nil {
			if v, ok := cfg.Cache.Get(key); ok {
				WriteJSON(w, http.StatusOK, v.(*backend.TranscribedMedia))
				return
			}
		}

		detail, err := cfg.Uploader.GetTranscribedMediaByID(r.Context(), id)
		if err != nil {
			writeBackendError(w, cfg.Logger, "get transcribed media", err)
			return
		}

		if cfg.Cache != nil {
			cfg.Cache.Set(key, detail, transcribedTTL)
		}
		WriteJSON(w, http.StatusOK, detail)
	}
}

func searchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sel := search.Selection{
			Question:    req.Question,
			MediaIDs:    req.MediaIDs,
			TopK:        req.TopK,
			MaxDistance: req.MaxDistance,
			Model:       req.Model,
		}
		if len(req.Ranges) > 0 {
			sel.Ranges = make(map[string]search.Range, len(req.Ranges))
			for id, rng := range req.Ranges {
				sel.Ranges[id] = search.Range{StartSeconds: rng.StartSeconds, EndSeconds: rng.EndSeconds}
			}
		}

		result, err := cfg.Search.Submit(r.Context(), sel)
		if err != nil {
			switch {
			case errors.Is(err, search.ErrEmptyQuestion):
				WriteError(w, http.StatusBadRequest, "question is required", "BAD_REQUEST")
			case errors.Is(err, search.ErrSuperseded):
				WriteError(w, http.StatusConflict, "superseded by a newer search", "SUPERSEDED")
			default:
				writeBackendError(w, cfg.Logger, "search", err)
			}
			return
		}

		// Cache-served answers repeat an already-recorded search; only fresh
		// backend responses go into the history.
		if !result.FromCache {
			if requestJSON, err := json.Marshal(result.Request); err == nil {
				if _, err := cfg.Library.RecordSearch(r.Context(), result.Request, string(requestJSON), result.Response); err != nil {
					cfg.Logger.Error("record search", "error", err)
				}
			}
		}

		if cfg.Hub != nil && !result.FromCache {
			cfg.Hub.Broadcast(ws.Event{
				Type: ws.EventSearchCompleted,
				Data: map[string]interface{}{"question": result.Request.Question, "sources": len(result.Response.Sources)},
			})
		}

		WriteJSON(w, http.StatusOK, QueryToSearchResponse(result.Response, result.FromCache))
	}
}

func searchesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", defaultSearchLog)
		records, err := cfg.Library.RecentSearches(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list searches", "INTERNAL_ERROR")
			return
		}
		if records == nil {
			records = []*library.SearchRecord{}
		}
		WriteJSON(w, http.StatusOK, SearchesResponse{Searches: records})
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// writeBackendError maps backend failures onto the local API's taxonomy:
// a backend 404 stays a 404, everything else (including transport errors)
// is a 502 so callers can tell local faults from backend faults.
func writeBackendError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		WriteError(w, http.StatusNotFound, "not found", "NOT_FOUND")
		return
	}
	logger.Error(op, "error", err)
	WriteError(w, http.StatusBadGateway, "backend request failed", "BACKEND_ERROR")
}
