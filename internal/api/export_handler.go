package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scribesearch/scribe-agent/internal/export"
)

// exportTranscriptHandler fetches the transcription for one media item and
// writes it to the export directory in the requested format.
func exportTranscriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		format, err := export.ParseFormat(req.Format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		detail, err := cfg.Uploader.GetTranscribedMediaByID(r.Context(), id)
		if err != nil {
			writeBackendError(w, cfg.Logger, "get transcribed media", err)
			return
		}

		if strings.TrimSpace(detail.TranscriptionText) == "" {
			WriteError(w, http.StatusConflict, "transcription is not completed yet", "NOT_READY")
			return
		}

		result, err := cfg.Exporter.WriteTranscript(detail, format)
		if err != nil {
			cfg.Logger.Error("export transcript", "media_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "export failed", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("transcript exported", "media_id", id, "path", result.Path, "format", result.Format)
		WriteJSON(w, http.StatusCreated, result)
	}
}

// exportAnswerHandler writes the most recent completed search, answer plus
// cited sources, to the export directory as a text file.
func exportAnswerHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest := cfg.Search.Latest()
		if latest == nil {
			WriteError(w, http.StatusNotFound, "no completed search to export", "NOT_FOUND")
			return
		}

		result, err := cfg.Exporter.WriteAnswer(latest.Request.Question, &latest.Response)
		if err != nil {
			cfg.Logger.Error("export answer", "error", err)
			WriteError(w, http.StatusInternalServerError, "export failed", "INTERNAL_ERROR")
			return
		}

		cfg.Logger.Info("answer exported", "path", result.Path)
		WriteJSON(w, http.StatusCreated, result)
	}
}
