package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/insurelex/answer-engine/internal/enginerr"
	"github.com/insurelex/answer-engine/internal/ingest"
	"github.com/insurelex/answer-engine/internal/observability"
	"github.com/insurelex/answer-engine/internal/storage"
	"github.com/insurelex/answer-engine/pkg/engine"
)

type handlers struct {
	logger *observability.Logger
	engine *engine.Engine
}

func newHandlers(logger *observability.Logger, eng *engine.Engine) *handlers {
	return &handlers{logger: logger.WithOperation("api"), engine: eng}
}

// QueryRequestDTO is the API request for a query.
type QueryRequestDTO struct {
	Question      string            `json:"question"`
	TopK          int               `json:"top_k,omitempty"`
	BaseThreshold float64           `json:"base_threshold,omitempty"`
	Filter        map[string]string `json:"filter,omitempty"`
}

// IngestRequestDTO is the API request to ingest a document.
type IngestRequestDTO struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title,omitempty"`
	DocType string `json:"doc_type,omitempty"`
	Text    string `json:"text"`
}

// IngestResponseDTO is the API response after ingestion.
type IngestResponseDTO struct {
	DocID         string   `json:"doc_id"`
	ChunksWritten int      `json:"chunks_written"`
	WordCount     int      `json:"word_count"`
	Method        string   `json:"method"`
	Warnings      []string `json:"warnings,omitempty"`
	DurationMs    int64    `json:"duration_ms"`
}

type errorDTO struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Stage string `json:"stage,omitempty"`
}

// Query handles POST /v1/query.
func (h *handlers) Query(w http.ResponseWriter, r *http.Request) {
	var dto QueryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.writeError(w, http.StatusBadRequest, enginerr.Validation("query", "invalid request body"))
		return
	}

	envelope, err := h.engine.Query(r.Context(), engine.QueryRequest{
		Question:      dto.Question,
		TopK:          dto.TopK,
		BaseThreshold: dto.BaseThreshold,
		Filter:        dto.Filter,
	})
	if err != nil && envelope == nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	// A downstream failure still carries a well-formed error envelope;
	// serve it with the mapped status so clients get both.
	status := http.StatusOK
	if err != nil {
		h.logger.Error().Err(err).Msg("Query failed")
		status = statusFor(err)
	}
	h.writeJSON(w, status, envelope)
}

// Analyze handles POST /v1/analyze.
func (h *handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var dto struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.writeError(w, http.StatusBadRequest, enginerr.Validation("analyze", "invalid request body"))
		return
	}
	if dto.Question == "" {
		h.writeError(w, http.StatusBadRequest, enginerr.Validation("analyze", "question is required"))
		return
	}

	qc := h.engine.Analyze(dto.Question)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"raw":                qc.Raw,
		"normalized":         qc.Normalized,
		"intent":             qc.Intent,
		"intent_confidence":  qc.IntentConfidence,
		"complexity":         qc.Complexity,
		"keywords":           qc.Keywords,
		"sub_questions":      qc.SubQuestions,
		"matched_categories": qc.MatchedCategories,
	})
}

// Ingest handles POST /v1/documents.
func (h *handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var dto IngestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.writeError(w, http.StatusBadRequest, enginerr.Validation("ingest", "invalid request body"))
		return
	}

	result, err := h.engine.Ingest(r.Context(), ingest.Request{
		DocID:   dto.DocID,
		Title:   dto.Title,
		DocType: dto.DocType,
		Text:    dto.Text,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("doc_id", dto.DocID).Msg("Ingestion failed")
		h.writeError(w, statusFor(err), err)
		return
	}

	h.writeJSON(w, http.StatusCreated, IngestResponseDTO{
		DocID:         result.DocID,
		ChunksWritten: result.ChunksWritten,
		WordCount:     result.WordCount,
		Method:        string(result.Method),
		Warnings:      result.Warnings,
		DurationMs:    result.Duration.Milliseconds(),
	})
}

// ListDocuments handles GET /v1/documents.
func (h *handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// DeleteDocument handles DELETE /v1/documents/{docID}.
func (h *handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	if err := h.engine.DeleteDocument(r.Context(), docID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch enginerr.KindOf(err) {
	case enginerr.KindValidation:
		return http.StatusBadRequest
	case enginerr.KindEmptyResult:
		return http.StatusNotFound
	case enginerr.KindTransientExternal:
		return http.StatusServiceUnavailable
	case enginerr.KindHardExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorDTO{
		Error: err.Error(),
		Kind:  string(enginerr.KindOf(err)),
		Stage: enginerr.StageOf(err),
	})
}
