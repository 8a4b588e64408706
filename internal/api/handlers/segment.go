package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/pipeline/translation"
)

// SegmentHandler covers per-segment editing: text corrections, switching
// to the alternative model's text, and single-segment retranslation.
type SegmentHandler struct {
	database *db.Database
	engine   *translation.Engine
}

func NewSegmentHandler(database *db.Database, engine *translation.Engine) *SegmentHandler {
	return &SegmentHandler{database: database, engine: engine}
}

type updateSegmentRequest struct {
	Text string `json:"text"`
}

func (h *SegmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "missing text", http.StatusBadRequest)
		return
	}

	if err := h.database.UpdateSegmentText(id, req.Text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "segment not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update segment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	segment, err := h.database.GetSegment(id)
	if err != nil {
		jsonError(w, "failed to load segment: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, segment, http.StatusOK)
}

// SwitchAlternative swaps the segment's text with the alternative
// provider's text. Fails if no alternative was recorded.
func (h *SegmentHandler) SwitchAlternative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	segment, err := h.database.SwitchAlternative(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "segment has no alternative", http.StatusConflict)
			return
		}
		jsonError(w, "failed to switch alternative: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, segment, http.StatusOK)
}

type retranslateRequest struct {
	TargetLang string `json:"target_language"`
}

// Retranslate re-runs a single segment through the translation chain,
// replacing its stored translation for the target language.
func (h *SegmentHandler) Retranslate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req retranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetLang == "" {
		jsonError(w, "missing target_language", http.StatusBadRequest)
		return
	}

	translated, err := h.engine.RetranslateSegment(r.Context(), id, req.TargetLang)
	if err != nil {
		if errors.Is(err, translation.ErrNotConfirmed) {
			jsonError(w, "source transcript not confirmed", http.StatusConflict)
			return
		}
		jsonError(w, "retranslation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, translated, http.StatusOK)
}
