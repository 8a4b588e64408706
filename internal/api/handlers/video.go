package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bangla-dub/backend/internal/db"
	"github.com/bangla-dub/backend/internal/db/models"
	"github.com/bangla-dub/backend/internal/job"
	"github.com/bangla-dub/backend/internal/subtitle"
)

// VideoHandler exposes the pipeline trigger points for one video:
// register, transcribe, confirm, translate, dub.
type VideoHandler struct {
	database  *db.Database
	queue     *job.JobQueue
	mediaPath string
	providers []string // configured recognizer names, priority order
}

func NewVideoHandler(database *db.Database, queue *job.JobQueue, mediaPath string, providers []string) *VideoHandler {
	return &VideoHandler{database: database, queue: queue, mediaPath: mediaPath, providers: providers}
}

type createVideoRequest struct {
	Title          string `json:"title"`
	FilePath       string `json:"file_path"` // relative to the media directory
	SourceLanguage string `json:"source_language,omitempty"`
	VoiceID        string `json:"voice_id,omitempty"`
}

func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FilePath == "" {
		jsonError(w, "missing file_path", http.StatusBadRequest)
		return
	}

	fullPath := filepath.Join(h.mediaPath, req.FilePath)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		jsonError(w, "file not found: "+req.FilePath, http.StatusNotFound)
		return
	}

	title := req.Title
	if title == "" {
		title = filepath.Base(req.FilePath)
	}

	video := &models.Video{
		ID:             uuid.New().String(),
		Title:          title,
		FilePath:       fullPath,
		SourceLanguage: req.SourceLanguage,
		VoiceID:        req.VoiceID,
	}
	if err := h.database.CreateVideo(video); err != nil {
		jsonError(w, "failed to create video: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, video, http.StatusCreated)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.database.ListVideos()
	if err != nil {
		jsonError(w, "failed to list videos: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}
	jsonResponse(w, videos, http.StatusOK)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}
	jsonResponse(w, video, http.StatusOK)
}

type transcribeRequest struct {
	Providers []string `json:"providers,omitempty"`
	Language  string   `json:"language,omitempty"`
}

// Transcribe enqueues a transcription job for the video.
func (h *VideoHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	var req transcribeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	for _, p := range req.Providers {
		if !contains(h.providers, p) {
			jsonError(w, "unknown provider: "+p, http.StatusBadRequest)
			return
		}
	}

	j, err := h.queue.Enqueue(job.JobTranscribe, video.ID, job.TranscribeParams{
		Providers: req.Providers,
		Language:  req.Language,
	})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// Confirm marks the video's source transcript as reviewed, opening the
// translation gate.
func (h *VideoHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.database.ConfirmTranscript(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "video not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to confirm transcript: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "confirmed"}, http.StatusOK)
}

type translateRequest struct {
	TargetLang string `json:"target_language"`
}

// Translate enqueues a batch translation job. The confirmation gate is
// enforced by the engine, but the handler rejects early for a clearer
// response.
func (h *VideoHandler) Translate(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetLang == "" {
		jsonError(w, "missing target_language", http.StatusBadRequest)
		return
	}
	if !video.TranscriptConfirmed {
		jsonError(w, "source transcript not confirmed", http.StatusConflict)
		return
	}

	j, err := h.queue.Enqueue(job.JobTranslate, video.ID, job.TranslateParams{TargetLang: req.TargetLang})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

type dubRequest struct {
	TargetLang string `json:"target_language"`
	VoiceID    string `json:"voice_id,omitempty"`
}

// Dub enqueues a dubbing job. An explicit voice_id is stored on the
// video record before the job runs.
func (h *VideoHandler) Dub(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	var req dubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetLang == "" {
		jsonError(w, "missing target_language", http.StatusBadRequest)
		return
	}

	if req.VoiceID != "" {
		if err := h.database.SetVideoVoice(video.ID, req.VoiceID); err != nil {
			jsonError(w, "failed to set voice: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	j, err := h.queue.Enqueue(job.JobDub, video.ID, job.DubParams{TargetLang: req.TargetLang})
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// Segments returns the video's transcript segments in time order.
func (h *VideoHandler) Segments(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	segments, err := h.database.ListSegments(video.ID)
	if err != nil {
		jsonError(w, "failed to list segments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if segments == nil {
		segments = []*models.Segment{}
	}
	jsonResponse(w, segments, http.StatusOK)
}

// Translations returns the video's translations for one target language.
func (h *VideoHandler) Translations(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		jsonError(w, "missing lang query parameter", http.StatusBadRequest)
		return
	}

	translations, err := h.database.ListTranslations(video.ID, lang)
	if err != nil {
		jsonError(w, "failed to list translations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if translations == nil {
		translations = []*models.Translation{}
	}
	jsonResponse(w, translations, http.StatusOK)
}

// Subtitle serves the transcript (or a translation, with ?lang=) as WebVTT.
func (h *VideoHandler) Subtitle(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	segments, err := h.database.ListSegments(video.ID)
	if err != nil {
		jsonError(w, "failed to list segments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	lang := r.URL.Query().Get("lang")
	texts := make(map[string]string, len(segments))
	if lang != "" && lang != video.SourceLanguage {
		translations, err := h.database.ListTranslations(video.ID, lang)
		if err != nil {
			jsonError(w, "failed to list translations: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for _, t := range translations {
			texts[t.SegmentID] = t.Text
		}
	}

	var cues []subtitle.Cue
	for i, seg := range segments {
		text := seg.Text
		if lang != "" && lang != video.SourceLanguage {
			translated, ok := texts[seg.ID]
			if !ok {
				continue // untranslated segments are omitted from the export
			}
			text = translated
		}
		cues = append(cues, subtitle.Cue{
			Index: i + 1,
			Start: seg.StartTime,
			End:   seg.EndTime,
			Text:  text,
		})
	}

	w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	w.Write([]byte(subtitle.CuesToVTT(cues)))
}

func (h *VideoHandler) loadVideo(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing video ID", http.StatusBadRequest)
		return nil, false
	}
	video, err := h.database.GetVideo(id)
	if err != nil {
		jsonError(w, "video not found", http.StatusNotFound)
		return nil, false
	}
	return video, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
