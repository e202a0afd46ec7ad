package httpd

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/service"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".webm": true,
	".ogg":  true,
}

func (h *Handler) OpenEvaluation(w http.ResponseWriter, r *http.Request) {
	var req models.OpenEvaluationRequest
	if !h.decode(w, r, &req) {
		return
	}

	eval, created, err := h.evaluationService.OpenEvaluation(r.Context(), actor(r), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if created {
		writeCreated(w, eval)
		return
	}
	writeSuccess(w, eval)
}

func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := h.evaluationService.GetEvaluation(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

func (h *Handler) ListMyEvaluations(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	evals, total, err := h.evaluationService.ListMine(r.Context(), actor(r), page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, listResponse{Items: evals, Total: total, Page: page, Limit: limit})
}

func (h *Handler) ListSessionEvaluations(w http.ResponseWriter, r *http.Request) {
	evals, err := h.evaluationService.ListBySession(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, evals)
}

func (h *Handler) SelectLevel(w http.ResponseWriter, r *http.Request) {
	var req models.SelectLevelRequest
	if !h.decode(w, r, &req) {
		return
	}

	eval, err := h.evaluationService.SelectLevel(r.Context(), actor(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateFeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}

	eval, err := h.evaluationService.UpdateFeedback(r.Context(), actor(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

// UploadAudio accepts a multipart form with the recording in the "file" field.
func (h *Handler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !audioExtensions[ext] {
		writeError(w, http.StatusBadRequest, "Unsupported audio format")
		return
	}

	eval, err := h.evaluationService.UploadAudio(r.Context(), actor(r), chi.URLParam(r, "id"), service.AudioUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

func (h *Handler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := h.evaluationService.Submit(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

func (h *Handler) ReopenEvaluation(w http.ResponseWriter, r *http.Request) {
	eval, err := h.evaluationService.Reopen(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, eval)
}

func (h *Handler) StudentResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.evaluationService.StudentResults(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, results)
}
