package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/edujury/internal/models"
)

func (h *Handler) CreateRubric(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRubricRequest
	if !h.decode(w, r, &req) {
		return
	}

	rubric, err := h.rubricService.CreateRubric(r.Context(), actor(r), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, rubric)
}

func (h *Handler) ListRubrics(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	rubrics, total, err := h.rubricService.ListRubrics(r.Context(), page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, listResponse{Items: rubrics, Total: total, Page: page, Limit: limit})
}

func (h *Handler) GetRubric(w http.ResponseWriter, r *http.Request) {
	rubric, err := h.rubricService.GetRubric(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, rubric)
}

func (h *Handler) UpdateRubric(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRubricRequest
	if !h.decode(w, r, &req) {
		return
	}

	rubric, err := h.rubricService.UpdateRubric(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, rubric)
}

func (h *Handler) DeactivateRubric(w http.ResponseWriter, r *http.Request) {
	if err := h.rubricService.DeactivateRubric(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Rubric deactivated"})
}

func (h *Handler) AddCriterion(w http.ResponseWriter, r *http.Request) {
	var spec models.CriterionSpec
	if !h.decode(w, r, &spec) {
		return
	}

	rubric, err := h.rubricService.AddCriterion(r.Context(), chi.URLParam(r, "id"), spec)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, rubric)
}

func (h *Handler) RemoveCriterion(w http.ResponseWriter, r *http.Request) {
	rubric, err := h.rubricService.RemoveCriterion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "criterionID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, rubric)
}
