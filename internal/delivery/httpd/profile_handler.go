package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/edujury/internal/models"
)

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	page := getIntQueryParam(r, "page", 1)
	limit := getIntQueryParam(r, "limit", 20)

	profiles, total, err := h.profileService.ListProfiles(r.Context(), r.URL.Query().Get("role"), page, limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, listResponse{Items: profiles, Total: total, Page: page, Limit: limit})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.profileService.UpdateProfile(r.Context(), actor(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, profile)
}

func (h *Handler) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.profileService.DeactivateProfile(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Profile deactivated"})
}
