package httpd

import (
	"net/http"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
)

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.authService.SignUp(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, response)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	response, err := h.authService.SignIn(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), rbac.TokenFromContext(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Signed out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetProfile(r.Context(), actor(r).ID())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, profile)
}
