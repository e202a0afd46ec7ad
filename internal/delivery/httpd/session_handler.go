package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/edujury/internal/models"
)

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.sessionService.CreateSession(r.Context(), actor(r), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.SessionFilter{
		Status:        query.Get("status"),
		CoordinatorID: query.Get("coordinator_id"),
		JuryID:        query.Get("jury_id"),
	}

	response, err := h.sessionService.ListSessions(r.Context(), actor(r), filter,
		getIntQueryParam(r, "page", 1), getIntQueryParam(r, "limit", 20))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, session)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.DeleteSession(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Session deleted"})
}

func (h *Handler) ChangeSessionStatus(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.ChangeStatus(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "action"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, session)
}

func (h *Handler) AttachRubric(w http.ResponseWriter, r *http.Request) {
	var req models.AttachRubricRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.sessionService.AttachRubric(r.Context(), actor(r), chi.URLParam(r, "id"), req.RubricID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, session)
}

func (h *Handler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollStudentRequest
	if !h.decode(w, r, &req) {
		return
	}

	student, err := h.sessionService.EnrollStudent(r.Context(), actor(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, student)
}

func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	err := h.sessionService.RemoveStudent(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "studentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]string{"message": "Student removed"})
}

func (h *Handler) VerifyQR(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyQRRequest
	if !h.decode(w, r, &req) {
		return
	}

	student, err := h.sessionService.VerifyQR(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "studentID"), req.Code)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, student)
}

func (h *Handler) InviteJury(w http.ResponseWriter, r *http.Request) {
	var req models.InviteJuryRequest
	if !h.decode(w, r, &req) {
		return
	}

	participant, err := h.sessionService.InviteJury(r.Context(), actor(r), chi.URLParam(r, "id"), req.JuryID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, participant)
}

func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.respondInvitation(w, r, true)
}

func (h *Handler) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	h.respondInvitation(w, r, false)
}

func (h *Handler) respondInvitation(w http.ResponseWriter, r *http.Request, accept bool) {
	participant, err := h.sessionService.RespondInvitation(r.Context(), actor(r), chi.URLParam(r, "id"), accept)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, participant)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.sessionService.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, progress)
}
