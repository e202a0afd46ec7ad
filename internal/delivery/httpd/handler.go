package httpd

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
	"github.com/RubachokBoss/edujury/internal/service"
	"github.com/RubachokBoss/edujury/pkg/utils"
)

type Handler struct {
	authService       service.AuthService
	profileService    service.ProfileService
	rubricService     service.RubricService
	sessionService    service.SessionService
	evaluationService service.EvaluationService
	validator         *requestValidator
	maxUploadSize     int64
	logger            zerolog.Logger
}

func NewHandler(
	authService service.AuthService,
	profileService service.ProfileService,
	rubricService service.RubricService,
	sessionService service.SessionService,
	evaluationService service.EvaluationService,
	maxUploadSize int64,
	logger zerolog.Logger,
) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 32 << 20
	}
	return &Handler{
		authService:       authService,
		profileService:    profileService,
		rubricService:     rubricService,
		sessionService:    sessionService,
		evaluationService: evaluationService,
		validator:         newRequestValidator(),
		maxUploadSize:     maxUploadSize,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.SignUp)
			r.Post("/signin", h.SignIn)

			r.Group(func(r chi.Router) {
				r.Use(rbac.Authenticate(h.authService))
				r.Post("/signout", h.SignOut)
				r.Get("/me", h.Me)
			})
		})

		api.Group(func(api chi.Router) {
			api.Use(rbac.Authenticate(h.authService))

			api.Route("/profiles", func(r chi.Router) {
				r.With(rbac.Require(rbac.PermProfilesRead)).Get("/", h.ListProfiles)
				r.Get("/{id}", h.GetProfile)
				r.Put("/{id}", h.UpdateProfile)
				r.With(rbac.Require(rbac.PermProfilesWrite)).Delete("/{id}", h.DeactivateProfile)
			})

			api.Route("/rubrics", func(r chi.Router) {
				r.With(rbac.Require(rbac.PermRubricsRead)).Get("/", h.ListRubrics)
				r.With(rbac.Require(rbac.PermRubricsRead)).Get("/{id}", h.GetRubric)

				r.Group(func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermRubricsWrite))
					r.Post("/", h.CreateRubric)
					r.Put("/{id}", h.UpdateRubric)
					r.Delete("/{id}", h.DeactivateRubric)
					r.Post("/{id}/criteria", h.AddCriterion)
					r.Delete("/{id}/criteria/{criterionID}", h.RemoveCriterion)
				})
			})

			api.Route("/sessions", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermSessionsRead))
					r.Get("/", h.ListSessions)
					r.Get("/{id}", h.GetSession)
					r.Get("/{id}/progress", h.GetProgress)
					r.Get("/{id}/evaluations", h.ListSessionEvaluations)
				})

				r.Group(func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermInvitesRespond))
					r.Post("/{id}/jury/accept", h.AcceptInvitation)
					r.Post("/{id}/jury/decline", h.DeclineInvitation)
				})

				r.Group(func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermSessionsWrite))
					r.Post("/", h.CreateSession)
					r.Delete("/{id}", h.DeleteSession)
					r.Post("/{id}/{action:start|pause|resume|complete|cancel}", h.ChangeSessionStatus)
					r.Put("/{id}/rubric", h.AttachRubric)
					r.Post("/{id}/students", h.EnrollStudent)
					r.Delete("/{id}/students/{studentID}", h.RemoveStudent)
					r.Post("/{id}/students/{studentID}/verify", h.VerifyQR)
					r.Post("/{id}/jury", h.InviteJury)
				})
			})

			api.Route("/evaluations", func(r chi.Router) {
				r.With(rbac.Require(rbac.PermEvaluationsRead)).Get("/{id}", h.GetEvaluation)
				r.With(rbac.Require(rbac.PermEvaluationsOpen)).Post("/{id}/reopen", h.ReopenEvaluation)

				r.Group(func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermEvaluationsEdit))
					r.Get("/", h.ListMyEvaluations)
					r.Post("/", h.OpenEvaluation)
					r.Put("/{id}/scores", h.SelectLevel)
					r.Put("/{id}/feedback", h.UpdateFeedback)
					r.Post("/{id}/audio", h.UploadAudio)
					r.Post("/{id}/submit", h.SubmitEvaluation)
				})
			})

			api.With(rbac.Require(rbac.PermResultsRead)).Get("/students/{id}/results", h.StudentResults)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "edujury",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

// actor returns the authenticated caller. Routes that call it are always
// mounted behind rbac.Authenticate.
func actor(r *http.Request) rbac.Actor {
	a, _ := rbac.ActorFromContext(r.Context())
	return a
}

// decode reads and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.ReadJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.handleServiceError(w, err)
		return false
	}
	return true
}

// handleServiceError maps the error taxonomy onto HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var incomplete *models.IncompleteEvaluationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   http.StatusText(http.StatusBadRequest),
			"message": verr.Message,
			"fields":  verr.Fields,
		})
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   http.StatusText(http.StatusUnprocessableEntity),
			"message": err.Error(),
			"missing": incomplete.Missing,
		})
	case errors.Is(err, models.ErrInvalidRubric), errors.Is(err, models.ErrCriterionMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrRubricInUse):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrRoleMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case models.IsCollaboratorError(err):
		h.logger.Error().Err(err).Msg("Collaborator failure")
		writeError(w, http.StatusServiceUnavailable, "Dependency unavailable")
	default:
		h.logger.Error().Err(err).Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	_ = utils.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	utils.ErrorResponse(w, status, message)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	utils.SuccessResponse(w, http.StatusOK, data)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	utils.SuccessResponse(w, http.StatusCreated, data)
}

type listResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
