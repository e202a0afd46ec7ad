package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
	"github.com/RubachokBoss/edujury/internal/repository"
	"github.com/RubachokBoss/edujury/internal/service/integration"
	"github.com/RubachokBoss/edujury/internal/service/registry"
)

type SessionService interface {
	CreateSession(ctx context.Context, actor rbac.Actor, req *models.CreateSessionRequest) (*models.SessionDetails, error)
	GetSession(ctx context.Context, id string) (*models.SessionDetails, error)
	ListSessions(ctx context.Context, actor rbac.Actor, filter models.SessionFilter, page, limit int) (*models.SessionsResponse, error)
	ChangeStatus(ctx context.Context, actor rbac.Actor, id, action string) (*models.Session, error)
	AttachRubric(ctx context.Context, actor rbac.Actor, id, rubricID string) (*models.Session, error)
	DeleteSession(ctx context.Context, actor rbac.Actor, id string) error

	EnrollStudent(ctx context.Context, actor rbac.Actor, id string, req *models.EnrollStudentRequest) (*models.Student, error)
	RemoveStudent(ctx context.Context, actor rbac.Actor, id, studentID string) error
	VerifyQR(ctx context.Context, actor rbac.Actor, id, studentID, code string) (*models.Student, error)

	InviteJury(ctx context.Context, actor rbac.Actor, id, juryID string) (*models.Participant, error)
	RespondInvitation(ctx context.Context, actor rbac.Actor, id string, accept bool) (*models.Participant, error)

	Progress(ctx context.Context, id string) (*models.SessionProgress, error)
}

type sessionService struct {
	sessionRepo    repository.SessionRepository
	rubricRepo     repository.RubricRepository
	profileRepo    repository.ProfileRepository
	evaluationRepo repository.EvaluationRepository
	publisher      integration.EventPublisher
	logger         zerolog.Logger
	now            clock
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	rubricRepo repository.RubricRepository,
	profileRepo repository.ProfileRepository,
	evaluationRepo repository.EvaluationRepository,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) SessionService {
	return &sessionService{
		sessionRepo:    sessionRepo,
		rubricRepo:     rubricRepo,
		profileRepo:    profileRepo,
		evaluationRepo: evaluationRepo,
		publisher:      publisher,
		logger:         logger,
		now:            systemClock,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, actor rbac.Actor, req *models.CreateSessionRequest) (*models.SessionDetails, error) {
	date, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, models.NewValidationError("invalid session date",
			models.FieldError{Field: "session_date", Error: "expected YYYY-MM-DD"})
	}

	coordinator, err := s.coordinatorFor(ctx, actor, req.CoordinatorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session, err := registry.NewSession(registry.SessionSpec{
		Title:         req.Title,
		Description:   req.Description,
		SessionDate:   date,
		StartTime:     req.StartTime,
		DurationHours: req.DurationHours,
		Location:      req.Location,
		CoordinatorID: coordinator.ID,
		MaxStudents:   req.MaxStudents,
		CreatedBy:     actor.ID(),
	}, now)
	if err != nil {
		return nil, err
	}

	var rubric *models.Rubric
	if req.RubricID != "" {
		if rubric, err = s.rubric(ctx, req.RubricID); err != nil {
			return nil, err
		}
		if err := registry.AttachRubric(session, rubric, now); err != nil {
			return nil, err
		}
	}

	for _, juryID := range req.JuryMembers {
		profile, err := s.profile(ctx, juryID)
		if err != nil {
			return nil, err
		}
		if _, _, err := registry.InviteJury(session, profile, now); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, collaborator("failed to create session", err)
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("coordinator_id", session.CoordinatorID).
		Int("jury", len(session.Participants)).
		Msg("Session created")

	return &models.SessionDetails{Session: *session, Rubric: rubric, Coordinator: coordinator}, nil
}

// coordinatorFor resolves who runs a new session. Coordinators always run
// their own; admins may name any coordinator.
func (s *sessionService) coordinatorFor(ctx context.Context, actor rbac.Actor, requested string) (*models.Profile, error) {
	id := requested
	if id == "" {
		id = actor.ID()
	}
	if id != actor.ID() && !isAdmin(actor) {
		return nil, forbidden("only admins assign sessions to other coordinators")
	}

	profile, err := s.profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile.Role != models.RoleCoordinator && profile.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: %s has role %s, expected %s", models.ErrRoleMismatch, id, profile.Role, models.RoleCoordinator)
	}
	return profile, nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (*models.SessionDetails, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &models.SessionDetails{Session: *session}
	if session.RubricID != nil {
		if details.Rubric, err = s.rubric(ctx, *session.RubricID); err != nil {
			return nil, err
		}
	}
	if details.Coordinator, err = s.profileRepo.GetByID(ctx, session.CoordinatorID); err != nil {
		return nil, collaborator("failed to get coordinator", err)
	}
	return details, nil
}

// ListSessions pages through active sessions. Jury members only see the
// sessions they were invited to.
func (s *sessionService) ListSessions(ctx context.Context, actor rbac.Actor, filter models.SessionFilter, p, limit int) (*models.SessionsResponse, error) {
	if filter.Status != "" && !models.IsValidSessionStatus(filter.Status) {
		return nil, models.NewValidationError("invalid status filter", models.FieldError{Field: "status", Error: filter.Status})
	}
	if actor.Role() == models.RoleJury {
		filter.JuryID = actor.ID()
	}

	p, limit, offset := page(p, limit)
	sessions, total, err := s.sessionRepo.GetAll(ctx, filter, limit, offset)
	if err != nil {
		return nil, collaborator("failed to list sessions", err)
	}

	return &models.SessionsResponse{
		Sessions: sessions,
		Total:    total,
		Page:     p,
		Limit:    limit,
	}, nil
}

func (s *sessionService) ChangeStatus(ctx context.Context, actor rbac.Actor, id, action string) (*models.Session, error) {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from := session.Status
	now := s.now()
	if err := registry.Transition(session, action, now); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, collaborator("failed to update session status", err)
	}

	s.logger.Info().
		Str("session_id", id).
		Str("from", from.String()).
		Str("to", session.Status.String()).
		Msg("Session status changed")

	event := &models.SessionStatusChangedEvent{
		SessionID: id,
		From:      from.String(),
		To:        session.Status.String(),
		ActorID:   actor.ID(),
		Timestamp: now.Unix(),
	}
	if err := s.publisher.PublishSessionStatusChanged(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to publish session status event")
	}

	return session, nil
}

func (s *sessionService) AttachRubric(ctx context.Context, actor rbac.Actor, id, rubricID string) (*models.Session, error) {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rubric, err := s.rubric(ctx, rubricID)
	if err != nil {
		return nil, err
	}

	if err := registry.AttachRubric(session, rubric, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, collaborator("failed to attach rubric", err)
	}

	s.logger.Info().Str("session_id", id).Str("rubric_id", rubricID).Msg("Rubric attached to session")
	return session, nil
}

// DeleteSession hides a session that is not running.
func (s *sessionService) DeleteSession(ctx context.Context, actor rbac.Actor, id string) error {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}
	if session.Status == models.SessionActive || session.Status == models.SessionPaused {
		return fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, session.Status)
	}

	if err := s.sessionRepo.SoftDelete(ctx, id); err != nil {
		return collaborator("failed to delete session", err)
	}

	s.logger.Info().Str("session_id", id).Msg("Session deleted")
	return nil
}

func (s *sessionService) EnrollStudent(ctx context.Context, actor rbac.Actor, id string, req *models.EnrollStudentRequest) (*models.Student, error) {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	candidate := models.Student{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Program:       req.Program,
		Year:          req.Year,
		ProjectTitle:  req.ProjectTitle,
		TimeSlotStart: req.TimeSlotStart,
		TimeSlotEnd:   req.TimeSlotEnd,
	}
	if req.TimeSlotStart != nil && req.TimeSlotEnd != nil && !req.TimeSlotEnd.After(*req.TimeSlotStart) {
		return nil, models.NewValidationError("invalid time slot",
			models.FieldError{Field: "time_slot_end", Error: "must be after time_slot_start"})
	}
	if req.ProfileID != "" {
		profile, err := s.profile(ctx, req.ProfileID)
		if err != nil {
			return nil, err
		}
		if profile.Role != models.RoleStudent {
			return nil, fmt.Errorf("%w: %s has role %s, expected %s", models.ErrRoleMismatch, profile.ID, profile.Role, models.RoleStudent)
		}
		candidate.ProfileID = &profile.ID
	}

	student, err := registry.Enroll(session, candidate, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.AddStudent(ctx, student); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
		case errors.Is(err, models.ErrCapacityExceeded):
			return nil, fmt.Errorf("%w: session %s is full", models.ErrCapacityExceeded, id)
		case repository.IsUniqueViolation(err):
			return nil, fmt.Errorf("%w: %s is already enrolled", models.ErrConflict, student.Email)
		default:
			return nil, collaborator("failed to enroll student", err)
		}
	}

	s.logger.Info().
		Str("session_id", id).
		Str("student_id", student.ID).
		Int("enrolled", len(session.Students)).
		Int("max_students", session.MaxStudents).
		Msg("Student enrolled")

	return student, nil
}

func (s *sessionService) RemoveStudent(ctx context.Context, actor rbac.Actor, id, studentID string) error {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := registry.RemoveStudent(session, studentID); err != nil {
		return err
	}

	// Evaluations are never deleted, so a scored student stays enrolled.
	evals, err := s.evaluationRepo.ListBySession(ctx, id)
	if err != nil {
		return collaborator("failed to list evaluations", err)
	}
	for i := range evals {
		if evals[i].StudentID == studentID {
			return fmt.Errorf("%w: student %s already has evaluations", models.ErrConflict, studentID)
		}
	}

	if err := s.sessionRepo.RemoveStudent(ctx, id, studentID); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: student %s already has evaluations", models.ErrConflict, studentID)
		}
		return collaborator("failed to remove student", err)
	}

	s.logger.Info().Str("session_id", id).Str("student_id", studentID).Msg("Student removed")
	return nil
}

func (s *sessionService) VerifyQR(ctx context.Context, actor rbac.Actor, id, studentID, code string) (*models.Student, error) {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	student, err := registry.VerifyQR(session, studentID, code, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateStudent(ctx, student); err != nil {
		return nil, collaborator("failed to check in student", err)
	}

	s.logger.Info().Str("session_id", id).Str("student_id", studentID).Msg("Student checked in")
	return student, nil
}

func (s *sessionService) InviteJury(ctx context.Context, actor rbac.Actor, id, juryID string) (*models.Participant, error) {
	session, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, juryID)
	if err != nil {
		return nil, err
	}

	participant, added, err := registry.InviteJury(session, profile, s.now())
	if err != nil {
		return nil, err
	}
	if !added {
		return participant, nil
	}

	if err := s.sessionRepo.AddParticipant(ctx, participant); err != nil {
		return nil, collaborator("failed to invite jury", err)
	}

	s.logger.Info().Str("session_id", id).Str("jury_id", juryID).Msg("Jury member invited")
	return participant, nil
}

// RespondInvitation records the calling jury member's answer.
func (s *sessionService) RespondInvitation(ctx context.Context, actor rbac.Actor, id string, accept bool) (*models.Participant, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var participant *models.Participant
	if accept {
		participant, err = registry.AcceptInvitation(session, actor.ID(), now)
	} else {
		participant, err = registry.DeclineInvitation(session, actor.ID(), now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.UpdateParticipant(ctx, participant); err != nil {
		return nil, collaborator("failed to record invitation response", err)
	}

	s.logger.Info().
		Str("session_id", id).
		Str("jury_id", actor.ID()).
		Str("status", string(participant.Status)).
		Msg("Invitation answered")

	return participant, nil
}

func (s *sessionService) Progress(ctx context.Context, id string) (*models.SessionProgress, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	completed, err := s.evaluationRepo.CountCompletedBySession(ctx, id)
	if err != nil {
		return nil, collaborator("failed to count evaluations", err)
	}

	progress := registry.Progress(session, completed)
	return &progress, nil
}

func (s *sessionService) load(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get session", err)
	}
	if session == nil {
		return nil, notFound("session", id)
	}
	return session, nil
}

// managed loads a session the actor may change: admins change any session,
// coordinators only the ones they run or created.
func (s *sessionService) managed(ctx context.Context, actor rbac.Actor, id string) (*models.Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if isAdmin(actor) || session.CoordinatorID == actor.ID() || session.CreatedBy == actor.ID() {
		return session, nil
	}
	return nil, forbidden("session is run by another coordinator")
}

func (s *sessionService) rubric(ctx context.Context, id string) (*models.Rubric, error) {
	rubric, err := s.rubricRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get rubric", err)
	}
	if rubric == nil {
		return nil, notFound("rubric", id)
	}
	return rubric, nil
}

func (s *sessionService) profile(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get profile", err)
	}
	if profile == nil {
		return nil, notFound("profile", id)
	}
	return profile, nil
}
