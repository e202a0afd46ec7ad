package service

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
	"github.com/RubachokBoss/edujury/internal/repository"
	"github.com/RubachokBoss/edujury/internal/service/integration"
	"github.com/RubachokBoss/edujury/internal/service/registry"
	"github.com/RubachokBoss/edujury/internal/service/scoring"
)

type AudioUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type EvaluationService interface {
	OpenEvaluation(ctx context.Context, actor rbac.Actor, req *models.OpenEvaluationRequest) (*models.EvaluationWithSummary, bool, error)
	GetEvaluation(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error)
	SelectLevel(ctx context.Context, actor rbac.Actor, id string, req *models.SelectLevelRequest) (*models.EvaluationWithSummary, error)
	UpdateFeedback(ctx context.Context, actor rbac.Actor, id string, req *models.UpdateFeedbackRequest) (*models.EvaluationWithSummary, error)
	UploadAudio(ctx context.Context, actor rbac.Actor, id string, upload AudioUpload) (*models.EvaluationWithSummary, error)
	Submit(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error)
	Reopen(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error)

	ListBySession(ctx context.Context, actor rbac.Actor, sessionID string) ([]models.Evaluation, error)
	ListMine(ctx context.Context, actor rbac.Actor, page, limit int) ([]models.Evaluation, int, error)
	StudentResults(ctx context.Context, actor rbac.Actor, profileID string) ([]models.StudentResult, error)
}

type EvaluationOptions struct {
	AllowReopen bool
}

type evaluationService struct {
	evaluationRepo repository.EvaluationRepository
	sessionRepo    repository.SessionRepository
	rubricRepo     repository.RubricRepository
	artifacts      repository.ArtifactRepository
	publisher      integration.EventPublisher
	opts           EvaluationOptions
	logger         zerolog.Logger
	now            clock
}

// NewEvaluationService wires the evaluation workflow. artifacts may be nil when
// object storage is disabled; audio uploads then fail.
func NewEvaluationService(
	evaluationRepo repository.EvaluationRepository,
	sessionRepo repository.SessionRepository,
	rubricRepo repository.RubricRepository,
	artifacts repository.ArtifactRepository,
	publisher integration.EventPublisher,
	opts EvaluationOptions,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluationRepo: evaluationRepo,
		sessionRepo:    sessionRepo,
		rubricRepo:     rubricRepo,
		artifacts:      artifacts,
		publisher:      publisher,
		opts:           opts,
		logger:         logger,
		now:            systemClock,
	}
}

// OpenEvaluation returns the caller's evaluation of a student, creating it on
// first use. The bool reports whether a new evaluation was created.
func (s *evaluationService) OpenEvaluation(ctx context.Context, actor rbac.Actor, req *models.OpenEvaluationRequest) (*models.EvaluationWithSummary, bool, error) {
	session, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Status != models.SessionActive {
		return nil, false, fmt.Errorf("%w: session is %s, evaluations need an active session", models.ErrInvalidTransition, session.Status)
	}
	if session.RubricID == nil {
		return nil, false, fmt.Errorf("%w: session has no rubric attached", models.ErrInvalidRubric)
	}
	if !registry.CanEvaluate(session, actor.ID()) {
		return nil, false, forbidden("not a jury member of this session")
	}
	if registry.FindStudent(session, req.StudentID) == nil {
		return nil, false, notFound("student", req.StudentID)
	}

	existing, err := s.evaluationRepo.GetByKey(ctx, session.ID, req.StudentID, actor.ID())
	if err != nil {
		return nil, false, collaborator("failed to get evaluation", err)
	}
	rubric, err := s.rubric(ctx, *session.RubricID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		res, err := withSummary(existing, rubric)
		return res, false, err
	}

	eval, err := scoring.NewEvaluation(rubric, session.ID, req.StudentID, actor.ID(), s.now())
	if err != nil {
		return nil, false, err
	}

	if err := s.evaluationRepo.Create(ctx, eval); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, false, collaborator("failed to create evaluation", err)
		}
		// Opened concurrently from another tab.
		if eval, err = s.evaluationRepo.GetByKey(ctx, session.ID, req.StudentID, actor.ID()); err != nil {
			return nil, false, collaborator("failed to get evaluation", err)
		}
		if eval == nil {
			return nil, false, fmt.Errorf("%w: evaluation already exists", models.ErrConflict)
		}
		res, err := withSummary(eval, rubric)
		return res, false, err
	}

	s.logger.Info().
		Str("evaluation_id", eval.ID).
		Str("session_id", eval.SessionID).
		Str("student_id", eval.StudentID).
		Str("jury_id", eval.JuryID).
		Msg("Evaluation opened")

	res, err := withSummary(eval, rubric)
	return res, true, err
}

func (s *evaluationService) GetEvaluation(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error) {
	eval, err := s.evaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if eval.JuryID != actor.ID() && !rbac.IsStaff(actor) {
		return nil, forbidden("evaluation belongs to another jury member")
	}

	rubric, err := s.rubric(ctx, eval.RubricID)
	if err != nil {
		return nil, err
	}
	return withSummary(eval, rubric)
}

func (s *evaluationService) SelectLevel(ctx context.Context, actor rbac.Actor, id string, req *models.SelectLevelRequest) (*models.EvaluationWithSummary, error) {
	eval, rubric, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := scoring.Select(eval, rubric, req.CriterionID, req.Points, req.Feedback, s.now()); err != nil {
		return nil, err
	}
	if err := s.evaluationRepo.Save(ctx, eval); err != nil {
		return nil, collaborator("failed to save score", err)
	}

	s.logger.Info().
		Str("evaluation_id", id).
		Str("criterion_id", req.CriterionID).
		Int("points", req.Points).
		Int("total_score", eval.TotalScore).
		Msg("Level selected")

	return withSummary(eval, rubric)
}

func (s *evaluationService) UpdateFeedback(ctx context.Context, actor rbac.Actor, id string, req *models.UpdateFeedbackRequest) (*models.EvaluationWithSummary, error) {
	eval, rubric, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if eval.Status == models.EvaluationCompleted {
		return nil, &models.TransitionError{Entity: "evaluation", From: eval.Status.String(), To: eval.Status.String()}
	}

	eval.WrittenFeedback = req.WrittenFeedback
	eval.AudioTranscript = req.AudioTranscript
	eval.UpdatedAt = s.now()

	if err := s.evaluationRepo.Save(ctx, eval); err != nil {
		return nil, collaborator("failed to save feedback", err)
	}

	s.logger.Info().Str("evaluation_id", id).Msg("Feedback updated")
	return withSummary(eval, rubric)
}

// UploadAudio stores a recording and links it to the evaluation. The object is
// removed again if the evaluation cannot be updated.
func (s *evaluationService) UploadAudio(ctx context.Context, actor rbac.Actor, id string, upload AudioUpload) (*models.EvaluationWithSummary, error) {
	if s.artifacts == nil {
		return nil, collaborator("upload audio", fmt.Errorf("object storage is disabled"))
	}

	eval, rubric, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if eval.Status == models.EvaluationCompleted {
		return nil, &models.TransitionError{Entity: "evaluation", From: eval.Status.String(), To: eval.Status.String()}
	}

	key := repository.AudioKey(eval.ID, upload.FileName)
	url, err := s.artifacts.Upload(ctx, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, collaborator("failed to upload audio", err)
	}

	eval.AudioFeedbackURL = url
	eval.UpdatedAt = s.now()
	if err := s.evaluationRepo.Save(ctx, eval); err != nil {
		if delErr := s.artifacts.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("Failed to delete orphaned audio")
		}
		return nil, collaborator("failed to link audio", err)
	}

	s.logger.Info().
		Str("evaluation_id", id).
		Str("key", key).
		Int64("size", upload.Size).
		Msg("Audio feedback uploaded")

	return withSummary(eval, rubric)
}

func (s *evaluationService) Submit(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error) {
	eval, rubric, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := scoring.Submit(eval, rubric, now); err != nil {
		return nil, err
	}
	if err := s.evaluationRepo.Save(ctx, eval); err != nil {
		return nil, collaborator("failed to submit evaluation", err)
	}

	res, err := withSummary(eval, rubric)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("evaluation_id", id).
		Int("total_score", res.Summary.TotalScore).
		Int("max_score", res.Summary.MaxScore).
		Int("percentage", res.Summary.Percentage).
		Msg("Evaluation submitted")

	event := &models.EvaluationCompletedEvent{
		EvaluationID: eval.ID,
		SessionID:    eval.SessionID,
		StudentID:    eval.StudentID,
		JuryID:       eval.JuryID,
		TotalScore:   res.Summary.TotalScore,
		MaxScore:     res.Summary.MaxScore,
		Percentage:   res.Summary.Percentage,
		Timestamp:    now.Unix(),
	}
	if err := s.publisher.PublishEvaluationCompleted(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("evaluation_id", id).Msg("Failed to publish evaluation completed event")
	}

	return res, nil
}

// Reopen moves a completed evaluation back to in progress. It is disabled
// unless evaluation.allow_reopen is set.
func (s *evaluationService) Reopen(ctx context.Context, actor rbac.Actor, id string) (*models.EvaluationWithSummary, error) {
	if !s.opts.AllowReopen {
		return nil, forbidden("reopening evaluations is disabled")
	}

	eval, err := s.evaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err := s.session(ctx, eval.SessionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin(actor) && session.CoordinatorID != actor.ID() {
		return nil, forbidden("only the session coordinator reopens evaluations")
	}
	if !session.Status.Open() {
		return nil, fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, session.Status)
	}

	if err := scoring.Reopen(eval, s.now()); err != nil {
		return nil, err
	}
	if err := s.evaluationRepo.Save(ctx, eval); err != nil {
		return nil, collaborator("failed to reopen evaluation", err)
	}

	s.logger.Info().Str("evaluation_id", id).Str("actor_id", actor.ID()).Msg("Evaluation reopened")

	rubric, err := s.rubric(ctx, eval.RubricID)
	if err != nil {
		return nil, err
	}
	return withSummary(eval, rubric)
}

// ListBySession returns the session's evaluations. Jury members only see
// their own.
func (s *evaluationService) ListBySession(ctx context.Context, actor rbac.Actor, sessionID string) ([]models.Evaluation, error) {
	if _, err := s.session(ctx, sessionID); err != nil {
		return nil, err
	}

	evals, err := s.evaluationRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, collaborator("failed to list evaluations", err)
	}
	if rbac.IsStaff(actor) {
		return evals, nil
	}

	own := make([]models.Evaluation, 0, len(evals))
	for _, e := range evals {
		if e.JuryID == actor.ID() {
			own = append(own, e)
		}
	}
	return own, nil
}

func (s *evaluationService) ListMine(ctx context.Context, actor rbac.Actor, p, limit int) ([]models.Evaluation, int, error) {
	_, limit, offset := page(p, limit)
	evals, total, err := s.evaluationRepo.ListByJury(ctx, actor.ID(), limit, offset)
	if err != nil {
		return nil, 0, collaborator("failed to list evaluations", err)
	}
	return evals, total, nil
}

// StudentResults lists completed evaluations of every enrollment linked to a
// student profile. Students may only read their own.
func (s *evaluationService) StudentResults(ctx context.Context, actor rbac.Actor, profileID string) ([]models.StudentResult, error) {
	if actor.Role() == models.RoleStudent && actor.ID() != profileID {
		return nil, forbidden("results belong to another student")
	}

	results, err := s.evaluationRepo.ListResultsByStudentProfile(ctx, profileID)
	if err != nil {
		return nil, collaborator("failed to list results", err)
	}

	for i := range results {
		pct, err := scoring.Percentage(results[i].TotalScore, results[i].MaxScore)
		if err != nil {
			return nil, err
		}
		results[i].Percentage = pct
	}
	return results, nil
}

// editable loads an evaluation the actor is scoring in a running session.
func (s *evaluationService) editable(ctx context.Context, actor rbac.Actor, id string) (*models.Evaluation, *models.Rubric, error) {
	eval, err := s.evaluation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if eval.JuryID != actor.ID() {
		return nil, nil, forbidden("evaluation belongs to another jury member")
	}

	session, err := s.session(ctx, eval.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != models.SessionActive {
		return nil, nil, fmt.Errorf("%w: session is %s", models.ErrInvalidTransition, session.Status)
	}

	rubric, err := s.rubric(ctx, eval.RubricID)
	if err != nil {
		return nil, nil, err
	}
	return eval, rubric, nil
}

func (s *evaluationService) evaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	eval, err := s.evaluationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get evaluation", err)
	}
	if eval == nil {
		return nil, notFound("evaluation", id)
	}
	return eval, nil
}

func (s *evaluationService) session(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get session", err)
	}
	if session == nil {
		return nil, notFound("session", id)
	}
	return session, nil
}

func (s *evaluationService) rubric(ctx context.Context, id string) (*models.Rubric, error) {
	rubric, err := s.rubricRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get rubric", err)
	}
	if rubric == nil {
		return nil, notFound("rubric", id)
	}
	return rubric, nil
}

func withSummary(eval *models.Evaluation, rubric *models.Rubric) (*models.EvaluationWithSummary, error) {
	summary, err := scoring.Summarize(eval, rubric)
	if err != nil {
		return nil, err
	}
	return &models.EvaluationWithSummary{Evaluation: *eval, Summary: summary}, nil
}
