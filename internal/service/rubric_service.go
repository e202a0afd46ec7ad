package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/RubachokBoss/edujury/internal/rbac"
	"github.com/RubachokBoss/edujury/internal/repository"
	"github.com/RubachokBoss/edujury/internal/service/scoring"
)

type RubricService interface {
	CreateRubric(ctx context.Context, actor rbac.Actor, req *models.CreateRubricRequest) (*models.Rubric, error)
	GetRubric(ctx context.Context, id string) (*models.Rubric, error)
	ListRubrics(ctx context.Context, page, limit int) ([]models.Rubric, int, error)
	UpdateRubric(ctx context.Context, id string, req *models.UpdateRubricRequest) (*models.Rubric, error)
	AddCriterion(ctx context.Context, id string, spec models.CriterionSpec) (*models.Rubric, error)
	RemoveCriterion(ctx context.Context, id, criterionID string) (*models.Rubric, error)
	DeactivateRubric(ctx context.Context, id string) error
}

type rubricService struct {
	rubricRepo repository.RubricRepository
	logger     zerolog.Logger
	now        clock
}

func NewRubricService(rubricRepo repository.RubricRepository, logger zerolog.Logger) RubricService {
	return &rubricService{
		rubricRepo: rubricRepo,
		logger:     logger,
		now:        systemClock,
	}
}

func (s *rubricService) CreateRubric(ctx context.Context, actor rbac.Actor, req *models.CreateRubricRequest) (*models.Rubric, error) {
	rubric, err := scoring.NewRubric(req.Title, req.Description, req.Criteria, s.now())
	if err != nil {
		return nil, err
	}
	rubric.CreatedBy = actor.ID()

	if err := s.rubricRepo.Create(ctx, rubric); err != nil {
		return nil, collaborator("failed to create rubric", err)
	}

	s.logger.Info().
		Str("rubric_id", rubric.ID).
		Int("criteria", len(rubric.Criteria)).
		Int("max_score", scoring.MaxScore(rubric)).
		Msg("Rubric created")

	return rubric, nil
}

func (s *rubricService) GetRubric(ctx context.Context, id string) (*models.Rubric, error) {
	rubric, err := s.rubricRepo.GetByID(ctx, id)
	if err != nil {
		return nil, collaborator("failed to get rubric", err)
	}
	if rubric == nil {
		return nil, notFound("rubric", id)
	}
	return rubric, nil
}

func (s *rubricService) ListRubrics(ctx context.Context, p, limit int) ([]models.Rubric, int, error) {
	_, limit, offset := page(p, limit)
	rubrics, total, err := s.rubricRepo.GetAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, collaborator("failed to list rubrics", err)
	}
	return rubrics, total, nil
}

func (s *rubricService) UpdateRubric(ctx context.Context, id string, req *models.UpdateRubricRequest) (*models.Rubric, error) {
	rubric, err := s.GetRubric(ctx, id)
	if err != nil {
		return nil, err
	}

	rubric.Title = req.Title
	rubric.Description = req.Description
	rubric.UpdatedAt = s.now()

	if err := s.rubricRepo.Update(ctx, rubric); err != nil {
		return nil, collaborator("failed to update rubric", err)
	}

	s.logger.Info().Str("rubric_id", id).Msg("Rubric updated")
	return rubric, nil
}

// editable loads a rubric whose criteria may still change: no session or
// evaluation references it yet.
func (s *rubricService) editable(ctx context.Context, id string) (*models.Rubric, error) {
	rubric, err := s.GetRubric(ctx, id)
	if err != nil {
		return nil, err
	}

	referenced, err := s.rubricRepo.IsReferenced(ctx, id)
	if err != nil {
		return nil, collaborator("failed to check rubric usage", err)
	}
	if referenced {
		return nil, fmt.Errorf("%w: criteria are frozen once a session uses the rubric", models.ErrRubricInUse)
	}
	return rubric, nil
}

func (s *rubricService) AddCriterion(ctx context.Context, id string, spec models.CriterionSpec) (*models.Rubric, error) {
	rubric, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	criterion, err := scoring.AddCriterion(rubric, spec, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.rubricRepo.SaveCriteria(ctx, rubric); err != nil {
		return nil, collaborator("failed to save criteria", err)
	}

	s.logger.Info().
		Str("rubric_id", id).
		Str("criterion_id", criterion.ID).
		Msg("Criterion added")

	return rubric, nil
}

func (s *rubricService) RemoveCriterion(ctx context.Context, id, criterionID string) (*models.Rubric, error) {
	rubric, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := scoring.RemoveCriterion(rubric, criterionID, s.now()); err != nil {
		return nil, err
	}

	if err := s.rubricRepo.SaveCriteria(ctx, rubric); err != nil {
		return nil, collaborator("failed to save criteria", err)
	}

	s.logger.Info().
		Str("rubric_id", id).
		Str("criterion_id", criterionID).
		Msg("Criterion removed")

	return rubric, nil
}

// DeactivateRubric hides the rubric from listings. Sessions that have not
// finished keep it alive.
func (s *rubricService) DeactivateRubric(ctx context.Context, id string) error {
	if _, err := s.GetRubric(ctx, id); err != nil {
		return err
	}

	open, err := s.rubricRepo.CountOpenSessions(ctx, id)
	if err != nil {
		return collaborator("failed to check rubric usage", err)
	}
	if open > 0 {
		return fmt.Errorf("%w: %d open sessions", models.ErrRubricInUse, open)
	}

	if err := s.rubricRepo.Deactivate(ctx, id); err != nil {
		return collaborator("failed to deactivate rubric", err)
	}

	s.logger.Info().Str("rubric_id", id).Msg("Rubric deactivated")
	return nil
}
