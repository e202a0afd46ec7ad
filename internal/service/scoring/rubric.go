package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/google/uuid"
)

// NewRubric builds a rubric with fresh identities. Criteria and levels are
// numbered by their position in specs.
func NewRubric(title, description string, specs []models.CriterionSpec, now time.Time) (*models.Rubric, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("rubric title is required",
			models.FieldError{Field: "title", Error: "required"})
	}
	if len(specs) == 0 {
		return nil, models.NewValidationError("rubric needs at least one criterion",
			models.FieldError{Field: "criteria", Error: "at least one criterion is required"})
	}

	rubric := &models.Rubric{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i, spec := range specs {
		if err := validateCriterionSpec(spec, fmt.Sprintf("criteria[%d]", i)); err != nil {
			return nil, err
		}
		rubric.Criteria = append(rubric.Criteria, newCriterion(rubric.ID, spec, i, now))
	}

	return rubric, nil
}

// AddCriterion appends a criterion at the next order index.
func AddCriterion(rubric *models.Rubric, spec models.CriterionSpec, now time.Time) (*models.Criterion, error) {
	if err := validateCriterionSpec(spec, "criterion"); err != nil {
		return nil, err
	}

	criterion := newCriterion(rubric.ID, spec, len(rubric.Criteria), now)
	rubric.Criteria = append(rubric.Criteria, criterion)
	rubric.UpdatedAt = now

	return &rubric.Criteria[len(rubric.Criteria)-1], nil
}

// RemoveCriterion drops a criterion and renumbers the rest from zero by
// position, so order indexes stay contiguous.
func RemoveCriterion(rubric *models.Rubric, criterionID string, now time.Time) error {
	idx := -1
	for i := range rubric.Criteria {
		if rubric.Criteria[i].ID == criterionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", models.ErrCriterionMismatch, criterionID)
	}

	rubric.Criteria = append(rubric.Criteria[:idx], rubric.Criteria[idx+1:]...)
	for i := range rubric.Criteria {
		rubric.Criteria[i].OrderIndex = i
	}
	rubric.UpdatedAt = now

	return nil
}

// MaxPoints is the highest level value of a criterion. A criterion without
// levels has no achievable score and yields 0.
func MaxPoints(criterion *models.Criterion) int {
	best := 0
	for i, level := range criterion.Levels {
		if i == 0 || level.Points > best {
			best = level.Points
		}
	}
	return best
}

// MaxScore is the ceiling of any evaluation against the rubric.
func MaxScore(rubric *models.Rubric) int {
	total := 0
	for i := range rubric.Criteria {
		total += MaxPoints(&rubric.Criteria[i])
	}
	return total
}

// Attachable reports whether a session may reference the rubric.
func Attachable(rubric *models.Rubric) error {
	if rubric == nil {
		return fmt.Errorf("%w: rubric is missing", models.ErrInvalidRubric)
	}
	if !rubric.IsActive {
		return fmt.Errorf("%w: rubric %s is inactive", models.ErrInvalidRubric, rubric.ID)
	}
	if len(rubric.Criteria) == 0 {
		return fmt.Errorf("%w: rubric %s has no criteria", models.ErrInvalidRubric, rubric.ID)
	}
	for i := range rubric.Criteria {
		if len(rubric.Criteria[i].Levels) == 0 {
			return fmt.Errorf("%w: criterion %s has no levels", models.ErrInvalidRubric, rubric.Criteria[i].ID)
		}
	}
	if MaxScore(rubric) == 0 {
		return fmt.Errorf("%w: rubric %s has a zero maximum score", models.ErrInvalidRubric, rubric.ID)
	}
	return nil
}

// LevelsDescending reports whether level points strictly decrease from the
// first (best) label to the last. This is a convention, not an invariant.
func LevelsDescending(criterion *models.Criterion) bool {
	for i := 1; i < len(criterion.Levels); i++ {
		if criterion.Levels[i].Points >= criterion.Levels[i-1].Points {
			return false
		}
	}
	return true
}

// HasLevelWithPoints reports whether some level of the criterion is worth
// exactly points.
func HasLevelWithPoints(criterion *models.Criterion, points int) bool {
	for _, level := range criterion.Levels {
		if level.Points == points {
			return true
		}
	}
	return false
}

func validateCriterionSpec(spec models.CriterionSpec, path string) error {
	var fields []models.FieldError

	if strings.TrimSpace(spec.Name) == "" {
		fields = append(fields, models.FieldError{Field: path + ".name", Error: "required"})
	}
	if len(spec.Levels) == 0 {
		fields = append(fields, models.FieldError{Field: path + ".levels", Error: "at least one level is required"})
	}
	for j, level := range spec.Levels {
		if strings.TrimSpace(level.Name) == "" {
			fields = append(fields, models.FieldError{Field: fmt.Sprintf("%s.levels[%d].name", path, j), Error: "required"})
		}
		if level.Points < 0 {
			fields = append(fields, models.FieldError{Field: fmt.Sprintf("%s.levels[%d].points", path, j), Error: "must be >= 0"})
		}
	}

	if len(fields) > 0 {
		return models.NewValidationError("invalid criterion", fields...)
	}
	return nil
}

func newCriterion(rubricID string, spec models.CriterionSpec, order int, now time.Time) models.Criterion {
	criterion := models.Criterion{
		ID:          uuid.New().String(),
		RubricID:    rubricID,
		Name:        spec.Name,
		Description: spec.Description,
		OrderIndex:  order,
		CreatedAt:   now,
	}

	for j, ls := range spec.Levels {
		criterion.Levels = append(criterion.Levels, models.Level{
			ID:          uuid.New().String(),
			CriterionID: criterion.ID,
			Name:        ls.Name,
			Description: ls.Description,
			Points:      ls.Points,
			OrderIndex:  j,
			CreatedAt:   now,
		})
	}
	criterion.MaxPoints = MaxPoints(&criterion)

	return criterion
}
