package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/RubachokBoss/edujury/internal/models"
	"github.com/google/uuid"
)

// NewEvaluation starts a pending evaluation. MaxScore is snapshotted from the
// rubric and is not recomputed if the rubric changes later.
func NewEvaluation(rubric *models.Rubric, sessionID, studentID, juryID string, now time.Time) (*models.Evaluation, error) {
	maxScore := MaxScore(rubric)
	if maxScore == 0 {
		return nil, fmt.Errorf("%w: rubric %s has a zero maximum score", models.ErrInvalidRubric, rubric.ID)
	}

	return &models.Evaluation{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		StudentID: studentID,
		JuryID:    juryID,
		RubricID:  rubric.ID,
		Status:    models.EvaluationPending,
		MaxScore:  maxScore,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Select records the level chosen for one criterion, replacing any earlier
// choice for it. The first selection moves a pending evaluation to in_progress.
func Select(eval *models.Evaluation, rubric *models.Rubric, criterionID string, points int, feedback string, now time.Time) error {
	if eval.Status == models.EvaluationCompleted {
		return &models.TransitionError{Entity: "evaluation", From: eval.Status.String(), To: models.EvaluationInProgress.String()}
	}

	criterion := rubric.Criterion(criterionID)
	if criterion == nil {
		return fmt.Errorf("%w: %s", models.ErrCriterionMismatch, criterionID)
	}
	if !HasLevelWithPoints(criterion, points) {
		return models.NewValidationError("score does not match any level",
			models.FieldError{Field: "points", Error: fmt.Sprintf("%d is not a level of criterion %q", points, criterion.Name)})
	}

	if score := eval.Score(criterionID); score != nil {
		score.Score = points
		score.Feedback = feedback
	} else {
		eval.Scores = append(eval.Scores, models.EvaluationScore{
			ID:           uuid.New().String(),
			EvaluationID: eval.ID,
			CriterionID:  criterionID,
			Score:        points,
			Feedback:     feedback,
			CreatedAt:    now,
		})
	}

	if eval.Status == models.EvaluationPending {
		eval.Status = models.EvaluationInProgress
	}
	eval.TotalScore = TotalScore(eval)
	eval.UpdatedAt = now

	return nil
}

// TotalScore sums the selected points. Unselected criteria count as zero.
func TotalScore(eval *models.Evaluation) int {
	total := 0
	for _, s := range eval.Scores {
		total += s.Score
	}
	return total
}

// Percentage is round(100 * total / max).
func Percentage(total, max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("%w: maximum score is %d", models.ErrInvalidRubric, max)
	}
	return int(math.Round(100 * float64(total) / float64(max))), nil
}

// MissingCriteria lists rubric criteria without a selection, in rubric order.
func MissingCriteria(eval *models.Evaluation, rubric *models.Rubric) []string {
	var missing []string
	for _, c := range rubric.Criteria {
		if eval.Score(c.ID) == nil {
			missing = append(missing, c.ID)
		}
	}
	return missing
}

// Submit completes the evaluation. Every criterion of the rubric must have a
// selected level.
func Submit(eval *models.Evaluation, rubric *models.Rubric, now time.Time) error {
	if eval.Status != models.EvaluationInProgress {
		return &models.TransitionError{Entity: "evaluation", From: eval.Status.String(), To: models.EvaluationCompleted.String()}
	}

	for _, s := range eval.Scores {
		if rubric.Criterion(s.CriterionID) == nil {
			return fmt.Errorf("%w: %s", models.ErrCriterionMismatch, s.CriterionID)
		}
	}
	if missing := MissingCriteria(eval, rubric); len(missing) > 0 {
		return &models.IncompleteEvaluationError{Missing: missing}
	}

	eval.TotalScore = TotalScore(eval)
	eval.Status = models.EvaluationCompleted
	eval.SubmittedAt = &now
	eval.UpdatedAt = now

	return nil
}

// Reopen moves a completed evaluation back to in_progress so it can be
// re-scored.
func Reopen(eval *models.Evaluation, now time.Time) error {
	if eval.Status != models.EvaluationCompleted {
		return &models.TransitionError{Entity: "evaluation", From: eval.Status.String(), To: models.EvaluationInProgress.String()}
	}

	eval.Status = models.EvaluationInProgress
	eval.SubmittedAt = nil
	eval.UpdatedAt = now

	return nil
}

func Summarize(eval *models.Evaluation, rubric *models.Rubric) (models.EvaluationSummary, error) {
	total := TotalScore(eval)
	pct, err := Percentage(total, eval.MaxScore)
	if err != nil {
		return models.EvaluationSummary{}, err
	}

	return models.EvaluationSummary{
		TotalScore:     total,
		MaxScore:       eval.MaxScore,
		Percentage:     pct,
		SelectedCount:  len(eval.Scores),
		CriterionCount: len(rubric.Criteria),
	}, nil
}
