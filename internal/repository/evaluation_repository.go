package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
)

type EvaluationRepository interface {
	Create(ctx context.Context, eval *models.Evaluation) error
	GetByID(ctx context.Context, id string) (*models.Evaluation, error)
	GetByKey(ctx context.Context, sessionID, studentID, juryID string) (*models.Evaluation, error)
	Save(ctx context.Context, eval *models.Evaluation) error
	ListBySession(ctx context.Context, sessionID string) ([]models.Evaluation, error)
	ListByJury(ctx context.Context, juryID string, limit, offset int) ([]models.Evaluation, int, error)
	CountCompletedBySession(ctx context.Context, sessionID string) (int, error)
	ListResultsByStudentProfile(ctx context.Context, profileID string) ([]models.StudentResult, error)
}

type evaluationRepository struct {
	*PostgresRepository
}

func NewEvaluationRepository(db *sql.DB, logger zerolog.Logger) EvaluationRepository {
	return &evaluationRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const evaluationColumns = `id, session_id, student_id, jury_id, rubric_id, status, total_score, max_score,
	written_feedback, audio_feedback_url, audio_transcript, ai_summary, submitted_at, created_at, updated_at`

func scanEvaluation(row rowScanner) (*models.Evaluation, error) {
	e := &models.Evaluation{}
	var submittedAt sql.NullTime
	err := row.Scan(
		&e.ID,
		&e.SessionID,
		&e.StudentID,
		&e.JuryID,
		&e.RubricID,
		&e.Status,
		&e.TotalScore,
		&e.MaxScore,
		&e.WrittenFeedback,
		&e.AudioFeedbackURL,
		&e.AudioTranscript,
		&e.AISummary,
		&submittedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	e.SubmittedAt = timePtr(submittedAt)
	return e, err
}

func (r *evaluationRepository) Create(ctx context.Context, eval *models.Evaluation) error {
	query := `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		eval.ID,
		eval.SessionID,
		eval.StudentID,
		eval.JuryID,
		eval.RubricID,
		eval.Status,
		eval.TotalScore,
		eval.MaxScore,
		eval.WrittenFeedback,
		eval.AudioFeedbackURL,
		eval.AudioTranscript,
		eval.AISummary,
		eval.SubmittedAt,
		eval.CreatedAt,
		eval.UpdatedAt,
	)

	return err
}

func (r *evaluationRepository) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *evaluationRepository) GetByKey(ctx context.Context, sessionID, studentID, juryID string) (*models.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + ` FROM evaluations
		WHERE session_id = $1 AND student_id = $2 AND jury_id = $3
	`
	return r.getOne(ctx, query, sessionID, studentID, juryID)
}

func (r *evaluationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Evaluation, error) {
	eval, err := scanEvaluation(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if eval.Scores, err = r.scores(ctx, eval.ID); err != nil {
		return nil, err
	}
	return eval, nil
}

func (r *evaluationRepository) scores(ctx context.Context, evaluationID string) ([]models.EvaluationScore, error) {
	query := `
		SELECT es.id, es.evaluation_id, es.criterion_id, es.score, es.feedback, es.created_at
		FROM evaluation_scores es
		JOIN rubric_criteria c ON c.id = es.criterion_id
		WHERE es.evaluation_id = $1
		ORDER BY c.order_index
	`

	rows, err := r.db.QueryContext(ctx, query, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []models.EvaluationScore{}
	for rows.Next() {
		var s models.EvaluationScore
		if err := rows.Scan(&s.ID, &s.EvaluationID, &s.CriterionID, &s.Score, &s.Feedback, &s.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}

	return scores, rows.Err()
}

// Save writes the evaluation row and replaces its score set in one
// transaction, so total_score always matches the stored selections.
func (r *evaluationRepository) Save(ctx context.Context, eval *models.Evaluation) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE evaluations
			SET status = $1, total_score = $2, written_feedback = $3, audio_feedback_url = $4,
				audio_transcript = $5, ai_summary = $6, submitted_at = $7, updated_at = $8
			WHERE id = $9
		`
		if _, err := tx.ExecContext(ctx, query,
			eval.Status,
			eval.TotalScore,
			eval.WrittenFeedback,
			eval.AudioFeedbackURL,
			eval.AudioTranscript,
			eval.AISummary,
			eval.SubmittedAt,
			eval.UpdatedAt,
			eval.ID,
		); err != nil {
			return err
		}

		upsert := `
			INSERT INTO evaluation_scores (id, evaluation_id, criterion_id, score, feedback, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (evaluation_id, criterion_id)
			DO UPDATE SET score = EXCLUDED.score, feedback = EXCLUDED.feedback
		`
		for _, s := range eval.Scores {
			if _, err := tx.ExecContext(ctx, upsert,
				s.ID, eval.ID, s.CriterionID, s.Score, s.Feedback, s.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *evaluationRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE session_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evals := []models.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *e)
	}

	return evals, rows.Err()
}

func (r *evaluationRepository) ListByJury(ctx context.Context, juryID string, limit, offset int) ([]models.Evaluation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM evaluations WHERE jury_id = $1`, juryID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + evaluationColumns + ` FROM evaluations
		WHERE jury_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, juryID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	evals := []models.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, 0, err
		}
		evals = append(evals, *e)
	}

	return evals, total, rows.Err()
}

func (r *evaluationRepository) CountCompletedBySession(ctx context.Context, sessionID string) (int, error) {
	query := `SELECT COUNT(*) FROM evaluations WHERE session_id = $1 AND status = 'completed'`
	var n int
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&n)
	return n, err
}

// ListResultsByStudentProfile returns completed evaluations of every
// enrollment linked to the profile.
func (r *evaluationRepository) ListResultsByStudentProfile(ctx context.Context, profileID string) ([]models.StudentResult, error) {
	query := `
		SELECT e.id, e.session_id, s.title, p.full_name, e.total_score, e.max_score,
			e.written_feedback, e.submitted_at
		FROM evaluations e
		JOIN students st ON st.id = e.student_id
		JOIN sessions s ON s.id = e.session_id
		JOIN profiles p ON p.id = e.jury_id
		WHERE st.profile_id = $1 AND e.status = 'completed'
		ORDER BY e.submitted_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.StudentResult{}
	for rows.Next() {
		var res models.StudentResult
		var submittedAt sql.NullTime
		if err := rows.Scan(
			&res.EvaluationID, &res.SessionID, &res.SessionTitle, &res.JuryName,
			&res.TotalScore, &res.MaxScore, &res.WrittenFeedback, &submittedAt,
		); err != nil {
			return nil, err
		}
		res.SubmittedAt = timePtr(submittedAt)
		results = append(results, res)
	}

	return results, rows.Err()
}
