package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
)

type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id string) (*models.Rubric, error)
	GetAll(ctx context.Context, limit, offset int) ([]models.Rubric, int, error)
	Update(ctx context.Context, rubric *models.Rubric) error
	SaveCriteria(ctx context.Context, rubric *models.Rubric) error
	Deactivate(ctx context.Context, id string) error
	CountOpenSessions(ctx context.Context, id string) (int, error)
	IsReferenced(ctx context.Context, id string) (bool, error)
}

type rubricRepository struct {
	*PostgresRepository
}

func NewRubricRepository(db *sql.DB, logger zerolog.Logger) RubricRepository {
	return &rubricRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// Create writes the rubric with its criteria and levels in one transaction.
func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO rubrics (id, title, description, created_by, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			rubric.ID,
			rubric.Title,
			rubric.Description,
			nullString(&rubric.CreatedBy),
			rubric.IsActive,
			rubric.CreatedAt,
			rubric.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for i := range rubric.Criteria {
			if err := insertCriterion(ctx, tx, &rubric.Criteria[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertCriterion(ctx context.Context, tx *sql.Tx, c *models.Criterion) error {
	query := `
		INSERT INTO rubric_criteria (id, rubric_id, name, description, max_points, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		c.ID, c.RubricID, c.Name, c.Description, c.MaxPoints, c.OrderIndex, c.CreatedAt,
	); err != nil {
		return err
	}

	levelQuery := `
		INSERT INTO rubric_levels (id, criterion_id, name, description, points, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, l := range c.Levels {
		if _, err := tx.ExecContext(ctx, levelQuery,
			l.ID, l.CriterionID, l.Name, l.Description, l.Points, l.OrderIndex, l.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *rubricRepository) GetByID(ctx context.Context, id string) (*models.Rubric, error) {
	query := `
		SELECT
			r.id, r.title, r.description, r.created_by, r.is_active, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM sessions s WHERE s.rubric_id = r.id) AS usage_count
		FROM rubrics r
		WHERE r.id = $1
	`

	rubric, err := scanRubric(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byRubric, err := r.loadCriteria(ctx, []string{rubric.ID})
	if err != nil {
		return nil, err
	}
	rubric.Criteria = byRubric[rubric.ID]

	return rubric, nil
}

func (r *rubricRepository) GetAll(ctx context.Context, limit, offset int) ([]models.Rubric, int, error) {
	countQuery := `SELECT COUNT(*) FROM rubrics WHERE is_active`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			r.id, r.title, r.description, r.created_by, r.is_active, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM sessions s WHERE s.rubric_id = r.id) AS usage_count
		FROM rubrics r
		WHERE r.is_active
		ORDER BY r.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rubrics []models.Rubric
	var ids []string
	for rows.Next() {
		rubric, err := scanRubric(rows)
		if err != nil {
			return nil, 0, err
		}
		rubrics = append(rubrics, *rubric)
		ids = append(ids, rubric.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	byRubric, err := r.loadCriteria(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range rubrics {
		rubrics[i].Criteria = byRubric[rubrics[i].ID]
	}

	return rubrics, total, nil
}

func scanRubric(row rowScanner) (*models.Rubric, error) {
	rubric := &models.Rubric{}
	var createdBy sql.NullString
	err := row.Scan(
		&rubric.ID,
		&rubric.Title,
		&rubric.Description,
		&createdBy,
		&rubric.IsActive,
		&rubric.CreatedAt,
		&rubric.UpdatedAt,
		&rubric.UsageCount,
	)
	rubric.CreatedBy = createdBy.String
	return rubric, err
}

// loadCriteria fetches criteria and levels for the given rubrics, ordered by
// position.
func (r *rubricRepository) loadCriteria(ctx context.Context, rubricIDs []string) (map[string][]models.Criterion, error) {
	result := make(map[string][]models.Criterion)
	if len(rubricIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT
			c.id, c.rubric_id, c.name, c.description, c.max_points, c.order_index, c.created_at,
			l.id, l.name, l.description, l.points, l.order_index, l.created_at
		FROM rubric_criteria c
		LEFT JOIN rubric_levels l ON l.criterion_id = c.id
		WHERE c.rubric_id = ANY($1)
		ORDER BY c.rubric_id, c.order_index, l.order_index
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(rubricIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Criterion
		var (
			levelID, levelName, levelDesc sql.NullString
			levelPoints, levelOrder       sql.NullInt64
			levelCreated                  sql.NullTime
		)
		if err := rows.Scan(
			&c.ID, &c.RubricID, &c.Name, &c.Description, &c.MaxPoints, &c.OrderIndex, &c.CreatedAt,
			&levelID, &levelName, &levelDesc, &levelPoints, &levelOrder, &levelCreated,
		); err != nil {
			return nil, err
		}

		list := result[c.RubricID]
		if n := len(list); n == 0 || list[n-1].ID != c.ID {
			list = append(list, c)
		}
		if levelID.Valid {
			last := &list[len(list)-1]
			last.Levels = append(last.Levels, models.Level{
				ID:          levelID.String,
				CriterionID: c.ID,
				Name:        levelName.String,
				Description: levelDesc.String,
				Points:      int(levelPoints.Int64),
				OrderIndex:  int(levelOrder.Int64),
				CreatedAt:   levelCreated.Time,
			})
		}
		result[c.RubricID] = list
	}

	return result, rows.Err()
}

func (r *rubricRepository) Update(ctx context.Context, rubric *models.Rubric) error {
	query := `
		UPDATE rubrics
		SET title = $1, description = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query,
		rubric.Title,
		rubric.Description,
		rubric.UpdatedAt,
		rubric.ID,
	)

	return err
}

// SaveCriteria makes the stored criteria match rubric.Criteria: rows that are
// gone are deleted, new ones are inserted and order indexes are rewritten.
func (r *rubricRepository) SaveCriteria(ctx context.Context, rubric *models.Rubric) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		ids := make([]string, 0, len(rubric.Criteria))
		for _, c := range rubric.Criteria {
			ids = append(ids, c.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM rubric_criteria WHERE rubric_id = $1 AND NOT (id = ANY($2))`,
			rubric.ID, pq.Array(ids),
		); err != nil {
			return err
		}

		for i := range rubric.Criteria {
			c := &rubric.Criteria[i]
			res, err := tx.ExecContext(ctx,
				`UPDATE rubric_criteria SET order_index = $1, max_points = $2 WHERE id = $3`,
				c.OrderIndex, c.MaxPoints, c.ID,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				if err := insertCriterion(ctx, tx, c); err != nil {
					return err
				}
			}
		}

		_, err := tx.ExecContext(ctx, `UPDATE rubrics SET updated_at = $1 WHERE id = $2`, rubric.UpdatedAt, rubric.ID)
		return err
	})
}

func (r *rubricRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE rubrics SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *rubricRepository) CountOpenSessions(ctx context.Context, id string) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE rubric_id = $1 AND is_active AND status IN ('scheduled', 'active', 'paused')
	`
	var n int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n)
	return n, err
}

func (r *rubricRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM sessions WHERE rubric_id = $1)
			OR EXISTS(SELECT 1 FROM evaluations WHERE rubric_id = $1)
	`
	var referenced bool
	err := r.db.QueryRowContext(ctx, query, id).Scan(&referenced)
	return referenced, err
}
