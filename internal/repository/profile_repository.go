package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/edujury/internal/models"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetAll(ctx context.Context, role string, limit, offset int) ([]models.Profile, int, error)
	Update(ctx context.Context, profile *models.Profile) error
	Deactivate(ctx context.Context, id string) error
}

type profileRepository struct {
	*PostgresRepository
}

func NewProfileRepository(db *sql.DB, logger zerolog.Logger) ProfileRepository {
	return &profileRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const profileColumns = `id, email, full_name, role, department, expertise, phone, password_hash, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.Department,
		&p.Expertise,
		&p.Phone,
		&p.PasswordHash,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.Role,
		profile.Department,
		profile.Expertise,
		profile.Phone,
		profile.PasswordHash,
		profile.IsActive,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return profile, err
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = lower($1)`

	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return profile, err
}

func (r *profileRepository) GetAll(ctx context.Context, role string, limit, offset int) ([]models.Profile, int, error) {
	countQuery := `SELECT COUNT(*) FROM profiles WHERE is_active AND ($1 = '' OR role = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, role).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE is_active AND ($1 = '' OR role = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, *p)
	}

	return profiles, total, rows.Err()
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $1, department = $2, expertise = $3, phone = $4, updated_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.FullName,
		profile.Department,
		profile.Expertise,
		profile.Phone,
		profile.UpdatedAt,
		profile.ID,
	)

	return err
}

func (r *profileRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE profiles SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}
