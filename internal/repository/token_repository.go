package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

// TokenRepository remembers signed-out tokens until they would have expired.
type TokenRepository interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type tokenRepository struct {
	*PostgresRepository
}

func NewTokenRepository(db *sql.DB, logger zerolog.Logger) TokenRepository {
	return &tokenRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *tokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, jti, expiresAt)
	return err
}

func (r *tokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`
	var revoked bool
	err := r.db.QueryRowContext(ctx, query, jti).Scan(&revoked)
	return revoked, err
}

func (r *tokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
