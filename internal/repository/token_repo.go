package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Store(ctx context.Context, tokenID string, userID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_id, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenID, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Consume deletes the token row and reports whether it was present
// and unexpired. Refresh tokens are single-use.
func (r *TokenRepository) Consume(ctx context.Context, tokenID string, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens
		 WHERE token_id = $1 AND user_id = $2 AND expires_at > now()`,
		tokenID, userID)
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, tokenID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_id = $1`, tokenID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
