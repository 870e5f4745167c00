package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notedrop/internal/model"
)

type OwnershipRepository struct {
	pool *pgxpool.Pool
}

func NewOwnershipRepository(pool *pgxpool.Pool) *OwnershipRepository {
	return &OwnershipRepository{pool: pool}
}

func (r *OwnershipRepository) Create(ctx context.Context, row model.FileOwnership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO file_ownership (id, user_id, subject, category, channel_id, message_id, file_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (channel_id, message_id) DO NOTHING`,
		row.ID, row.UserID, row.Subject, row.Category, row.ChannelID, row.MessageID, row.FileName)
	if err != nil {
		return fmt.Errorf("create ownership row: %w", err)
	}
	return nil
}

func (r *OwnershipRepository) FindByID(ctx context.Context, fileID string) (model.FileOwnership, error) {
	var row model.FileOwnership
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, subject, category, channel_id, message_id, file_name, created_at
		 FROM file_ownership WHERE id = $1`, fileID).
		Scan(&row.ID, &row.UserID, &row.Subject, &row.Category, &row.ChannelID,
			&row.MessageID, &row.FileName, &row.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.FileOwnership{}, model.ErrFileNotFound
	}
	if err != nil {
		return model.FileOwnership{}, fmt.Errorf("find ownership row: %w", err)
	}
	return row, nil
}

// ListByUserSubject returns the caller's uploads at (subject, category).
func (r *OwnershipRepository) ListByUserSubject(ctx context.Context, userID string, subject string, category string) ([]model.FileOwnership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, subject, category, channel_id, message_id, file_name, created_at
		 FROM file_ownership
		 WHERE user_id = $1 AND subject = $2 AND category = $3
		 ORDER BY created_at DESC`, userID, subject, category)
	if err != nil {
		return nil, fmt.Errorf("list ownership rows: %w", err)
	}
	defer rows.Close()

	out := make([]model.FileOwnership, 0)
	for rows.Next() {
		var row model.FileOwnership
		if err := rows.Scan(&row.ID, &row.UserID, &row.Subject, &row.Category, &row.ChannelID,
			&row.MessageID, &row.FileName, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ownership row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *OwnershipRepository) DeleteBySubject(ctx context.Context, userID string, subject string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM file_ownership WHERE user_id = $1 AND subject = $2`,
		userID, subject)
	if err != nil {
		return 0, fmt.Errorf("delete ownership rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
