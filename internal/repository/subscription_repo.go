package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"notedrop/internal/model"
)

type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Upsert is idempotent: re-subscribing an already-subscribed
// (user, subject, category) is a no-op.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub model.Subscription) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, subject, category, channel_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, subject, category) DO NOTHING`,
		sub.UserID, sub.Subject, sub.Category, sub.ChannelID)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) DeleteBySubject(ctx context.Context, userID string, subject string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND subject = $2`,
		userID, subject)
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListSubjects returns the distinct subjects for which the caller
// holds at least the Main category entry.
func (r *SubscriptionRepository) ListSubjects(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT subject FROM subscriptions
		 WHERE user_id = $1 AND category = 'Main'
		 ORDER BY subject`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]string, 0)
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

// ListChannelIDs returns every channel the caller holds a subscription
// row for, ordered for stable responses.
func (r *SubscriptionRepository) ListChannelIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT channel_id FROM subscriptions WHERE user_id = $1 ORDER BY subject, category`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list channel ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
