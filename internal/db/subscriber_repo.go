package db

import (
	"context"
	"time"

	"vaichover/internal/types"
)

const subscriberSchema = `CREATE TABLE IF NOT EXISTS push_subscribers (
	token      TEXT PRIMARY KEY,
	user_agent TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SubscriberRepository is the remote token directory: one row per device
// token, keyed by the token itself.
type SubscriberRepository struct {
	db DBTX
}

// NewSubscriberRepository creates a repository backed by the given database
// connection (pool or transaction).
func NewSubscriberRepository(db DBTX) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// EnsureSchema creates the push_subscribers table if it does not exist.
func (r *SubscriberRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, subscriberSchema); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create push_subscribers table", err)
	}
	return nil
}

// Upsert records token, refreshing user_agent and updated_at when it is
// already known.
func (r *SubscriberRepository) Upsert(ctx context.Context, s types.Subscriber) error {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO push_subscribers (token, user_agent, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE
		 SET user_agent = EXCLUDED.user_agent,
		     updated_at = EXCLUDED.updated_at`,
		s.Token,
		s.UserAgent,
		updatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscriber", err)
	}
	return nil
}

// Delete removes token. It reports whether a row existed; deleting an
// unknown token is not an error.
func (r *SubscriberRepository) Delete(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM push_subscribers WHERE token = $1`,
		token,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to delete subscriber", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns every subscriber, most recently refreshed first.
func (r *SubscriberRepository) List(ctx context.Context) ([]types.Subscriber, error) {
	rows, err := r.db.Query(ctx,
		`SELECT token, user_agent, updated_at
		 FROM push_subscribers
		 ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list subscribers", err)
	}
	defer rows.Close()

	var out []types.Subscriber
	for rows.Next() {
		var s types.Subscriber
		if err := rows.Scan(&s.Token, &s.UserAgent, &s.UpdatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan subscriber", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate subscribers", err)
	}
	return out, nil
}

// Ping checks connectivity for health probes.
func (r *SubscriberRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "database unreachable", err)
	}
	return nil
}
