package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agent-optimus/models"
)

const selectUser = `SELECT id, email, role, status, trial_activated_at, created_at FROM users`

func (ps *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return ps.queryUser(ctx, selectUser+` WHERE id = $1`, id)
}

func (ps *PostgresStore) UserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return ps.queryUser(ctx, selectUser+` WHERE token_hash = $1`, tokenHash)
}

// ActivateTrial marks the user active and stamps the activation time.
func (ps *PostgresStore) ActivateTrial(ctx context.Context, id string, at time.Time) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE users SET status = $2, trial_activated_at = $3 WHERE id = $1
	`, id, models.UserStatusActive, at)
	if err != nil {
		return fmt.Errorf("postgres: activate trial: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: activate trial: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (ps *PostgresStore) queryUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		u         models.User
		activated sql.NullTime
	)
	err := ps.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Role, &u.Status, &activated, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	if activated.Valid {
		t := activated.Time
		u.TrialActivatedAt = &t
	}
	return &u, nil
}
