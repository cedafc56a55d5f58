package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"mediloop/internal/database"
)

type RememberToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type RememberTokenRepository struct {
	DB database.DBTX
}

func NewRememberTokenRepository(db database.DBTX) *RememberTokenRepository {
	return &RememberTokenRepository{DB: db}
}

func (r *RememberTokenRepository) Create(ctx context.Context, t RememberToken) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO remember_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert remember token: %w", err)
	}
	return nil
}

// FindValid returns nil, nil for unknown or expired tokens.
func (r *RememberTokenRepository) FindValid(ctx context.Context, tokenHash string, now time.Time) (*RememberToken, error) {
	var t RememberToken
	err := r.DB.QueryRow(ctx, `
		SELECT token_hash, user_id, expires_at, created_at
		FROM remember_tokens
		WHERE token_hash=$1 AND expires_at > $2
	`, tokenHash, now).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load remember token: %w", err)
	}
	return &t, nil
}

func (r *RememberTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM remember_tokens WHERE token_hash=$1`, tokenHash); err != nil {
		return fmt.Errorf("delete remember token: %w", err)
	}
	return nil
}

func (r *RememberTokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM remember_tokens WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete remember tokens for user: %w", err)
	}
	return nil
}

func (r *RememberTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM remember_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired remember tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
