package auth

import (
	"context"
	"fmt"
	"time"

	"mediloop/internal/database"
)

type LoginAttempt struct {
	Email       string
	IP          string
	Success     bool
	AttemptedAt time.Time
}

// AttemptRepository is append-only; rows are only read back as counts.
type AttemptRepository struct {
	DB database.DBTX
}

func NewAttemptRepository(db database.DBTX) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Record(ctx context.Context, a LoginAttempt) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, success, attempted_at)
		VALUES ($1, $2, $3, $4)
	`, a.Email, a.IP, a.Success, a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE email=$1 AND success=FALSE AND attempted_at > $2
	`, email, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count login attempts: %w", err)
	}
	return n, nil
}

func (r *AttemptRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
