package auth

import (
	"context"
	"time"
)

// UserStore is the credential store. It is the only writer of user rows.
type UserStore interface {
	// FindByEmail considers active users only and returns nil, nil when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u NewUser) (string, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetVerification(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ClearVerification(ctx context.Context, userID string) error
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, userID string) error
	FindByVerificationToken(ctx context.Context, tokenHash string) (*User, error)
	// MarkEmailVerified consumes the token; false means no row still held it.
	MarkEmailVerified(ctx context.Context, tokenHash string) (bool, error)
	// ResetPassword swaps the hash and consumes an unexpired token in one statement.
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, bool, error)
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type RememberTokenStore interface {
	Create(ctx context.Context, t RememberToken) error
	FindValid(ctx context.Context, tokenHash string, now time.Time) (*RememberToken, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AttemptStore interface {
	Record(ctx context.Context, a LoginAttempt) error
	CountFailedSince(ctx context.Context, email string, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, sess Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
