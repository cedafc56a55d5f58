package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mediloop/internal/database"
)

const userColumns = `id, first_name, last_name, email, password_hash, phone, address, user_type, is_active, email_verified,
	verification_token, verification_expires, reset_token, reset_token_expires, created_at, updated_at`

type UserRepository struct {
	DB database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u NewUser) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users
		(id, first_name, last_name, email, password_hash, phone, address, user_type, email_verified, verification_token, verification_expires)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, id, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone, u.Address, string(u.UserType), u.EmailVerified, u.VerificationToken, u.VerificationExpires)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1 AND is_active=TRUE`, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, tokenHash string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=$1`, tokenHash)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.exec(ctx, "update password", `
		UPDATE users
		SET password_hash=$1,
		    reset_token=NULL,
		    reset_token_expires=NULL,
		    updated_at=NOW()
		WHERE id=$2
	`, passwordHash, userID)
}

func (r *UserRepository) SetVerification(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	return r.exec(ctx, "set verification token", `
		UPDATE users
		SET verification_token=$1,
		    verification_expires=$2
		WHERE id=$3
	`, tokenHash, expires, userID)
}

func (r *UserRepository) ClearVerification(ctx context.Context, userID string) error {
	return r.exec(ctx, "clear verification token", `
		UPDATE users
		SET verification_token=NULL,
		    verification_expires=NULL
		WHERE id=$1
	`, userID)
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	return r.exec(ctx, "set reset token", `
		UPDATE users
		SET reset_token=$1,
		    reset_token_expires=$2
		WHERE id=$3
	`, tokenHash, expires, userID)
}

func (r *UserRepository) ClearResetToken(ctx context.Context, userID string) error {
	return r.exec(ctx, "clear reset token", `
		UPDATE users
		SET reset_token=NULL,
		    reset_token_expires=NULL
		WHERE id=$1
	`, userID)
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE users
		SET email_verified=TRUE,
		    verification_token=NULL,
		    verification_expires=NULL,
		    updated_at=NOW()
		WHERE verification_token=$1 AND email_verified=FALSE
	`, tokenHash)
	if err != nil {
		return false, fmt.Errorf("mark email verified: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, bool, error) {
	var userID string
	err := r.DB.QueryRow(ctx, `
		UPDATE users
		SET password_hash=$1,
		    reset_token=NULL,
		    reset_token_expires=NULL,
		    updated_at=$3
		WHERE reset_token=$2 AND reset_token_expires > $3
		RETURNING id
	`, passwordHash, tokenHash, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reset password: %w", err)
	}
	return userID, true, nil
}

func (r *UserRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	verif, err := r.DB.Exec(ctx, `
		UPDATE users
		SET verification_token=NULL,
		    verification_expires=NULL
		WHERE verification_expires < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired verification tokens: %w", err)
	}
	reset, err := r.DB.Exec(ctx, `
		UPDATE users
		SET reset_token=NULL,
		    reset_token_expires=NULL
		WHERE reset_token_expires < $1
	`, now)
	if err != nil {
		return verif.RowsAffected(), fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return verif.RowsAffected() + reset.RowsAffected(), nil
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.DB.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                   User
		userType            string
		phone               sql.NullString
		address             sql.NullString
		verificationToken   sql.NullString
		verificationExpires sql.NullTime
		resetToken          sql.NullString
		resetTokenExpires   sql.NullTime
	)

	if err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&phone,
		&address,
		&userType,
		&u.IsActive,
		&u.EmailVerified,
		&verificationToken,
		&verificationExpires,
		&resetToken,
		&resetTokenExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.UserType = UserType(userType)
	u.Phone = nullStringPtr(phone)
	u.Address = nullStringPtr(address)
	u.VerificationToken = nullStringPtr(verificationToken)
	u.VerificationExpires = nullTimePtr(verificationExpires)
	u.ResetToken = nullStringPtr(resetToken)
	u.ResetTokenExpires = nullTimePtr(resetTokenExpires)
	return &u, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
