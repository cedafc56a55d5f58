// Package authtest provides in-memory stores and a controllable clock for
// exercising the auth package without Postgres.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediloop/internal/auth"
)

type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Users implements auth.UserStore. Set Err to make every call fail.
type Users struct {
	mu    sync.Mutex
	byID  map[string]*auth.User
	clock *Clock
	err   error
}

func NewUsers(clock *Clock) *Users {
	return &Users{byID: map[string]*auth.User{}, clock: clock}
}

func (m *Users) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Users) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Mutate edits a stored row in place.
func (m *Users) Mutate(id string, fn func(u *auth.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		fn(u)
	}
}

func (m *Users) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func clone(u *auth.User) *auth.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func (m *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email && u.IsActive {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (m *Users) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return clone(m.byID[id]), nil
}

func (m *Users) Create(_ context.Context, nu auth.NewUser) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	for _, u := range m.byID {
		if u.Email == nu.Email {
			return "", auth.ErrDuplicateEmail
		}
	}
	now := m.clock.Now()
	u := &auth.User{
		ID:                  uuid.NewString(),
		FirstName:           nu.FirstName,
		LastName:            nu.LastName,
		Email:               nu.Email,
		PasswordHash:        nu.PasswordHash,
		Phone:               nu.Phone,
		Address:             nu.Address,
		UserType:            nu.UserType,
		IsActive:            true,
		EmailVerified:       nu.EmailVerified,
		VerificationToken:   nu.VerificationToken,
		VerificationExpires: nu.VerificationExpires,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	m.byID[u.ID] = u
	return u.ID, nil
}

func (m *Users) update(id string, fn func(u *auth.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if u, ok := m.byID[id]; ok {
		fn(u)
	}
	return nil
}

func (m *Users) UpdatePassword(_ context.Context, userID, hash string) error {
	return m.update(userID, func(u *auth.User) {
		u.PasswordHash = hash
		u.ResetToken, u.ResetTokenExpires = nil, nil
	})
}

func (m *Users) SetVerification(_ context.Context, userID, tokenHash string, expires time.Time) error {
	return m.update(userID, func(u *auth.User) {
		u.VerificationToken, u.VerificationExpires = &tokenHash, &expires
	})
}

func (m *Users) ClearVerification(_ context.Context, userID string) error {
	return m.update(userID, func(u *auth.User) {
		u.VerificationToken, u.VerificationExpires = nil, nil
	})
}

func (m *Users) SetResetToken(_ context.Context, userID, tokenHash string, expires time.Time) error {
	return m.update(userID, func(u *auth.User) {
		u.ResetToken, u.ResetTokenExpires = &tokenHash, &expires
	})
}

func (m *Users) ClearResetToken(_ context.Context, userID string) error {
	return m.update(userID, func(u *auth.User) {
		u.ResetToken, u.ResetTokenExpires = nil, nil
	})
}

func (m *Users) FindByVerificationToken(_ context.Context, tokenHash string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.VerificationToken != nil && *u.VerificationToken == tokenHash {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (m *Users) MarkEmailVerified(_ context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, u := range m.byID {
		if u.VerificationToken != nil && *u.VerificationToken == tokenHash && !u.EmailVerified {
			u.EmailVerified = true
			u.VerificationToken, u.VerificationExpires = nil, nil
			return true, nil
		}
	}
	return false, nil
}

func (m *Users) ResetPassword(_ context.Context, tokenHash, hash string, now time.Time) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	for _, u := range m.byID {
		if u.ResetToken != nil && *u.ResetToken == tokenHash && u.ResetTokenExpires.After(now) {
			u.PasswordHash = hash
			u.ResetToken, u.ResetTokenExpires = nil, nil
			return u.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *Users) ClearExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, u := range m.byID {
		if u.VerificationExpires != nil && u.VerificationExpires.Before(now) {
			u.VerificationToken, u.VerificationExpires = nil, nil
			n++
		}
		if u.ResetTokenExpires != nil && u.ResetTokenExpires.Before(now) {
			u.ResetToken, u.ResetTokenExpires = nil, nil
			n++
		}
	}
	return n, nil
}

// RememberTokens implements auth.RememberTokenStore.
type RememberTokens struct {
	mu     sync.Mutex
	tokens map[string]auth.RememberToken
	err    error
}

func NewRememberTokens() *RememberTokens {
	return &RememberTokens{tokens: map[string]auth.RememberToken{}}
}

func (m *RememberTokens) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *RememberTokens) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func (m *RememberTokens) Create(_ context.Context, t auth.RememberToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens[t.TokenHash] = t
	return nil
}

func (m *RememberTokens) FindValid(_ context.Context, tokenHash string, now time.Time) (*auth.RememberToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tokens[tokenHash]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, nil
	}
	return &t, nil
}

func (m *RememberTokens) Delete(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.tokens, tokenHash)
	return nil
}

func (m *RememberTokens) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *RememberTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(now) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

// Attempts implements auth.AttemptStore.
type Attempts struct {
	mu   sync.Mutex
	rows []auth.LoginAttempt
	err  error
}

func (m *Attempts) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Attempts) All() []auth.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]auth.LoginAttempt(nil), m.rows...)
}

func (m *Attempts) Record(_ context.Context, a auth.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, a)
	return nil
}

func (m *Attempts) CountFailedSince(_ context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, a := range m.rows {
		if a.Email == email && !a.Success && a.AttemptedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *Attempts) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	kept := m.rows[:0]
	var n int64
	for _, a := range m.rows {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.rows = kept
	return n, nil
}

type Mail struct {
	Kind string
	To   string
	Link string
}

// Mailer implements auth.Mailer by recording every message.
type Mailer struct {
	mu   sync.Mutex
	sent []Mail
}

func (m *Mailer) SendVerification(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{Kind: "verify", To: to, Link: link})
	return nil
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{Kind: "reset", To: to, Link: link})
	return nil
}

func (m *Mailer) Sent() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.sent...)
}

func (m *Mailer) Last() Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Mail{}
	}
	return m.sent[len(m.sent)-1]
}
