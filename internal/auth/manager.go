package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mediloop/internal/metrics"
)

const (
	defaultSessionTTL  = 8 * time.Hour
	defaultRememberTTL = 30 * 24 * time.Hour
)

// SessionManager drives a client from anonymous to authenticated and back.
// It owns server sessions, remember-me tokens and, through Limiter, login attempts.
type SessionManager struct {
	Sessions    SessionStore
	Remember    RememberTokenStore
	Users       UserStore
	Limiter     *RateLimiter
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	Now         func() time.Time
	SessionTTL  time.Duration
	RememberTTL time.Duration
}

type SweepReport struct {
	RememberTokens int64
	LoginAttempts  int64
	UserTokens     int64
	Failures       int
}

// Lookup reports a missing session as false, never as an error.
func (m *SessionManager) Lookup(ctx context.Context, id string) (Session, bool, error) {
	sess, err := m.Sessions.Get(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	if sess == nil {
		return Session{}, false, nil
	}
	return *sess, true, nil
}

// Establish always issues a fresh session id; the previously presented one is dropped.
func (m *SessionManager) Establish(ctx context.Context, c *Client, user *User) (*Session, error) {
	if c.SessionID != "" {
		if err := m.Sessions.Delete(ctx, c.SessionID); err != nil {
			m.logger().Warn("drop previous session failed", "err", err)
		}
	}

	sess := Session{
		ID:        NewSessionID(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.FullName(),
		UserType:  user.UserType,
		LoginTime: m.now(),
		IP:        c.IP,
		UserAgent: c.UserAgent,
	}
	if err := m.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	c.SessionID = sess.ID
	c.setCookie(sessionCookie(sess.ID, c.Secure))
	m.Metrics.Session("established")
	return &sess, nil
}

func (m *SessionManager) IsAuthenticated(ctx context.Context, c *Client) (bool, error) {
	sess, err := m.liveSession(ctx, c)
	return sess != nil, err
}

// Authenticate returns the live session, falling back to the remember-me
// cookie. A nil session with a nil error means anonymous.
func (m *SessionManager) Authenticate(ctx context.Context, c *Client) (*Session, error) {
	sess, err := m.liveSession(ctx, c)
	if err != nil || sess != nil {
		return sess, err
	}
	if c.RememberToken == "" {
		return nil, nil
	}
	return m.RedeemRememberMe(ctx, c, c.RememberToken)
}

func (m *SessionManager) liveSession(ctx context.Context, c *Client) (*Session, error) {
	if c.SessionID == "" {
		return nil, nil
	}
	sess, err := m.Sessions.Get(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Unknown ids are never adopted.
		c.SessionID = ""
		c.setCookie(expiredCookie(SessionCookieName, c.Secure))
		return nil, nil
	}
	if m.now().Sub(sess.LoginTime) > m.sessionTTL() {
		if err := m.Terminate(ctx, c); err != nil {
			m.logger().Warn("terminate expired session failed", "err", err)
		}
		m.Metrics.Session("expired")
		return nil, nil
	}
	return sess, nil
}

func (m *SessionManager) IssueRememberMe(ctx context.Context, c *Client, userID string) error {
	token, err := NewToken()
	if err != nil {
		return err
	}
	now := m.now()
	expires := now.Add(m.rememberTTL())
	err = m.Remember.Create(ctx, RememberToken{
		TokenHash: HashString(token),
		UserID:    userID,
		ExpiresAt: expires,
		CreatedAt: now,
	})
	if err != nil {
		return err
	}
	c.RememberToken = token
	c.setCookie(rememberCookie(token, m.rememberTTL(), expires))
	return nil
}

// RedeemRememberMe only honours tokens of active, verified users. Any
// rejection clears the remember cookie; the stored token is left as is.
func (m *SessionManager) RedeemRememberMe(ctx context.Context, c *Client, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	reject := func() (*Session, error) {
		c.RememberToken = ""
		c.setCookie(expiredCookie(RememberCookieName, true))
		return nil, nil
	}

	rt, err := m.Remember.FindValid(ctx, HashString(token), m.now())
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return reject()
	}

	user, err := m.Users.FindByID(ctx, rt.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !user.EmailVerified {
		return reject()
	}

	sess, err := m.Establish(ctx, c, user)
	if err != nil {
		return nil, err
	}
	m.Metrics.Session("remembered")
	return sess, nil
}

// Terminate always clears client state and cookies. The returned error
// is for logging only.
func (m *SessionManager) Terminate(ctx context.Context, c *Client) error {
	var errs []error
	if c.RememberToken != "" {
		if err := m.Remember.Delete(ctx, HashString(c.RememberToken)); err != nil {
			errs = append(errs, err)
		}
	}
	if c.SessionID != "" {
		if err := m.Sessions.Delete(ctx, c.SessionID); err != nil {
			errs = append(errs, err)
		}
	}

	c.RememberToken = ""
	c.SessionID = ""
	c.setCookie(expiredCookie(RememberCookieName, true))
	c.setCookie(expiredCookie(SessionCookieName, c.Secure))
	m.Metrics.Session("terminated")
	return errors.Join(errs...)
}

// RevokeUser ends every session and remember-me token of a user.
func (m *SessionManager) RevokeUser(ctx context.Context, userID string) error {
	return errors.Join(
		m.Sessions.DeleteByUser(ctx, userID),
		m.Remember.DeleteForUser(ctx, userID),
	)
}

// SweepExpired never fails; each failed step is logged and counted.
func (m *SessionManager) SweepExpired(ctx context.Context) SweepReport {
	var report SweepReport
	now := m.now()

	fail := func(step string, err error) {
		report.Failures++
		m.Metrics.SweepFailed()
		m.logger().Error("sweep step failed", "step", step, "err", err)
	}

	if n, err := m.Remember.DeleteExpired(ctx, now); err != nil {
		fail("remember_tokens", err)
	} else {
		report.RememberTokens = n
		m.Metrics.SweepRemoved("remember_tokens", n)
	}

	if m.Limiter != nil {
		if n, err := m.Limiter.Purge(ctx); err != nil {
			fail("login_attempts", err)
		} else {
			report.LoginAttempts = n
			m.Metrics.SweepRemoved("login_attempts", n)
		}
	}

	if n, err := m.Users.ClearExpiredTokens(ctx, now); err != nil {
		fail("user_tokens", err)
	} else {
		report.UserTokens = n
		m.Metrics.SweepRemoved("user_tokens", n)
	}

	m.logger().Info("sweep finished",
		"remember_tokens", report.RememberTokens,
		"login_attempts", report.LoginAttempts,
		"user_tokens", report.UserTokens,
		"failures", report.Failures,
	)
	return report
}

// RunSweeper sweeps every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired(ctx)
		}
	}
}

func (m *SessionManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *SessionManager) sessionTTL() time.Duration {
	if m.SessionTTL > 0 {
		return m.SessionTTL
	}
	return defaultSessionTTL
}

func (m *SessionManager) rememberTTL() time.Duration {
	if m.RememberTTL > 0 {
		return m.RememberTTL
	}
	return defaultRememberTTL
}

func (m *SessionManager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
