package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"mediloop/internal/metrics"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
)

const (
	MsgRegistered         = "Registration successful! You can now login to your account."
	MsgDuplicateEmail     = "Email already registered"
	MsgInvalidEmail       = "Invalid email format"
	MsgInvalidUserType    = "Invalid user type"
	MsgNameRequired       = "First and last name are required"
	MsgNameTooLong        = "First and last name must be at most 50 characters"
	MsgPhoneTooLong       = "Phone number must be at most 20 characters"
	MsgRegisterFailed     = "Registration failed. Please try again later."
	MsgLoginSuccess       = "Login successful"
	MsgInvalidCredentials = "Invalid email or password"
	MsgRateLimited        = "Too many login attempts. Please try again in 15 minutes."
	MsgLoginFailed        = "Login failed. Please try again later."
	MsgLoggedOut          = "Logged out successfully"
	MsgNotLoggedIn        = "Not logged in"
	MsgSessionInvalid     = "Session invalid"
	MsgServerError        = "An internal error occurred. Please try again later."
	MsgVerified           = "Email verified successfully"
	MsgAlreadyVerified    = "Email is already verified"
	MsgVerifyExpired      = "Verification token has expired. Please request a new one."
	MsgVerifyInvalid      = "Invalid verification token"
	MsgVerificationSent   = "If this email is registered and not yet verified, a new verification link has been sent"
	MsgResetRequested     = "If this email exists in our system, a reset link will be sent"
	MsgResetInvalid       = "Invalid or expired reset token"
	MsgPasswordReset      = "Password reset successfully"
)

// Mailer delivers the links that carry verification and reset tokens.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Address   string
	UserType  string
}

// Service is the single entry point the HTTP layer talks to.
type Service struct {
	Users    UserStore
	Sessions *SessionManager
	Limiter  *RateLimiter
	Hasher   PasswordHasher
	Mailer   Mailer
	Audit    AuditSink
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time

	BaseURL               string
	SkipEmailVerification bool
	VerificationTTL       time.Duration
	ResetTTL              time.Duration

	dummyOnce sync.Once
	dummyHash string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) Result {
	res := s.register(ctx, in)
	s.Metrics.Registration(res.Outcome.String())
	return res
}

func (s *Service) register(ctx context.Context, in RegisterInput) Result {
	email := strings.TrimSpace(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	if firstName == "" || lastName == "" {
		return fail(OutcomeInvalidInput, MsgNameRequired)
	}
	if TooLong(firstName, MaxNameLength) || TooLong(lastName, MaxNameLength) {
		return fail(OutcomeInvalidInput, MsgNameTooLong)
	}
	if TooLong(strings.TrimSpace(in.Phone), MaxPhoneLength) {
		return fail(OutcomeInvalidInput, MsgPhoneTooLong)
	}
	if !ValidateEmail(email) {
		return fail(OutcomeInvalidEmail, MsgInvalidEmail)
	}
	if err := ValidatePassword(in.Password); err != nil {
		return fail(OutcomeWeakPassword, err.Error())
	}
	userType, ok := ParseUserType(in.UserType)
	if !ok {
		return fail(OutcomeInvalidInput, MsgInvalidUserType)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.logger().Error("hash password failed", "err", err)
		return fail(OutcomeServerError, MsgRegisterFailed)
	}

	nu := NewUser{
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		PasswordHash:  hash,
		Phone:         optional(in.Phone),
		Address:       optional(in.Address),
		UserType:      userType,
		EmailVerified: s.SkipEmailVerification,
	}

	var token string
	if !s.SkipEmailVerification {
		token, err = NewToken()
		if err != nil {
			s.logger().Error("generate verification token failed", "err", err)
			return fail(OutcomeServerError, MsgRegisterFailed)
		}
		digest := HashString(token)
		expires := s.now().Add(s.verificationTTL())
		nu.VerificationToken = &digest
		nu.VerificationExpires = &expires
	}

	id, err := s.Users.Create(ctx, nu)
	if errors.Is(err, ErrDuplicateEmail) {
		return fail(OutcomeDuplicateEmail, MsgDuplicateEmail)
	}
	if err != nil {
		s.logger().Error("create user failed", "err", err)
		return fail(OutcomeServerError, MsgRegisterFailed)
	}

	if token != "" {
		s.sendVerification(ctx, email, firstName, token)
	}
	s.audit(ctx, AuditEvent{EventType: AuditRegister, UserID: id})
	s.logger().Info("user registered", "user_id", id, "user_type", string(userType))
	return Result{Outcome: OutcomeCreated, Message: MsgRegistered, UserID: id}
}

// Login answers unknown users and wrong passwords identically, including a
// bcrypt comparison for unknown users.
func (s *Service) Login(ctx context.Context, c *Client, email, password string, remember bool) Result {
	res := s.login(ctx, c, strings.TrimSpace(email), password, remember)
	s.Metrics.Login(res.Outcome.String())
	return res
}

func (s *Service) login(ctx context.Context, c *Client, email, password string, remember bool) Result {
	if s.Limiter.IsLimited(ctx, email) {
		s.logger().Warn("login rate limited", "ip", c.IP)
		return fail(OutcomeRateLimited, MsgRateLimited)
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		s.logger().Error("load user for login failed", "err", err)
		return fail(OutcomeServerError, MsgLoginFailed)
	}
	if user == nil {
		s.Hasher.Compare(s.dummy(), password)
		s.Limiter.Record(ctx, email, c.IP, false)
		s.audit(ctx, AuditEvent{EventType: AuditLoginFailed, IP: c.IP, UserAgent: c.UserAgent})
		return fail(OutcomeInvalidCredentials, MsgInvalidCredentials)
	}
	if !s.Hasher.Compare(user.PasswordHash, password) {
		s.Limiter.Record(ctx, email, c.IP, false)
		s.audit(ctx, AuditEvent{EventType: AuditLoginFailed, UserID: user.ID, IP: c.IP, UserAgent: c.UserAgent})
		return fail(OutcomeInvalidCredentials, MsgInvalidCredentials)
	}

	s.Limiter.Record(ctx, email, c.IP, true)

	sess, err := s.Sessions.Establish(ctx, c, user)
	if err != nil {
		s.logger().Error("establish session failed", "err", err)
		return fail(OutcomeServerError, MsgLoginFailed)
	}
	if remember {
		if err := s.Sessions.IssueRememberMe(ctx, c, user.ID); err != nil {
			s.logger().Error("issue remember token failed", "err", err)
		}
	}

	s.audit(ctx, AuditEvent{
		EventType: AuditLogin,
		UserID:    user.ID,
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Meta:      map[string]interface{}{"remember": remember},
	})
	return Result{
		Outcome: OutcomeAuthenticated,
		Message: MsgLoginSuccess,
		UserID:  user.ID,
		User:    user,
		Session: sess,
	}
}

// Logout never fails.
func (s *Service) Logout(ctx context.Context, c *Client) Result {
	sess, err := s.Sessions.Authenticate(ctx, c)
	if err != nil {
		s.logger().Warn("resolve session on logout failed", "err", err)
	}
	if err := s.Sessions.Terminate(ctx, c); err != nil {
		s.logger().Warn("logout cleanup failed", "err", err)
	}

	res := Result{Outcome: OutcomeLoggedOut, Message: MsgLoggedOut, WasLoggedIn: sess != nil}
	if sess != nil {
		res.UserID = sess.UserID
		s.audit(ctx, AuditEvent{EventType: AuditLogout, UserID: sess.UserID, IP: c.IP, UserAgent: c.UserAgent})
	}
	return res
}

// CurrentUser re-reads the user row behind the session. A session whose user
// is gone or deactivated is terminated and reported as SessionInvalid.
func (s *Service) CurrentUser(ctx context.Context, c *Client) Result {
	sess, err := s.Sessions.Authenticate(ctx, c)
	if err != nil {
		s.logger().Error("authenticate failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}
	if sess == nil {
		return fail(OutcomeNotLoggedIn, MsgNotLoggedIn)
	}

	user, err := s.Users.FindByID(ctx, sess.UserID)
	if err != nil {
		s.logger().Error("load session user failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}
	if user == nil || !user.IsActive {
		if err := s.Sessions.Terminate(ctx, c); err != nil {
			s.logger().Warn("terminate orphaned session failed", "err", err)
		}
		return fail(OutcomeSessionInvalid, MsgSessionInvalid)
	}

	return Result{Outcome: OutcomeAuthenticated, UserID: user.ID, User: user, Session: sess}
}

func (s *Service) VerifyEmail(ctx context.Context, token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return fail(OutcomeTokenInvalid, MsgVerifyInvalid)
	}
	digest := HashString(token)

	user, err := s.Users.FindByVerificationToken(ctx, digest)
	if err != nil {
		s.logger().Error("load user by verification token failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}
	if user == nil {
		return fail(OutcomeTokenInvalid, MsgVerifyInvalid)
	}
	if user.VerificationExpires != nil && s.now().After(*user.VerificationExpires) {
		return fail(OutcomeTokenExpired, MsgVerifyExpired)
	}
	if user.EmailVerified {
		return fail(OutcomeAlreadyVerified, MsgAlreadyVerified)
	}

	ok, err := s.Users.MarkEmailVerified(ctx, digest)
	if err != nil {
		s.logger().Error("mark email verified failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}
	if !ok {
		return fail(OutcomeTokenInvalid, MsgVerifyInvalid)
	}

	s.audit(ctx, AuditEvent{EventType: AuditEmailVerified, UserID: user.ID})
	return Result{Outcome: OutcomeVerified, Message: MsgVerified, UserID: user.ID}
}

// ResendVerification answers identically whether or not a mail was sent.
func (s *Service) ResendVerification(ctx context.Context, email string) Result {
	res := Result{Outcome: OutcomeVerificationSent, Message: MsgVerificationSent}

	user, err := s.Users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.logger().Error("load user for resend failed", "err", err)
		return res
	}
	if user == nil || user.EmailVerified {
		return res
	}

	token, err := NewToken()
	if err != nil {
		s.logger().Error("generate verification token failed", "err", err)
		return res
	}
	if err := s.Users.SetVerification(ctx, user.ID, HashString(token), s.now().Add(s.verificationTTL())); err != nil {
		s.logger().Error("store verification token failed", "err", err)
		return res
	}
	s.sendVerification(ctx, user.Email, user.FirstName, token)
	return res
}

// RequestPasswordReset answers identically whether or not the email is known.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) Result {
	res := Result{Outcome: OutcomeResetRequested, Message: MsgResetRequested}

	user, err := s.Users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.logger().Error("load user for reset failed", "err", err)
		return res
	}
	if user == nil {
		return res
	}

	token, err := NewToken()
	if err != nil {
		s.logger().Error("generate reset token failed", "err", err)
		return res
	}
	if err := s.Users.SetResetToken(ctx, user.ID, HashString(token), s.now().Add(s.resetTTL())); err != nil {
		s.logger().Error("store reset token failed", "err", err)
		return res
	}

	if s.Mailer != nil {
		link := s.link("/reset_password.html", token)
		if err := s.Mailer.SendPasswordReset(ctx, user.Email, user.FirstName, link); err != nil {
			s.logger().Error("send reset email failed", "user_id", user.ID, "err", err)
		}
	}
	s.audit(ctx, AuditEvent{EventType: AuditResetRequested, UserID: user.ID})
	return res
}

// ResetPassword consumes the token and rewrites the hash in one statement,
// then revokes the user's sessions and remember-me tokens.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return fail(OutcomeTokenInvalid, MsgResetInvalid)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return fail(OutcomeWeakPassword, err.Error())
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		s.logger().Error("hash password failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}

	userID, ok, err := s.Users.ResetPassword(ctx, HashString(token), hash, s.now())
	if err != nil {
		s.logger().Error("reset password failed", "err", err)
		return fail(OutcomeServerError, MsgServerError)
	}
	if !ok {
		return fail(OutcomeTokenInvalid, MsgResetInvalid)
	}

	if err := s.Sessions.RevokeUser(ctx, userID); err != nil {
		s.logger().Warn("revoke sessions after reset failed", "user_id", userID, "err", err)
	}
	s.audit(ctx, AuditEvent{EventType: AuditPasswordReset, UserID: userID})
	return Result{Outcome: OutcomePasswordReset, Message: MsgPasswordReset, UserID: userID}
}

func (s *Service) sendVerification(ctx context.Context, to, name, token string) {
	if s.Mailer == nil {
		return
	}
	link := s.link("/verify_email.html", token)
	if err := s.Mailer.SendVerification(ctx, to, name, link); err != nil {
		s.logger().Error("send verification email failed", "err", err)
	}
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (s *Service) audit(ctx context.Context, e AuditEvent) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Log(ctx, e); err != nil {
		s.logger().Warn("audit log failed", "event", e.EventType, "err", err)
	}
}

// dummy is compared against for unknown emails so both failure paths cost one bcrypt run.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.Hasher.Hash("mediloop-timing-equaliser")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) verificationTTL() time.Duration {
	if s.VerificationTTL > 0 {
		return s.VerificationTTL
	}
	return defaultVerificationTTL
}

func (s *Service) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return defaultResetTTL
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
