package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediloop/internal/auth"
)

func TestEstablish_RotatesSessionID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "rot@example.com", false)

	c := newTestClient()
	first, err := h.Manager.Establish(ctx, c, u)
	require.NoError(t, err)

	second, err := h.Manager.Establish(ctx, c, u)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, found, err := h.Manager.Lookup(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, found, "previous id is dropped")

	got, found, err := h.Manager.Lookup(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "rot@example.com", got.Email)
	assert.Equal(t, "Ada Okafor", got.Name)
	assert.Equal(t, auth.UserTypeDonor, got.UserType)
	assert.Equal(t, h.Clock.Now().Unix(), got.LoginTime.Unix())
	assert.Equal(t, "203.0.113.7", got.IP)

	ck := cookieNamed(c, auth.SessionCookieName)
	require.NotNil(t, ck)
	assert.Equal(t, second.ID, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.False(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
}

func TestEstablish_SecureOnTLS(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, "tls@example.com", false)

	c := newTestClient()
	c.Secure = true
	_, err := h.Manager.Establish(context.Background(), c, u)
	require.NoError(t, err)
	assert.True(t, cookieNamed(c, auth.SessionCookieName).Secure)
}

func TestLookup_Missing(t *testing.T) {
	h := newHarness(t)
	_, found, err := h.Manager.Lookup(context.Background(), "no-such-session")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestIsAuthenticated_LazyExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "exp@example.com", true)

	c := newTestClient()
	_, err := h.Manager.Establish(ctx, c, u)
	require.NoError(t, err)
	require.NoError(t, h.Manager.IssueRememberMe(ctx, c, u.ID))
	sid := c.SessionID

	ok, err := h.Manager.IsAuthenticated(ctx, followUp(c))
	require.NoError(t, err)
	assert.True(t, ok)

	h.Clock.Advance(8 * time.Hour)
	ok, err = h.Manager.IsAuthenticated(ctx, followUp(c))
	require.NoError(t, err)
	assert.True(t, ok, "exactly 8h is still live")

	h.Clock.Advance(time.Second)
	next := followUp(c)
	ok, err = h.Manager.IsAuthenticated(ctx, next)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, h.Redis.Exists("session:"+sid), "terminate removed the session")
	assert.Zero(t, h.Remember.Len(), "terminate removed the remember token")
	assert.Empty(t, next.SessionID)
	assert.Equal(t, -1, cookieNamed(next, auth.SessionCookieName).MaxAge)
	assert.Equal(t, -1, cookieNamed(next, auth.RememberCookieName).MaxAge)
}

func TestAuthenticate_ExpiredSessionRevokesRememberMe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "stale@example.com", true)

	c := newTestClient()
	_, err := h.Manager.Establish(ctx, c, u)
	require.NoError(t, err)
	require.NoError(t, h.Manager.IssueRememberMe(ctx, c, u.ID))
	sid := c.SessionID
	assert.Equal(t, 16*time.Hour, h.Redis.TTL("session:"+sid), "key outlives the logical lifetime")

	// Both clocks move: the key is still present when the session expires.
	h.Clock.Advance(8*time.Hour + time.Second)
	h.Redis.FastForward(8*time.Hour + time.Second)

	next := followUp(c)
	sess, err := h.Manager.Authenticate(ctx, next)
	require.NoError(t, err)
	assert.Nil(t, sess, "remember-me must not revive an expired session")
	assert.Zero(t, h.Remember.Len())
	assert.False(t, h.Redis.Exists("session:"+sid))
	assert.Empty(t, next.RememberToken)
	assert.Equal(t, -1, cookieNamed(next, auth.RememberCookieName).MaxAge)
}

func TestIsAuthenticated_UnknownIDNotAdopted(t *testing.T) {
	h := newHarness(t)
	c := newTestClient()
	c.SessionID = "attacker-chosen"

	ok, err := h.Manager.IsAuthenticated(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, c.SessionID)
	assert.Equal(t, -1, cookieNamed(c, auth.SessionCookieName).MaxAge)
}

func TestRedeemRememberMe_UnverifiedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "unverified@example.com", false)

	issuer := newTestClient()
	require.NoError(t, h.Manager.IssueRememberMe(ctx, issuer, u.ID))

	c := newTestClient()
	sess, err := h.Manager.RedeemRememberMe(ctx, c, issuer.RememberToken)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, c.SessionID)
	assert.Nil(t, cookieNamed(c, auth.SessionCookieName))
	assert.Equal(t, -1, cookieNamed(c, auth.RememberCookieName).MaxAge)
}

func TestRedeemRememberMe_VerifiedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "verified@example.com", true)

	issuer := newTestClient()
	require.NoError(t, h.Manager.IssueRememberMe(ctx, issuer, u.ID))
	token := issuer.RememberToken

	ck := cookieNamed(issuer, auth.RememberCookieName)
	require.NotNil(t, ck)
	assert.Len(t, ck.Value, 64)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), ck.MaxAge)

	for i := 0; i < 2; i++ {
		c := newTestClient()
		c.RememberToken = token
		sess, err := h.Manager.Authenticate(ctx, c)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, u.ID, sess.UserID)
		assert.NotEmpty(t, c.SessionID)
		assert.Equal(t, token, c.RememberToken, "token is not rotated")
		assert.Nil(t, cookieNamed(c, auth.RememberCookieName))
	}
}

func TestRedeemRememberMe_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	inactive := h.user(t, "inactive@example.com", true)
	h.Users.Mutate(inactive.ID, func(u *auth.User) { u.IsActive = false })
	c := newTestClient()
	require.NoError(t, h.Manager.IssueRememberMe(ctx, c, inactive.ID))
	sess, err := h.Manager.RedeemRememberMe(ctx, newTestClient(), c.RememberToken)
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = h.Manager.RedeemRememberMe(ctx, newTestClient(), "unknown-token")
	require.NoError(t, err)
	assert.Nil(t, sess)

	active := h.user(t, "expiring@example.com", true)
	c = newTestClient()
	require.NoError(t, h.Manager.IssueRememberMe(ctx, c, active.ID))
	h.Clock.Advance(31 * 24 * time.Hour)
	sess, err = h.Manager.RedeemRememberMe(ctx, newTestClient(), c.RememberToken)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestTerminate_Idempotent(t *testing.T) {
	h := newHarness(t)
	c := newTestClient()
	assert.NoError(t, h.Manager.Terminate(context.Background(), c))
	assert.NoError(t, h.Manager.Terminate(context.Background(), c))
}

func TestTerminate_ReportsStorageErrorButClears(t *testing.T) {
	h := newHarness(t)
	h.Remember.SetErr(errStorage)

	c := newTestClient()
	c.RememberToken = "tok"
	c.SessionID = "sid"
	err := h.Manager.Terminate(context.Background(), c)
	assert.ErrorIs(t, err, errStorage)
	assert.Empty(t, c.RememberToken)
	assert.Empty(t, c.SessionID)
}

func TestSweepExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "sweep@example.com", true)

	require.NoError(t, h.Manager.IssueRememberMe(ctx, newTestClient(), u.ID))
	h.Limiter.Record(ctx, "sweep@example.com", "198.51.100.1", false)
	h.svc.RequestPasswordReset(ctx, "sweep@example.com")

	h.Clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, h.Manager.IssueRememberMe(ctx, newTestClient(), u.ID))
	h.Limiter.Record(ctx, "sweep@example.com", "198.51.100.1", false)

	report := h.Manager.SweepExpired(ctx)
	assert.Equal(t, int64(1), report.RememberTokens)
	assert.Equal(t, int64(1), report.LoginAttempts)
	assert.Equal(t, int64(2), report.UserTokens, "verification and reset token")
	assert.Zero(t, report.Failures)
	assert.Equal(t, 1, h.Remember.Len())
	assert.Len(t, h.Attempts.All(), 1)
}

func TestSweepExpired_NeverFails(t *testing.T) {
	h := newHarness(t)
	h.Remember.SetErr(errStorage)
	h.Attempts.SetErr(errStorage)
	h.Users.SetErr(errStorage)

	report := h.Manager.SweepExpired(context.Background())
	assert.Equal(t, 3, report.Failures)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Manager.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedisSessionStore_DeleteByUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, s := range []auth.Session{
		{ID: "a", UserID: "u1", LoginTime: h.Clock.Now()},
		{ID: "b", UserID: "u1", LoginTime: h.Clock.Now()},
		{ID: "c", UserID: "u2", LoginTime: h.Clock.Now()},
	} {
		require.NoError(t, h.Sessions.Create(ctx, s))
	}

	require.NoError(t, h.Sessions.DeleteByUser(ctx, "u1"))
	assert.False(t, h.Redis.Exists("session:a"))
	assert.False(t, h.Redis.Exists("session:b"))
	assert.True(t, h.Redis.Exists("session:c"))
	assert.Equal(t, 8*time.Hour, h.Redis.TTL("session:c"))
}
