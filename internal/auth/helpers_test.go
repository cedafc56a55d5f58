package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"mediloop/internal/auth"
	"mediloop/internal/auth/authtest"
)

const testPassword = "Sunflower42"

var errStorage = errors.New("storage down")

type harness struct {
	*authtest.Stack
	svc *auth.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := authtest.NewStack(t)
	return &harness{Stack: st, svc: st.Service}
}

func (h *harness) register(t *testing.T, email string) string {
	t.Helper()
	res := h.svc.Register(context.Background(), auth.RegisterInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     email,
		Password:  testPassword,
		UserType:  "donor",
	})
	if res.Outcome != auth.OutcomeCreated {
		t.Fatalf("register %s: %v %q", email, res.Outcome, res.Message)
	}
	return res.UserID
}

func (h *harness) verify(userID string) {
	h.Users.Mutate(userID, func(u *auth.User) { u.EmailVerified = true })
}

func (h *harness) user(t *testing.T, email string, verified bool) *auth.User {
	t.Helper()
	id := h.register(t, email)
	if verified {
		h.verify(id)
	}
	u, err := h.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func newTestClient() *auth.Client {
	return &auth.Client{IP: "203.0.113.7", UserAgent: "test-agent"}
}

// followUp carries the cookies a browser would keep after c's response.
func followUp(c *auth.Client) *auth.Client {
	next := newTestClient()
	next.SessionID = c.SessionID
	next.RememberToken = c.RememberToken
	return next
}

func cookieNamed(c *auth.Client, name string) *http.Cookie {
	for _, ck := range c.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}
