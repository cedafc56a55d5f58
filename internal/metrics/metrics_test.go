package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *Recorder) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Login("success")
	r.Login("success")
	r.Login("invalid_credentials")
	r.SweepRemoved("remember_tokens", 3)
	r.SweepRemoved("login_attempts", 0)
	r.Donation("stored")

	code, body := scrape(t, r)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `mediloop_login_total{outcome="success"} 2`)
	assert.Contains(t, body, `mediloop_login_total{outcome="invalid_credentials"} 1`)
	assert.Contains(t, body, `mediloop_sweep_removed_total{kind="remember_tokens"} 3`)
	assert.NotContains(t, body, `kind="login_attempts"`)
	assert.Contains(t, body, `mediloop_donation_total{outcome="stored"} 1`)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Login("success")
		r.Registration("created")
		r.Session("established")
		r.SweepRemoved("x", 1)
		r.SweepFailed()
		r.Donation("stored")
	})

	code, _ := scrape(t, r)
	assert.Equal(t, http.StatusNotFound, code)
}
