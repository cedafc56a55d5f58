package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBool(t *testing.T) {
	cases := map[string]bool{
		`true`:    true,
		`"true"`:  true,
		`"on"`:    true,
		`1`:       true,
		`"1"`:     true,
		`false`:   false,
		`"off"`:   false,
		`0`:       false,
		`null`:    false,
		`"maybe"`: false,
	}
	for raw, want := range cases {
		var got struct {
			V flexBool `json:"v"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"v":`+raw+`}`), &got), raw)
		assert.Equal(t, want, bool(got.V), raw)
	}
}

func TestClientIP(t *testing.T) {
	proxies := parseProxyCIDRs([]string{"10.0.0.0/8", "192.168.1.5", "garbage"})
	require.Len(t, proxies, 2)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4242"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.9", clientIP(r, proxies))

	r.RemoteAddr = "10.1.2.3:4242"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.1.2.3")
	assert.Equal(t, "198.51.100.1", clientIP(r, proxies))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(r, proxies))

	r.RemoteAddr = "192.168.1.5:80"
	assert.Equal(t, "198.51.100.2", clientIP(r, proxies))
}

func TestIsTLS(t *testing.T) {
	proxies := parseProxyCIDRs([]string{"10.0.0.0/8"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4242"
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.False(t, isTLS(r, proxies))

	r.RemoteAddr = "10.0.0.7:4242"
	assert.True(t, isTLS(r, proxies))

	r.Header.Set("X-Forwarded-Proto", "http")
	assert.False(t, isTLS(r, proxies))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	decode := func(body string) (payload, error) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := decodeJSON(httptest.NewRecorder(), r, &p)
		return p, err
	}

	p, err := decode(`{"email":"a@b.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", p.Email)

	_, err = decode(`{"email":"a@b.com"} {"email":"c@d.com"}`)
	assert.Error(t, err)

	_, err = decode(`{"email":"a@b.com","admin":true}`)
	assert.Error(t, err)

	_, err = decode(`{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`)
	assert.Error(t, err)
}
