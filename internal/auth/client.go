package auth

import "net/http"

// Client is the request-scoped view of one caller: the cookies it presented
// and the cookies the response must carry back.
type Client struct {
	SessionID     string
	RememberToken string
	IP            string
	UserAgent     string
	Secure        bool

	cookies []*http.Cookie
}

// NewClient reads the auth cookies off r. ip is resolved by the caller.
func NewClient(r *http.Request, ip string) *Client {
	c := &Client{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Secure:    r.TLS != nil,
	}
	if ck, err := r.Cookie(SessionCookieName); err == nil {
		c.SessionID = ck.Value
	}
	if ck, err := r.Cookie(RememberCookieName); err == nil {
		c.RememberToken = ck.Value
	}
	return c
}

// Cookies returns the pending Set-Cookie values in the order they were set.
func (c *Client) Cookies() []*http.Cookie {
	return c.cookies
}

// WriteCookies flushes pending cookies to w.
func (c *Client) WriteCookies(w http.ResponseWriter) {
	for _, ck := range c.cookies {
		http.SetCookie(w, ck)
	}
}

func (c *Client) setCookie(ck *http.Cookie) {
	// Later writes for the same name replace earlier ones.
	for i, existing := range c.cookies {
		if existing.Name == ck.Name {
			c.cookies[i] = ck
			return
		}
	}
	c.cookies = append(c.cookies, ck)
}
