package authtest

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"mediloop/internal/auth"
	"mediloop/internal/logging"
)

// Stack is a fully wired auth.Service over in-memory stores and miniredis.
type Stack struct {
	Clock    *Clock
	Users    *Users
	Remember *RememberTokens
	Attempts *Attempts
	Mailer   *Mailer
	Redis    *miniredis.Miniredis
	Sessions *auth.RedisSessionStore
	Limiter  *auth.RateLimiter
	Manager  *auth.SessionManager
	Audit    *auth.AuditLogger
	Service  *auth.Service
}

func NewStack(t testing.TB) *Stack {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logging.Discard()
	clock := NewClock()
	st := &Stack{
		Clock:    clock,
		Users:    NewUsers(clock),
		Remember: NewRememberTokens(),
		Attempts: &Attempts{},
		Mailer:   &Mailer{},
		Redis:    mr,
		Sessions: auth.NewRedisSessionStore(rdb, 8*time.Hour),
	}
	st.Limiter = auth.NewRateLimiter(st.Attempts, log)
	st.Limiter.Now = clock.Now
	st.Manager = &auth.SessionManager{
		Sessions: st.Sessions,
		Remember: st.Remember,
		Users:    st.Users,
		Limiter:  st.Limiter,
		Logger:   log,
		Now:      clock.Now,
	}
	st.Audit = &auth.AuditLogger{Redis: rdb, MaxLen: 100, Now: clock.Now}
	st.Service = &auth.Service{
		Users:    st.Users,
		Sessions: st.Manager,
		Limiter:  st.Limiter,
		Hasher:   &auth.BcryptHasher{Cost: bcrypt.MinCost},
		Mailer:   st.Mailer,
		Audit:    st.Audit,
		Logger:   log,
		Now:      clock.Now,
		BaseURL:  "https://mediloop.test",
	}
	return st
}
