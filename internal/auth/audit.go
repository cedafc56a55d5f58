package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	AuditRegister       = "register"
	AuditLogin          = "login"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
	AuditEmailVerified  = "email_verified"
	AuditResetRequested = "password_reset_requested"
	AuditPasswordReset  = "password_reset"
)

type AuditEvent struct {
	EventType string                 `json:"eventType"`
	UserID    string                 `json:"userId,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"userAgent,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

type AuditSink interface {
	Log(ctx context.Context, e AuditEvent) error
}

// AuditLogger appends events to capped redis lists: "audit" for every event
// and "audit:<userId>" per user.
type AuditLogger struct {
	Redis  *redis.Client
	MaxLen int64
	Now    func() time.Time
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	if a.Now != nil {
		e.Timestamp = a.Now().UTC()
	} else {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	keys := []string{"audit"}
	if e.UserID != "" {
		keys = append(keys, "audit:"+e.UserID)
	}

	pipe := a.Redis.Pipeline()
	for _, key := range keys {
		pipe.RPush(ctx, key, data)
		if a.MaxLen > 0 {
			pipe.LTrim(ctx, key, -a.MaxLen, -1)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Recent returns up to n events from the global list, newest last.
func (a *AuditLogger) Recent(ctx context.Context, n int64) ([]AuditEvent, error) {
	raw, err := a.Redis.LRange(ctx, "audit", -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit events: %w", err)
	}
	events := make([]AuditEvent, 0, len(raw))
	for _, item := range raw {
		var e AuditEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
