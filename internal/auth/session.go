package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	keyTTLFactor     = 2
)

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	UserType  UserType  `json:"userType"`
	LoginTime time.Time `json:"loginTime"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

// RedisSessionStore keeps one hash per session. TTL is the logical session
// lifetime; expiry is judged from LoginTime by the manager. Keys live for
// keyTTLFactor times TTL so an expired session is still found and
// terminated, remember-me token included, before Redis drops it.
type RedisSessionStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Redis: client, TTL: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, sess Session) error {
	key := sessionKeyPrefix + sess.ID

	data := map[string]interface{}{
		"userId":    sess.UserID,
		"email":     sess.Email,
		"name":      sess.Name,
		"userType":  string(sess.UserType),
		"loginTime": sess.LoginTime.Unix(),
		"ip":        sess.IP,
		"userAgent": sess.UserAgent,
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	pipe := s.Redis.TxPipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, keyTTLFactor*ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns nil, nil when the session does not exist.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	vals, err := s.Redis.HGetAll(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	loginUnix, _ := strconv.ParseInt(vals["loginTime"], 10, 64)
	return &Session{
		ID:        id,
		UserID:    vals["userId"],
		Email:     vals["email"],
		Name:      vals["name"],
		UserType:  UserType(vals["userType"]),
		LoginTime: time.Unix(loginUnix, 0),
		IP:        vals["ip"],
		UserAgent: vals["userAgent"],
	}, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.Redis.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteByUser(ctx context.Context, userID string) error {
	var keys []string
	iter := s.Redis.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		owner, err := s.Redis.HGet(ctx, iter.Val(), "userId").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("scan sessions: %w", err)
		}
		if owner == userID {
			keys = append(keys, iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
