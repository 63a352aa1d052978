package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

type redisRecord struct {
	Values  map[string]string `json:"values"`
	Flashes []string          `json:"flashes,omitempty"`
}

// RedisStore keeps session data in Redis under an opaque id; the cookie
// only carries the id.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration, secure bool) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, secure: secure}
}

func (rs *RedisStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return New(), nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return New(), nil
	}

	data, err := rs.client.Get(r.Context(), redisKeyPrefix+cookie.Value).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record redisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return New(), nil
	}

	s := New()
	s.ID = cookie.Value
	for k, v := range record.Values {
		s.Values[k] = v
	}
	s.Flashes = record.Flashes
	return s, nil
}

func (rs *RedisStore) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if old := s.PreviousID(); old != "" {
		if err := rs.client.Del(r.Context(), redisKeyPrefix+old).Err(); err != nil {
			return fmt.Errorf("failed to drop renewed session: %w", err)
		}
		s.previousID = ""
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	data, err := json.Marshal(redisRecord{Values: s.Values, Flashes: s.Flashes})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := rs.client.Set(r.Context(), redisKeyPrefix+s.ID, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	setCookie(w, s.ID, rs.ttl, rs.secure)
	s.changed = false
	return nil
}
