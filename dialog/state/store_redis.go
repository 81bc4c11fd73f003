package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "dialogue:session:"

type RedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true"`
}

// RedisStore persists sessions as JSON values with a TTL. Stale sessions
// expire natively, so it does not implement StaleLister.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: ping redis: %v", ErrStoreUnavailable, err)
	}

	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	return &RedisStore{client: client, ttl: cfg.TTL, keyPrefix: prefix}, nil
}

func (r *RedisStore) key(userID string) string {
	return r.keyPrefix + userID
}

func (r *RedisStore) Load(ctx context.Context, userID string) (*SessionState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	raw, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", ErrStoreUnavailable, err)
	}

	var st SessionState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrStoreUnavailable, err)
	}
	st.EnsureMaps()
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%w: stored session invalid: %v", ErrStoreUnavailable, err)
	}
	return &st, nil
}

func (r *RedisStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(st.UserID) == "" {
		return ErrInvalidUser
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(st.UserID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set session: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: del session: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
