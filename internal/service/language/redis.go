package language

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey stores the shared language.
const DefaultRedisKey = "indic-asr:language"

// NewRedisClient accepts either host:port or a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisMirror keeps the shared language in a Redis key so a restarted
// process resumes with the last selection.
type RedisMirror struct {
	rdb redis.Cmdable
	key string
}

// NewRedisMirror creates a mirror writing to key.
func NewRedisMirror(rdb redis.Cmdable, key string) *RedisMirror {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisMirror{rdb: rdb, key: key}
}

// Save implements Mirror.
func (m *RedisMirror) Save(ctx context.Context, lang string) error {
	return m.rdb.Set(ctx, m.key, lang, 0).Err()
}

// Load returns the stored language, if any.
func (m *RedisMirror) Load(ctx context.Context) (string, bool, error) {
	v, err := m.rdb.Get(ctx, m.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
