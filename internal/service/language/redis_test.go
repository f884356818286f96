package language

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fakeRedis implements the two commands the mirror uses; any other call
// panics on the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	getErr error
	ttl    time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestRedisMirror_SaveLoad(t *testing.T) {
	rdb := newFakeRedis()
	m := NewRedisMirror(rdb, "")
	ctx := context.Background()

	if _, found, err := m.Load(ctx); err != nil || found {
		t.Fatalf("expected empty mirror, got found=%v err=%v", found, err)
	}

	if err := m.Save(ctx, "mai"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if rdb.data[DefaultRedisKey] != "mai" {
		t.Errorf("expected value under default key, got %v", rdb.data)
	}
	if rdb.ttl != 0 {
		t.Errorf("expected no expiry, got %v", rdb.ttl)
	}

	lang, found, err := m.Load(ctx)
	if err != nil || !found || lang != "mai" {
		t.Errorf("expected mai, got %q found=%v err=%v", lang, found, err)
	}
}

func TestRedisMirror_LoadError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("connection refused")
	m := NewRedisMirror(rdb, "custom")

	if _, found, err := m.Load(context.Background()); err == nil || found {
		t.Errorf("expected error and not found, got found=%v err=%v", found, err)
	}
}

func TestStore_MirrorsToRedis(t *testing.T) {
	rdb := newFakeRedis()
	s, err := NewStore("hi", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.SetMirror(NewRedisMirror(rdb, "k"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	if _, err := s.Set(ctx, "ne"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if rdb.data["k"] != "ne" {
		t.Errorf("expected ne mirrored, got %v", rdb.data)
	}
}
