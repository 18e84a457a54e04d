package genstore

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return rdb
}

func TestRedisBumpAndSnapshot(t *testing.T) {
	ctx := context.Background()
	ns := "test:" + strconv.FormatInt(time.Now().UnixNano(), 36)
	s := NewRedis(redisClient(t), ns, time.Minute)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if g, err := s.Snapshot(ctx, "post:1"); err != nil || g != 0 {
		t.Fatalf("missing gen: g=%d err=%v", g, err)
	}
	if g, err := s.Bump(ctx, "post:1"); err != nil || g != 1 {
		t.Fatalf("bump: g=%d err=%v", g, err)
	}
	got, err := s.SnapshotMany(ctx, []string{"post:1", "post:2"})
	if err != nil {
		t.Fatal(err)
	}
	if got["post:1"] != 1 || got["post:2"] != 0 {
		t.Fatalf("got=%v", got)
	}
}

func TestParseGenRejectsGarbage(t *testing.T) {
	if _, err := parseGen("k", "abc"); err == nil {
		t.Fatal("expected parse error")
	}
	if g, err := parseGen("k", "17"); err != nil || g != 17 {
		t.Fatalf("g=%d err=%v", g, err)
	}
}
