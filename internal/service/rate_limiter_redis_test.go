package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedRedis simula el script de ventana fija: cuenta hits por clave y
// responde un PTTL fijo.
type scriptedRedis struct {
	hits  map[string]int64
	pttl  int64
	err   error
	reply []interface{}
	keys  []string
	args  []interface{}
}

func (s *scriptedRedis) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys = keys
	s.args = args
	cmd := redis.NewCmd(ctx)
	switch {
	case s.err != nil:
		cmd.SetErr(s.err)
	case s.reply != nil:
		cmd.SetVal(s.reply)
	default:
		if s.hits == nil {
			s.hits = make(map[string]int64)
		}
		s.hits[keys[0]]++
		cmd.SetVal([]interface{}{s.hits[keys[0]], s.pttl})
	}
	return cmd
}

func TestRedisRateLimiter_NamespacesKeys(t *testing.T) {
	store := &scriptedRedis{pttl: 30_000}
	login := newRedisRateLimiter(store, nil, "login", time.Minute, 1)
	analyze := newRedisRateLimiter(store, nil, "analyze", time.Minute, 1)

	if ok, _ := login.Allow(context.Background(), " 10.0.0.7 "); !ok {
		t.Fatalf("expected first login allowed")
	}
	if store.keys[0] != "rl:login:10.0.0.7" {
		t.Fatalf("unexpected redis key %q", store.keys[0])
	}
	if store.args[0] != int64(60_000) {
		t.Fatalf("expected window in milliseconds, got %v", store.args[0])
	}

	if ok, _ := analyze.Allow(context.Background(), "10.0.0.7"); !ok {
		t.Fatalf("analyze counter must not share the login window")
	}
	if store.keys[0] != "rl:analyze:10.0.0.7" {
		t.Fatalf("unexpected redis key %q", store.keys[0])
	}
}

func TestRedisRateLimiter_DeniesWithRemainingTTL(t *testing.T) {
	store := &scriptedRedis{pttl: 42_500}
	l := newRedisRateLimiter(store, nil, "analyze", time.Minute, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(context.Background(), "u1"); !ok {
			t.Fatalf("hit %d: expected allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow(context.Background(), "u1")
	if ok {
		t.Fatalf("expected third hit denied")
	}
	if retryAfter != 42500*time.Millisecond {
		t.Fatalf("expected retry after 42.5s, got %v", retryAfter)
	}
}

func TestRedisRateLimiter_MissingTTLFallsBackToWindow(t *testing.T) {
	store := &scriptedRedis{reply: []interface{}{int64(5), int64(-1)}}
	l := newRedisRateLimiter(store, nil, "login", 2*time.Minute, 1)

	ok, retryAfter := l.Allow(context.Background(), "10.0.0.7")
	if ok || retryAfter != 2*time.Minute {
		t.Fatalf("expected deny with full window, got ok=%v retry=%v", ok, retryAfter)
	}
}

func TestRedisRateLimiter_FailsOpenAndLogs(t *testing.T) {
	for name, store := range map[string]*scriptedRedis{
		"redis error":     {err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")},
		"malformed reply": {reply: []interface{}{int64(1)}},
	} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			l := newRedisRateLimiter(store, zap.New(core), "login", time.Minute, 1)

			if ok, _ := l.Allow(context.Background(), "10.0.0.7"); !ok {
				t.Fatalf("expected request allowed when redis fails")
			}
			entries := logs.FilterMessage("rate limit check failed, allowing request").All()
			if len(entries) != 1 {
				t.Fatalf("expected one error log, got %d", logs.Len())
			}
			if entries[0].ContextMap()["key"] != "rl:login:10.0.0.7" {
				t.Fatalf("expected key in log context, got %v", entries[0].ContextMap())
			}
		})
	}
}

func TestRedisRateLimiter_RejectsEmptyKey(t *testing.T) {
	store := &scriptedRedis{}
	l := newRedisRateLimiter(store, nil, "analyze", time.Minute, 3)
	if ok, _ := l.Allow(context.Background(), "   "); ok {
		t.Fatalf("expected empty key rejected")
	}
	if store.keys != nil {
		t.Fatalf("empty key must not reach redis")
	}
}

func TestNewRedisRateLimiter_NilClient(t *testing.T) {
	if l := NewRedisRateLimiter(nil, zap.NewNop(), "login", time.Minute, 3); l != nil {
		t.Fatalf("expected nil limiter without client")
	}
}
