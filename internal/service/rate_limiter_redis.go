package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ventana fija: el primer hit crea la clave con PEXPIRE y cada hit devuelve
// el contador junto con el PTTL restante.
const fixedWindowScript = `
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`

const redisCallTimeout = 500 * time.Millisecond

type scriptRunner interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisRateLimiter struct {
	client    scriptRunner
	logger    *zap.Logger
	namespace string
	window    time.Duration
	max       int
}

// NewRedisRateLimiter crea un limiter compartido entre instancias. Las claves
// quedan bajo "rl:<namespace>:", asi login y analyze no comparten contadores.
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger, namespace string, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	return newRedisRateLimiter(client, logger, namespace, window, max)
}

func newRedisRateLimiter(client scriptRunner, logger *zap.Logger, namespace string, window time.Duration, max int) *redisRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRateLimiter{
		client:    client,
		logger:    logger,
		namespace: "rl:" + normalizeKey(namespace) + ":",
		window:    window,
		max:       max,
	}
}

// Allow falla abierto si Redis no responde; el error queda en el log.
func (l *redisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	key = normalizeKey(key)
	if key == "" {
		return false, l.window
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	redisKey := l.namespace + key
	reply, err := l.client.Eval(ctx, fixedWindowScript, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err == nil && len(reply) != 2 {
		err = errors.New("unexpected rate limit script reply")
	}
	if err != nil {
		l.logger.Error("rate limit check failed, allowing request",
			zap.String("key", redisKey),
			zap.Error(err),
		)
		return true, 0
	}

	hits, ttl := reply[0], time.Duration(reply[1])*time.Millisecond
	if hits <= int64(l.max) {
		return true, 0
	}
	if ttl <= 0 {
		ttl = l.window
	}
	return false, ttl
}
