package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter ограничивает число запросов с одного адреса в фиксированном окне.
// Счётчики хранятся в Redis и общие для всех экземпляров сервиса.
type RateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger

	trustForwarded bool
}

// NewRateLimiter создаёт ограничитель. rdb == nil отключает ограничение.
func NewRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string, logger *zap.Logger) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &RateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, logger: logger}
}

// TrustForwardedFor включает чтение адреса клиента из X-Forwarded-For.
// Включать только за доверенным прокси, который перезаписывает заголовок.
func (rl *RateLimiter) TrustForwardedFor(trust bool) *RateLimiter {
	rl.trustForwarded = trust
	return rl
}

// Middleware отвечает 429, если лимит исчерпан. При недоступности Redis запрос пропускается.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.rdb == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := rl.incr(r.Context(), rl.prefix+":"+clientIP(r, rl.trustForwarded))
		if err != nil {
			rl.logger.Warn("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if count > int64(rl.limit) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			http.Error(w, "too many login attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) incr(ctx context.Context, key string) (int64, error) {
	n, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("run rate limit script: %w", err)
	}
	return n, nil
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
