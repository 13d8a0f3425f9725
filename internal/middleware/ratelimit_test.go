package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubScripter struct {
	redis.Scripter
	counts map[string]int64
	err    error
}

func (s *stubScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	s.counts[keys[0]]++
	cmd.SetVal(s.counts[keys[0]])
	return cmd
}

func TestRateLimiter(t *testing.T) {
	rdb := &stubScripter{counts: map[string]int64{}}
	rl := NewRateLimiter(rdb, 2, time.Minute, "login", zap.NewNop())
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(3), rdb.counts["login:10.0.0.1"])

	r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	r.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := &stubScripter{err: errors.New("connection refused")}
	rl := NewRateLimiter(rdb, 1, time.Minute, "login", zap.NewNop())

	called := false
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/session", nil))

	assert.True(t, called)
}

func TestRateLimiterDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	var rl *RateLimiter
	assert.NotNil(t, rl.Middleware(next))

	rl = NewRateLimiter(nil, 1, time.Minute, "", zap.NewNop())
	assert.NotNil(t, rl.Middleware(next))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:1234"
	assert.Equal(t, "192.168.1.5", clientIP(r, false))
	assert.Equal(t, "192.168.1.5", clientIP(r, true))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "192.168.1.5", clientIP(r, false))
	assert.Equal(t, "203.0.113.7", clientIP(r, true))
}

func TestRateLimiterIgnoresForwardedForByDefault(t *testing.T) {
	rdb := &stubScripter{counts: map[string]int64{}}
	rl := NewRateLimiter(rdb, 1, time.Minute, "login", zap.NewNop())
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for _, fwd := range []string{"203.0.113.1", "203.0.113.2"} {
		r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		r.Header.Set("X-Forwarded-For", fwd)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, int64(2), rdb.counts["login:10.0.0.1"])
}

func TestRateLimiterTrustedProxy(t *testing.T) {
	rdb := &stubScripter{counts: map[string]int64{}}
	rl := NewRateLimiter(rdb, 1, time.Minute, "login", zap.NewNop()).TrustForwardedFor(true)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, fwd := range []string{"203.0.113.1", "203.0.113.2"} {
		r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		r.Header.Set("X-Forwarded-For", fwd)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
	assert.Equal(t, int64(1), rdb.counts["login:203.0.113.1"])
	assert.Equal(t, int64(1), rdb.counts["login:203.0.113.2"])
}
