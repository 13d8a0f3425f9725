package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sessionCookie(t *testing.T, m *AuthMiddleware, partitionID int64) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	m.SetSessionCookie(w, partitionID)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetSessionCookie")
	}
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetPartitionIDFromContext(r.Context())
		if !ok {
			t.Fatalf("partition id not in context")
		}
		if id != 42 {
			t.Fatalf("partition id from context = %d, want 42", id)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(sessionCookie(t, m, 42))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	expired := NewAuthMiddleware("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * sessionTTL) }

	tampered := sessionCookie(t, m, 1)
	tampered.Value = "2" + tampered.Value[1:]

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: &http.Cookie{Name: sessionCookieName, Value: "nonsense"}},
		{name: "foreign signature", cookie: sessionCookie(t, other, 1)},
		{name: "expired", cookie: sessionCookie(t, expired, 1)},
		{name: "tampered partition", cookie: tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestClearSessionCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	w := httptest.NewRecorder()
	m.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cookies)
	}
}
