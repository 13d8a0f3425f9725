// Package middleware содержит HTTP middleware сервиса: сессию раздела, сжатие,
// журнал запросов, идентификаторы запросов, метрики и ограничение частоты входа.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const partitionIDKey contextKey = "partitionID"

const (
	sessionCookieName = "barbershop_session"
	sessionTTL        = 12 * time.Hour
)

// AuthMiddleware проверяет подписанный cookie сессии раздела.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт AuthMiddleware. Пустой секрет заменяется случайным ключом,
// и сессии не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware проверяет cookie сессии и добавляет идентификатор раздела в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		partitionID, ok := a.parseToken(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPartitionID(r.Context(), partitionID)))
	})
}

// SetSessionCookie выдаёт cookie сессии для раздела.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, partitionID int64) {
	expires := a.now().Add(sessionTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.token(partitionID, expires),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// token имеет вид "<partitionID>.<unix expiry>.<hex hmac>".
func (a *AuthMiddleware) token(partitionID int64, expires time.Time) string {
	payload := strconv.FormatInt(partitionID, 10) + "." + strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + a.sign(payload)
}

func (a *AuthMiddleware) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseToken(value string) (int64, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(a.sign(payload))) {
		return 0, false
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Unix() >= expires {
		return 0, false
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// WithPartitionID возвращает контекст с идентификатором раздела.
func WithPartitionID(ctx context.Context, partitionID int64) context.Context {
	return context.WithValue(ctx, partitionIDKey, partitionID)
}

// GetPartitionIDFromContext извлекает идентификатор раздела из контекста запроса.
func GetPartitionIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(partitionIDKey).(int64)
	return id, ok
}
