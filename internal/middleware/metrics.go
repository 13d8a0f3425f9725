package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/barbershop-ledger/internal/metrics"
)

// Instrument учитывает запросы в Prometheus. Маршрут берётся из шаблона chi.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := metrics.HTTPRequestStarted()
		defer done()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, route, rec.statusCode(), time.Since(start))
	})
}
