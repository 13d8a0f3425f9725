// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "barbershop"

var (
	// Registry содержит коллекторы сервиса.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	appointments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "appointments_total",
			Help:      "Appointment lifecycle operations by outcome.",
		},
		[]string{"operation", "result"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_posted_total",
			Help:      "Ledger entries posted, by kind and origin.",
		},
		[]string{"kind", "origin"},
	)

	outboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events handled by the publisher.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		appointments,
		ledgerEntries,
		outboxPublished,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPRequestStarted увеличивает число обрабатываемых запросов и возвращает функцию завершения.
func HTTPRequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest учитывает завершённый HTTP-запрос.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAppointment учитывает операцию над записью: book, complete или cancel.
func RecordAppointment(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	appointments.WithLabelValues(operation, result).Inc()
}

// RecordLedgerEntry учитывает созданную операцию по кассе.
func RecordLedgerEntry(kind, origin string) {
	ledgerEntries.WithLabelValues(kind, origin).Inc()
}

// RecordOutbox учитывает отправку событий outbox.
func RecordOutbox(n int, err error) {
	if err != nil {
		outboxPublished.WithLabelValues("error").Add(float64(n))
		return
	}
	outboxPublished.WithLabelValues("published").Add(float64(n))
}
