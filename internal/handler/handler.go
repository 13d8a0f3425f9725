// Package handler содержит HTTP-обработчики API учёта записей и кассы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/middleware"
	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	AddClient(ctx context.Context, partitionID int64, name, contact string) (int64, error)
	UpdateClient(ctx context.Context, partitionID int64, c model.Client) error
	RemoveClient(ctx context.Context, partitionID, id int64) error
	ListClients(ctx context.Context, partitionID int64) ([]model.Client, error)

	AddService(ctx context.Context, partitionID int64, name string, priceCents int64) (int64, error)
	UpdateService(ctx context.Context, partitionID int64, s model.Service) error
	RemoveService(ctx context.Context, partitionID, id int64) error
	ListServices(ctx context.Context, partitionID int64) ([]model.Service, error)

	PostEntry(ctx context.Context, partitionID int64, e model.LedgerEntry) (int64, error)
	RemoveEntry(ctx context.Context, partitionID, id int64) error
	ListEntries(ctx context.Context, partitionID int64, newestFirst bool) ([]model.LedgerEntry, error)
	Balance(ctx context.Context, partitionID int64) (model.Balance, error)

	Book(ctx context.Context, partitionID int64, clientID, serviceID int64, date time.Time, at string) (int64, error)
	Complete(ctx context.Context, partitionID, id int64) (int64, error)
	Cancel(ctx context.Context, partitionID, id int64) error
	GetAppointment(ctx context.Context, partitionID, id int64) (*model.Appointment, error)
	ListPending(ctx context.Context, partitionID int64) ([]model.PendingAppointment, error)
	ListPendingOn(ctx context.Context, partitionID int64, date time.Time) ([]model.PendingAppointment, error)

	Dashboard(ctx context.Context, partitionID int64) (*model.Dashboard, error)
}

// Resolver проверяет ключ и пароль раздела.
type Resolver interface {
	Resolve(ctx context.Context, key, credential string) (*model.Partition, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	resolver       Resolver
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	loginLimiter   *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. loginLimiter может быть nil.
func NewHandler(s Service, resolver Resolver, logger *zap.Logger, auth *middleware.AuthMiddleware, loginLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:        s,
		resolver:       resolver,
		logger:         logger,
		authMiddleware: auth,
		loginLimiter:   loginLimiter,
	}
}

func (h *Handler) partitionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetPartitionIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

// writeError отображает доменную ошибку в HTTP-статус. Неожиданные ошибки пишутся в журнал.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrAuthentication):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type idResponse struct {
	ID int64 `json:"id"`
}

type sessionRequest struct {
	Tenant   string `json:"tenant"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Tenant string `json:"tenant"`
	Label  string `json:"label"`
}

// Login открывает сессию раздела и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Tenant == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.resolver.Resolve(r.Context(), req.Tenant, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrAuthentication) {
			h.logger.Info("login rejected", zap.String("tenant", req.Tenant))
		}
		h.writeError(w, err, "resolve tenant error", zap.String("tenant", req.Tenant))
		return
	}

	h.authMiddleware.SetSessionCookie(w, p.ID)
	h.writeJSON(w, http.StatusOK, sessionResponse{Tenant: p.Key, Label: p.Label})
}

// Logout закрывает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Healthz сообщает, что процесс жив.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// Readyz проверяет доступность хранилища.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ready"))
}
