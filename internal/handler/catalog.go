package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

type clientRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type clientResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type serviceRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type serviceResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// GetClients возвращает клиентов раздела.
func (h *Handler) GetClients(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	clients, err := h.service.ListClients(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "list clients error", zap.Int64("partitionID", pid))
		return
	}

	if len(clients) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, clientResponse{ID: c.ID, Name: c.Name, Contact: c.Contact})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateClient регистрирует клиента.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.service.AddClient(r.Context(), pid, req.Name, req.Contact)
	if err != nil {
		h.writeError(w, err, "add client error", zap.Int64("partitionID", pid))
		return
	}
	h.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateClient изменяет клиента.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req clientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.UpdateClient(r.Context(), pid, model.Client{ID: id, Name: req.Name, Contact: req.Contact})
	if err != nil {
		h.writeError(w, err, "update client error", zap.Int64("partitionID", pid), zap.Int64("clientID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteClient удаляет клиента.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveClient(r.Context(), pid, id); err != nil {
		h.writeError(w, err, "remove client error", zap.Int64("partitionID", pid), zap.Int64("clientID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetServices возвращает прайс-лист раздела.
func (h *Handler) GetServices(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	services, err := h.service.ListServices(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "list services error", zap.Int64("partitionID", pid))
		return
	}

	if len(services) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		resp = append(resp, serviceResponse{ID: s.ID, Name: s.Name, Price: model.FormatCents(s.PriceCents)})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateService добавляет услугу.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var req serviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	price, err := model.ParseCents(req.Price.String())
	if err != nil {
		h.writeError(w, err, "parse price error")
		return
	}

	id, err := h.service.AddService(r.Context(), pid, req.Name, price)
	if err != nil {
		h.writeError(w, err, "add service error", zap.Int64("partitionID", pid))
		return
	}
	h.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateService изменяет услугу.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req serviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	price, err := model.ParseCents(req.Price.String())
	if err != nil {
		h.writeError(w, err, "parse price error")
		return
	}

	err = h.service.UpdateService(r.Context(), pid, model.Service{ID: id, Name: req.Name, PriceCents: price})
	if err != nil {
		h.writeError(w, err, "update service error", zap.Int64("partitionID", pid), zap.Int64("serviceID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteService удаляет услугу.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveService(r.Context(), pid, id); err != nil {
		h.writeError(w, err, "remove service error", zap.Int64("partitionID", pid), zap.Int64("serviceID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
