package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
	"github.com/mmeshcher/barbershop-ledger/internal/validation"
)

type bookRequest struct {
	ClientID  int64  `json:"client_id"`
	ServiceID int64  `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type appointmentResponse struct {
	ID             int64  `json:"id"`
	ClientID       int64  `json:"client_id"`
	ServiceID      int64  `json:"service_id"`
	ClientName     string `json:"client_name,omitempty"`
	ClientContact  string `json:"client_contact,omitempty"`
	ServiceName    string `json:"service_name,omitempty"`
	ServicePrice   string `json:"service_price,omitempty"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	CatalogMissing bool   `json:"catalog_missing,omitempty"`
}

type completeResponse struct {
	EntryID int64 `json:"entry_id"`
}

func toAppointmentResponse(p model.PendingAppointment) appointmentResponse {
	resp := appointmentResponse{
		ID:             p.ID,
		ClientID:       p.ClientID,
		ServiceID:      p.ServiceID,
		ClientName:     p.ClientName,
		ClientContact:  p.ClientContact,
		ServiceName:    p.ServiceName,
		Date:           p.Date.Format(model.DateLayout),
		Time:           p.Time,
		Status:         string(p.Status),
		CatalogMissing: p.CatalogMissing,
	}
	if p.ServiceName != "" {
		resp.ServicePrice = model.FormatCents(p.ServicePrice)
	}
	return resp
}

// GetAppointments возвращает ожидающие записи, при ?date=YYYY-MM-DD только на эту дату.
func (h *Handler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var (
		pending []model.PendingAppointment
		err     error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, ok := validation.ParseDate(raw)
		if !ok {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		pending, err = h.service.ListPendingOn(r.Context(), pid, date)
	} else {
		pending, err = h.service.ListPending(r.Context(), pid)
	}
	if err != nil {
		h.writeError(w, err, "list pending appointments error", zap.Int64("partitionID", pid))
		return
	}

	if len(pending) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]appointmentResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, toAppointmentResponse(p))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// GetAppointment возвращает запись в любом состоянии, в том числе выполненную.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, err := h.service.GetAppointment(r.Context(), pid, id)
	if err != nil {
		h.writeError(w, err, "get appointment error", zap.Int64("partitionID", pid), zap.Int64("appointmentID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, appointmentResponse{
		ID:        a.ID,
		ClientID:  a.ClientID,
		ServiceID: a.ServiceID,
		Date:      a.Date.Format(model.DateLayout),
		Time:      a.Time,
		Status:    string(a.Status),
	})
}

// CreateAppointment записывает клиента на услугу.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, ok := validation.ParseDate(req.Date)
	if !ok {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	id, err := h.service.Book(r.Context(), pid, req.ClientID, req.ServiceID, date, req.Time)
	if err != nil {
		h.writeError(w, err, "book appointment error", zap.Int64("partitionID", pid))
		return
	}
	h.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// CompleteAppointment отмечает запись выполненной и проводит поступление.
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entryID, err := h.service.Complete(r.Context(), pid, id)
	if err != nil {
		h.writeError(w, err, "complete appointment error", zap.Int64("partitionID", pid), zap.Int64("appointmentID", id))
		return
	}
	h.writeJSON(w, http.StatusOK, completeResponse{EntryID: entryID})
}

// CancelAppointment отменяет ожидающую запись.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), pid, id); err != nil {
		h.writeError(w, err, "cancel appointment error", zap.Int64("partitionID", pid), zap.Int64("appointmentID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
