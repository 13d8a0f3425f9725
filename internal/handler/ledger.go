package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
	"github.com/mmeshcher/barbershop-ledger/internal/validation"
)

type entryRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	Date        string          `json:"date,omitempty"`
}

type entryResponse struct {
	ID            int64  `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	Date          string `json:"date"`
	AppointmentID *int64 `json:"appointment_id,omitempty"`
}

type balanceResponse struct {
	Inflow  string `json:"inflow"`
	Outflow string `json:"outflow"`
	Net     string `json:"net"`
}

func toEntryResponse(e model.LedgerEntry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        model.FormatCents(e.AmountCents),
		Kind:          string(e.Kind),
		Date:          e.Date.Format(model.DateLayout),
		AppointmentID: e.AppointmentID,
	}
}

func toBalanceResponse(b model.Balance) balanceResponse {
	return balanceResponse{
		Inflow:  model.FormatCents(b.InflowCents),
		Outflow: model.FormatCents(b.OutflowCents),
		Net:     model.FormatCents(b.NetCents),
	}
}

// GetEntries возвращает операции по кассе. ?order=asc меняет порядок на хронологический.
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var newestFirst bool
	switch r.URL.Query().Get("order") {
	case "", "desc":
		newestFirst = true
	case "asc":
	default:
		http.Error(w, "order must be asc or desc", http.StatusBadRequest)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), pid, newestFirst)
	if err != nil {
		h.writeError(w, err, "list entries error", zap.Int64("partitionID", pid))
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateEntry проводит ручную операцию по кассе.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	var req entryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := model.ParseCents(req.Amount.String())
	if err != nil {
		h.writeError(w, err, "parse amount error")
		return
	}

	var date time.Time
	if req.Date != "" {
		if date, ok = validation.ParseDate(req.Date); !ok {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	id, err := h.service.PostEntry(r.Context(), pid, model.LedgerEntry{
		Description: req.Description,
		AmountCents: amount,
		Kind:        model.EntryKind(req.Kind),
		Date:        date,
	})
	if err != nil {
		h.writeError(w, err, "post entry error", zap.Int64("partitionID", pid))
		return
	}
	h.writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// DeleteEntry удаляет операцию по кассе.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveEntry(r.Context(), pid, id); err != nil {
		h.writeError(w, err, "remove entry error", zap.Int64("partitionID", pid), zap.Int64("entryID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance возвращает итоги кассы.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Balance(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "get balance error", zap.Int64("partitionID", pid))
		return
	}
	h.writeJSON(w, http.StatusOK, toBalanceResponse(b))
}
