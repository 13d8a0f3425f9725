package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

type dailyCountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type dashboardResponse struct {
	Today             string               `json:"today"`
	ClientCount       int64                `json:"client_count"`
	PendingToday      int64                `json:"pending_today"`
	Balance           balanceResponse      `json:"balance"`
	DailyAppointments []dailyCountResponse `json:"daily_appointments"`
	RecentEntries     []entryResponse      `json:"recent_entries"`
}

// GetDashboard возвращает сводку раздела.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.partitionID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), pid)
	if err != nil {
		h.writeError(w, err, "dashboard error", zap.Int64("partitionID", pid))
		return
	}

	resp := dashboardResponse{
		Today:             d.Today.Format(model.DateLayout),
		ClientCount:       d.ClientCount,
		PendingToday:      d.PendingToday,
		Balance:           toBalanceResponse(d.Balance),
		DailyAppointments: make([]dailyCountResponse, 0, len(d.DailyAppointments)),
		RecentEntries:     make([]entryResponse, 0, len(d.RecentEntries)),
	}
	for _, c := range d.DailyAppointments {
		resp.DailyAppointments = append(resp.DailyAppointments, dailyCountResponse{
			Date:  c.Date.Format(model.DateLayout),
			Count: c.Count,
		})
	}
	for _, e := range d.RecentEntries {
		resp.RecentEntries = append(resp.RecentEntries, toEntryResponse(e))
	}

	h.writeJSON(w, http.StatusOK, resp)
}
