package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

const (
	dashboardDays    = 7
	dashboardEntries = 5
)

// Dashboard собирает сводку раздела. Значения вычисляются при каждом вызове.
func (s *Service) Dashboard(ctx context.Context, partitionID int64) (*model.Dashboard, error) {
	d := &model.Dashboard{Today: s.Today()}

	var err error
	if d.ClientCount, err = s.repo.CountClients(ctx, partitionID); err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if d.Balance, err = s.repo.GetBalance(ctx, partitionID); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	pending, err := s.repo.ListPendingAppointments(ctx, partitionID, &d.Today)
	if err != nil {
		return nil, fmt.Errorf("list pending today: %w", err)
	}
	d.PendingToday = int64(len(pending))

	if d.DailyAppointments, err = s.repo.CountAppointmentsByDate(ctx, partitionID, dashboardDays); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if d.RecentEntries, err = s.repo.ListEntries(ctx, partitionID, true, dashboardEntries); err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}

	return d, nil
}
