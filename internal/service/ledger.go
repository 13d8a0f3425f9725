package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/barbershop-ledger/internal/metrics"
	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// PostEntry проводит ручную операцию по кассе. Нулевая дата заменяется сегодняшней.
func (s *Service) PostEntry(ctx context.Context, partitionID int64, e model.LedgerEntry) (int64, error) {
	e.Description = strings.TrimSpace(e.Description)
	if e.AmountCents < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative", model.ErrValidation)
	}
	if !e.Kind.Valid() {
		return 0, fmt.Errorf("%w: unknown entry kind %q", model.ErrValidation, e.Kind)
	}

	if e.Date.IsZero() {
		e.Date = s.Today()
	} else {
		e.Date = model.DateOnly(e.Date)
	}
	e.AppointmentID = nil

	id, err := s.repo.CreateEntry(ctx, partitionID, e)
	if err != nil {
		return 0, err
	}
	metrics.RecordLedgerEntry(string(e.Kind), "manual")
	return id, nil
}

// RemoveEntry удаляет операцию по кассе.
func (s *Service) RemoveEntry(ctx context.Context, partitionID, id int64) error {
	return s.repo.DeleteEntry(ctx, partitionID, id)
}

// ListEntries возвращает все операции раздела.
func (s *Service) ListEntries(ctx context.Context, partitionID int64, newestFirst bool) ([]model.LedgerEntry, error) {
	return s.repo.ListEntries(ctx, partitionID, newestFirst, 0)
}

// Balance пересчитывает итоги кассы по текущим операциям.
func (s *Service) Balance(ctx context.Context, partitionID int64) (model.Balance, error) {
	return s.repo.GetBalance(ctx, partitionID)
}
