package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/barbershop-ledger/internal/metrics"
	"github.com/mmeshcher/barbershop-ledger/internal/model"
	"github.com/mmeshcher/barbershop-ledger/internal/validation"
)

// Book создаёт запись в состоянии PENDING. Пересечения по времени не проверяются.
func (s *Service) Book(ctx context.Context, partitionID int64, clientID, serviceID int64, date time.Time, at string) (id int64, err error) {
	defer func() { metrics.RecordAppointment("book", err) }()

	if date.IsZero() {
		return 0, fmt.Errorf("%w: date is required", model.ErrValidation)
	}
	normalized, ok := validation.NormalizeTime(at)
	if !ok {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", model.ErrValidation, at)
	}

	return s.repo.CreateAppointment(ctx, partitionID, model.Appointment{
		ClientID:  clientID,
		ServiceID: serviceID,
		Date:      model.DateOnly(date),
		Time:      normalized,
		Status:    model.AppointmentStatusPending,
	})
}

// Complete переводит запись в COMPLETED и проводит поступление на сумму текущей цены услуги,
// датированное сегодняшним днём. Возвращает идентификатор созданной операции.
func (s *Service) Complete(ctx context.Context, partitionID, id int64) (entryID int64, err error) {
	defer func() { metrics.RecordAppointment("complete", err) }()

	entryID, err = s.repo.CompleteAppointment(ctx, partitionID, id, s.Today())
	if err != nil {
		return 0, err
	}
	metrics.RecordLedgerEntry(string(model.EntryKindInflow), "appointment")
	return entryID, nil
}

// Cancel удаляет ожидающую запись. Касса не затрагивается.
func (s *Service) Cancel(ctx context.Context, partitionID, id int64) (err error) {
	defer func() { metrics.RecordAppointment("cancel", err) }()
	return s.repo.CancelAppointment(ctx, partitionID, id)
}

// GetAppointment возвращает запись по идентификатору.
func (s *Service) GetAppointment(ctx context.Context, partitionID, id int64) (*model.Appointment, error) {
	return s.repo.GetAppointment(ctx, partitionID, id)
}

// ListPending возвращает все ожидающие записи по возрастанию даты и времени.
func (s *Service) ListPending(ctx context.Context, partitionID int64) ([]model.PendingAppointment, error) {
	return s.repo.ListPendingAppointments(ctx, partitionID, nil)
}

// ListPendingOn возвращает ожидающие записи на указанную дату.
func (s *Service) ListPendingOn(ctx context.Context, partitionID int64, date time.Time) ([]model.PendingAppointment, error) {
	d := model.DateOnly(date)
	return s.repo.ListPendingAppointments(ctx, partitionID, &d)
}

// ListPendingToday возвращает ожидающие записи на сегодня.
func (s *Service) ListPendingToday(ctx context.Context, partitionID int64) ([]model.PendingAppointment, error) {
	return s.repo.ListPendingAppointments(ctx, partitionID, s.todayPtr())
}
