// Package service реализует правила учёта записей и кассы парикмахерской:
// справочники клиентов и услуг, кассу, автомат состояний записи и сводку.
// Все операции выполняются в рамках раздела, идентификатор которого передаёт вызывающий.
package service

import (
	"context"
	"time"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateClient(ctx context.Context, partitionID int64, name, contact string) (int64, error)
	UpdateClient(ctx context.Context, partitionID int64, c model.Client) error
	DeleteClient(ctx context.Context, partitionID, id int64) error
	ListClients(ctx context.Context, partitionID int64) ([]model.Client, error)
	CountClients(ctx context.Context, partitionID int64) (int64, error)

	CreateService(ctx context.Context, partitionID int64, name string, priceCents int64) (int64, error)
	UpdateService(ctx context.Context, partitionID int64, s model.Service) error
	DeleteService(ctx context.Context, partitionID, id int64) error
	ListServices(ctx context.Context, partitionID int64) ([]model.Service, error)

	CreateEntry(ctx context.Context, partitionID int64, e model.LedgerEntry) (int64, error)
	DeleteEntry(ctx context.Context, partitionID, id int64) error
	ListEntries(ctx context.Context, partitionID int64, newestFirst bool, limit int) ([]model.LedgerEntry, error)
	GetBalance(ctx context.Context, partitionID int64) (model.Balance, error)

	CreateAppointment(ctx context.Context, partitionID int64, a model.Appointment) (int64, error)
	CompleteAppointment(ctx context.Context, partitionID, id int64, completedOn time.Time) (int64, error)
	CancelAppointment(ctx context.Context, partitionID, id int64) error
	GetAppointment(ctx context.Context, partitionID, id int64) (*model.Appointment, error)
	ListPendingAppointments(ctx context.Context, partitionID int64, on *time.Time) ([]model.PendingAppointment, error)
	CountAppointmentsByDate(ctx context.Context, partitionID int64, days int) ([]model.DailyCount, error)
}

// Service содержит бизнес-логику учёта записей и кассы.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService создаёт сервис. loc задаёт часовой пояс, в котором определяется «сегодня»;
// nil означает локальный пояс процесса.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Today возвращает текущую календарную дату в часовом поясе сервиса.
func (s *Service) Today() time.Time {
	return model.DateOnly(s.now().In(s.loc))
}

func (s *Service) todayPtr() *time.Time {
	t := s.Today()
	return &t
}
