// Package repository содержит реализации хранилища данных в PostgreSQL и SQLite.
//
// Все данные принадлежат разделу (partition_id). Идентификаторы клиентов, услуг, записей
// и операций уникальны только внутри раздела и выдаются счётчиками строки раздела.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// sequence — имя столбца-счётчика в таблице partitions.
type sequence string

const (
	seqClient      sequence = "next_client_id"
	seqService     sequence = "next_service_id"
	seqAppointment sequence = "next_appointment_id"
	seqEntry       sequence = "next_entry_id"
)

func runMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// completion содержит данные, прочитанные внутри транзакции завершения записи.
type completion struct {
	partitionID   int64
	appointmentID int64
	clientName    string
	serviceName   string
	priceCents    int64
	completedOn   time.Time
}

func (c completion) entry() model.LedgerEntry {
	id := c.appointmentID
	return model.LedgerEntry{
		Description:   model.CompletionDescription(c.clientName, c.serviceName, c.priceCents),
		AmountCents:   c.priceCents,
		Kind:          model.EntryKindInflow,
		Date:          model.DateOnly(c.completedOn),
		AppointmentID: &id,
	}
}

func (c completion) event(entryID int64) (model.OutboxEvent, error) {
	eventID := uuid.NewString()
	payload, err := json.Marshal(model.AppointmentCompleted{
		EventID:       eventID,
		PartitionID:   c.partitionID,
		AppointmentID: c.appointmentID,
		EntryID:       entryID,
		ClientName:    c.clientName,
		ServiceName:   c.serviceName,
		AmountCents:   c.priceCents,
		CompletedOn:   c.completedOn.Format(model.DateLayout),
	})
	if err != nil {
		return model.OutboxEvent{}, fmt.Errorf("marshal event: %w", err)
	}

	return model.OutboxEvent{
		EventID:     eventID,
		PartitionID: c.partitionID,
		EventType:   model.EventAppointmentCompleted,
		AggregateID: fmt.Sprintf("%d:%d", c.partitionID, c.appointmentID),
		Payload:     payload,
	}, nil
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
}

func invalidTransition(id int64, status model.AppointmentStatus) error {
	return fmt.Errorf("%w: appointment %d is %s", model.ErrInvalidTransition, id, status)
}
