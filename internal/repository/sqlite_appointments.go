package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateAppointment создаёт запись в состоянии PENDING.
func (r *SQLiteRepository) CreateAppointment(ctx context.Context, partitionID int64, a model.Appointment) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqAppointment, func(tx *sql.Tx, id int64) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM clients WHERE partition_id = ? AND id = ?)`,
			partitionID, a.ClientID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check client: %w", err)
		}
		if !exists {
			return notFound("client", a.ClientID)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM services WHERE partition_id = ? AND id = ?)`,
			partitionID, a.ServiceID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check service: %w", err)
		}
		if !exists {
			return notFound("service", a.ServiceID)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO appointments (partition_id, id, client_id, service_id, scheduled_date, scheduled_time, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			partitionID, id, a.ClientID, a.ServiceID, a.Date.Format(model.DateLayout), a.Time,
			string(model.AppointmentStatusPending),
		)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

func selectAppointmentTx(ctx context.Context, tx *sql.Tx, partitionID, id int64) (model.Appointment, error) {
	a := model.Appointment{ID: id}
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT client_id, service_id, status FROM appointments WHERE partition_id = ? AND id = ?`,
		partitionID, id,
	).Scan(&a.ClientID, &a.ServiceID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, notFound("appointment", id)
		}
		return a, fmt.Errorf("select appointment: %w", err)
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

// CompleteAppointment переводит запись в COMPLETED и в той же транзакции создаёт поступление
// и событие outbox. Единственное соединение сериализует конкурирующие вызовы.
func (r *SQLiteRepository) CompleteAppointment(ctx context.Context, partitionID, id int64, completedOn time.Time) (int64, error) {
	var entryID int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		a, err := selectAppointmentTx(ctx, tx, partitionID, id)
		if err != nil {
			return err
		}
		if a.Status != model.AppointmentStatusPending {
			return invalidTransition(id, a.Status)
		}

		c := completion{partitionID: partitionID, appointmentID: id, completedOn: completedOn}

		err = tx.QueryRowContext(ctx,
			`SELECT name FROM clients WHERE partition_id = ? AND id = ?`,
			partitionID, a.ClientID,
		).Scan(&c.clientName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("client", a.ClientID)
			}
			return fmt.Errorf("select client: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT name, price FROM services WHERE partition_id = ? AND id = ?`,
			partitionID, a.ServiceID,
		).Scan(&c.serviceName, &c.priceCents)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("service", a.ServiceID)
			}
			return fmt.Errorf("select service: %w", err)
		}

		// Переход только из PENDING.
		res, err := tx.ExecContext(ctx,
			`UPDATE appointments SET status = ?, completed_at = ?
			 WHERE partition_id = ? AND id = ? AND status = ?`,
			string(model.AppointmentStatusCompleted), time.Now().Unix(),
			partitionID, id, string(model.AppointmentStatusPending),
		)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return invalidTransition(id, model.AppointmentStatusCompleted)
		}

		entryID, err = r.nextID(ctx, tx, partitionID, seqEntry)
		if err != nil {
			return err
		}
		if err := insertEntrySQLite(ctx, tx, partitionID, entryID, c.entry()); err != nil {
			return err
		}

		evt, err := c.event(entryID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (event_id, partition_id, event_type, aggregate_id, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			evt.EventID, evt.PartitionID, evt.EventType, evt.AggregateID, evt.Payload, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return entryID, nil
}

// CancelAppointment удаляет ожидающую запись целиком.
func (r *SQLiteRepository) CancelAppointment(ctx context.Context, partitionID, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		a, err := selectAppointmentTx(ctx, tx, partitionID, id)
		if err != nil {
			return err
		}
		if a.Status != model.AppointmentStatusPending {
			return invalidTransition(id, a.Status)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM appointments WHERE partition_id = ? AND id = ?`,
			partitionID, id,
		)
		if err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}
		return nil
	})
}

// GetAppointment возвращает запись по идентификатору.
func (r *SQLiteRepository) GetAppointment(ctx context.Context, partitionID, id int64) (*model.Appointment, error) {
	a := model.Appointment{ID: id}
	var status, date string
	err := r.db.QueryRowContext(ctx,
		`SELECT client_id, service_id, scheduled_date, scheduled_time, status
		 FROM appointments
		 WHERE partition_id = ? AND id = ?`,
		partitionID, id,
	).Scan(&a.ClientID, &a.ServiceID, &date, &a.Time, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("appointment", id)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if a.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}

// ListPendingAppointments возвращает ожидающие записи, отсортированные по дате и времени.
func (r *SQLiteRepository) ListPendingAppointments(ctx context.Context, partitionID int64, on *time.Time) ([]model.PendingAppointment, error) {
	var onDate sql.NullString
	if on != nil {
		onDate = sql.NullString{String: on.Format(model.DateLayout), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.client_id, a.service_id, a.scheduled_date, a.scheduled_time,
		        c.name, c.contact, s.name, s.price
		 FROM appointments a
		 LEFT JOIN clients c ON c.partition_id = a.partition_id AND c.id = a.client_id
		 LEFT JOIN services s ON s.partition_id = a.partition_id AND s.id = a.service_id
		 WHERE a.partition_id = ?
		   AND a.status = ?
		   AND (? IS NULL OR a.scheduled_date = ?)
		 ORDER BY a.scheduled_date, a.scheduled_time, a.id`,
		partitionID, string(model.AppointmentStatusPending), onDate, onDate,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending appointments: %w", err)
	}
	defer rows.Close()

	var res []model.PendingAppointment
	for rows.Next() {
		var (
			p                                  model.PendingAppointment
			date                               string
			clientName, clientContact, svcName *string
			price                              *int64
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.ServiceID, &date, &p.Time,
			&clientName, &clientContact, &svcName, &price); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if p.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		p.Status = model.AppointmentStatusPending
		fillCatalog(&p, clientName, clientContact, svcName, price)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountAppointmentsByDate возвращает число записей по датам для последних days дат с записями.
func (r *SQLiteRepository) CountAppointmentsByDate(ctx context.Context, partitionID int64, days int) ([]model.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT scheduled_date, count(*)
		 FROM appointments
		 WHERE partition_id = ?
		 GROUP BY scheduled_date
		 ORDER BY scheduled_date DESC
		 LIMIT ?`,
		partitionID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("count appointments by date: %w", err)
	}
	defer rows.Close()

	var res []model.DailyCount
	for rows.Next() {
		var (
			date string
			n    int64
		)
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		res = append(res, model.DailyCount{Date: d, Count: n})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// FetchUnpublishedEvents возвращает неотправленные события outbox в порядке создания.
func (r *SQLiteRepository) FetchUnpublishedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, partition_id, event_type, aggregate_id, payload, created_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select outbox events: %w", err)
	}
	defer rows.Close()

	var res []model.OutboxEvent
	for rows.Next() {
		var (
			e         model.OutboxEvent
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.PartitionID, &e.EventType, &e.AggregateID, &e.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkEventsPublished отмечает события как отправленные.
func (r *SQLiteRepository) MarkEventsPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().Unix()
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE outbox_events SET published_at = ? WHERE id = ?`,
				now, id,
			); err != nil {
				return fmt.Errorf("mark outbox event: %w", err)
			}
		}
		return nil
	})
}
