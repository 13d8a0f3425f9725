package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateAppointment создаёт запись в состоянии PENDING. Клиент и услуга должны существовать
// в том же разделе. Пересечения по времени не проверяются.
func (r *PostgresRepository) CreateAppointment(ctx context.Context, partitionID int64, a model.Appointment) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqAppointment, func(tx pgx.Tx, id int64) error {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM clients WHERE partition_id = $1 AND id = $2)`,
			partitionID, a.ClientID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check client: %w", err)
		}
		if !exists {
			return notFound("client", a.ClientID)
		}

		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM services WHERE partition_id = $1 AND id = $2)`,
			partitionID, a.ServiceID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check service: %w", err)
		}
		if !exists {
			return notFound("service", a.ServiceID)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO appointments (partition_id, id, client_id, service_id, scheduled_date, scheduled_time, status)
			 VALUES ($1, $2, $3, $4, $5, $6::time, $7)`,
			partitionID, id, a.ClientID, a.ServiceID, a.Date, a.Time, string(model.AppointmentStatusPending),
		)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	})
}

// lockAppointment читает запись с блокировкой строки до конца транзакции.
func lockAppointment(ctx context.Context, tx pgx.Tx, partitionID, id int64) (model.Appointment, error) {
	a := model.Appointment{ID: id}
	var status string
	err := tx.QueryRow(ctx,
		`SELECT client_id, service_id, status
		 FROM appointments
		 WHERE partition_id = $1 AND id = $2
		 FOR UPDATE`,
		partitionID, id,
	).Scan(&a.ClientID, &a.ServiceID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, notFound("appointment", id)
		}
		return a, fmt.Errorf("lock appointment: %w", err)
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

// CompleteAppointment переводит запись в COMPLETED и в той же транзакции создаёт поступление
// по текущей цене услуги и событие в outbox. Возвращает идентификатор операции по кассе.
//
// Блокировка строки записи гарантирует, что из двух одновременных вызовов успешен только один,
// второй увидит COMPLETED и получит model.ErrInvalidTransition.
func (r *PostgresRepository) CompleteAppointment(ctx context.Context, partitionID, id int64, completedOn time.Time) (int64, error) {
	var entryID int64
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		a, err := lockAppointment(ctx, tx, partitionID, id)
		if err != nil {
			return err
		}
		if a.Status != model.AppointmentStatusPending {
			return invalidTransition(id, a.Status)
		}

		c := completion{partitionID: partitionID, appointmentID: id, completedOn: completedOn}

		err = tx.QueryRow(ctx,
			`SELECT name FROM clients WHERE partition_id = $1 AND id = $2`,
			partitionID, a.ClientID,
		).Scan(&c.clientName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("client", a.ClientID)
			}
			return fmt.Errorf("select client: %w", err)
		}

		err = tx.QueryRow(ctx,
			`SELECT name, price FROM services WHERE partition_id = $1 AND id = $2`,
			partitionID, a.ServiceID,
		).Scan(&c.serviceName, &c.priceCents)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("service", a.ServiceID)
			}
			return fmt.Errorf("select service: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE appointments SET status = $3, completed_at = now() WHERE partition_id = $1 AND id = $2`,
			partitionID, id, string(model.AppointmentStatusCompleted),
		)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		entryID, err = r.nextID(ctx, tx, partitionID, seqEntry)
		if err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, partitionID, entryID, c.entry()); err != nil {
			return err
		}

		evt, err := c.event(entryID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO outbox_events (event_id, partition_id, event_type, aggregate_id, payload)
			 VALUES ($1, $2, $3, $4, $5)`,
			evt.EventID, evt.PartitionID, evt.EventType, evt.AggregateID, evt.Payload,
		)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return entryID, nil
}

// CancelAppointment удаляет ожидающую запись целиком.
func (r *PostgresRepository) CancelAppointment(ctx context.Context, partitionID, id int64) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		a, err := lockAppointment(ctx, tx, partitionID, id)
		if err != nil {
			return err
		}
		if a.Status != model.AppointmentStatusPending {
			return invalidTransition(id, a.Status)
		}

		_, err = tx.Exec(ctx,
			`DELETE FROM appointments WHERE partition_id = $1 AND id = $2`,
			partitionID, id,
		)
		if err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// GetAppointment возвращает запись по идентификатору.
func (r *PostgresRepository) GetAppointment(ctx context.Context, partitionID, id int64) (*model.Appointment, error) {
	a := model.Appointment{ID: id}
	var (
		status string
		date   time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT client_id, service_id, scheduled_date, to_char(scheduled_time, 'HH24:MI'), status
		 FROM appointments
		 WHERE partition_id = $1 AND id = $2`,
		partitionID, id,
	).Scan(&a.ClientID, &a.ServiceID, &date, &a.Time, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("appointment", id)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	a.Date = model.DateOnly(date)
	a.Status = model.AppointmentStatus(status)
	return &a, nil
}

// ListPendingAppointments возвращает ожидающие записи, отсортированные по дате и времени.
// Если on не nil, возвращаются только записи на эту дату.
func (r *PostgresRepository) ListPendingAppointments(ctx context.Context, partitionID int64, on *time.Time) ([]model.PendingAppointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.client_id, a.service_id, a.scheduled_date, to_char(a.scheduled_time, 'HH24:MI'),
		        c.name, c.contact, s.name, s.price
		 FROM appointments a
		 LEFT JOIN clients c ON c.partition_id = a.partition_id AND c.id = a.client_id
		 LEFT JOIN services s ON s.partition_id = a.partition_id AND s.id = a.service_id
		 WHERE a.partition_id = $1
		   AND a.status = $2
		   AND ($3::date IS NULL OR a.scheduled_date = $3::date)
		 ORDER BY a.scheduled_date, a.scheduled_time, a.id`,
		partitionID, string(model.AppointmentStatusPending), on,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending appointments: %w", err)
	}
	defer rows.Close()

	var res []model.PendingAppointment
	for rows.Next() {
		var (
			p                                  model.PendingAppointment
			date                               time.Time
			clientName, clientContact, svcName *string
			price                              *int64
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.ServiceID, &date, &p.Time,
			&clientName, &clientContact, &svcName, &price); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		p.Date = model.DateOnly(date)
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
func (r *PostgresRepository) CountAppointmentsByDate(ctx context.Context, partitionID int64, days int) ([]model.DailyCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT scheduled_date, count(*)
		 FROM appointments
		 WHERE partition_id = $1
		 GROUP BY scheduled_date
		 ORDER BY scheduled_date DESC
		 LIMIT $2`,
		partitionID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("count appointments by date: %w", err)
	}
	defer rows.Close()

	var res []model.DailyCount
	for rows.Next() {
		var (
			date time.Time
			n    int64
		)
		if err := rows.Scan(&date, &n); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		res = append(res, model.DailyCount{Date: model.DateOnly(date), Count: n})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// FetchUnpublishedEvents возвращает неотправленные события outbox в порядке создания.
func (r *PostgresRepository) FetchUnpublishedEvents(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id::text, partition_id, event_type, aggregate_id, payload, created_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select outbox events: %w", err)
	}
	defer rows.Close()

	var res []model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.PartitionID, &e.EventType, &e.AggregateID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkEventsPublished отмечает события как отправленные.
func (r *PostgresRepository) MarkEventsPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("mark outbox events: %w", err)
	}
	return nil
}

func fillCatalog(p *model.PendingAppointment, clientName, clientContact, serviceName *string, price *int64) {
	if clientName != nil {
		p.ClientName = *clientName
	} else {
		p.CatalogMissing = true
	}
	if clientContact != nil {
		p.ClientContact = *clientContact
	}
	if serviceName != nil {
		p.ServiceName = *serviceName
	} else {
		p.CatalogMissing = true
	}
	if price != nil {
		p.ServicePrice = *price
	}
}
