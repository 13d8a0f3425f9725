package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateEntry сохраняет операцию по кассе.
func (r *PostgresRepository) CreateEntry(ctx context.Context, partitionID int64, e model.LedgerEntry) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqEntry, func(tx pgx.Tx, id int64) error {
		return insertEntry(ctx, tx, partitionID, id, e)
	})
}

func insertEntry(ctx context.Context, tx pgx.Tx, partitionID, id int64, e model.LedgerEntry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (partition_id, id, description, amount, kind, entry_date, appointment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		partitionID, id, e.Description, e.AmountCents, string(e.Kind), e.Date, e.AppointmentID,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// DeleteEntry удаляет операцию по кассе.
func (r *PostgresRepository) DeleteEntry(ctx context.Context, partitionID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM ledger_entries WHERE partition_id = $1 AND id = $2`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("ledger entry", id)
	}
	return nil
}

// ListEntries возвращает операции раздела. limit <= 0 означает без ограничения.
func (r *PostgresRepository) ListEntries(ctx context.Context, partitionID int64, newestFirst bool, limit int) ([]model.LedgerEntry, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, description, amount, kind, entry_date, appointment_id
		 FROM ledger_entries
		 WHERE partition_id = $1
		 ORDER BY id %s
		 LIMIT $2`, order),
		partitionID, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var (
			e    model.LedgerEntry
			kind string
			date time.Time
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.AmountCents, &kind, &date, &e.AppointmentID); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		e.Date = model.DateOnly(date)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBalance суммирует поступления и расходы раздела по текущим операциям.
func (r *PostgresRepository) GetBalance(ctx context.Context, partitionID int64) (model.Balance, error) {
	var b model.Balance
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0),
		        COALESCE(SUM(amount) FILTER (WHERE kind = $3), 0)
		 FROM ledger_entries
		 WHERE partition_id = $1`,
		partitionID, string(model.EntryKindInflow), string(model.EntryKindOutflow),
	).Scan(&b.InflowCents, &b.OutflowCents)
	if err != nil {
		return model.Balance{}, fmt.Errorf("sum ledger entries: %w", err)
	}

	b.NetCents = b.InflowCents - b.OutflowCents
	return b, nil
}
