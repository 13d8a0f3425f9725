package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateEntry сохраняет операцию по кассе.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, partitionID int64, e model.LedgerEntry) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqEntry, func(tx *sql.Tx, id int64) error {
		return insertEntrySQLite(ctx, tx, partitionID, id, e)
	})
}

func insertEntrySQLite(ctx context.Context, tx *sql.Tx, partitionID, id int64, e model.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (partition_id, id, description, amount, kind, entry_date, appointment_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		partitionID, id, e.Description, e.AmountCents, string(e.Kind), e.Date.Format(model.DateLayout), e.AppointmentID,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// DeleteEntry удаляет операцию по кассе.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, partitionID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE partition_id = ? AND id = ?`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return affectedOrNotFound(res, "ledger entry", id)
}

// ListEntries возвращает операции раздела. limit <= 0 означает без ограничения.
func (r *SQLiteRepository) ListEntries(ctx context.Context, partitionID int64, newestFirst bool, limit int) ([]model.LedgerEntry, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, description, amount, kind, entry_date, appointment_id
		 FROM ledger_entries
		 WHERE partition_id = ?
		 ORDER BY id %s
		 LIMIT ?`, order),
		partitionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	defer rows.Close()

	var res []model.LedgerEntry
	for rows.Next() {
		var (
			e             model.LedgerEntry
			kind, date    string
			appointmentID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.AmountCents, &kind, &date, &appointmentID); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if appointmentID.Valid {
			id := appointmentID.Int64
			e.AppointmentID = &id
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBalance суммирует поступления и расходы раздела по текущим операциям.
func (r *SQLiteRepository) GetBalance(ctx context.Context, partitionID int64) (model.Balance, error) {
	var b model.Balance
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = ? THEN amount END), 0),
		        COALESCE(SUM(CASE WHEN kind = ? THEN amount END), 0)
		 FROM ledger_entries
		 WHERE partition_id = ?`,
		string(model.EntryKindInflow), string(model.EntryKindOutflow), partitionID,
	).Scan(&b.InflowCents, &b.OutflowCents)
	if err != nil {
		return model.Balance{}, fmt.Errorf("sum ledger entries: %w", err)
	}

	b.NetCents = b.InflowCents - b.OutflowCents
	return b, nil
}
