package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateClient сохраняет нового клиента.
func (r *SQLiteRepository) CreateClient(ctx context.Context, partitionID int64, name, contact string) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqClient, func(tx *sql.Tx, id int64) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO clients (partition_id, id, name, contact) VALUES (?, ?, ?, ?)`,
			partitionID, id, name, contact,
		)
		if err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
		return nil
	})
}

// UpdateClient изменяет имя и контакт клиента.
func (r *SQLiteRepository) UpdateClient(ctx context.Context, partitionID int64, c model.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, contact = ? WHERE partition_id = ? AND id = ?`,
		c.Name, c.Contact, partitionID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return affectedOrNotFound(res, "client", c.ID)
}

// DeleteClient удаляет клиента без проверки ссылающихся записей.
func (r *SQLiteRepository) DeleteClient(ctx context.Context, partitionID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM clients WHERE partition_id = ? AND id = ?`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return affectedOrNotFound(res, "client", id)
}

// ListClients возвращает клиентов раздела в порядке добавления.
func (r *SQLiteRepository) ListClients(ctx context.Context, partitionID int64) ([]model.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, contact FROM clients WHERE partition_id = ? ORDER BY id`,
		partitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	defer rows.Close()

	var res []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountClients возвращает число клиентов раздела.
func (r *SQLiteRepository) CountClients(ctx context.Context, partitionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM clients WHERE partition_id = ?`,
		partitionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

// CreateService сохраняет новую услугу.
func (r *SQLiteRepository) CreateService(ctx context.Context, partitionID int64, name string, priceCents int64) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqService, func(tx *sql.Tx, id int64) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO services (partition_id, id, name, price) VALUES (?, ?, ?, ?)`,
			partitionID, id, name, priceCents,
		)
		if err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
		return nil
	})
}

// UpdateService изменяет название и цену услуги.
func (r *SQLiteRepository) UpdateService(ctx context.Context, partitionID int64, s model.Service) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE services SET name = ?, price = ? WHERE partition_id = ? AND id = ?`,
		s.Name, s.PriceCents, partitionID, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return affectedOrNotFound(res, "service", s.ID)
}

// DeleteService удаляет услугу.
func (r *SQLiteRepository) DeleteService(ctx context.Context, partitionID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM services WHERE partition_id = ? AND id = ?`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return affectedOrNotFound(res, "service", id)
}

// ListServices возвращает услуги раздела в порядке добавления.
func (r *SQLiteRepository) ListServices(ctx context.Context, partitionID int64) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, price FROM services WHERE partition_id = ? ORDER BY id`,
		partitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var res []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
