package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// CreateClient сохраняет нового клиента и возвращает его идентификатор в разделе.
func (r *PostgresRepository) CreateClient(ctx context.Context, partitionID int64, name, contact string) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqClient, func(tx pgx.Tx, id int64) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO clients (partition_id, id, name, contact) VALUES ($1, $2, $3, $4)`,
			partitionID, id, name, contact,
		)
		if err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
		return nil
	})
}

// UpdateClient изменяет имя и контакт клиента.
func (r *PostgresRepository) UpdateClient(ctx context.Context, partitionID int64, c model.Client) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE clients SET name = $3, contact = $4 WHERE partition_id = $1 AND id = $2`,
		partitionID, c.ID, c.Name, c.Contact,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("client", c.ID)
	}
	return nil
}

// DeleteClient удаляет клиента. Записи, ссылающиеся на него, не проверяются.
func (r *PostgresRepository) DeleteClient(ctx context.Context, partitionID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM clients WHERE partition_id = $1 AND id = $2`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("client", id)
	}
	return nil
}

// ListClients возвращает клиентов раздела в порядке добавления.
func (r *PostgresRepository) ListClients(ctx context.Context, partitionID int64) ([]model.Client, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, contact FROM clients WHERE partition_id = $1 ORDER BY id`,
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
func (r *PostgresRepository) CountClients(ctx context.Context, partitionID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM clients WHERE partition_id = $1`,
		partitionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

// CreateService сохраняет новую услугу с ценой в копейках.
func (r *PostgresRepository) CreateService(ctx context.Context, partitionID int64, name string, priceCents int64) (int64, error) {
	return r.insertWithID(ctx, partitionID, seqService, func(tx pgx.Tx, id int64) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO services (partition_id, id, name, price) VALUES ($1, $2, $3, $4)`,
			partitionID, id, name, priceCents,
		)
		if err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
		return nil
	})
}

// UpdateService изменяет название и цену услуги. Уже выполненные записи не пересчитываются.
func (r *PostgresRepository) UpdateService(ctx context.Context, partitionID int64, s model.Service) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE services SET name = $3, price = $4 WHERE partition_id = $1 AND id = $2`,
		partitionID, s.ID, s.Name, s.PriceCents,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("service", s.ID)
	}
	return nil
}

// DeleteService удаляет услугу.
func (r *PostgresRepository) DeleteService(ctx context.Context, partitionID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM services WHERE partition_id = $1 AND id = $2`,
		partitionID, id,
	)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("service", id)
	}
	return nil
}

// ListServices возвращает услуги раздела в порядке добавления.
func (r *PostgresRepository) ListServices(ctx context.Context, partitionID int64) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price FROM services WHERE partition_id = $1 ORDER BY id`,
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
