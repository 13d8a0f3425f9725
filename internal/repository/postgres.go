package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := runMigrations(ctx, db, "postgres", "migrations/postgres"); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// withRetry повторяет транзакцию при сбоях сериализации, взаимоблокировках и обрывах соединения.
// Доменные ошибки не повторяются.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.delays) {
			break
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// EnsurePartition возвращает раздел по ключу, создавая его при первом обращении.
// Повторные вызовы возвращают тот же раздел.
func (r *PostgresRepository) EnsurePartition(ctx context.Context, key, label string) (*model.Partition, error) {
	var p model.Partition
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO partitions (key, label) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
			key, label,
		)
		if err != nil {
			return fmt.Errorf("insert partition: %w", err)
		}

		return r.pool.QueryRow(ctx,
			`SELECT id, key, label, created_at FROM partitions WHERE key = $1`,
			key,
		).Scan(&p.ID, &p.Key, &p.Label, &p.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("ensure partition: %w", err)
	}

	return &p, nil
}

// nextID выдаёт следующий идентификатор сущности внутри раздела. Блокирует строку раздела
// до конца транзакции, поэтому вставки в один раздел выполняются последовательно.
func (r *PostgresRepository) nextID(ctx context.Context, tx pgx.Tx, partitionID int64, seq sequence) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE partitions SET %[1]s = %[1]s + 1 WHERE id = $1 RETURNING %[1]s - 1`, seq),
		partitionID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFound("partition", partitionID)
		}
		return 0, fmt.Errorf("allocate %s: %w", seq, err)
	}
	return id, nil
}

// insertWithID выполняет вставку с идентификатором, выданным счётчиком раздела, в одной транзакции.
func (r *PostgresRepository) insertWithID(ctx context.Context, partitionID int64, seq sequence, insert func(tx pgx.Tx, id int64) error) (int64, error) {
	var id int64
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		id, err = r.nextID(ctx, tx, partitionID, seq)
		if err != nil {
			return err
		}

		if err := insert(tx, id); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
