package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// SQLiteRepository хранит данные в локальном файле SQLite. Используется, когда адрес PostgreSQL
// не задан. Все операции выполняются через одно соединение, поэтому транзакции раздела
// сериализуются.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository открывает (или создаёт) файл БД и применяет миграции.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(ctx, db, "sqlite3", "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return &SQLiteRepository{db: db}, nil
}

// Ping проверяет доступность БД.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает соединение с БД.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// EnsurePartition возвращает раздел по ключу, создавая его при первом обращении.
func (r *SQLiteRepository) EnsurePartition(ctx context.Context, key, label string) (*model.Partition, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partitions (key, label, created_at) VALUES (?, ?, ?) ON CONFLICT (key) DO NOTHING`,
		key, label, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert partition: %w", err)
	}

	var (
		p         model.Partition
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, key, label, created_at FROM partitions WHERE key = ?`,
		key,
	).Scan(&p.ID, &p.Key, &p.Label, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("select partition: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)

	return &p, nil
}

func (r *SQLiteRepository) nextID(ctx context.Context, tx *sql.Tx, partitionID int64, seq sequence) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE partitions SET %[1]s = %[1]s + 1 WHERE id = ? RETURNING %[1]s - 1`, seq),
		partitionID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("partition", partitionID)
		}
		return 0, fmt.Errorf("allocate %s: %w", seq, err)
	}
	return id, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) insertWithID(ctx context.Context, partitionID int64, seq sequence, insert func(tx *sql.Tx, id int64) error) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = r.nextID(ctx, tx, partitionID, seq)
		if err != nil {
			return err
		}
		return insert(tx, id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func affectedOrNotFound(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(what, id)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
