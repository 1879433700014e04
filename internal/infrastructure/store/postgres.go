package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/order"
	_ "github.com/lib/pq"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	uid        TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	status     TEXT        NOT NULL,
	document   JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (uid, id)
);
CREATE INDEX IF NOT EXISTS orders_uid_created_at ON orders (uid, created_at DESC);`

// PostgresOrderStore stores each order as a JSONB document. created_at is
// assigned by the database on first insert.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// EnsureSchema creates the orders table when missing.
func (s *PostgresOrderStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, ordersSchema)
	return err
}

func (s *PostgresOrderStore) Put(ctx context.Context, uid, orderID string, rec order.Record) error {
	if err := validateKey(uid, orderID); err != nil {
		return err
	}

	rec.ID = orderID
	rec.CreatedAt = time.Time{}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", orderID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (uid, id, status, document)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (uid, id) DO UPDATE
		 SET status = EXCLUDED.status, document = EXCLUDED.document, updated_at = now()`,
		uid, orderID, string(rec.Status), doc,
	)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", orderID, err)
	}
	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, uid, orderID string) (order.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document, created_at FROM orders WHERE uid = $1 AND id = $2`,
		uid, orderID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Record{}, order.ErrOrderNotFound
	}
	return rec, err
}

func (s *PostgresOrderStore) List(ctx context.Context, uid string) ([]order.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document, created_at FROM orders WHERE uid = $1 ORDER BY created_at DESC, id DESC`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []order.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (order.Record, error) {
	var (
		doc       []byte
		createdAt time.Time
		rec       order.Record
	)
	if err := sc.Scan(&doc, &createdAt); err != nil {
		return order.Record{}, err
	}
	if err := json.Unmarshal(doc, &rec); err != nil {
		return order.Record{}, fmt.Errorf("unmarshal order document: %w", err)
	}
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
