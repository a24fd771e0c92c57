package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"blueway/internal/domain"
)

// db is satisfied by *pgxpool.Pool and pgx.Tx, so tests can run every case
// inside a transaction that is rolled back afterwards.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores documents in the documents table created by migrations.
type Postgres struct {
	db db
}

func NewPostgres(db db) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT body FROM documents WHERE key = @key`

	var body []byte
	err := p.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store.Postgres.Get: %w", err)
	}
	return body, nil
}

func (p *Postgres) Put(ctx context.Context, key string, body []byte) error {
	const q = `
		INSERT INTO documents (key, body, updated_at)
		VALUES (@key, @body, now())
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`

	// body goes over the wire as text so jsonb parses it server side.
	if _, err := p.db.Exec(ctx, q, pgx.NamedArgs{"key": key, "body": string(body)}); err != nil {
		return fmt.Errorf("store.Postgres.Put: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM documents WHERE key = @key`

	if _, err := p.db.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("store.Postgres.Delete: %w", err)
	}
	return nil
}
