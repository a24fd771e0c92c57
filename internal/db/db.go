// Package db opens the database/sql handle used to run schema migrations.
// Request-path queries go through the pgxpool in the store package.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"blueway/migrations"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Migrate applies every pending migration embedded in the migrations package.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("db.Migrate: create provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("db.Migrate: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

// MigrateDSN opens dsn, applies migrations and closes the handle again.
func MigrateDSN(ctx context.Context, dsn string) error {
	conn, err := Open(dsn)
	if err != nil {
		return fmt.Errorf("db.MigrateDSN: open: %w", err)
	}
	defer conn.Close()
	if err := Ping(ctx, conn); err != nil {
		return fmt.Errorf("db.MigrateDSN: ping: %w", err)
	}
	return Migrate(ctx, conn)
}
