package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/npezzotti/apex-protocol/internal/database/migrations"
	"github.com/pressly/goose/v3"
)

type PgApexRepository struct {
	conn *sql.DB
}

func NewPgApexRepository(dsn string) (*PgApexRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PgApexRepository{conn: db}, nil
}

// NewPgApexRepositoryFromDB wraps an already opened handle.
func NewPgApexRepositoryFromDB(db *sql.DB) *PgApexRepository {
	return &PgApexRepository{conn: db}
}

func (db *PgApexRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgApexRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (db *PgApexRepository) Migrate(ctx context.Context, logger goose.Logger) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if logger != nil {
		goose.SetLogger(logger)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.conn, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}
