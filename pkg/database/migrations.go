package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/logger"
)

// Migrator applies the embedded goose migrations.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
	log      *slog.Logger
}

// NewMigrator prepares migrations from fsys against pool.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) (*Migrator, error) {
	return NewMigratorDB(stdlib.OpenDBFromPool(pool), fsys)
}

// NewMigratorDB prepares migrations from fsys against db. The migrator owns
// db and closes it in Close.
func NewMigratorDB(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return &Migrator{
		db:       db,
		provider: provider,
		log:      logger.Log.With(slog.String("component", "migrator")),
	}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		m.log.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Down rolls back the latest migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	m.log.Info("migration rolled back", "version", r.Source.Version)
	return nil
}

// Status lists every migration with its state.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Sources lists the migrations found in the file system.
func (m *Migrator) Sources() []*goose.Source {
	return m.provider.ListSources()
}

// Close releases the database handle.
func (m *Migrator) Close() error {
	return m.db.Close()
}

// RunMigrations applies migrations when autoMigrate is set.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, autoMigrate bool, fsys fs.FS) error {
	if !autoMigrate {
		logger.Log.Info("auto-migration is disabled")
		return nil
	}

	m, err := NewMigrator(pool, fsys)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}
