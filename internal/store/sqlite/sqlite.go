// Package sqlite implements the store.Store interface backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/promptlabs/prompthub/internal/model"
	"github.com/promptlabs/prompthub/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements store.Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// New opens (or creates) the SQLite database at the given path and runs any
// pending migrations.
func New(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes all statements, which makes every
	// mutation atomic relative to every other without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePrompt(ctx context.Context, draft model.Draft) (*model.Prompt, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return queryInsertPrompt(ctx, s.db, draft)
}

func (s *SQLiteStore) ListPrompts(ctx context.Context) ([]*model.Prompt, error) {
	return queryListPrompts(ctx, s.db)
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]string, error) {
	return queryListCategories(ctx, s.db)
}

func (s *SQLiteStore) UpdatePrompt(ctx context.Context, id int64, draft model.Draft) (*model.Prompt, error) {
	return queryUpdatePrompt(ctx, s.db, id, draft)
}

func (s *SQLiteStore) DeletePrompt(ctx context.Context, id int64) (bool, error) {
	return queryDeletePrompt(ctx, s.db, id)
}

// BulkInsertPrompts inserts all drafts inside a single transaction. Every
// draft is validated before the first row is written, so an invalid row
// rejects the batch without touching the database.
func (s *SQLiteStore) BulkInsertPrompts(ctx context.Context, drafts []model.Draft) (int, error) {
	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		for i := range drafts {
			if _, err := tx.CreatePrompt(ctx, drafts[i]); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(drafts), nil
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *SQLiteStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreatePrompt(ctx context.Context, draft model.Draft) (*model.Prompt, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return queryInsertPrompt(ctx, s.tx, draft)
}

func (s *txStore) ListPrompts(ctx context.Context) ([]*model.Prompt, error) {
	return queryListPrompts(ctx, s.tx)
}

func (s *txStore) ListCategories(ctx context.Context) ([]string, error) {
	return queryListCategories(ctx, s.tx)
}

func (s *txStore) UpdatePrompt(ctx context.Context, id int64, draft model.Draft) (*model.Prompt, error) {
	return queryUpdatePrompt(ctx, s.tx, id, draft)
}

func (s *txStore) DeletePrompt(ctx context.Context, id int64) (bool, error) {
	return queryDeletePrompt(ctx, s.tx, id)
}

func (s *txStore) BulkInsertPrompts(ctx context.Context, drafts []model.Draft) (int, error) {
	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, err := queryInsertPrompt(ctx, s.tx, drafts[i]); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return len(drafts), nil
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
