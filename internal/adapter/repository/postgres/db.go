package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/simaogato/ledger-backend/internal/domain"
)

// DB wraps the database connection together with the bank policy used to rebuild account terms
type DB struct {
	*sql.DB
	policy domain.Policy
	logger *slog.Logger
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=ledger sslmode=disable"
func NewDB(ctx context.Context, connectionString string, policy domain.Policy, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w: %w", domain.ErrPersistence, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %w", domain.ErrPersistence, err)
	}

	return Wrap(db, policy, logger), nil
}

// Wrap adopts an already opened connection pool
func Wrap(db *sql.DB, policy domain.Policy, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{DB: db, policy: policy, logger: logger}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) fail(action string, err error) error {
	db.logger.Error("database operation failed", "action", action, "error", err)
	return fmt.Errorf("failed to %s: %w: %w", action, domain.ErrPersistence, err)
}

// affected turns a zero row count into domain.ErrNotFound
func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w: %w", domain.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
