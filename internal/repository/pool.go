package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository wraps the connection pool used by both the persister and
// the query surface. Pool size defaults to 2x the configured thread
// count, overridable via DB_MAX_OPEN_CONNS / DB_MAX_IDLE_CONNS.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository opens a pool sized for threads workers. An unreachable
// database at startup is the one fatal condition in this system: the
// caller is expected to exit non-zero so a process supervisor restarts
// it.
func NewRepository(dbURL string, threads int) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("repository: unable to parse db url: %w", err)
	}
	cfg.MaxConns = int32(threads * 2)
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 2
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinConns = int32(n)
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("repository: unable to connect to database: %w", err)
	}
	return &Repository{db: pool}, nil
}

// Migrate executes the bundled schema file as a single statement
// through the already-open pool, not on a separate dedicated
// connection. The schema must be written so re-running it is a no-op.
// None of the cmd/ entrypoints calls Migrate.
func (r *Repository) Migrate(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("repository: failed to read schema file: %w", err)
	}
	if _, err := r.db.Exec(context.Background(), string(content)); err != nil {
		return fmt.Errorf("repository: failed to execute schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	r.db.Close()
}
