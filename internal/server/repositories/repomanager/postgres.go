// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/dbx"
	"github.com/dmitrijs2005/checkpost/internal/server/migrations"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/alerts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/checkposts"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/passages"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/rangers"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/segments"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/violations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Segments(db dbx.DBTX) segments.Repository {
	return segments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Checkposts(db dbx.DBTX) checkposts.Repository {
	return checkposts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Rangers(db dbx.DBTX) rangers.Repository {
	return rangers.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Passages returns a passages.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Passages(db dbx.DBTX) passages.Repository {
	return passages.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Violations(db dbx.DBTX) violations.Repository {
	return violations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Alerts(db dbx.DBTX) alerts.Repository {
	return alerts.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenDB opens a pgx-backed *sql.DB and verifies the connection.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
