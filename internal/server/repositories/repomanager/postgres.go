// Package repomanager vends repository implementations per storage backend
// and exposes the schema migration hook. The PostgreSQL manager runs goose
// migrations; the memory manager backs development mode.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/migrations"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/holders"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/refreshtokens"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// Copies returns a copies.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Copies(db dbx.DBTX) copies.Repository {
	return copies.NewPostgresRepository(db)
}

// Holders returns a holders.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Holders(db dbx.DBTX) holders.Repository {
	return holders.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Transactor returns a dbx.Transactor over the manager's database.
func (m *PostgresRepositoryManager) Transactor() dbx.Transactor {
	return dbx.NewSQLTransactor(m.db)
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
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{db: db}, nil
}
