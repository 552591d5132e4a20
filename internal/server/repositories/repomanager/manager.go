package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/holders"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Transactor() dbx.Transactor
	Copies(db dbx.DBTX) copies.Repository
	Holders(db dbx.DBTX) holders.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
