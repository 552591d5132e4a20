package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/holders"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/memory"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/refreshtokens"
)

// MemoryRepositoryManager serves every repository from one memory.Store.
// The DBTX arguments are ignored.
type MemoryRepositoryManager struct {
	store *memory.Store
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Transactor() dbx.Transactor { return memory.Transactor{} }

func (m *MemoryRepositoryManager) Copies(dbx.DBTX) copies.Repository { return m.store.Copies() }

func (m *MemoryRepositoryManager) Holders(dbx.DBTX) holders.Repository { return m.store.Holders() }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.store.RefreshTokens()
}
