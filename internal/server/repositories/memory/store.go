// Package memory provides process-local implementations of the server
// repositories. They honour the same conditional-write contracts as the
// PostgreSQL ones and back the development mode and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/models"
)

// Store holds all in-memory state. Every repository created from the same
// Store observes the same data.
type Store struct {
	mu sync.RWMutex

	holders      map[string]*models.Holder
	holderLogins map[string]string

	copies map[string]*models.Copy

	tokens      map[string]*models.RefreshToken // by holder id
	tokenHashes map[string]string               // digest -> holder id
}

func NewStore() *Store {
	return &Store{
		holders:      make(map[string]*models.Holder),
		holderLogins: make(map[string]string),
		copies:       make(map[string]*models.Copy),
		tokens:       make(map[string]*models.RefreshToken),
		tokenHashes:  make(map[string]string),
	}
}

func (s *Store) Copies() *CopyRepository { return &CopyRepository{s: s} }

func (s *Store) Holders() *HolderRepository { return &HolderRepository{s: s} }

func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s: s} }

// Transactor runs fn directly; each repository call is atomic on its own and
// there is no rollback.
type Transactor struct{}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}
