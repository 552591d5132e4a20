package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/holders"
)

type HolderRepository struct {
	s *Store
}

var _ holders.Repository = (*HolderRepository)(nil)

func (r *HolderRepository) Create(ctx context.Context, h *models.Holder) (*models.Holder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.holderLogins[h.Login]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.s.holders[h.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	stored := *h
	r.s.holders[h.ID] = &stored
	r.s.holderLogins[h.Login] = h.ID
	out := stored
	return &out, nil
}

func (r *HolderRepository) GetByLogin(ctx context.Context, login string) (*models.Holder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.holderLogins[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *r.s.holders[id]
	return &out, nil
}

func (r *HolderRepository) GetByID(ctx context.Context, id string) (*models.Holder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.holders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *h
	return &out, nil
}
