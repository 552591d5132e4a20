package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
)

type CopyRepository struct {
	s *Store
}

var _ copies.Repository = (*CopyRepository)(nil)

func cloneCopy(c *models.Copy) *models.Copy {
	out := *c
	if c.HolderID != nil {
		h := *c.HolderID
		out.HolderID = &h
	}
	if c.IssuedAt != nil {
		t := *c.IssuedAt
		out.IssuedAt = &t
	}
	if c.DueAt != nil {
		t := *c.DueAt
		out.DueAt = &t
	}
	return &out
}

func (r *CopyRepository) Create(ctx context.Context, c *models.Copy) (*models.Copy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.copies[c.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := cloneCopy(c)
	stored.HolderID, stored.IssuedAt, stored.DueAt = nil, nil, nil
	r.s.copies[c.ID] = stored
	return cloneCopy(stored), nil
}

func (r *CopyRepository) Find(ctx context.Context, id string) (*models.Copy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.copies[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneCopy(c), nil
}

func (r *CopyRepository) FindOverdue(ctx context.Context, now time.Time) ([]*models.Copy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Copy
	for _, c := range r.s.copies {
		if c.HolderID != nil && c.DueAt != nil && c.DueAt.Before(now) {
			out = append(out, cloneCopy(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(*out[j].DueAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueAt.Before(*out[j].DueAt)
	})
	return out, nil
}

func (r *CopyRepository) ListAvailable(ctx context.Context, limit, offset int) ([]*models.Copy, int, error) {
	return r.page(func(c *models.Copy) bool { return c.HolderID == nil }, limit, offset)
}

func (r *CopyRepository) ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]*models.Copy, int, error) {
	return r.page(func(c *models.Copy) bool { return c.HolderID != nil && *c.HolderID == holderID }, limit, offset)
}

func (r *CopyRepository) Search(ctx context.Context, filter copies.SearchFilter, limit, offset int) ([]*models.Copy, int, error) {
	title, author := strings.ToLower(filter.Title), strings.ToLower(filter.Author)
	return r.page(func(c *models.Copy) bool {
		return strings.Contains(strings.ToLower(c.Title), title) &&
			strings.Contains(strings.ToLower(c.Author), author) &&
			(filter.ISBN == "" || c.ISBN == filter.ISBN)
	}, limit, offset)
}

func (r *CopyRepository) page(match func(*models.Copy) bool, limit, offset int) ([]*models.Copy, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []*models.Copy
	for _, c := range r.s.copies {
		if match(c) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Title == all[j].Title {
			return all[i].ID < all[j].ID
		}
		return all[i].Title < all[j].Title
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]*models.Copy, 0, end-offset)
	for _, c := range all[offset:end] {
		out = append(out, cloneCopy(c))
	}
	return out, total, nil
}

func (r *CopyRepository) Checkout(ctx context.Context, id, holderID string, issuedAt, dueAt time.Time) (*models.Copy, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.copies[id]
	if !ok || c.HolderID != nil {
		return nil, false, nil
	}
	h := holderID
	c.HolderID, c.IssuedAt, c.DueAt = &h, &issuedAt, &dueAt
	return cloneCopy(c), true, nil
}

func (r *CopyRepository) Release(ctx context.Context, id string, cond copies.ReleaseCondition) (*models.Copy, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.copies[id]
	if !ok || c.HolderID == nil {
		return nil, false, nil
	}
	if cond.DueBefore != nil && (c.DueAt == nil || !c.DueAt.Before(*cond.DueBefore)) {
		return nil, false, nil
	}
	if cond.HolderID != nil && *c.HolderID != *cond.HolderID {
		return nil, false, nil
	}
	c.HolderID, c.IssuedAt, c.DueAt = nil, nil, nil
	return cloneCopy(c), true, nil
}
