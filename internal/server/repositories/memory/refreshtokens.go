package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/refreshtokens"
)

type RefreshTokenRepository struct {
	s *Store
}

var _ refreshtokens.Repository = (*RefreshTokenRepository)(nil)

// put must be called with the write lock held.
func (r *RefreshTokenRepository) put(rt *models.RefreshToken) {
	if prev, ok := r.s.tokens[rt.HolderID]; ok {
		delete(r.s.tokenHashes, prev.Token)
	}
	r.s.tokens[rt.HolderID] = rt
	r.s.tokenHashes[rt.Token] = rt.HolderID
}

// drop must be called with the write lock held.
func (r *RefreshTokenRepository) drop(holderID string) {
	if prev, ok := r.s.tokens[holderID]; ok {
		delete(r.s.tokenHashes, prev.Token)
		delete(r.s.tokens, holderID)
	}
}

func (r *RefreshTokenRepository) Upsert(ctx context.Context, holderID, hash string, expires time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if owner, ok := r.s.tokenHashes[hash]; ok && owner != holderID {
		return common.ErrorAlreadyExists
	}
	r.put(&models.RefreshToken{HolderID: holderID, Token: hash, Expires: expires, CreatedAt: time.Now().UTC()})
	return nil
}

func (r *RefreshTokenRepository) Find(ctx context.Context, hash string) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	holderID, ok := r.s.tokenHashes[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *r.s.tokens[holderID]
	return &out, nil
}

func (r *RefreshTokenRepository) FindByHolder(ctx context.Context, holderID string) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rt, ok := r.s.tokens[holderID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *rt
	return &out, nil
}

func (r *RefreshTokenRepository) Replace(ctx context.Context, holderID, oldHash, newHash string, expires, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rt, ok := r.s.tokens[holderID]
	if !ok || rt.Token != oldHash || !rt.Expires.After(now) {
		return false, nil
	}
	if owner, ok := r.s.tokenHashes[newHash]; ok && owner != holderID {
		return false, common.ErrorAlreadyExists
	}
	r.put(&models.RefreshToken{HolderID: holderID, Token: newHash, Expires: expires, CreatedAt: now})
	return true, nil
}

func (r *RefreshTokenRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.RefreshToken
	for _, rt := range r.s.tokens {
		if rt.Expired(now) {
			cp := *rt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expires.Before(out[j].Expires) })
	return out, nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, holderID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rt, ok := r.s.tokens[holderID]
	if !ok || !rt.Expired(now) {
		return false, nil
	}
	r.drop(holderID)
	return true, nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, holderID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.drop(holderID)
	return nil
}
