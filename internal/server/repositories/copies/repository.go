// Package copies declares the storage contract for loanable copies and its
// PostgreSQL implementation.
package copies

import (
	"context"
	"time"

	"github.com/dmitrijs2005/librarian/internal/server/models"
)

// Repository stores copies. Checkout and Release are single conditional
// writes: they apply only when the precondition still holds at write time
// and report whether they did.
type Repository interface {
	// Create inserts an available copy. ID must already be assigned.
	Create(ctx context.Context, c *models.Copy) (*models.Copy, error)

	// Find returns the copy with the given id or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Copy, error)

	// FindOverdue returns every copy with a holder and due date before now.
	FindOverdue(ctx context.Context, now time.Time) ([]*models.Copy, error)

	// ListAvailable pages through copies without a holder.
	ListAvailable(ctx context.Context, limit, offset int) ([]*models.Copy, int, error)

	// ListByHolder pages through copies currently held by holderID.
	ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]*models.Copy, int, error)

	// Search pages through copies matching every non-empty field of filter,
	// regardless of loan state.
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*models.Copy, int, error)

	// Checkout assigns the copy to holderID if and only if it has no holder.
	Checkout(ctx context.Context, id, holderID string, issuedAt, dueAt time.Time) (*models.Copy, bool, error)

	// Release clears holder and dates if and only if the copy is held and
	// every condition set in cond holds at write time.
	Release(ctx context.Context, id string, cond ReleaseCondition) (*models.Copy, bool, error)
}

// ReleaseCondition narrows when Release applies.
type ReleaseCondition struct {
	// DueBefore, if non-nil, requires due_at < *DueBefore.
	DueBefore *time.Time
	// HolderID, if non-nil, requires the copy to be held by *HolderID.
	HolderID *string
}

// SearchFilter selects copies by catalogue fields. Title and Author match a
// case-insensitive substring, ISBN matches exactly. Empty fields are ignored.
type SearchFilter struct {
	Title  string
	Author string
	ISBN   string
}

// IsEmpty reports whether no field is set.
func (f SearchFilter) IsEmpty() bool {
	return f.Title == "" && f.Author == "" && f.ISBN == ""
}
