// Package refreshtokens declares the server-side repository contract for
// refresh credentials in persistent storage. Each holder owns at most one
// record; tokens are stored as digests, never in plain form.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/librarian/internal/server/models"
)

// Repository defines operations for storing, rotating, and expiring refresh credentials.
type Repository interface {
	// Upsert stores hash for holderID, replacing any previous record of that holder.
	Upsert(ctx context.Context, holderID, hash string, expires time.Time) error

	// Find looks up a record by token digest. It returns common.ErrorNotFound
	// when no record carries that digest.
	Find(ctx context.Context, hash string) (*models.RefreshToken, error)

	// FindByHolder returns the current record of holderID, or common.ErrorNotFound.
	FindByHolder(ctx context.Context, holderID string) (*models.RefreshToken, error)

	// Replace swaps oldHash for newHash in a single conditional write. It applies
	// only while holderID still owns oldHash and the record has not expired at now.
	Replace(ctx context.Context, holderID, oldHash, newHash string, expires, now time.Time) (bool, error)

	// ListExpired returns all records whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]*models.RefreshToken, error)

	// DeleteExpired removes the record of holderID only if it is still expired at now.
	DeleteExpired(ctx context.Context, holderID string, now time.Time) (bool, error)

	// Delete removes the record of holderID. Deleting a missing record is not an error.
	Delete(ctx context.Context, holderID string) error
}
