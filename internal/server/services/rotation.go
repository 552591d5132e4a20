package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/cryptox"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/librarian/internal/server/scheduler"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SweepSummary reports one pass of the expired-credential sweep.
type SweepSummary struct {
	Scanned int
	Deleted int
	Skipped int
	Failed  int
}

// CredentialRotator owns refresh credentials: it stores them (one per
// holder), validates and rotates them, and deletes expired ones.
// Only digests of the tokens reach the store.
type CredentialRotator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	tokens      *auth.TokenIssuer
	accessTTL   time.Duration
	refreshTTL  time.Duration
	log         logging.Logger
	sweeper     *scheduler.Task
}

func NewCredentialRotator(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, tokens *auth.TokenIssuer,
	accessTTL, refreshTTL, sweepInterval time.Duration, log logging.Logger, opts ...scheduler.Option) *CredentialRotator {

	r := &CredentialRotator{
		db:          db,
		repomanager: m,
		clock:       clk,
		tokens:      tokens,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		log:         log.With("module", "rotator"),
	}
	r.sweeper = scheduler.New("credential-sweep", sweepInterval, r.sweepTick, log, opts...)
	return r
}

// SaveOrReplace makes token the holder's only refresh credential, valid for
// ttl from now. Any previous credential of the holder stops validating.
func (r *CredentialRotator) SaveOrReplace(ctx context.Context, holderID, token string, ttl time.Duration) error {
	repo := r.repomanager.RefreshTokens(r.db)

	expires := r.clock.Now().Add(ttl)
	if err := repo.Upsert(ctx, holderID, cryptox.Digest(token), expires); err != nil {
		return fmt.Errorf("error saving refresh token: %w", err)
	}
	return nil
}

// Validate reports whether token is the current, unexpired credential of holderID.
func (r *CredentialRotator) Validate(ctx context.Context, holderID, token string) (bool, error) {
	repo := r.repomanager.RefreshTokens(r.db)

	rt, err := repo.Find(ctx, cryptox.Digest(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error searching refresh token: %w", err)
	}

	return rt.HolderID == holderID && !rt.Expired(r.clock.Now()), nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// replaced by a single conditional write, so of two concurrent calls with
// the same token only one succeeds; the other gets common.ErrorUnauthorized.
func (r *CredentialRotator) Rotate(ctx context.Context, presented string) (*TokenPair, error) {
	refreshRepo := r.repomanager.RefreshTokens(r.db)

	oldHash := cryptox.Digest(presented)
	rt, err := refreshRepo.Find(ctx, oldHash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	now := r.clock.Now()
	if rt.Expired(now) {
		return nil, common.ErrRefreshTokenExpired
	}

	holder, err := r.repomanager.Holders(r.db).GetByID(ctx, rt.HolderID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: holder no longer exists", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error loading holder: %w", err)
	}

	access, err := r.tokens.Generate(claimsOf(holder), r.accessTTL, now)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	ok, err := refreshRepo.Replace(ctx, holder.ID, oldHash, cryptox.Digest(refresh), now.Add(r.refreshTTL), now)
	if err != nil {
		return nil, fmt.Errorf("error replacing refresh token: %w", err)
	}
	if !ok {
		r.log.Warn(ctx, "refresh token superseded before rotation", "holder_id", holder.ID)
		return nil, fmt.Errorf("%w: refresh token already used", common.ErrorUnauthorized)
	}

	r.log.Debug(ctx, "refresh token rotated", "holder_id", holder.ID)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Revoke deletes the holder's refresh credential (logout).
func (r *CredentialRotator) Revoke(ctx context.Context, holderID string) error {
	if err := r.repomanager.RefreshTokens(r.db).Delete(ctx, holderID); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	r.log.Info(ctx, "refresh token revoked", "holder_id", holderID)
	return nil
}

// SweepExpired deletes every credential with expiresAt <= now. Each row is
// deleted on its own, re-checking expiry, so a credential rotated after the
// scan survives and one failing row does not stop the others.
func (r *CredentialRotator) SweepExpired(ctx context.Context) (SweepSummary, error) {
	var sum SweepSummary
	err := r.sweeper.Do(ctx, func(ctx context.Context) error {
		var err error
		sum, err = r.sweep(ctx)
		return err
	})
	return sum, err
}

func (r *CredentialRotator) Start(ctx context.Context) { r.sweeper.Start(ctx) }

func (r *CredentialRotator) Stop() { r.sweeper.Stop() }

func (r *CredentialRotator) sweepTick(ctx context.Context) error {
	_, err := r.sweep(ctx)
	return err
}

func (r *CredentialRotator) sweep(ctx context.Context) (SweepSummary, error) {
	var sum SweepSummary
	repo := r.repomanager.RefreshTokens(r.db)

	now := r.clock.Now()
	expired, err := repo.ListExpired(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("error listing expired refresh tokens: %w", err)
	}
	sum.Scanned = len(expired)

	for _, rt := range expired {
		deleted, err := repo.DeleteExpired(ctx, rt.HolderID, now)
		switch {
		case err != nil:
			sum.Failed++
			r.log.Error(ctx, "refresh token delete failed", "holder_id", rt.HolderID, "error", err)
		case deleted:
			sum.Deleted++
		default:
			sum.Skipped++
		}
	}

	r.log.Info(ctx, "credential sweep finished",
		"scanned", sum.Scanned, "deleted", sum.Deleted, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}
