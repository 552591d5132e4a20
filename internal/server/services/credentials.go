// Package services contains server-side business logic: the circulation
// state machine with its overdue reclaimer, and the credential issuer and
// rotator with the expired-credential sweep.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/repomanager"
)

// refreshTokenBytes gives 256 bits of entropy per refresh token.
const refreshTokenBytes = 32

// CredentialIssuer registers holders, verifies their secrets and mints
// credentials. Refresh tokens are persisted through CredentialRotator.
type CredentialIssuer struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	tokens      *auth.TokenIssuer
	verifier    auth.SecretVerifier
	hasher      auth.SecretHasher
	rotator     *CredentialRotator
	accessTTL   time.Duration
	refreshTTL  time.Duration
	log         logging.Logger

	dummyHash func() string
}

// SecretScheme both hashes new secrets and verifies presented ones.
type SecretScheme interface {
	auth.SecretHasher
	auth.SecretVerifier
}

func NewCredentialIssuer(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, tokens *auth.TokenIssuer,
	secrets SecretScheme, rotator *CredentialRotator, accessTTL, refreshTTL time.Duration, log logging.Logger) *CredentialIssuer {

	return &CredentialIssuer{
		db:          db,
		repomanager: m,
		clock:       clk,
		tokens:      tokens,
		verifier:    secrets,
		hasher:      secrets,
		rotator:     rotator,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		log:         log.With("module", "issuer"),
		dummyHash:   sync.OnceValue(func() string { return secrets.Hash("not-a-real-secret") }),
	}
}

// IssueAccessToken signs claims valid for ttl from now.
func (s *CredentialIssuer) IssueAccessToken(claims auth.HolderClaims, ttl time.Duration) (string, error) {
	return s.tokens.Generate(claims, ttl, s.clock.Now())
}

// IssueRefreshToken returns a fresh opaque refresh token.
func (s *CredentialIssuer) IssueRefreshToken() (string, error) {
	return newRefreshToken()
}

// ParseAccessToken verifies an access token at the current time.
func (s *CredentialIssuer) ParseAccessToken(token string) (*auth.HolderClaims, error) {
	return s.tokens.Parse(token, s.clock.Now())
}

// Authenticate verifies login and secret and returns a new token pair. The
// refresh token replaces any earlier one of the same holder.
func (s *CredentialIssuer) Authenticate(ctx context.Context, login, secret string) (*TokenPair, error) {
	holder, err := s.repomanager.Holders(s.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep the response time close to that of a wrong secret
			s.verifier.Verify(s.dummyHash(), secret)
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error loading holder: %w", err)
	}

	if !s.verifier.Verify(holder.SecretHash, secret) {
		s.log.Info(ctx, "login rejected", "login", login)
		return nil, common.ErrorInvalidCredentials
	}

	access, err := s.IssueAccessToken(claimsOf(holder), s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}
	refresh, err := s.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.rotator.SaveOrReplace(ctx, holder.ID, refresh, s.refreshTTL); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "holder logged in", "holder_id", holder.ID)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Register creates an ordinary holder. Duplicate logins fail with
// common.ErrorAlreadyExists.
func (s *CredentialIssuer) Register(ctx context.Context, login, displayName, secret string) (*models.Holder, error) {
	return s.createHolder(ctx, login, displayName, secret, common.RoleUser)
}

// EnsureAdmin creates a privileged holder unless the login is taken.
func (s *CredentialIssuer) EnsureAdmin(ctx context.Context, login, secret string) error {
	_, err := s.createHolder(ctx, login, login, secret, common.RoleAdmin)
	if err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
		return err
	}
	return nil
}

func (s *CredentialIssuer) createHolder(ctx context.Context, login, displayName, secret, role string) (*models.Holder, error) {
	login = strings.TrimSpace(login)
	if login == "" || secret == "" {
		return nil, fmt.Errorf("%w: login and secret are required", common.ErrorValidation)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = login
	}

	holder := &models.Holder{
		ID:          uuid.NewString(),
		Login:       login,
		DisplayName: displayName,
		Role:        role,
		SecretHash:  s.hasher.Hash(secret),
	}

	holder, err := s.repomanager.Holders(s.db).Create(ctx, holder)
	if err != nil {
		return nil, fmt.Errorf("error creating holder: %w", err)
	}

	s.log.Info(ctx, "holder registered", "holder_id", holder.ID, "role", role)
	return holder, nil
}

func claimsOf(h *models.Holder) auth.HolderClaims {
	return auth.HolderClaims{HolderID: h.ID, DisplayName: h.DisplayName, Role: h.Role}
}

func newRefreshToken() (string, error) {
	token, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}
