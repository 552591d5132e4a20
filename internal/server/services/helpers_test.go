package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/repomanager"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

const (
	day       = 24 * time.Hour
	accessTTL = 15 * time.Minute
	refreshTT = 72 * time.Hour
)

var errBoom = errors.New("boom")

// plainScheme keeps tests fast; argon2 is covered in auth.
type plainScheme struct{}

func (plainScheme) Hash(s string) string         { return "plain:" + s }
func (plainScheme) Verify(stored, p string) bool { return stored == "plain:"+p }

type env struct {
	clock       *clock.Manual
	manager     repomanager.RepositoryManager
	circulation *CirculationService
	rotator     *CredentialRotator
	issuer      *CredentialIssuer
	tokens      *auth.TokenIssuer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, repomanager.NewMemoryRepositoryManager())
}

func newEnvWith(t *testing.T, m repomanager.RepositoryManager) *env {
	t.Helper()
	clk := clock.NewManual(t0)
	log := logging.Nop()
	tokens := auth.NewTokenIssuer([]byte("test-secret"), "librarian", "library-clients")

	rotator := NewCredentialRotator(nil, m, clk, tokens, accessTTL, refreshTT, time.Hour, log)
	return &env{
		clock:       clk,
		manager:     m,
		circulation: NewCirculationService(nil, m, clk, 7*day, log),
		rotator:     rotator,
		issuer:      NewCredentialIssuer(nil, m, clk, tokens, plainScheme{}, rotator, accessTTL, refreshTT, log),
		tokens:      tokens,
	}
}

func (e *env) copy(t *testing.T, title string) *models.Copy {
	t.Helper()
	c, err := e.circulation.RegisterCopy(context.Background(), NewCopy{Title: title})
	require.NoError(t, err)
	return c
}

func (e *env) holder(t *testing.T, login string) *models.Holder {
	t.Helper()
	h, err := e.issuer.Register(context.Background(), login, "", "pw-"+login)
	require.NoError(t, err)
	return h
}

// faultyManager serves memory repositories but fails Release for chosen copies.
type faultyManager struct {
	*repomanager.MemoryRepositoryManager

	mu      sync.Mutex
	failFor map[string]error
	listErr error
}

func newFaultyManager() *faultyManager {
	return &faultyManager{
		MemoryRepositoryManager: repomanager.NewMemoryRepositoryManager(),
		failFor:                 map[string]error{},
	}
}

func (f *faultyManager) fail(id string, err error) {
	f.mu.Lock()
	f.failFor[id] = err
	f.mu.Unlock()
}

func (f *faultyManager) Copies(db dbx.DBTX) copies.Repository {
	return &faultyCopies{Repository: f.MemoryRepositoryManager.Copies(db), m: f}
}

type faultyCopies struct {
	copies.Repository
	m *faultyManager
}

func (c *faultyCopies) FindOverdue(ctx context.Context, now time.Time) ([]*models.Copy, error) {
	if c.m.listErr != nil {
		return nil, c.m.listErr
	}
	return c.Repository.FindOverdue(ctx, now)
}

func (c *faultyCopies) Release(ctx context.Context, id string, cond copies.ReleaseCondition) (*models.Copy, bool, error) {
	c.m.mu.Lock()
	err := c.m.failFor[id]
	c.m.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return c.Repository.Release(ctx, id, cond)
}
