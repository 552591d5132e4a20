package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/librarian/internal/logging"
)

func TestLoanAndCredentialLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	holderA := e.holder(t, "a")
	c1 := e.copy(t, "C1")

	loaned, err := e.circulation.Checkout(ctx, c1.ID, holderA.ID, 7*day)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(7*day), *loaned.DueAt)

	e.clock.Set(t0.Add(8 * day))
	reclaimer := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop())
	sum, err := reclaimer.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Reclaimed)

	got, err := e.circulation.GetCopy(ctx, c1.ID)
	require.NoError(t, err)
	assert.Nil(t, got.HolderID)

	pair, err := e.issuer.Authenticate(ctx, "a", "pw-a")
	require.NoError(t, err)

	next, err := e.rotator.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	ok, err := e.rotator.Validate(ctx, holderA.ID, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.rotator.Validate(ctx, holderA.ID, next.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
}
