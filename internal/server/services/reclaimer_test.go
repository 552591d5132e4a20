package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/scheduler"
)

type manualTicker struct{ c chan time.Time }

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

func TestReclaimer_RunOnceReclaimsOverdue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, b := e.copy(t, "A"), e.copy(t, "B")
	e.copy(t, "C")

	_, err := e.circulation.Checkout(ctx, a.ID, "h1", day)
	require.NoError(t, err)
	_, err = e.circulation.Checkout(ctx, b.ID, "h2", 10*day)
	require.NoError(t, err)

	e.clock.Advance(2 * day)

	r := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop())
	sum, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReclaimSummary{Scanned: 1, Reclaimed: 1}, sum)

	got, err := e.circulation.GetCopy(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Available())

	got, err = e.circulation.GetCopy(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Available())

	sum, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReclaimSummary{}, sum)
}

func TestReclaimer_OneFailureDoesNotAbortBatch(t *testing.T) {
	m := newFaultyManager()
	e := newEnvWith(t, m)
	ctx := context.Background()

	ids := []string{e.copy(t, "A").ID, e.copy(t, "B").ID, e.copy(t, "C").ID}
	for _, id := range ids {
		_, err := e.circulation.Checkout(ctx, id, "h1", day)
		require.NoError(t, err)
	}
	m.fail(ids[1], errBoom)
	e.clock.Advance(2 * day)

	r := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop())
	sum, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReclaimSummary{Scanned: 3, Reclaimed: 2, Failed: 1}, sum)

	for i, id := range ids {
		got, err := e.circulation.GetCopy(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, i != 1, got.Available(), "copy %d", i)
	}
}

func TestReclaimer_ListFailureIsReported(t *testing.T) {
	m := newFaultyManager()
	m.listErr = errBoom
	e := newEnvWith(t, m)

	r := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop())
	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestReclaimer_TicksUntilStopped(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.copy(t, "A")
	_, err := e.circulation.Checkout(ctx, c.ID, "h1", day)
	require.NoError(t, err)
	e.clock.Advance(2 * day)

	tk := &manualTicker{c: make(chan time.Time)}
	r := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop(),
		scheduler.WithTicker(func(time.Duration) scheduler.Ticker { return tk }))

	r.Start(ctx)
	tk.c <- time.Now()

	require.Eventually(t, func() bool {
		got, err := e.circulation.GetCopy(ctx, c.ID)
		return err == nil && got.Available()
	}, time.Second, 5*time.Millisecond)

	r.Stop()
}

func TestReclaimer_ConcurrentRunsReportTheirOwnPass(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	const n = 5
	for i := 0; i < n; i++ {
		c := e.copy(t, string(rune('A'+i)))
		_, err := e.circulation.Checkout(ctx, c.ID, "h1", day)
		require.NoError(t, err)
	}
	e.clock.Advance(2 * day)

	r := NewOverdueReclaimer(e.circulation, time.Minute, logging.Nop())

	sums := make([]ReclaimSummary, 4)
	var wg sync.WaitGroup
	for i := range sums {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sum, err := r.RunOnce(ctx)
			assert.NoError(t, err)
			sums[i] = sum
		}(i)
	}
	wg.Wait()

	// passes are serialized, so exactly one of them saw the overdue copies
	reclaimed, withWork := 0, 0
	for _, s := range sums {
		reclaimed += s.Reclaimed
		if s.Scanned > 0 {
			withWork++
		}
	}
	assert.Equal(t, n, reclaimed)
	assert.Equal(t, 1, withWork)
}
