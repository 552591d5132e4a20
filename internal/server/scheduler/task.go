// Package scheduler runs a function on a fixed interval in the background.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/logging"
)

// Func is one unit of periodic work.
type Func func(ctx context.Context) error

// Ticker is the part of *time.Ticker the task needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (tt timeTicker) C() <-chan time.Time { return tt.t.C }
func (tt timeTicker) Stop()               { tt.t.Stop() }

// NewTimeTicker is the default TickerFactory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Task invokes fn every interval between Start and Stop. Runs never overlap:
// a timer tick and a RunOnce call are serialized.
type Task struct {
	name      string
	interval  time.Duration
	fn        Func
	log       logging.Logger
	newTicker TickerFactory
	immediate bool

	runMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Task)

// WithTicker replaces the ticker factory (tests drive ticks by hand).
func WithTicker(f TickerFactory) Option {
	return func(t *Task) { t.newTicker = f }
}

// WithImmediateRun makes the task run once right after Start.
func WithImmediateRun() Option {
	return func(t *Task) { t.immediate = true }
}

func New(name string, interval time.Duration, fn Func, log logging.Logger, opts ...Option) *Task {
	t := &Task{
		name:      name,
		interval:  interval,
		fn:        fn,
		log:       log.With("task", name),
		newTicker: NewTimeTicker,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins scheduling. Calling Start on a running task does nothing.
// Cancelling ctx stops scheduling the same way Stop does.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go t.loop(ctx, t.newTicker(t.interval), t.done)

	t.log.Info(ctx, "task started", "interval", t.interval.String())
}

// Stop cancels scheduling and waits for an in-flight run to finish.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	t.log.Info(context.Background(), "task stopped")
}

// Running reports whether the task is between Start and Stop.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// RunOnce runs fn synchronously. A panic in fn is returned as an error.
func (t *Task) RunOnce(ctx context.Context) error {
	return t.Do(ctx, t.fn)
}

// Do runs fn in place of the task's own function, serialized with the
// scheduled runs. Results fn captures are its own. A panic in fn is returned
// as an error.
func (t *Task) Do(ctx context.Context, fn Func) (err error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %s panicked: %v", common.ErrorInternal, t.name, r)
		}
	}()

	return fn(ctx)
}

func (t *Task) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	if t.immediate {
		t.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			t.tick(ctx)
		}
	}
}

// tick runs detached from cancellation so a stopping task still completes
// the batch it is working on.
func (t *Task) tick(ctx context.Context) {
	if err := t.RunOnce(context.WithoutCancel(ctx)); err != nil {
		t.log.Error(ctx, "task run failed", "error", err)
	}
}
