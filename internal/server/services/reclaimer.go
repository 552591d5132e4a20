package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/scheduler"
)

// ReclaimSummary reports one pass of the overdue reclaimer.
type ReclaimSummary struct {
	Scanned   int
	Reclaimed int
	Skipped   int
	Failed    int
}

// OverdueReclaimer periodically returns overdue copies through
// CirculationService.Reclaim. A failing copy is logged and the pass goes on.
type OverdueReclaimer struct {
	circulation *CirculationService
	log         logging.Logger
	task        *scheduler.Task
}

func NewOverdueReclaimer(c *CirculationService, interval time.Duration, log logging.Logger, opts ...scheduler.Option) *OverdueReclaimer {
	r := &OverdueReclaimer{
		circulation: c,
		log:         log.With("module", "reclaimer"),
	}
	r.task = scheduler.New("overdue-reclaimer", interval, r.tick, log, opts...)
	return r
}

func (r *OverdueReclaimer) Start(ctx context.Context) { r.task.Start(ctx) }

func (r *OverdueReclaimer) Stop() { r.task.Stop() }

// RunOnce performs one pass now, serialized with the timer-driven ones, and
// returns that pass's summary.
func (r *OverdueReclaimer) RunOnce(ctx context.Context) (ReclaimSummary, error) {
	var sum ReclaimSummary
	err := r.task.Do(ctx, func(ctx context.Context) error {
		var err error
		sum, err = r.reclaimOverdue(ctx)
		return err
	})
	return sum, err
}

func (r *OverdueReclaimer) tick(ctx context.Context) error {
	_, err := r.reclaimOverdue(ctx)
	return err
}

func (r *OverdueReclaimer) reclaimOverdue(ctx context.Context) (ReclaimSummary, error) {
	var sum ReclaimSummary

	overdue, err := r.circulation.FindOverdue(ctx)
	if err != nil {
		return sum, fmt.Errorf("error listing overdue copies: %w", err)
	}
	sum.Scanned = len(overdue)

	for _, c := range overdue {
		_, reclaimed, err := r.circulation.reclaim(ctx, c.ID)
		switch {
		case err != nil && isNotFound(err):
			sum.Skipped++
			r.log.Debug(ctx, "overdue copy disappeared", "copy_id", c.ID)
		case err != nil:
			sum.Failed++
			r.log.Error(ctx, "reclaim failed", "copy_id", c.ID, "error", err)
		case reclaimed:
			sum.Reclaimed++
			r.log.Info(ctx, "copy reclaimed", "copy_id", c.ID, "holder_id", *c.HolderID, "due_at", *c.DueAt)
		default:
			sum.Skipped++
		}
	}

	r.log.Info(ctx, "reclaim pass finished",
		"scanned", sum.Scanned, "reclaimed", sum.Reclaimed, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}
