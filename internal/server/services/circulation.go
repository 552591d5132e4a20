package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/models"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/copies"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/repomanager"
)

// maxReturnAttempts bounds ReturnAs retries when the caller re-borrows the
// copy between its conditional write and the follow-up read.
const maxReturnAttempts = 3

// NewCopy describes a copy to be registered in the catalogue.
type NewCopy struct {
	Title  string
	Author string
	ISBN   string
}

// CirculationService is the loan state machine. It is the only writer of a
// copy's holder, issue and due fields. Every transition is one conditional
// write against the store, so foreground requests and the reclaimer can run
// concurrently without in-process locks.
type CirculationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	loanPeriod  time.Duration
	log         logging.Logger
}

func NewCirculationService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, loanPeriod time.Duration, log logging.Logger) *CirculationService {
	return &CirculationService{
		db:          db,
		repomanager: m,
		clock:       clk,
		loanPeriod:  loanPeriod,
		log:         log.With("module", "circulation"),
	}
}

// LoanPeriod is the period applied when Checkout is called without one.
func (s *CirculationService) LoanPeriod() time.Duration {
	return s.loanPeriod
}

// Checkout lends copyID to holderID until now+loanPeriod. A zero loanPeriod
// uses the configured one. It fails with common.ErrorNotFound for an unknown
// copy and common.ErrAlreadyLoaned when the copy has a holder.
func (s *CirculationService) Checkout(ctx context.Context, copyID, holderID string, loanPeriod time.Duration) (*models.Copy, error) {
	if loanPeriod < 0 {
		return nil, fmt.Errorf("%w: negative loan period", common.ErrorValidation)
	}
	if loanPeriod == 0 {
		loanPeriod = s.loanPeriod
	}
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder is required", common.ErrorValidation)
	}

	repo := s.repomanager.Copies(s.db)

	now := s.clock.Now()
	c, ok, err := repo.Checkout(ctx, copyID, holderID, now, now.Add(loanPeriod))
	if err != nil {
		return nil, fmt.Errorf("error checking out copy: %w", err)
	}
	if ok {
		s.log.Info(ctx, "copy checked out", "copy_id", copyID, "holder_id", holderID, "due_at", *c.DueAt)
		return c, nil
	}

	// the conditional write did not apply: tell a missing copy from a loaned one
	if _, err := repo.Find(ctx, copyID); err != nil {
		return nil, err
	}
	return nil, common.ErrAlreadyLoaned
}

// Return clears the loan on copyID. Returning an available copy is a no-op.
func (s *CirculationService) Return(ctx context.Context, copyID string) (*models.Copy, error) {
	repo := s.repomanager.Copies(s.db)

	c, ok, err := repo.Release(ctx, copyID, copies.ReleaseCondition{})
	if err != nil {
		return nil, fmt.Errorf("error returning copy: %w", err)
	}
	if ok {
		s.log.Info(ctx, "copy returned", "copy_id", copyID)
		return c, nil
	}

	return repo.Find(ctx, copyID)
}

// ReturnAs is Return on behalf of holderID: the loan is cleared only if
// holderID still holds the copy at write time. A copy held by someone else
// fails with common.ErrorForbidden; an available copy is a no-op.
func (s *CirculationService) ReturnAs(ctx context.Context, copyID, holderID string) (*models.Copy, error) {
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder is required", common.ErrorValidation)
	}

	repo := s.repomanager.Copies(s.db)

	for attempt := 0; attempt < maxReturnAttempts; attempt++ {
		c, ok, err := repo.Release(ctx, copyID, copies.ReleaseCondition{HolderID: &holderID})
		if err != nil {
			return nil, fmt.Errorf("error returning copy: %w", err)
		}
		if ok {
			s.log.Info(ctx, "copy returned", "copy_id", copyID, "holder_id", holderID)
			return c, nil
		}

		cur, err := repo.Find(ctx, copyID)
		if err != nil {
			return nil, err
		}
		if cur.HolderID == nil {
			return cur, nil
		}
		if *cur.HolderID != holderID {
			return nil, fmt.Errorf("%w: copy is held by another holder", common.ErrorForbidden)
		}
		// the holder checked the copy out again between the write and the read
	}

	return nil, fmt.Errorf("%w: copy changed hands during return", common.ErrorConflict)
}

// Reclaim releases copyID if it is still overdue at write time. A copy that
// was returned in the meantime is not an error; its current state is returned.
func (s *CirculationService) Reclaim(ctx context.Context, copyID string) (*models.Copy, error) {
	c, _, err := s.reclaim(ctx, copyID)
	return c, err
}

func (s *CirculationService) reclaim(ctx context.Context, copyID string) (*models.Copy, bool, error) {
	repo := s.repomanager.Copies(s.db)

	now := s.clock.Now()
	c, ok, err := repo.Release(ctx, copyID, copies.ReleaseCondition{DueBefore: &now})
	if err != nil {
		return nil, false, fmt.Errorf("error reclaiming copy: %w", err)
	}
	if ok {
		return c, true, nil
	}

	c, err = repo.Find(ctx, copyID)
	if err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// FindOverdue lists copies whose due date is before now.
func (s *CirculationService) FindOverdue(ctx context.Context) ([]*models.Copy, error) {
	return s.repomanager.Copies(s.db).FindOverdue(ctx, s.clock.Now())
}

// RegisterCopy adds one available copy to the catalogue.
func (s *CirculationService) RegisterCopy(ctx context.Context, nc NewCopy) (*models.Copy, error) {
	created, err := s.RegisterCopies(ctx, []NewCopy{nc})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// RegisterCopies adds several copies in one transaction; either all of them
// are stored or none.
func (s *CirculationService) RegisterCopies(ctx context.Context, items []NewCopy) ([]*models.Copy, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing to register", common.ErrorValidation)
	}
	for i, nc := range items {
		if strings.TrimSpace(nc.Title) == "" {
			return nil, fmt.Errorf("%w: copy %d has no title", common.ErrorValidation, i)
		}
	}

	out := make([]*models.Copy, 0, len(items))
	err := s.repomanager.Transactor().WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Copies(tx)
		for _, nc := range items {
			c, err := repo.Create(ctx, &models.Copy{
				ID:     uuid.NewString(),
				Title:  strings.TrimSpace(nc.Title),
				Author: strings.TrimSpace(nc.Author),
				ISBN:   strings.TrimSpace(nc.ISBN),
			})
			if err != nil {
				return fmt.Errorf("error creating copy: %w", err)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "copies registered", "count", len(out))
	return out, nil
}

// GetCopy returns one copy by id.
func (s *CirculationService) GetCopy(ctx context.Context, copyID string) (*models.Copy, error) {
	return s.repomanager.Copies(s.db).Find(ctx, copyID)
}

// ListAvailable pages through copies without a holder. page is 1-based.
func (s *CirculationService) ListAvailable(ctx context.Context, page, pageSize int) ([]*models.Copy, int, error) {
	limit, offset := common.Paginate(page, pageSize)
	return s.repomanager.Copies(s.db).ListAvailable(ctx, limit, offset)
}

// ListByHolder pages through copies currently lent to holderID.
func (s *CirculationService) ListByHolder(ctx context.Context, holderID string, page, pageSize int) ([]*models.Copy, int, error) {
	limit, offset := common.Paginate(page, pageSize)
	return s.repomanager.Copies(s.db).ListByHolder(ctx, holderID, limit, offset)
}

// Search pages through the catalogue, loaned copies included. Fields are
// trimmed; a filter with no field set is a validation error.
func (s *CirculationService) Search(ctx context.Context, filter copies.SearchFilter, page, pageSize int) ([]*models.Copy, int, error) {
	filter.Title = strings.TrimSpace(filter.Title)
	filter.Author = strings.TrimSpace(filter.Author)
	filter.ISBN = strings.TrimSpace(filter.ISBN)
	if filter.IsEmpty() {
		return nil, 0, fmt.Errorf("%w: search needs a title, author or isbn", common.ErrorValidation)
	}

	limit, offset := common.Paginate(page, pageSize)
	return s.repomanager.Copies(s.db).Search(ctx, filter, limit, offset)
}

// isNotFound is shared by the background tasks to downgrade races with
// deletions to a debug message.
func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
