package copies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/models"
)

const (
	tableCopies  = "copies"
	colID        = "id"
	colTitle     = "title"
	colAuthor    = "author"
	colISBN      = "isbn"
	colHolderID  = "holder_id"
	colIssuedAt  = "issued_at"
	colDueAt     = "due_at"
	colCreatedAt = "created_at"
)

var copyColumns = []any{colID, colTitle, colAuthor, colISBN, colHolderID, colIssuedAt, colDueAt, colCreatedAt}

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx). Queries are built with goqu in prepared mode.
type PostgresRepository struct {
	db      dbx.DBTX
	dialect goqu.DialectWrapper
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, dialect: goqu.Dialect("postgres")}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Copy) (*models.Copy, error) {
	query, args, err := r.dialect.Insert(tableCopies).Prepared(true).
		Rows(goqu.Record{
			colID:     c.ID,
			colTitle:  c.Title,
			colAuthor: c.Author,
			colISBN:   c.ISBN,
		}).
		Returning(colCreatedAt).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return c, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Copy, error) {
	query, args, err := r.selectCopies().Where(goqu.C(colID).Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	c, err := scanCopy(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return c, nil
}

func (r *PostgresRepository) FindOverdue(ctx context.Context, now time.Time) ([]*models.Copy, error) {
	query, args, err := r.selectCopies().
		Where(goqu.C(colHolderID).IsNotNull(), goqu.C(colDueAt).Lt(now)).
		Order(goqu.C(colDueAt).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return r.queryCopies(ctx, query, args)
}

func (r *PostgresRepository) ListAvailable(ctx context.Context, limit, offset int) ([]*models.Copy, int, error) {
	return r.page(ctx, goqu.C(colHolderID).IsNull(), limit, offset)
}

func (r *PostgresRepository) ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]*models.Copy, int, error) {
	return r.page(ctx, goqu.C(colHolderID).Eq(holderID), limit, offset)
}

func (r *PostgresRepository) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*models.Copy, int, error) {
	conds := exp.NewExpressionList(exp.AndType)
	if filter.Title != "" {
		conds = conds.Append(goqu.C(colTitle).ILike("%" + escapeLike(filter.Title) + "%"))
	}
	if filter.Author != "" {
		conds = conds.Append(goqu.C(colAuthor).ILike("%" + escapeLike(filter.Author) + "%"))
	}
	if filter.ISBN != "" {
		conds = conds.Append(goqu.C(colISBN).Eq(filter.ISBN))
	}
	return r.page(ctx, conds, limit, offset)
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) Checkout(ctx context.Context, id, holderID string, issuedAt, dueAt time.Time) (*models.Copy, bool, error) {
	query, args, err := r.dialect.Update(tableCopies).Prepared(true).
		Set(goqu.Record{
			colHolderID: holderID,
			colIssuedAt: issuedAt,
			colDueAt:    dueAt,
		}).
		Where(goqu.C(colID).Eq(id), goqu.C(colHolderID).IsNull()).
		Returning(copyColumns...).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build update: %w", err)
	}
	return r.conditionalUpdate(ctx, query, args)
}

func (r *PostgresRepository) Release(ctx context.Context, id string, cond ReleaseCondition) (*models.Copy, bool, error) {
	where := []exp.Expression{goqu.C(colID).Eq(id), goqu.C(colHolderID).IsNotNull()}
	if cond.DueBefore != nil {
		where = append(where, goqu.C(colDueAt).Lt(*cond.DueBefore))
	}
	if cond.HolderID != nil {
		where = append(where, goqu.C(colHolderID).Eq(*cond.HolderID))
	}

	query, args, err := r.dialect.Update(tableCopies).Prepared(true).
		Set(goqu.Record{
			colHolderID: nil,
			colIssuedAt: nil,
			colDueAt:    nil,
		}).
		Where(where...).
		Returning(copyColumns...).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build update: %w", err)
	}
	return r.conditionalUpdate(ctx, query, args)
}

// conditionalUpdate runs an UPDATE ... RETURNING and reports whether a row matched.
func (r *PostgresRepository) conditionalUpdate(ctx context.Context, query string, args []any) (*models.Copy, bool, error) {
	c, err := scanCopy(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return c, true, nil
}

func (r *PostgresRepository) page(ctx context.Context, filter exp.Expression, limit, offset int) ([]*models.Copy, int, error) {
	countQuery, countArgs, err := r.dialect.From(tableCopies).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(filter).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	query, args, err := r.selectCopies().
		Where(filter).
		Order(goqu.C(colTitle).Asc(), goqu.C(colID).Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build select: %w", err)
	}

	items, err := r.queryCopies(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) selectCopies() *goqu.SelectDataset {
	return r.dialect.From(tableCopies).Prepared(true).Select(copyColumns...)
}

func (r *PostgresRepository) queryCopies(ctx context.Context, query string, args []any) ([]*models.Copy, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	defer rows.Close()

	var out []*models.Copy
	for rows.Next() {
		c, err := scanCopy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCopy(s scanner) (*models.Copy, error) {
	var (
		c        models.Copy
		holderID sql.NullString
		issuedAt sql.NullTime
		dueAt    sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Title, &c.Author, &c.ISBN, &holderID, &issuedAt, &dueAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if holderID.Valid {
		c.HolderID = &holderID.String
	}
	if issuedAt.Valid {
		t := issuedAt.Time.UTC()
		c.IssuedAt = &t
	}
	if dueAt.Valid {
		t := dueAt.Time.UTC()
		c.DueAt = &t
	}
	return &c, nil
}
