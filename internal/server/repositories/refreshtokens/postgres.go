package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, holderID, hash string, expires time.Time) error {
	query := `
		INSERT INTO refresh_tokens (holder_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (holder_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, holderID, hash, expires); err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, hash string) (*models.RefreshToken, error) {
	query := `
		SELECT holder_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	return r.findOne(ctx, query, hash)
}

func (r *PostgresRepository) FindByHolder(ctx context.Context, holderID string) (*models.RefreshToken, error) {
	query := `
		SELECT holder_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE holder_id = $1
	`
	return r.findOne(ctx, query, holderID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query, arg string) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{}
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&rt.HolderID, &rt.Token, &rt.Expires, &rt.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return rt, nil
}

func (r *PostgresRepository) Replace(ctx context.Context, holderID, oldHash, newHash string, expires, now time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET token_hash = $3, expires_at = $4, created_at = $5
		WHERE holder_id = $1 AND token_hash = $2 AND expires_at > $5
	`
	res, err := r.db.ExecContext(ctx, query, holderID, oldHash, newHash, expires, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return affected(res)
}

func (r *PostgresRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.RefreshToken, error) {
	query := `
		SELECT holder_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE expires_at <= $1
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	defer rows.Close()

	var out []*models.RefreshToken
	for rows.Next() {
		rt := &models.RefreshToken{}
		if err := rows.Scan(&rt.HolderID, &rt.Token, &rt.Expires, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return out, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, holderID string, now time.Time) (bool, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE holder_id = $1 AND expires_at <= $2
	`
	res, err := r.db.ExecContext(ctx, query, holderID, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return affected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, holderID string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE holder_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, holderID); err != nil {
		return fmt.Errorf("db error: %w", dbx.Classify(err))
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
