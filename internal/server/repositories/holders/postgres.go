package holders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/dbx"
	"github.com/dmitrijs2005/librarian/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, h *models.Holder) (*models.Holder, error) {

	query :=
		`INSERT INTO holders (id, login, display_name, role, secret_hash)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		h.ID, h.Login, h.DisplayName, h.Role, h.SecretHash).Scan(&h.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	return h, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.Holder, error) {
	query :=
		`SELECT id, login, display_name, role, secret_hash, created_at FROM holders
		 WHERE login = $1
		 `
	return r.getOne(ctx, query, login)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Holder, error) {
	query :=
		`SELECT id, login, display_name, role, secret_hash, created_at FROM holders
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Holder, error) {
	h := &models.Holder{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&h.ID, &h.Login, &h.DisplayName, &h.Role, &h.SecretHash, &h.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", dbx.Classify(err))
	}

	return h, nil
}
