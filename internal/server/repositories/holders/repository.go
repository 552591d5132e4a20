package holders

import (
	"context"

	"github.com/dmitrijs2005/librarian/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, h *models.Holder) (*models.Holder, error)
	GetByLogin(ctx context.Context, login string) (*models.Holder, error)
	GetByID(ctx context.Context, id string) (*models.Holder, error)
}
