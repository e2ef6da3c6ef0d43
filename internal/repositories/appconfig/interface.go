package appconfig

import (
	"context"

	"github.com/dmitrijs2005/phonebind/internal/models"
)

type Repository interface {
	Load(ctx context.Context) (models.AppConfig, error)
	Save(ctx context.Context, cfg models.AppConfig) error

	// Update applies fn under the document lock. A returned error aborts
	// the write.
	Update(ctx context.Context, fn func(cfg *models.AppConfig) error) (models.AppConfig, error)
}
