package submissions

import (
	"context"

	"github.com/dmitrijs2005/phonebind/internal/models"
)

type Repository interface {
	Append(ctx context.Context, event models.Event) error
	List(ctx context.Context) ([]models.Event, error)
}
