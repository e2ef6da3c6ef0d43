package sessions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
)

var ErrNotFound = fmt.Errorf("%w: session", common.ErrorNotFound)

// Repository describes access to bind sessions, keyed by account id.
type Repository interface {
	List(ctx context.Context) ([]models.Session, error)
	Get(ctx context.Context, accountID string) (*models.Session, error)

	// Upsert replaces the session of s.WechatID or appends it.
	Upsert(ctx context.Context, s models.Session) error

	// Update edits an existing session atomically.
	Update(ctx context.Context, accountID string, fn func(s *models.Session)) (models.Session, error)
}
