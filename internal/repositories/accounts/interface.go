package accounts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
)

var (
	ErrNotFound = fmt.Errorf("%w: account", common.ErrorNotFound)
	ErrExists   = fmt.Errorf("%w: account already exists", common.ErrValidation)
)

// Mutator edits an account in place. A returned error aborts the update and
// nothing is written.
type Mutator func(a *models.Account) error

// Repository describes CRUD operations for Account objects.
type Repository interface {
	// List returns all accounts in stored order.
	List(ctx context.Context) ([]models.Account, error)

	// Get returns the account with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Account, error)

	// Create appends a new account; ErrExists if the id is taken.
	Create(ctx context.Context, account models.Account) error

	// Update applies fn to the stored account atomically and returns the
	// result.
	Update(ctx context.Context, id string, fn Mutator) (models.Account, error)

	// Delete removes the account or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
