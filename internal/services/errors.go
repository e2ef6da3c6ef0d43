package services

import (
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/repositories/accounts"
)

var (
	ErrEmptyAccountID   = fmt.Errorf("%w: account id is empty", common.ErrValidation)
	ErrEmptyLoginID     = fmt.Errorf("%w: login id is empty", common.ErrValidation)
	ErrEmptyPhone       = fmt.Errorf("%w: phone is empty", common.ErrValidation)
	ErrInvalidCode      = fmt.Errorf("%w: verification code must be digits", common.ErrValidation)
	ErrAutoModeDisabled = fmt.Errorf("%w: auto lease mode is not enabled", common.ErrValidation)
	ErrNoLease          = fmt.Errorf("%w: attempt holds no lease", common.ErrValidation)
	ErrAttemptFinished  = fmt.Errorf("%w: attempt already finished", common.ErrValidation)
	ErrBindInProgress   = fmt.Errorf("%w: bind already in progress", common.ErrValidation)

	ErrAccountExists   = accounts.ErrExists
	ErrAccountNotFound = accounts.ErrNotFound
)

// LoginError is the uniform failure of a login attempt. Err keeps the
// underlying cause.
type LoginError struct {
	AccountID string
	Step      string
	Err       error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login %s: %s: %v", e.AccountID, e.Step, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}
