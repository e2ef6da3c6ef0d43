package lease

import (
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
)

var (
	ErrLeaseExhausted      = fmt.Errorf("%w: lease inventory below floor", common.ErrProvider)
	ErrLeaseUnavailable    = fmt.Errorf("%w: lease provider unavailable", common.ErrProvider)
	ErrCodeTimeout         = fmt.Errorf("%w: verification code did not arrive in time", common.ErrTimeout)
	ErrNotConfigured       = fmt.Errorf("%w: auto lease is not configured", common.ErrValidation)
	ErrUnsupportedProvider = fmt.Errorf("%w: unsupported lease provider", common.ErrValidation)
)

// Error annotates a provider failure with the operation and backend name.
type Error struct {
	Op       string
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("lease %s (%s): %v", e.Op, e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
