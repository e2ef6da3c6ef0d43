package identity

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
)

var (
	// ErrRejected is a reply whose business status is not success, even if
	// the HTTP status was 200.
	ErrRejected       = errors.New("rejected by identity provider")
	ErrMalformedReply = errors.New("malformed identity provider reply")
)

// Error is any identity provider failure. It always matches
// common.ErrIdentityProvider.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{common.ErrIdentityProvider, e.Err}
}
