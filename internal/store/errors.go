package store

import (
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/common"
)

// Error describes a failed store operation. It matches common.ErrStorage
// and the underlying cause with errors.Is.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{common.ErrStorage, e.Err}
}
