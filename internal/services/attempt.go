package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/phonebind/internal/lease"
)

// Mode selects where the phone number comes from.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// State of a login attempt.
type State int

const (
	StateIdle State = iota
	StateLeaseAcquired
	StateCodeRequested
	StateCodeObtained
	StateBound
	StatePersisted
	StateAborted
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateLeaseAcquired: "lease_acquired",
	StateCodeRequested: "code_requested",
	StateCodeObtained:  "code_obtained",
	StateBound:         "bound",
	StatePersisted:     "persisted",
	StateAborted:       "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateAborted
}

// Attempt is the context of one login attempt. The exported fields are
// fixed once Start returns.
type Attempt struct {
	AccountID   string
	LoginID     string
	Mode        Mode
	Phone       string
	PhoneCipher string
	AuthCode    string
	OpenID      string

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	lease   *lease.Lease
	binding bool
}

func newAttempt(accountID, loginID string, mode Mode) *Attempt {
	ctx, cancel := context.WithCancel(context.Background())
	return &Attempt{AccountID: accountID, LoginID: loginID, Mode: mode, ctx: ctx, cancel: cancel}
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// HoldsLease reports whether the lease has not been released yet.
func (a *Attempt) HoldsLease() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lease != nil
}

func (a *Attempt) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// advance moves to s unless the attempt already ended.
func (a *Attempt) advance(s State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		return false
	}
	a.state = s
	return true
}

// claim reserves the attempt for one bind call. While it is held Abort only
// cancels the context and the bind result decides the lease outcome.
func (a *Attempt) claim() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.binding:
		return ErrBindInProgress
	case a.state != StateCodeRequested && a.state != StateCodeObtained:
		return ErrAttemptFinished
	}
	a.binding = true
	return nil
}

// bound records a successful remote bind and drops the claim.
func (a *Attempt) bound() {
	a.mu.Lock()
	a.state = StateBound
	a.binding = false
	a.mu.Unlock()
}

func (a *Attempt) currentLease() *lease.Lease {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lease
}

// takeLease hands the lease to exactly one caller.
func (a *Attempt) takeLease() *lease.Lease {
	a.mu.Lock()
	defer a.mu.Unlock()
	l := a.lease
	a.lease = nil
	return l
}

// join returns a context that ends when either parent or the attempt does.
func (a *Attempt) join(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(a.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
