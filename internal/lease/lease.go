// Package lease models disposable phone numbers rented from a third-party
// SMS provider and the policy that governs returning them.
//
// A Provider talks to one backend. Manager owns the live provider built from
// the persisted auto_sms settings, the enable/disable toggle and the release
// policy. Callers must release every acquired Lease exactly once.
package lease

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
)

// Lease is a phone number reserved for one verification-code cycle.
type Lease struct {
	Phone     string
	Token     string
	ProjectID string
	Data      map[string]string
}

// Provider drives one lease backend.
type Provider interface {
	// Acquire requests a number. The returned lease must be released.
	Acquire(ctx context.Context) (*Lease, error)

	// WaitForCode polls until a numeric code arrives, the configured max
	// wait elapses (ErrCodeTimeout) or ctx is done.
	WaitForCode(ctx context.Context, l *Lease) (string, error)

	// Release returns the number, or blacklists it when blacklist is set.
	// Failures are logged, never returned.
	Release(ctx context.Context, l *Lease, blacklist bool)

	// Balance returns the account balance as reported by the backend.
	Balance(ctx context.Context) (string, error)
}

// Deps are the collaborators handed to a Factory.
type Deps struct {
	Logger logging.Logger
	Clock  clock.Clock
	HTTP   *http.Client
}

// Factory builds a Provider from persisted settings.
type Factory func(cfg models.AutoSMSConfig, deps Deps) (Provider, error)

// Outcome selects the release policy applied to a lease.
type Outcome int

const (
	// OutcomeSucceeded: the bind completed.
	OutcomeSucceeded Outcome = iota
	// OutcomeAbandoned: the flow stopped before a code was requested from
	// the lease, the number itself is fine.
	OutcomeAbandoned
	// OutcomeFailed: waiting for the code or binding failed, or the user
	// aborted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decide returns whether a lease should be released for outcome o and with
// which blacklist flag.
func Decide(cfg models.AutoSMSConfig, o Outcome) (release, blacklist bool) {
	switch o {
	case OutcomeSucceeded:
		return cfg.ReleaseOnSuccess, false
	case OutcomeAbandoned:
		return cfg.ReleaseOnFailure, false
	default:
		return cfg.ReleaseOnFailure, cfg.BlacklistOnFailure
	}
}
