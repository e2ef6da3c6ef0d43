package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/cryptox"
	"github.com/dmitrijs2005/phonebind/internal/identity"
	"github.com/dmitrijs2005/phonebind/internal/lease"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/sessions"
)

// Leases is the part of lease.Manager the login flow drives.
type Leases interface {
	Enabled() bool
	Acquire(ctx context.Context) (*lease.Lease, error)
	WaitForCode(ctx context.Context, l *lease.Lease) (string, error)
	Release(ctx context.Context, l *lease.Lease, o lease.Outcome) bool
}

// PhoneBinder records a bound phone on the account.
type PhoneBinder interface {
	BindPhone(ctx context.Context, id, phone string) (models.Account, error)
}

// StartRequest starts an attempt. Phone is ignored in auto mode.
type StartRequest struct {
	AccountID string
	LoginID   string
	Phone     string
	Mode      Mode
}

// LoginService orchestrates lease, identity provider and persistence for
// bind attempts. Attempts for different accounts may run concurrently.
type LoginService struct {
	leases   Leases
	idp      identity.Client
	enc      cryptox.Encoder
	accounts PhoneBinder
	sessions sessions.Repository
	clock    clock.Clock
	log      logging.Logger
}

// NewLoginService returns a LoginService. A nil clock means real time and a
// nil logger discards.
func NewLoginService(leases Leases, idp identity.Client, enc cryptox.Encoder, accounts PhoneBinder,
	sess sessions.Repository, clk clock.Clock, log logging.Logger) *LoginService {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &LoginService{
		leases:   leases,
		idp:      idp,
		enc:      enc,
		accounts: accounts,
		sessions: sess,
		clock:    clk,
		log:      log.With("component", "login"),
	}
}

// AutoEnabled reports whether auto mode can be used.
func (s *LoginService) AutoEnabled() bool {
	return s.leases != nil && s.leases.Enabled()
}

// Start validates input, leases a number in auto mode, drives the identity
// provider up to sending the verification code and records a provisional
// session.
func (s *LoginService) Start(ctx context.Context, req StartRequest) (*Attempt, error) {
	accountID := strings.TrimSpace(req.AccountID)
	loginID := strings.TrimSpace(req.LoginID)
	mode := req.Mode
	if mode == "" {
		mode = ModeManual
	}

	switch {
	case accountID == "":
		return nil, &LoginError{AccountID: accountID, Step: "validate", Err: ErrEmptyAccountID}
	case loginID == "":
		return nil, &LoginError{AccountID: accountID, Step: "validate", Err: ErrEmptyLoginID}
	case mode == ModeManual && strings.TrimSpace(req.Phone) == "":
		return nil, &LoginError{AccountID: accountID, Step: "validate", Err: ErrEmptyPhone}
	case mode == ModeAuto && !s.AutoEnabled():
		return nil, &LoginError{AccountID: accountID, Step: "validate", Err: ErrAutoModeDisabled}
	}

	a := newAttempt(accountID, loginID, mode)
	a.Phone = strings.TrimSpace(req.Phone)
	ctx, done := a.join(ctx)
	defer done()

	if mode == ModeAuto {
		l, err := s.leases.Acquire(ctx)
		if err != nil {
			a.setState(StateAborted)
			a.cancel()
			s.log.Warn(ctx, "lease acquire failed", "account", accountID, "error", err)
			return nil, &LoginError{AccountID: accountID, Step: "acquire lease", Err: err}
		}
		a.mu.Lock()
		a.lease = l
		a.state = StateLeaseAcquired
		a.mu.Unlock()
		a.Phone = strings.TrimSpace(l.Phone)
	}
	if a.Phone == "" {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "validate", ErrEmptyPhone)
	}

	cipher, err := s.enc.EncryptPhone(a.Phone)
	if err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "encrypt phone", err)
	}
	a.PhoneCipher = cipher

	redirect, err := s.idp.Authorize(ctx, loginID)
	if err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "authorize", err)
	}
	if a.AuthCode, err = identity.ExtractCode(redirect); err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "authorize", err)
	}
	if a.OpenID, err = s.idp.FetchUserID(ctx, a.AuthCode); err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "fetch user id", err)
	}
	if err := s.idp.SendCode(ctx, a.PhoneCipher); err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "send code", err)
	}

	// The code was sent, so remote state changed: record it before waiting.
	if err := s.sessions.Upsert(ctx, models.NewSession(accountID, a.AuthCode, a.OpenID, s.clock.Now())); err != nil {
		return nil, s.fail(ctx, a, lease.OutcomeAbandoned, "save session", err)
	}
	a.setState(StateCodeRequested)

	s.log.Info(ctx, "verification code sent", "account", accountID, "mode", string(mode), "phone", common.MaskPhone(a.Phone))
	return a, nil
}

// ObtainCode waits for the code on the leased number. It is only valid in
// auto mode and may run on its own goroutine while the caller keeps the
// ability to Abort.
func (s *LoginService) ObtainCode(ctx context.Context, a *Attempt) (string, error) {
	if a.State().Terminal() {
		return "", &LoginError{AccountID: a.AccountID, Step: "wait for code", Err: ErrAttemptFinished}
	}
	l := a.currentLease()
	if a.Mode != ModeAuto || l == nil {
		return "", &LoginError{AccountID: a.AccountID, Step: "wait for code", Err: ErrNoLease}
	}

	ctx, done := a.join(ctx)
	defer done()

	code, err := s.leases.WaitForCode(ctx, l)
	if err != nil {
		return "", s.fail(ctx, a, lease.OutcomeFailed, "wait for code", err)
	}
	if !a.advance(StateCodeObtained) {
		return "", &LoginError{AccountID: a.AccountID, Step: "wait for code", Err: ErrAttemptFinished}
	}
	s.log.Info(ctx, "verification code obtained", "account", a.AccountID)
	return code, nil
}

// Complete binds the phone with code. An empty or non-numeric code is
// rejected without touching the lease.
func (s *LoginService) Complete(ctx context.Context, a *Attempt, code string) error {
	code = strings.TrimSpace(code)
	if !numeric(code) {
		return &LoginError{AccountID: a.AccountID, Step: "validate", Err: ErrInvalidCode}
	}
	if err := a.claim(); err != nil {
		return &LoginError{AccountID: a.AccountID, Step: "bind", Err: err}
	}

	ctx, done := a.join(ctx)
	defer done()

	codeCipher, err := s.enc.EncryptPhone(code)
	if err != nil {
		return s.fail(ctx, a, lease.OutcomeFailed, "encrypt code", err)
	}
	if err := s.idp.Bind(ctx, a.PhoneCipher, codeCipher, a.OpenID); err != nil {
		return s.fail(ctx, a, lease.OutcomeFailed, "bind", err)
	}
	a.bound()

	// Bind is done remotely; storage errors from here on no longer make the
	// lease a failure.
	persistCtx := context.WithoutCancel(ctx)
	var storeErr error
	if _, err := s.accounts.BindPhone(persistCtx, a.AccountID, a.Phone); err != nil {
		storeErr = err
	}
	if err := s.touchSession(persistCtx, a); err != nil {
		storeErr = errors.Join(storeErr, err)
	}
	if l := a.takeLease(); l != nil {
		s.leases.Release(persistCtx, l, lease.OutcomeSucceeded)
	}
	a.cancel()

	if storeErr != nil {
		s.log.Error(ctx, "bind succeeded but state was not saved", "account", a.AccountID, "error", storeErr)
		return &LoginError{AccountID: a.AccountID, Step: "persist", Err: storeErr}
	}
	a.advance(StatePersisted)
	s.log.Info(ctx, "phone bound", "account", a.AccountID, "phone", common.MaskPhone(a.Phone))
	return nil
}

// Abort stops the attempt, halting any code polling, and releases the lease
// as failed if it is still held. During a bind it only cancels the call and
// leaves the outcome to Complete. Calling it again, or after the attempt
// ended, does nothing.
func (s *LoginService) Abort(ctx context.Context, a *Attempt) {
	a.cancel()
	a.mu.Lock()
	if a.binding {
		a.mu.Unlock()
		s.log.Info(ctx, "abort requested during bind", "account", a.AccountID)
		return
	}
	if a.state.Terminal() || a.state == StateBound {
		a.mu.Unlock()
		return
	}
	a.state = StateAborted
	l := a.lease
	a.lease = nil
	a.mu.Unlock()

	if l != nil {
		s.leases.Release(context.WithoutCancel(ctx), l, lease.OutcomeFailed)
	}
	s.log.Info(ctx, "attempt aborted", "account", a.AccountID)
}

// Session returns the persisted session of an account.
func (s *LoginService) Session(ctx context.Context, accountID string) (*models.Session, error) {
	return s.sessions.Get(ctx, accountID)
}

// fail ends the attempt: the lease, if still held, is released with
// outcome o and the cause is wrapped into a LoginError.
func (s *LoginService) fail(ctx context.Context, a *Attempt, o lease.Outcome, step string, cause error) error {
	a.mu.Lock()
	l := a.lease
	a.lease = nil
	a.binding = false
	if !a.state.Terminal() {
		a.state = StateAborted
	}
	a.mu.Unlock()
	a.cancel()

	if l != nil {
		s.leases.Release(context.WithoutCancel(ctx), l, o)
	}
	s.log.Warn(ctx, "attempt failed", "account", a.AccountID, "step", step, "error", cause)
	return &LoginError{AccountID: a.AccountID, Step: step, Err: cause}
}

func (s *LoginService) touchSession(ctx context.Context, a *Attempt) error {
	now := s.clock.Now()
	_, err := s.sessions.Update(ctx, a.AccountID, func(sess *models.Session) {
		sess.LastFetchAt = models.FormatTimestamp(now)
		sess.OpenID = a.OpenID
	})
	if errors.Is(err, sessions.ErrNotFound) {
		return s.sessions.Upsert(ctx, models.NewSession(a.AccountID, a.AuthCode, a.OpenID, now))
	}
	return err
}

func numeric(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
