package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/phonebind/internal/services"
)

// maxCodeTries bounds how often a manual code may be re-entered.
const maxCodeTries = 3

var errLoginRunning = errors.New("a background login is already running, use 'cancel' first")

// Login binds a phone to an account. Manual mode asks for the phone and
// the code; auto mode leases a number and finishes in the background.
func (a *App) Login(ctx context.Context) error {
	if att := a.current(); att != nil {
		return errLoginRunning
	}

	accountID, err := a.ask("Account id")
	if err != nil {
		return err
	}
	if _, err := a.accounts.Get(ctx, accountID); err != nil {
		return err
	}
	loginID, err := a.ask("Login id (wxid)")
	if err != nil {
		return err
	}

	mode := services.ModeManual
	if a.login.AutoEnabled() {
		choice, err := GetChoice(a.reader, "Mode", []string{string(services.ModeAuto), string(services.ModeManual)}, a.out)
		if err != nil {
			return err
		}
		mode = services.Mode(choice)
	}

	req := services.StartRequest{AccountID: accountID, LoginID: loginID, Mode: mode}
	if mode == services.ModeManual {
		if req.Phone, err = a.ask("Phone to bind"); err != nil {
			return err
		}
	}

	att, err := a.login.Start(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Verification code sent to %s.\n", att.Phone)

	if mode == services.ModeAuto {
		a.runInBackground(ctx, att)
		return nil
	}
	return a.completeManual(ctx, att)
}

func (a *App) completeManual(ctx context.Context, att *services.Attempt) error {
	for try := 1; ; try++ {
		code, err := a.ask("Verification code (empty to abort)")
		if err != nil || code == "" {
			a.login.Abort(ctx, att)
			a.println("Login aborted.")
			return err
		}

		err = a.login.Complete(ctx, att, code)
		switch {
		case err == nil:
			a.printf("Phone %s bound to %s.\n", att.Phone, att.AccountID)
			return nil
		case errors.Is(err, services.ErrInvalidCode) && try < maxCodeTries:
			a.println("The code must be digits only, try again.")
		default:
			a.login.Abort(ctx, att)
			return err
		}
	}
}

// runInBackground polls for the code and completes the bind without
// blocking the shell. Only one background login runs at a time.
func (a *App) runInBackground(ctx context.Context, att *services.Attempt) {
	a.mu.Lock()
	a.running = att
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			a.running = nil
			a.mu.Unlock()
		}()

		// The shell keeps running; only Cancel or shutdown stop the wait.
		bg := context.WithoutCancel(ctx)
		a.printf("Waiting for the code on %s in the background ('cancel' to stop).\n", att.Phone)
		code, err := a.login.ObtainCode(bg, att)
		if err != nil {
			a.printf("\nAuto login for %s failed: %v\n", att.AccountID, err)
			return
		}
		if err := a.login.Complete(bg, att, code); err != nil {
			a.printf("\nAuto login for %s failed: %v\n", att.AccountID, err)
			return
		}
		a.printf("\nPhone %s bound to %s.\n", att.Phone, att.AccountID)
	}()
}

// Cancel aborts the background login, if any.
func (a *App) Cancel(ctx context.Context) error {
	att := a.current()
	if att == nil {
		a.println("No login is running.")
		return nil
	}
	a.login.Abort(ctx, att)
	a.println(fmt.Sprintf("Login for %s cancelled.", att.AccountID))
	return nil
}
