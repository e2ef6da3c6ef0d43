package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/lease"
)

// Balance prints the lease provider balance.
func (a *App) Balance(ctx context.Context) error {
	balance, err := a.leases.Balance(ctx)
	if errors.Is(err, lease.ErrNotConfigured) {
		a.println("Auto lease mode is not configured, use 'provider' first.")
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Provider balance: %s\n", balance)
	return nil
}

// Auto switches auto lease mode.
func (a *App) Auto(ctx context.Context, on bool) error {
	if !on {
		if err := a.leases.Disable(ctx); err != nil {
			return err
		}
		a.println("Auto lease mode is off.")
		return nil
	}
	if _, err := a.leases.Enable(ctx); err != nil {
		return err
	}
	a.println("Auto lease mode is on.")
	return nil
}

// Provider edits the lease credentials. Empty answers keep the current
// value; the password is read without echo.
func (a *App) Provider(ctx context.Context) error {
	cur, err := a.leases.Settings(ctx)
	if err != nil {
		return err
	}
	a.printf("Provider: %s (token %s)\n", cur.ProviderName(), common.MaskSecret(cur.Token))

	c := lease.Credentials{Password: cur.Password}
	fields := []struct {
		prompt string
		def    string
		dst    *string
	}{
		{"Token", cur.Token, &c.Token},
		{"Username", cur.Username, &c.Username},
		{"Project id", cur.ProjectID, &c.ProjectID},
		{"Operator (0 any)", cur.Operator, &c.Operator},
		{"Phone number filter", cur.PhoneNum, &c.PhoneNum},
		{"Scope", cur.Scope, &c.Scope},
		{"Address", cur.Address, &c.Address},
	}
	for _, f := range fields {
		if *f.dst, err = a.askDefault(f.prompt, f.def); err != nil {
			return err
		}
	}

	if c.Username != "" {
		pw, err := GetPassword("Password (empty keeps current)", a.out)
		if err != nil {
			return err
		}
		if len(pw) > 0 {
			c.Password = string(pw)
		}
		common.WipeByteArray(pw)
	}

	saved, err := a.leases.UpdateSettings(ctx, c)
	if err != nil {
		return err
	}
	if saved.Enabled {
		a.println("Credentials saved, auto lease mode is on.")
	} else {
		a.println("Credentials saved; a project id and a token or username/password are needed for auto mode.")
	}
	return nil
}
