package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/phonebind/internal/services"
)

// Accounts prints every account with today's submission count.
func (a *App) Accounts(ctx context.Context) error {
	list, err := a.accounts.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No accounts yet, use 'add'.")
		return nil
	}

	now := a.clock.Now()
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tTODAY\tEVENTS\tUPDATED")
	for _, acc := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			acc.WechatID, acc.DisplayName, acc.Phone, acc.QuotaUsed(now), len(acc.Events), acc.UpdatedAt)
	}
	return tw.Flush()
}

// Add prompts for a new account.
func (a *App) Add(ctx context.Context) error {
	id, err := a.ask("Account id (wechat id)")
	if err != nil {
		return err
	}
	name, err := a.ask("Display name (optional)")
	if err != nil {
		return err
	}
	phone, err := a.ask("Phone (optional)")
	if err != nil {
		return err
	}

	acc, err := a.accounts.Create(ctx, id, name, phone)
	if errors.Is(err, services.ErrAccountExists) {
		a.printf("Account %s already exists.\n", id)
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Account %s created.\n", acc.WechatID)
	return nil
}

// Edit changes the name or phone of an account.
func (a *App) Edit(ctx context.Context) error {
	id, err := a.ask("Account id")
	if err != nil {
		return err
	}
	acc, err := a.accounts.Get(ctx, id)
	if err != nil {
		return err
	}

	name, err := a.askDefault("Display name", acc.DisplayName)
	if err != nil {
		return err
	}
	phone, err := a.askDefault("Phone", acc.Phone)
	if err != nil {
		return err
	}

	updated, err := a.accounts.Edit(ctx, acc.WechatID, services.AccountPatch{DisplayName: &name, Phone: &phone})
	if err != nil {
		return err
	}
	a.printf("Account %s updated.\n", updated.WechatID)
	return nil
}

// Delete removes an account after confirmation.
func (a *App) Delete(ctx context.Context) error {
	id, err := a.ask("Account id")
	if err != nil {
		return err
	}
	confirm, err := GetChoice(a.reader, "Delete "+id+"?", []string{"no", "yes"}, a.out)
	if err != nil {
		return err
	}
	if confirm != "yes" {
		return nil
	}
	if err := a.accounts.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Account %s deleted.\n", id)
	return nil
}

// Sessions prints the persisted login sessions.
func (a *App) Sessions(ctx context.Context) error {
	list, err := a.sessions.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No sessions.")
		return nil
	}

	now := a.clock.Now()
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tLOGIN CODE\tEXPIRES\tSTATE\tLAST FETCH")
	for _, s := range list {
		state := "valid"
		if s.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.WechatID, s.LoginCode, s.ExpiredAt, state, s.LastFetchAt)
	}
	return tw.Flush()
}
