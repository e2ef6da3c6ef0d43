package cli

import (
	"context"
	"fmt"
)

// Record books a completed appeal for an account.
func (a *App) Record(ctx context.Context) error {
	id, err := a.ask("Account id")
	if err != nil {
		return err
	}
	req, err := a.recorder.Defaults(ctx, id)
	if err != nil {
		return err
	}

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Complaint phone", &req.ComplaintPhone},
		{"User phone", &req.UserPhone},
		{"Company id", &req.CompanyID},
		{"Company name", &req.CompanyName},
		{"Plea reason", &req.PleaReason},
		{"Attachment path", &req.FilePath},
	}
	for _, f := range fields {
		if *f.dst, err = a.askDefault(f.prompt, *f.dst); err != nil {
			return err
		}
	}

	acc, ev, err := a.recorder.Record(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Recorded %v for %s, %d today.\n", ev["filename"], acc.WechatID, acc.QuotaUsed(a.clock.Now()))
	return nil
}

// Backup uploads the data documents when a bucket is configured.
func (a *App) Backup(ctx context.Context) error {
	if a.backup == nil {
		a.println("Backup is not configured (set PHONEBIND_BACKUP_BUCKET or backup.bucket).")
		return nil
	}
	keys, err := a.backup.Run(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		a.println(" uploaded", k)
	}
	a.println(fmt.Sprintf("Backup done, %d objects.", len(keys)))
	return nil
}
