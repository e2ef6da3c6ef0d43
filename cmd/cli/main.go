package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dmitrijs2005/phonebind/internal/backup"
	"github.com/dmitrijs2005/phonebind/internal/buildinfo"
	"github.com/dmitrijs2005/phonebind/internal/cli"
	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/config"
	"github.com/dmitrijs2005/phonebind/internal/cryptox"
	"github.com/dmitrijs2005/phonebind/internal/filex"
	"github.com/dmitrijs2005/phonebind/internal/identity"
	"github.com/dmitrijs2005/phonebind/internal/lease"
	"github.com/dmitrijs2005/phonebind/internal/lease/yezi"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/repositories/accounts"
	"github.com/dmitrijs2005/phonebind/internal/repositories/appconfig"
	"github.com/dmitrijs2005/phonebind/internal/repositories/sessions"
	"github.com/dmitrijs2005/phonebind/internal/repositories/submissions"
	"github.com/dmitrijs2005/phonebind/internal/services"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return err
	}
	logDir, err := filex.EnsureSubDir(dataDir, "logs")
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, "app.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.New(cfg.LogLevel, os.Stdout, logFile)
	clk := clock.Real{}
	hc := &http.Client{Timeout: cfg.HTTPTimeout}

	accRepo, err := accounts.NewJSONRepository(filepath.Join(dataDir, common.AccountsFile))
	if err != nil {
		return err
	}
	sessRepo, err := sessions.NewJSONRepository(filepath.Join(dataDir, common.SessionsFile))
	if err != nil {
		return err
	}
	subRepo, err := submissions.NewJSONRepository(filepath.Join(dataDir, common.SubmissionsFile))
	if err != nil {
		return err
	}
	cfgRepo, err := appconfig.NewJSONRepository(filepath.Join(dataDir, common.ConfigFile))
	if err != nil {
		return err
	}
	appCfg, err := cfgRepo.Load(ctx)
	if err != nil {
		return err
	}

	accSvc := services.NewAccountService(accRepo, services.NewMirror(subRepo, logger), clk, logger)
	defer accSvc.Close()

	leases := lease.NewManager(cfgRepo, map[string]lease.Factory{yezi.Name: yezi.Factory},
		lease.Deps{Logger: logger, Clock: clk, HTTP: hc})
	if err := leases.Init(ctx); err != nil {
		logger.Warn(ctx, "auto lease mode unavailable, continuing in manual mode", "error", err)
	}

	enc := cryptox.NewAESEncoder(clk.Now)
	idp := identity.New(identity.ConfigFrom(appCfg.Login), hc, logger)

	var uploader *backup.Uploader
	if cfg.Backup.Enabled() {
		if uploader, err = backup.New(ctx, cfg.Backup, dataDir, clk, logger); err != nil {
			logger.Warn(ctx, "backup disabled", "error", err)
		}
	}

	app := cli.NewApp(cli.Deps{
		Accounts: accSvc,
		Login:    services.NewLoginService(leases, idp, enc, accSvc, sessRepo, clk, logger),
		Leases:   leases,
		Recorder: services.NewSubmissionRecorder(accSvc, sessRepo, cfgRepo, enc, clk, logger),
		Sessions: sessRepo,
		Backup:   uploader,
		Clock:    clk,
		Logger:   logger,
		In:       os.Stdin,
		Out:      os.Stdout,
	})
	// Unblock the pending stdin read on SIGINT/SIGTERM so Run can abort a
	// running login and release its lease.
	stopClose := context.AfterFunc(ctx, func() { _ = os.Stdin.Close() })
	defer stopClose()

	app.Run(ctx)
	return nil
}
