package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/phonebind/internal/backup"
	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/lease"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/repositories/sessions"
	"github.com/dmitrijs2005/phonebind/internal/services"
)

// Deps are the services the shell drives. Backup may be nil.
type Deps struct {
	Accounts *services.AccountService
	Login    *services.LoginService
	Leases   *lease.Manager
	Recorder *services.SubmissionRecorder
	Sessions sessions.Repository
	Backup   *backup.Uploader
	Clock    clock.Clock
	Logger   logging.Logger
	In       io.Reader
	Out      io.Writer
}

type App struct {
	accounts *services.AccountService
	login    *services.LoginService
	leases   *lease.Manager
	recorder *services.SubmissionRecorder
	sessions sessions.Repository
	backup   *backup.Uploader
	clock    clock.Clock
	log      logging.Logger

	reader *bufio.Reader
	out    *syncWriter

	mu      sync.Mutex
	running *services.Attempt
	wg      sync.WaitGroup
}

// NewApp builds the REPL application reading commands from d.In.
func NewApp(d Deps) *App {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	return &App{
		accounts: d.Accounts,
		login:    d.Login,
		leases:   d.Leases,
		recorder: d.Recorder,
		sessions: d.Sessions,
		backup:   d.Backup,
		clock:    d.Clock,
		log:      d.Logger.With("component", "cli"),
		reader:   bufio.NewReader(d.In),
		out:      &syncWriter{w: d.Out},
	}
}

// Run serves the shell until the user leaves or ctx ends. A login still
// running in the background is aborted before Run returns.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to phonebind (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)

	if att := a.current(); att != nil {
		a.login.Abort(context.WithoutCancel(ctx), att)
	}
	a.wg.Wait()
}

func (a *App) status() string {
	var s string
	if a.leases != nil && a.leases.Enabled() {
		s = "auto"
	}
	if att := a.current(); att != nil {
		if s != "" {
			s += " "
		}
		s += "login:" + att.AccountID
	}
	if s != "" {
		s = fmt.Sprintf(" (%s)", s)
	}
	return s
}

func (a *App) current() *services.Attempt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) askDefault(prompt, def string) (string, error) {
	return GetDefaultText(a.reader, prompt, def, a.out)
}

// syncWriter serializes writes from the REPL and background logins.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
