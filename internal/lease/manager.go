package lease

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/appconfig"
)

// Credentials are the user-editable provider settings.
type Credentials struct {
	Token     string
	Username  string
	Password  string
	ProjectID string
	Operator  string
	PhoneNum  string
	Scope     string
	Address   string
}

type issued struct {
	provider Provider
	name     string
	cfg      models.AutoSMSConfig
}

// Manager owns the live provider and applies the release policy. It is safe
// for concurrent use.
type Manager struct {
	repo      appconfig.Repository
	factories map[string]Factory
	deps      Deps

	mu       sync.Mutex
	provider Provider
	name     string
	cfg      models.AutoSMSConfig
	leases   map[*Lease]issued
}

// NewManager returns a Manager reading settings from repo. factories maps
// provider names to constructors; Init must be called to build the live
// provider. Nil Logger and Clock in deps get defaults.
func NewManager(repo appconfig.Repository, factories map[string]Factory, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Manager{
		repo:      repo,
		factories: factories,
		deps:      deps,
		leases:    make(map[*Lease]issued),
	}
}

// Init builds the live provider when the persisted settings have auto mode
// on. A provider that cannot be built switches auto mode off on disk.
func (m *Manager) Init(ctx context.Context) error {
	cfg, err := m.repo.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.Login.AutoSMS.Enabled {
		return nil
	}
	_, err = m.activate(ctx, cfg.Login.AutoSMS)
	return err
}

// Enabled reports whether a live provider is available.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider != nil
}

// Enable persists enabled=true and builds the provider. When the provider
// cannot be built, enabled=false is persisted and the cause returned.
func (m *Manager) Enable(ctx context.Context) (bool, error) {
	if m.Enabled() {
		return true, nil
	}
	cfg, err := m.repo.Update(ctx, func(cfg *models.AppConfig) error {
		cfg.Login.AutoSMS.Enabled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return m.activate(ctx, cfg.Login.AutoSMS)
}

// Disable persists enabled=false and drops the live provider. Leases that
// are still out keep their provider until released.
func (m *Manager) Disable(ctx context.Context) error {
	_, err := m.repo.Update(ctx, func(cfg *models.AppConfig) error {
		cfg.Login.AutoSMS.Enabled = false
		return nil
	})
	m.drop()
	if err != nil {
		return err
	}
	m.deps.Logger.Info(ctx, "auto lease disabled")
	return nil
}

// Settings returns the persisted auto_sms section.
func (m *Manager) Settings(ctx context.Context) (models.AutoSMSConfig, error) {
	cfg, err := m.repo.Load(ctx)
	if err != nil {
		return models.AutoSMSConfig{}, err
	}
	return cfg.Login.AutoSMS, nil
}

// UpdateSettings stores trimmed credentials. Auto mode is switched on iff a
// project id and either a token or a username/password pair are present.
func (m *Manager) UpdateSettings(ctx context.Context, c Credentials) (models.AutoSMSConfig, error) {
	cfg, err := m.repo.Update(ctx, func(cfg *models.AppConfig) error {
		a := &cfg.Login.AutoSMS
		a.Token = strings.TrimSpace(c.Token)
		a.Username = strings.TrimSpace(c.Username)
		a.Password = strings.TrimSpace(c.Password)
		a.ProjectID = strings.TrimSpace(c.ProjectID)
		a.Operator = strings.TrimSpace(c.Operator)
		a.PhoneNum = strings.TrimSpace(c.PhoneNum)
		a.Scope = strings.TrimSpace(c.Scope)
		a.Address = strings.TrimSpace(c.Address)
		a.Enabled = a.HasCredentials()
		return nil
	})
	if err != nil {
		return models.AutoSMSConfig{}, err
	}
	auto := cfg.Login.AutoSMS
	m.deps.Logger.Info(ctx, "auto lease settings saved",
		"project_id", auto.ProjectID,
		"token", common.MaskSecret(auto.Token),
		"enabled", auto.Enabled)

	if !auto.Enabled {
		m.drop()
		return auto, nil
	}
	if _, err := m.activate(ctx, auto); err != nil {
		auto.Enabled = false
		return auto, err
	}
	return auto, nil
}

// Acquire leases a number from the live provider.
func (m *Manager) Acquire(ctx context.Context) (*Lease, error) {
	m.mu.Lock()
	p, name, cfg := m.provider, m.name, m.cfg
	m.mu.Unlock()
	if p == nil {
		return nil, &Error{Op: "acquire", Provider: cfg.ProviderName(), Err: ErrNotConfigured}
	}

	l, err := p.Acquire(ctx)
	if err != nil {
		return nil, &Error{Op: "acquire", Provider: name, Err: err}
	}

	m.mu.Lock()
	m.leases[l] = issued{provider: p, name: name, cfg: cfg}
	m.mu.Unlock()

	m.deps.Logger.Info(ctx, "lease acquired", "provider", name, "phone", common.MaskPhone(l.Phone))
	return l, nil
}

// WaitForCode polls the provider that issued l.
func (m *Manager) WaitForCode(ctx context.Context, l *Lease) (string, error) {
	m.mu.Lock()
	iss, ok := m.leases[l]
	m.mu.Unlock()
	if !ok {
		return "", &Error{Op: "wait", Provider: m.providerName(), Err: fmt.Errorf("%w: lease is not held", common.ErrValidation)}
	}

	code, err := iss.provider.WaitForCode(ctx, l)
	if err != nil {
		return "", &Error{Op: "wait", Provider: iss.name, Err: err}
	}
	return code, nil
}

// Release applies the release policy for outcome o. A lease is handed back
// to its provider at most once; later calls are no-ops. It reports whether
// a provider call was made.
func (m *Manager) Release(ctx context.Context, l *Lease, o Outcome) bool {
	if l == nil {
		return false
	}
	m.mu.Lock()
	iss, ok := m.leases[l]
	delete(m.leases, l)
	m.mu.Unlock()
	if !ok {
		return false
	}

	release, blacklist := Decide(iss.cfg, o)
	if !release {
		m.deps.Logger.Info(ctx, "lease kept by policy", "provider", iss.name, "outcome", o.String(), "phone", common.MaskPhone(l.Phone))
		return false
	}
	// Release must reach the provider even when the attempt was cancelled.
	iss.provider.Release(context.WithoutCancel(ctx), l, blacklist)
	m.deps.Logger.Info(ctx, "lease released", "provider", iss.name, "outcome", o.String(), "blacklist", blacklist, "phone", common.MaskPhone(l.Phone))
	return true
}

// Held reports how many leases have not been released yet.
func (m *Manager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}

// Balance queries the live provider, or a throwaway one built from the
// persisted settings when none is live.
func (m *Manager) Balance(ctx context.Context) (string, error) {
	cfg, err := m.repo.Load(ctx)
	if err != nil {
		return "", err
	}
	auto := cfg.Login.AutoSMS
	if !auto.Enabled {
		return "", &Error{Op: "balance", Provider: auto.ProviderName(), Err: ErrNotConfigured}
	}

	m.mu.Lock()
	p, name := m.provider, m.name
	m.mu.Unlock()
	if p == nil {
		name = auto.ProviderName()
		p, err = m.build(auto)
		if err != nil {
			return "", &Error{Op: "balance", Provider: name, Err: err}
		}
	}

	balance, err := p.Balance(ctx)
	if err != nil {
		return "", &Error{Op: "balance", Provider: name, Err: err}
	}
	return balance, nil
}

func (m *Manager) activate(ctx context.Context, auto models.AutoSMSConfig) (bool, error) {
	p, err := m.build(auto)
	if err != nil {
		m.deps.Logger.Error(ctx, "auto lease provider init failed", "provider", auto.ProviderName(), "error", err)
		m.drop()
		if _, uerr := m.repo.Update(ctx, func(cfg *models.AppConfig) error {
			cfg.Login.AutoSMS.Enabled = false
			return nil
		}); uerr != nil {
			m.deps.Logger.Warn(ctx, "persist auto lease off failed", "error", uerr)
		}
		return false, &Error{Op: "init", Provider: auto.ProviderName(), Err: err}
	}

	m.mu.Lock()
	m.provider = p
	m.name = auto.ProviderName()
	m.cfg = auto
	m.mu.Unlock()

	m.deps.Logger.Info(ctx, "auto lease enabled", "provider", auto.ProviderName())
	return true, nil
}

func (m *Manager) build(auto models.AutoSMSConfig) (Provider, error) {
	name := auto.ProviderName()
	f, ok := m.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return f(auto, m.deps)
}

func (m *Manager) drop() {
	m.mu.Lock()
	m.provider = nil
	m.name = ""
	m.mu.Unlock()
}

func (m *Manager) providerName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}
