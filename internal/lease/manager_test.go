package lease

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/repositories/appconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releaseCall struct {
	phone     string
	blacklist bool
}

type fakeProvider struct {
	mu         sync.Mutex
	acquireErr error
	code       string
	waitErr    error
	balance    string
	releases   []releaseCall
	nextPhone  string
}

func (f *fakeProvider) Acquire(ctx context.Context) (*Lease, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	phone := f.nextPhone
	if phone == "" {
		phone = "13800001111"
	}
	return &Lease{Phone: phone, Token: "tok", ProjectID: "p1"}, nil
}

func (f *fakeProvider) WaitForCode(ctx context.Context, l *Lease) (string, error) {
	if f.waitErr != nil {
		return "", f.waitErr
	}
	return f.code, nil
}

func (f *fakeProvider) Release(ctx context.Context, l *Lease, blacklist bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, releaseCall{phone: l.Phone, blacklist: blacklist})
}

func (f *fakeProvider) Balance(ctx context.Context) (string, error) {
	return f.balance, nil
}

func (f *fakeProvider) released() []releaseCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]releaseCall(nil), f.releases...)
}

func newRepo(t *testing.T, mutate func(a *models.AutoSMSConfig)) *appconfig.JSONRepository {
	t.Helper()
	repo, err := appconfig.NewJSONRepository(filepath.Join(t.TempDir(), common.ConfigFile))
	require.NoError(t, err)
	if mutate != nil {
		_, err = repo.Update(context.Background(), func(cfg *models.AppConfig) error {
			mutate(&cfg.Login.AutoSMS)
			return nil
		})
		require.NoError(t, err)
	}
	return repo
}

func factoryFor(p Provider, builds *int) map[string]Factory {
	return map[string]Factory{
		"yzy": func(cfg models.AutoSMSConfig, deps Deps) (Provider, error) {
			if builds != nil {
				*builds++
			}
			if cfg.ProjectID == "" {
				return nil, ErrNotConfigured
			}
			return p, nil
		},
	}
}

func enabledSettings(a *models.AutoSMSConfig) {
	a.Enabled = true
	a.ProjectID = "p1"
	a.Token = "tok"
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		cfg           models.AutoSMSConfig
		outcome       Outcome
		wantRelease   bool
		wantBlacklist bool
	}{
		{"success default", models.DefaultAutoSMSConfig(), OutcomeSucceeded, true, false},
		{"success kept", models.AutoSMSConfig{ReleaseOnSuccess: false}, OutcomeSucceeded, false, false},
		{"abandoned never blacklists", models.AutoSMSConfig{ReleaseOnFailure: true, BlacklistOnFailure: true}, OutcomeAbandoned, true, false},
		{"failed blacklists", models.AutoSMSConfig{ReleaseOnFailure: true, BlacklistOnFailure: true}, OutcomeFailed, true, true},
		{"failed kept", models.AutoSMSConfig{ReleaseOnFailure: false, BlacklistOnFailure: true}, OutcomeFailed, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release, blacklist := Decide(tt.cfg, tt.outcome)
			assert.Equal(t, tt.wantRelease, release)
			assert.Equal(t, tt.wantBlacklist, blacklist)
		})
	}
}

func TestInit_BuildsProviderWhenEnabled(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, nil), Deps{})
	require.NoError(t, m.Init(context.Background()))
	assert.True(t, m.Enabled())
}

func TestInit_FailedBuildTurnsAutoOff(t *testing.T) {
	repo := newRepo(t, func(a *models.AutoSMSConfig) { a.Enabled = true })
	m := NewManager(repo, factoryFor(&fakeProvider{}, nil), Deps{})

	err := m.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, m.Enabled())

	s, err := m.Settings(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Enabled)
}

func TestEnable_Idempotent(t *testing.T) {
	builds := 0
	repo := newRepo(t, func(a *models.AutoSMSConfig) { a.ProjectID = "p1"; a.Token = "t" })
	m := NewManager(repo, factoryFor(&fakeProvider{}, &builds), Deps{})
	ctx := context.Background()

	ok, err := m.Enable(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.Enable(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, builds)

	require.NoError(t, m.Disable(ctx))
	require.NoError(t, m.Disable(ctx))
	assert.False(t, m.Enabled())
	s, err := m.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, s.Enabled)
}

func TestEnable_UnsupportedProvider(t *testing.T) {
	repo := newRepo(t, func(a *models.AutoSMSConfig) { a.Provider = "Other"; a.ProjectID = "p" })
	m := NewManager(repo, factoryFor(&fakeProvider{}, nil), Deps{})

	ok, err := m.Enable(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateSettings_EnabledFollowsCredentials(t *testing.T) {
	m := NewManager(newRepo(t, nil), factoryFor(&fakeProvider{}, nil), Deps{})
	ctx := context.Background()

	s, err := m.UpdateSettings(ctx, Credentials{Username: " u ", Password: "p", ProjectID: "proj"})
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, "u", s.Username)
	assert.True(t, m.Enabled())

	s, err = m.UpdateSettings(ctx, Credentials{Token: "t"})
	require.NoError(t, err)
	assert.False(t, s.Enabled)
	assert.False(t, m.Enabled())
}

func TestAcquire_NotEnabled(t *testing.T) {
	m := NewManager(newRepo(t, nil), factoryFor(&fakeProvider{}, nil), Deps{})
	_, err := m.Acquire(context.Background())
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "acquire", le.Op)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAcquire_WrapsProviderError(t *testing.T) {
	fp := &fakeProvider{acquireErr: ErrLeaseExhausted}
	m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, nil), Deps{})
	require.NoError(t, m.Init(context.Background()))

	_, err := m.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrLeaseExhausted)
	assert.ErrorIs(t, err, common.ErrProvider)
	assert.Equal(t, 0, m.Held())
}

func TestRelease_ExactlyOncePerLease(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(newRepo(t, func(a *models.AutoSMSConfig) {
		enabledSettings(a)
		a.BlacklistOnFailure = true
	}), factoryFor(fp, nil), Deps{})
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	l, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Held())

	assert.True(t, m.Release(ctx, l, OutcomeFailed))
	assert.False(t, m.Release(ctx, l, OutcomeSucceeded))
	assert.Equal(t, []releaseCall{{phone: "13800001111", blacklist: true}}, fp.released())
	assert.Equal(t, 0, m.Held())
}

func TestRelease_SurvivesDisable(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, nil), Deps{})
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	l, err := m.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Disable(ctx))

	assert.True(t, m.Release(ctx, l, OutcomeSucceeded))
	assert.Len(t, fp.released(), 1)
}

func TestRelease_RunsWithCancelledContext(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, nil), Deps{})
	require.NoError(t, m.Init(context.Background()))
	l, err := m.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, m.Release(ctx, l, OutcomeAbandoned))
	assert.Equal(t, []releaseCall{{phone: "13800001111", blacklist: false}}, fp.released())
}

func TestWaitForCode(t *testing.T) {
	fp := &fakeProvider{code: "4821"}
	m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, nil), Deps{})
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	_, err := m.WaitForCode(ctx, &Lease{Phone: "x"})
	assert.ErrorIs(t, err, common.ErrValidation)

	l, err := m.Acquire(ctx)
	require.NoError(t, err)
	code, err := m.WaitForCode(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, "4821", code)

	fp.waitErr = ErrCodeTimeout
	_, err = m.WaitForCode(ctx, l)
	assert.ErrorIs(t, err, ErrCodeTimeout)
	assert.ErrorIs(t, err, common.ErrTimeout)
}

func TestBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		m := NewManager(newRepo(t, nil), factoryFor(&fakeProvider{}, nil), Deps{})
		_, err := m.Balance(ctx)
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("temporary provider when none is live", func(t *testing.T) {
		builds := 0
		fp := &fakeProvider{balance: "12.5"}
		m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, &builds), Deps{})
		got, err := m.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, "12.5", got)
		assert.Equal(t, 1, builds)
		assert.False(t, m.Enabled())
	})

	t.Run("live provider", func(t *testing.T) {
		builds := 0
		fp := &fakeProvider{balance: "3"}
		m := NewManager(newRepo(t, enabledSettings), factoryFor(fp, &builds), Deps{})
		require.NoError(t, m.Init(ctx))
		got, err := m.Balance(ctx)
		require.NoError(t, err)
		assert.Equal(t, "3", got)
		assert.Equal(t, 1, builds)
	})
}

func TestError_Message(t *testing.T) {
	err := &Error{Op: "acquire", Provider: "yzy", Err: errors.New("boom")}
	assert.Equal(t, "lease acquire (yzy): boom", err.Error())
}
