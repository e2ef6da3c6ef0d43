package appconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), common.ConfigFile)
	r, err := NewJSONRepository(path)
	require.NoError(t, err)

	cfg, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAppConfig(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoad_PartialFileKeepsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), common.ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"login":{"cookie":"c","auto_sms":{"enabled":true,"token":"t"}}}`), 0o600))
	r, err := NewJSONRepository(path)
	require.NoError(t, err)

	cfg, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c", cfg.Login.Cookie)
	assert.True(t, cfg.Login.AutoSMS.Enabled)
	assert.Equal(t, "yzy", cfg.Login.AutoSMS.ProviderName())
	assert.Equal(t, "", cfg.Login.AutoSMS.BaseURL)
}

func TestUpdate_ErrorAborts(t *testing.T) {
	r, err := NewJSONRepository(filepath.Join(t.TempDir(), common.ConfigFile))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Update(ctx, func(cfg *models.AppConfig) error {
		cfg.Login.Cookie = "nope"
		return errors.New("stop")
	})
	require.Error(t, err)

	cfg, err := r.Update(ctx, func(cfg *models.AppConfig) error {
		cfg.Submission.LastUserPhone = "13800000000"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Login.Cookie)

	loaded, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "13800000000", loaded.Submission.LastUserPhone)
}
