package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 20*time.Second, c.HTTPTimeout)
	assert.False(t, c.Backup.Enabled())
}

func TestLoad_NoSources(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"data_dir":     "/from/json",
		"log_level":    "warn",
		"http_timeout": 7,
		"backup":       map[string]any{"bucket": "json-bucket", "endpoint": "http://minio:9000"},
	})

	t.Run("json over defaults", func(t *testing.T) {
		cfg, err := Load([]string{"-c", path})
		require.NoError(t, err)
		assert.Equal(t, "/from/json", cfg.DataDir)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 7*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, "json-bucket", cfg.Backup.Bucket)
		assert.Equal(t, "us-east-1", cfg.Backup.Region)
		assert.True(t, cfg.Backup.Enabled())
	})

	t.Run("env over json", func(t *testing.T) {
		t.Setenv("PHONEBIND_DATA_DIR", "/from/env")
		t.Setenv("PHONEBIND_HTTP_TIMEOUT", "1m")
		t.Setenv("PHONEBIND_BACKUP_BUCKET", "env-bucket")

		cfg, err := Load([]string{"-config", path})
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.DataDir)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, time.Minute, cfg.HTTPTimeout)
		assert.Equal(t, "env-bucket", cfg.Backup.Bucket)
		assert.Equal(t, "http://minio:9000", cfg.Backup.Endpoint)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("PHONEBIND_DATA_DIR", "/from/env")
		t.Setenv("PHONEBIND_LOG_LEVEL", "error")

		cfg, err := Load([]string{"-c", path, "-d", "/from/flag", "-l", "debug", "-t", "3"})
		require.NoError(t, err)
		assert.Equal(t, "/from/flag", cfg.DataDir)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	})
}

func TestLoad_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "missing file", args: []string{"-c", filepath.Join(t.TempDir(), "nope.json")}},
		{name: "invalid json", args: []string{"-c", bad}},
		{name: "bad timeout flag", args: []string{"-t", "abc"}},
		{name: "bad log level", args: []string{"-l", "loud"}},
		{name: "zero timeout", args: []string{"-t", "0"}},
		{name: "bad env timeout", env: map[string]string{"PHONEBIND_HTTP_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestDurationJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{`"20s"`, 20 * time.Second, false},
		{`"1.5"`, 1500 * time.Millisecond, false},
		{`30`, 30 * time.Second, false},
		{`"later"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}
