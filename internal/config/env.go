package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "PHONEBIND"

// parseEnv overlays cfg with PHONEBIND_* variables that are set.
func parseEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, dst := range map[string]*string{
		"data_dir":          &cfg.DataDir,
		"log_level":         &cfg.LogLevel,
		"backup_bucket":     &cfg.Backup.Bucket,
		"backup_region":     &cfg.Backup.Region,
		"backup_endpoint":   &cfg.Backup.Endpoint,
		"backup_access_key": &cfg.Backup.AccessKey,
		"backup_secret_key": &cfg.Backup.SecretKey,
		"backup_prefix":     &cfg.Backup.Prefix,
	} {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("http_timeout") {
		d, err := parseDuration(v.GetString("http_timeout"))
		if err != nil {
			return fmt.Errorf("config: %s_HTTP_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}
