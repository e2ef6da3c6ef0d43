package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/phonebind/internal/flagx"
)

// duration unmarshals from "20s" style strings or from a number of seconds.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = duration(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %s", b)
	}
	*d = duration(n * float64(time.Second))
	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// jsonConfig is used exclusively for unmarshalling.
type jsonConfig struct {
	DataDir     string   `json:"data_dir"`
	LogLevel    string   `json:"log_level"`
	HTTPTimeout duration `json:"http_timeout"`
	Backup      struct {
		Bucket    string `json:"bucket"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
		Prefix    string `json:"prefix"`
	} `json:"backup"`
}

// parseJSON overlays cfg with the non-empty values of the file given by -c
// or -config. Without such a flag nothing happens.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	set(&cfg.DataDir, jc.DataDir)
	set(&cfg.LogLevel, jc.LogLevel)
	if jc.HTTPTimeout > 0 {
		cfg.HTTPTimeout = time.Duration(jc.HTTPTimeout)
	}
	set(&cfg.Backup.Bucket, jc.Backup.Bucket)
	set(&cfg.Backup.Region, jc.Backup.Region)
	set(&cfg.Backup.Endpoint, jc.Backup.Endpoint)
	set(&cfg.Backup.AccessKey, jc.Backup.AccessKey)
	set(&cfg.Backup.SecretKey, jc.Backup.SecretKey)
	set(&cfg.Backup.Prefix, jc.Backup.Prefix)
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
