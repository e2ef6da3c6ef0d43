package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/phonebind/internal/netx"
)

// Backup describes the optional S3-compatible bucket for data snapshots.
type Backup struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether a bucket was configured.
func (b Backup) Enabled() bool {
	return strings.TrimSpace(b.Bucket) != ""
}

// Config holds runtime settings for the CLI.
type Config struct {
	DataDir     string
	LogLevel    string
	HTTPTimeout time.Duration
	Backup      Backup
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.LogLevel = "info"
	c.HTTPTimeout = netx.DefaultTimeout
	c.Backup = Backup{Region: "us-east-1", Prefix: "phonebind"}
}

// Load builds a Config from defaults, the JSON file named in args, the
// environment and finally the flags in args. args excludes the program
// name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: data dir must be set")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: http timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}
