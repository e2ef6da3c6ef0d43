// Package config loads runtime configuration for the phonebind CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables with the PHONEBIND_ prefix, read through viper.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-d string   data directory holding the JSON documents and logs
//	-l string   log level: debug, info, warn or error
//	-t int      HTTP timeout (seconds)
//
// Environment
//
//	PHONEBIND_DATA_DIR, PHONEBIND_LOG_LEVEL, PHONEBIND_HTTP_TIMEOUT,
//	PHONEBIND_BACKUP_BUCKET, PHONEBIND_BACKUP_REGION, PHONEBIND_BACKUP_ENDPOINT,
//	PHONEBIND_BACKUP_ACCESS_KEY, PHONEBIND_BACKUP_SECRET_KEY, PHONEBIND_BACKUP_PREFIX
//
// # JSON schema
//
// Durations are either strings like "20s" or a number of seconds:
//
//	{
//	  "data_dir": "data",
//	  "log_level": "info",
//	  "http_timeout": "20s",
//	  "backup": {"bucket": "pb", "region": "us-east-1", "endpoint": "http://127.0.0.1:9000"}
//	}
//
// Domain settings (endpoints, lease credentials) are not part of this
// package; they live in the persisted config.json document in the data
// directory.
package config
