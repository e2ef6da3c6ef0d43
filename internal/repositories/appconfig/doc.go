// Package appconfig persists the AppConfig singleton (config.json). The
// document is created from models.DefaultAppConfig on first access and is
// always replaced as a whole.
package appconfig
