package models

import (
	"strings"
	"time"
)

// Default endpoints and lease settings written into a fresh config.json.
const (
	DefaultAuthorizeEndpoint = "http://gee.myds.me:8005/api/OfficialAccounts/OauthAuthorize"
	DefaultUserInfoBaseURL   = "https://www.securityeb.com"
	DefaultBindBaseURL       = "https://www.securityeb.com/ktfsr"

	DefaultLeaseProvider = "yzy"
	DefaultLeaseBaseURL  = "http://api.sqhyw.net:90"
	DefaultLeaseBackup   = "http://api.nnanx.com:90"

	DefaultPollIntervalSeconds = 5
	DefaultMaxWaitSeconds      = 120
	DefaultMinRemaining        = 10
)

// AppConfig is the persisted config.json singleton. It is always replaced
// as a whole.
type AppConfig struct {
	Login      LoginConfig        `json:"login"`
	Submission SubmissionDefaults `json:"submission"`
}

// LoginConfig holds identity provider endpoints and lease settings.
type LoginConfig struct {
	AuthorizeEndpoint string        `json:"authorize_endpoint"`
	Cookie            string        `json:"cookie"`
	UserInfoBaseURL   string        `json:"user_info_base_url"`
	BindBaseURL       string        `json:"bind_base_url"`
	AutoSMS           AutoSMSConfig `json:"auto_sms"`
}

// AutoSMSConfig configures the phone lease provider.
type AutoSMSConfig struct {
	Enabled            bool    `json:"enabled"`
	Provider           string  `json:"provider"`
	BaseURL            string  `json:"base_url"`
	BackupBaseURL      string  `json:"backup_base_url"`
	Token              string  `json:"token"`
	Username           string  `json:"username"`
	Password           string  `json:"password"`
	ProjectID          string  `json:"project_id"`
	Operator           string  `json:"operator"`
	PhoneNum           string  `json:"phone_num"`
	Scope              string  `json:"scope"`
	Address            string  `json:"address"`
	PollInterval       float64 `json:"poll_interval"`
	MaxWaitSeconds     float64 `json:"max_wait_seconds"`
	MinRemaining       int     `json:"min_remaining"`
	ReleaseOnSuccess   bool    `json:"release_on_success"`
	ReleaseOnFailure   bool    `json:"release_on_failure"`
	BlacklistOnFailure bool    `json:"blacklist_on_failure"`
}

// SubmissionDefaults remembers the last values used for an appeal.
type SubmissionDefaults struct {
	LastComplaintPhone string `json:"last_complaint_phone"`
	LastUserPhone      string `json:"last_user_phone"`
	DefaultCompanyID   string `json:"default_company_id"`
	DefaultCompanyName string `json:"default_company_name"`
	DefaultPleaReason  string `json:"default_plea_reason"`
	LastFilePath       string `json:"last_file_path"`
}

// DefaultAppConfig is the template written when config.json does not exist.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Login: LoginConfig{
			AuthorizeEndpoint: DefaultAuthorizeEndpoint,
			UserInfoBaseURL:   DefaultUserInfoBaseURL,
			BindBaseURL:       DefaultBindBaseURL,
			AutoSMS:           DefaultAutoSMSConfig(),
		},
	}
}

// DefaultAutoSMSConfig returns disabled lease settings with the stock hosts.
func DefaultAutoSMSConfig() AutoSMSConfig {
	return AutoSMSConfig{
		Provider:         DefaultLeaseProvider,
		BaseURL:          DefaultLeaseBaseURL,
		BackupBaseURL:    DefaultLeaseBackup,
		Operator:         "0",
		PollInterval:     DefaultPollIntervalSeconds,
		MaxWaitSeconds:   DefaultMaxWaitSeconds,
		MinRemaining:     DefaultMinRemaining,
		ReleaseOnSuccess: true,
		ReleaseOnFailure: true,
	}
}

// ProviderName returns the lowercased provider, "yzy" when unset.
func (c AutoSMSConfig) ProviderName() string {
	name := strings.ToLower(strings.TrimSpace(c.Provider))
	if name == "" {
		return DefaultLeaseProvider
	}
	return name
}

// HasCredentials reports whether the settings are complete enough to talk
// to the provider: a project id plus a token or a username/password pair.
func (c AutoSMSConfig) HasCredentials() bool {
	if strings.TrimSpace(c.ProjectID) == "" {
		return false
	}
	if strings.TrimSpace(c.Token) != "" {
		return true
	}
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Password) != ""
}

// PollEvery converts PollInterval seconds; non-positive means the default.
func (c AutoSMSConfig) PollEvery() time.Duration {
	return seconds(c.PollInterval, DefaultPollIntervalSeconds)
}

// MaxWait converts MaxWaitSeconds; non-positive means the default.
func (c AutoSMSConfig) MaxWait() time.Duration {
	return seconds(c.MaxWaitSeconds, DefaultMaxWaitSeconds)
}

func seconds(v float64, def float64) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v * float64(time.Second))
}
