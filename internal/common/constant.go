package common

// Persisted document file names inside the data directory.
const (
	AccountsFile    = "accounts.json"
	SessionsFile    = "sessions.json"
	SubmissionsFile = "submissions.json"
	ConfigFile      = "config.json"
)

// Layouts used for every persisted timestamp and date.
const (
	TimestampLayout = "2006-01-02T15:04:05"
	DateLayout      = "2006-01-02"
)
