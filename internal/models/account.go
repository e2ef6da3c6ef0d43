// Package models defines the persisted phonebind documents: accounts with
// their submission quota and event log, bind sessions, and the application
// config singleton.
package models

import (
	"time"

	"github.com/dmitrijs2005/phonebind/internal/common"
)

// Account is one logical account managed by the tool. WechatID is the
// unique key.
type Account struct {
	WechatID    string  `json:"wechat_id"`
	DisplayName string  `json:"display_name"`
	Phone       string  `json:"phone"`
	QuotaDate   string  `json:"quota_date"`
	QuotaCount  int     `json:"quota_count"`
	PersonID    *string `json:"person_id"`
	Events      []Event `json:"events"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Event is a free-form record attached to an account, e.g. a submission.
type Event map[string]any

// Standard event keys.
const (
	EventKeyID        = "id"
	EventKeyType      = "type"
	EventKeyWechatID  = "wechat_id"
	EventKeyCreatedAt = "created_at"
)

// EventTypeSubmission marks a completed appeal submission.
const EventTypeSubmission = "submission"

// NewAccount returns an account with empty quota stamped at now.
func NewAccount(id, displayName, phone string, now time.Time) Account {
	ts := FormatTimestamp(now)
	return Account{
		WechatID:    id,
		DisplayName: displayName,
		Phone:       phone,
		Events:      []Event{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// ResetQuota clears the day-scoped counter.
func (a *Account) ResetQuota() {
	a.QuotaDate = ""
	a.QuotaCount = 0
}

// CountSubmission increments the counter for the day of now. A stored date
// other than today counts as zero.
func (a *Account) CountSubmission(now time.Time) {
	today := FormatDate(now)
	if a.QuotaDate == today {
		a.QuotaCount++
	} else {
		a.QuotaDate = today
		a.QuotaCount = 1
	}
}

// QuotaUsed reports the submissions counted for the day of now.
func (a Account) QuotaUsed(now time.Time) int {
	if a.QuotaDate != FormatDate(now) {
		return 0
	}
	return a.QuotaCount
}

// Touch sets UpdatedAt.
func (a *Account) Touch(now time.Time) {
	a.UpdatedAt = FormatTimestamp(now)
}

// FormatTimestamp renders t in the persisted timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(common.TimestampLayout)
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(common.DateLayout)
}

// ParseTimestamp parses a persisted timestamp as local time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(common.TimestampLayout, s, time.Local)
}
