package models

import "time"

// SessionTTL is how long the redirect code of a login attempt is considered
// usable.
const SessionTTL = 10 * time.Minute

// Session records the last bind attempt of an account. One per WechatID.
type Session struct {
	WechatID    string `json:"wechat_id"`
	LoginCode   string `json:"login_code"`
	ExpiredAt   string `json:"expired_at"`
	LastFetchAt string `json:"last_fetch_at"`
	OpenID      string `json:"openid"`
}

// NewSession builds the provisional session written right after the
// verification code was sent.
func NewSession(accountID, loginCode, openID string, now time.Time) Session {
	return Session{
		WechatID:    accountID,
		LoginCode:   loginCode,
		ExpiredAt:   FormatTimestamp(now.Add(SessionTTL)),
		LastFetchAt: FormatTimestamp(now),
		OpenID:      openID,
	}
}

// Expired reports whether the session TTL has passed at now. Unparseable
// expiry counts as expired.
func (s Session) Expired(now time.Time) bool {
	at, err := ParseTimestamp(s.ExpiredAt)
	if err != nil {
		return true
	}
	return !now.Before(at)
}
