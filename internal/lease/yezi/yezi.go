// Package yezi implements lease.Provider for the Yezi cloud SMS platform
// (椰子云). All calls are GET requests with query parameters; every reply
// carries a "message" field that is "ok" on success.
package yezi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrijs2005/phonebind/internal/clock"
	"github.com/dmitrijs2005/phonebind/internal/common"
	"github.com/dmitrijs2005/phonebind/internal/lease"
	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/netx"
	"github.com/sethvargo/go-retry"
)

// Name is the provider key in auto_sms.provider.
const Name = "yzy"

const (
	pathLogin     = "/api/logins"
	pathGetMobile = "/api/get_mobile"
	pathGetSMS    = "/api/get_message"
	pathFree      = "/api/free_mobile"
	pathBlacklist = "/api/add_blacklist"
	pathMyInfo    = "/api/get_myinfo"

	inventoryKey = "1 分钟内剩余取卡数"
	statusOK     = "ok"
)

// errPending marks a poll that got a valid reply without a code yet.
var errPending = errors.New("code pending")

// Provider talks to a primary host and falls back to a backup host on
// transport errors and 5xx replies.
type Provider struct {
	cfg     models.AutoSMSConfig
	primary string
	backup  string
	http    *netx.Client
	log     logging.Logger
	clock   clock.Clock

	mu    sync.Mutex
	token string
}

// Factory adapts New to lease.Factory.
func Factory(cfg models.AutoSMSConfig, deps lease.Deps) (lease.Provider, error) {
	p, err := New(cfg, deps)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New validates cfg and returns a provider. A project id is mandatory; the
// token may be obtained later from username/password.
func New(cfg models.AutoSMSConfig, deps lease.Deps) (*Provider, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, fmt.Errorf("%w: project_id is required", lease.ErrNotConfigured)
	}
	primary := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if primary == "" {
		primary = models.DefaultLeaseBaseURL
	}
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	return &Provider{
		cfg:     cfg,
		primary: primary,
		backup:  strings.TrimRight(strings.TrimSpace(cfg.BackupBaseURL), "/"),
		http:    netx.NewClient(deps.HTTP, nil),
		log:     log.With("provider", Name),
		clock:   clk,
		token:   strings.TrimSpace(cfg.Token),
	}, nil
}

// Acquire leases a number with the configured filters. A number leased
// while the per-minute inventory is below MinRemaining is handed back at
// once and lease.ErrLeaseExhausted returned.
func (p *Provider) Acquire(ctx context.Context) (*lease.Lease, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{"token": {token}, "project_id": {p.cfg.ProjectID}}
	if op := strings.TrimSpace(p.cfg.Operator); op != "" && op != "0" {
		q.Set("operator", op)
	}
	for key, val := range map[string]string{
		"phone_num": p.cfg.PhoneNum,
		"scope":     p.cfg.Scope,
		"address":   p.cfg.Address,
	} {
		if v := strings.TrimSpace(val); v != "" {
			q.Set(key, v)
		}
	}

	resp, err := p.get(ctx, pathGetMobile, q)
	if err != nil {
		return nil, err
	}
	if msg := text(resp["message"]); msg != statusOK {
		return nil, fmt.Errorf("%w: get_mobile: %s", lease.ErrLeaseUnavailable, msg)
	}

	l := &lease.Lease{
		Phone:     text(resp["mobile"]),
		Token:     token,
		ProjectID: p.cfg.ProjectID,
		Data:      map[string]string{"base": p.primary},
	}
	if remaining, ok := integer(resp[inventoryKey]); ok && remaining < p.cfg.MinRemaining {
		if l.Phone != "" {
			p.Release(ctx, l, false)
		}
		return nil, fmt.Errorf("%w: %d left, floor %d", lease.ErrLeaseExhausted, remaining, p.cfg.MinRemaining)
	}
	if l.Phone == "" {
		return nil, fmt.Errorf("%w: get_mobile returned no number", lease.ErrLeaseUnavailable)
	}

	p.log.Info(ctx, "number leased", "phone", common.MaskPhone(l.Phone))
	return l, nil
}

// WaitForCode polls get_message every PollEvery until a code arrives. It
// gives up with lease.ErrCodeTimeout once MaxWait worth of polls is spent.
func (p *Provider) WaitForCode(ctx context.Context, l *lease.Lease) (string, error) {
	maxWait, every := p.cfg.MaxWait(), p.cfg.PollEvery()
	polls := uint64(math.Ceil(float64(maxWait) / float64(every)))
	if polls == 0 {
		polls = 1
	}
	backoff := retry.WithMaxDuration(maxWait, retry.WithMaxRetries(polls-1, retry.NewConstant(every)))

	q := url.Values{"token": {l.Token}, "project_id": {l.ProjectID}, "phone_num": {l.Phone}}
	started := p.clock.Now()
	var code string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := p.get(ctx, pathGetSMS, q)
		if err != nil {
			return err
		}
		p.log.Debug(ctx, "get_message reply", "reply", resp)

		msg := text(resp["message"])
		switch {
		case msg == statusOK:
			if code = ExtractCode(resp); code != "" {
				return nil
			}
			return retry.RetryableError(fmt.Errorf("%w: reply without a code", errPending))
		case notArrived(msg):
			return retry.RetryableError(fmt.Errorf("%w: sms not arrived", errPending))
		default:
			return retry.RetryableError(fmt.Errorf("%w: unexpected reply: %s", errPending, msg))
		}
	})

	switch {
	case err == nil:
		p.log.Info(ctx, "verification code received", "phone", common.MaskPhone(l.Phone), "waited", p.clock.Now().Sub(started))
		return code, nil
	case ctx.Err() != nil:
		return "", fmt.Errorf("wait for code: %w", ctx.Err())
	case errors.Is(err, errPending):
		return "", fmt.Errorf("%w: %w after %s", lease.ErrCodeTimeout, err, maxWait)
	default:
		return "", err
	}
}

// Release frees the number, or blacklists it. Errors are only logged.
func (p *Provider) Release(ctx context.Context, l *lease.Lease, blacklist bool) {
	path := pathFree
	if blacklist {
		path = pathBlacklist
	}
	q := url.Values{"token": {l.Token}, "project_id": {l.ProjectID}, "phone_num": {l.Phone}}
	resp, err := p.get(ctx, path, q)
	if err != nil {
		p.log.Warn(ctx, "release failed", "path", path, "phone", common.MaskPhone(l.Phone), "error", err)
		return
	}
	if msg := text(resp["message"]); msg != statusOK {
		p.log.Warn(ctx, "release rejected", "path", path, "phone", common.MaskPhone(l.Phone), "message", msg)
	}
}

// Balance returns the "money" field of get_myinfo.
func (p *Provider) Balance(ctx context.Context) (string, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return "", err
	}
	resp, err := p.get(ctx, pathMyInfo, url.Values{"token": {token}})
	if err != nil {
		return "", err
	}
	if msg := text(resp["message"]); msg != statusOK {
		return "", fmt.Errorf("%w: get_myinfo: %s", lease.ErrLeaseUnavailable, msg)
	}
	if entries, ok := resp["data"].([]any); ok && len(entries) > 0 {
		if first, ok := entries[0].(map[string]any); ok {
			if money := text(first["money"]); money != "" {
				return money, nil
			}
		}
	}
	return "", fmt.Errorf("%w: balance missing in reply", lease.ErrLeaseUnavailable)
}

func (p *Provider) ensureToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}
	user, pass := strings.TrimSpace(p.cfg.Username), strings.TrimSpace(p.cfg.Password)
	if user == "" || pass == "" {
		return "", fmt.Errorf("%w: token or username/password required", lease.ErrNotConfigured)
	}

	resp, err := p.get(ctx, pathLogin, url.Values{"username": {user}, "password": {pass}})
	if err != nil {
		return "", err
	}
	token := text(resp["token"])
	if token == "" {
		return "", fmt.Errorf("%w: login rejected: %s", lease.ErrLeaseUnavailable, text(resp["message"]))
	}
	p.token = token
	p.log.Info(ctx, "logged in", "token", common.MaskSecret(token))
	return token, nil
}

// get calls path on the primary host, then on the backup host when the
// primary is unreachable or answers 5xx.
func (p *Provider) get(ctx context.Context, path string, q url.Values) (map[string]any, error) {
	resp, err := p.getFrom(ctx, p.primary, path, q)
	if err == nil {
		return resp, nil
	}
	if p.backup == "" || p.backup == p.primary || !failover(err) || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", lease.ErrLeaseUnavailable, path, err)
	}

	p.log.Warn(ctx, "primary host failed, trying backup", "path", path, "backup", p.backup, "error", err)
	resp, err = p.getFrom(ctx, p.backup, path, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", lease.ErrLeaseUnavailable, path, err)
	}
	return resp, nil
}

func (p *Provider) getFrom(ctx context.Context, host, path string, q url.Values) (map[string]any, error) {
	target := host + path
	p.log.Debug(ctx, "GET", "url", target, "params", maskQuery(q))
	var resp map[string]any
	if _, err := p.http.GetJSON(ctx, target, q, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = map[string]any{}
	}
	return resp, nil
}

func failover(err error) bool {
	var se *netx.StatusError
	if errors.As(err, &se) {
		return se.Server()
	}
	return !errors.Is(err, netx.ErrDecode)
}

func maskQuery(q url.Values) string {
	masked := url.Values{}
	for k, vals := range q {
		for _, v := range vals {
			switch k {
			case "token":
				v = common.MaskSecret(v)
			case "password":
				v = "***"
			case "phone_num":
				v = common.MaskPhone(v)
			}
			masked.Add(k, v)
		}
	}
	return masked.Encode()
}
