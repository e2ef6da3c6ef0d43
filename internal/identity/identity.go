// Package identity is the HTTP client for the external identity provider:
// OAuth authorize through a relay, user info lookup, verification code
// delivery and the phone bind call.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/phonebind/internal/logging"
	"github.com/dmitrijs2005/phonebind/internal/models"
	"github.com/dmitrijs2005/phonebind/internal/netx"
)

const (
	DefaultAppID   = "wxe4a8657e84049860"
	DefaultAuthURL = "https://www.securityeb.com"
	DefaultUA      = "Mozilla/5.0 (iPhone; CPU iPhone OS 19_0 like Mac OS X) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Mobile/15E148 MicroMessenger/8.0.54(0x1800363a) NetType/WIFI Language/zh_CN"

	codeOK = 200
)

// Client is the identity provider surface used by the login flow.
type Client interface {
	// Authorize asks the relay for an OAuth redirect URL for loginID.
	Authorize(ctx context.Context, loginID string) (string, error)

	// FetchUserID exchanges the redirect code for the external user id.
	FetchUserID(ctx context.Context, code string) (string, error)

	// SendCode triggers delivery of a verification code to the encrypted
	// phone number.
	SendCode(ctx context.Context, phoneCipher string) error

	// Bind associates the phone with openID using the encrypted code.
	Bind(ctx context.Context, phoneCipher, codeCipher, openID string) error
}

// Config holds the endpoints and request identity.
type Config struct {
	AuthorizeEndpoint string
	UserInfoBaseURL   string
	BindBaseURL       string
	Cookie            string
	AppID             string
	AuthURL           string
	UserAgent         string
}

// ConfigFrom maps the persisted login section, filling defaults for empty
// fields.
func ConfigFrom(c models.LoginConfig) Config {
	return Config{
		AuthorizeEndpoint: or(c.AuthorizeEndpoint, models.DefaultAuthorizeEndpoint),
		UserInfoBaseURL:   or(c.UserInfoBaseURL, models.DefaultUserInfoBaseURL),
		BindBaseURL:       or(c.BindBaseURL, models.DefaultBindBaseURL),
		Cookie:            strings.TrimSpace(c.Cookie),
	}
}

// HTTPClient implements Client over JSON HTTP.
type HTTPClient struct {
	cfg    Config
	relay  *netx.Client
	mobile *netx.Client
	log    logging.Logger
}

// New builds a client. hc may be nil.
func New(cfg Config, hc *http.Client, log logging.Logger) *HTTPClient {
	cfg.AuthorizeEndpoint = or(cfg.AuthorizeEndpoint, models.DefaultAuthorizeEndpoint)
	cfg.UserInfoBaseURL = strings.TrimRight(or(cfg.UserInfoBaseURL, models.DefaultUserInfoBaseURL), "/")
	cfg.BindBaseURL = strings.TrimRight(or(cfg.BindBaseURL, models.DefaultBindBaseURL), "/")
	cfg.AppID = or(cfg.AppID, DefaultAppID)
	cfg.AuthURL = strings.TrimRight(or(cfg.AuthURL, DefaultAuthURL), "/")
	cfg.UserAgent = or(cfg.UserAgent, DefaultUA)
	if log == nil {
		log = logging.Discard()
	}

	relayHeader := http.Header{"Accept": {"application/json"}}
	if cfg.Cookie != "" {
		relayHeader.Set("Cookie", cfg.Cookie)
	}
	mobileHeader := http.Header{
		"User-Agent":      {cfg.UserAgent},
		"Accept":          {"application/json, text/plain, */*"},
		"Accept-Language": {"zh-CN,zh-Hans;q=0.9"},
		"Origin":          {cfg.AuthURL},
		"Referer":         {cfg.AuthURL + "/?state=ebupt"},
	}

	return &HTTPClient{
		cfg:    cfg,
		relay:  netx.NewClient(hc, relayHeader),
		mobile: netx.NewClient(hc, mobileHeader),
		log:    log.With("component", "identity"),
	}
}

type authorizeReply struct {
	Success bool   `json:"Success"`
	Message string `json:"Message"`
	Data    struct {
		RedirectURL string `json:"redirectUrl"`
	} `json:"Data"`
}

type envelope struct {
	Code any            `json:"code"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

func (e envelope) ok() bool {
	n, isNum := e.Code.(float64)
	return isNum && n == codeOK
}

// Authorize asks the relay for an OAuth redirect for loginID and returns
// the redirect URL.
func (c *HTTPClient) Authorize(ctx context.Context, loginID string) (string, error) {
	body := map[string]string{"Appid": c.cfg.AppID, "Url": c.cfg.AuthURL, "Wxid": loginID}
	var reply authorizeReply
	if _, err := c.relay.PostJSON(ctx, c.cfg.AuthorizeEndpoint, body, &reply); err != nil {
		return "", &Error{Op: "authorize", Err: err}
	}
	if !reply.Success {
		return "", &Error{Op: "authorize", Err: fmt.Errorf("%w: %s", ErrRejected, reply.Message)}
	}
	if reply.Data.RedirectURL == "" {
		return "", &Error{Op: "authorize", Err: fmt.Errorf("%w: reply has no redirectUrl", ErrMalformedReply)}
	}
	c.log.Debug(ctx, "authorized", "login_id", loginID)
	return reply.Data.RedirectURL, nil
}

// ExtractCode pulls the "code" query parameter out of a redirect URL.
func ExtractCode(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", &Error{Op: "extract code", Err: fmt.Errorf("%w: %w", ErrMalformedReply, err)}
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", &Error{Op: "extract code", Err: fmt.Errorf("%w: redirect has no code parameter", ErrMalformedReply)}
	}
	return code, nil
}

// FetchUserID exchanges an auth code for the openid. The Referer carries
// the code the way the OAuth landing page would send it.
func (c *HTTPClient) FetchUserID(ctx context.Context, code string) (string, error) {
	var reply envelope
	target := c.cfg.UserInfoBaseURL + "/wechatService/wechatServ/getUserInfo"
	referer := c.cfg.AuthURL + "/?" + url.Values{"code": {code}, "state": {"ebupt"}}.Encode()
	if _, err := c.mobile.WithHeader("Referer", referer).GetJSON(ctx, target, url.Values{"code": {code}}, &reply); err != nil {
		return "", &Error{Op: "user info", Err: err}
	}
	if !reply.ok() {
		return "", &Error{Op: "user info", Err: rejected(reply)}
	}
	openID, _ := reply.Data["openid"].(string)
	if openID == "" {
		return "", &Error{Op: "user info", Err: fmt.Errorf("%w: reply has no openid", ErrMalformedReply)}
	}
	return openID, nil
}

// SendCode asks the provider to text a verification code to the encrypted
// phone.
func (c *HTTPClient) SendCode(ctx context.Context, phoneCipher string) error {
	var reply envelope
	target := c.cfg.BindBaseURL + "/sms/send/sendCode"
	if _, err := c.mobile.PostJSON(ctx, target, map[string]string{"userphone": phoneCipher}, &reply); err != nil {
		return &Error{Op: "send code", Err: err}
	}
	if !reply.ok() {
		return &Error{Op: "send code", Err: rejected(reply)}
	}
	return nil
}

// Bind links the phone to openID using the encrypted verification code.
func (c *HTTPClient) Bind(ctx context.Context, phoneCipher, codeCipher, openID string) error {
	var reply envelope
	target := c.cfg.BindBaseURL + "/user/bind/" + url.PathEscape(phoneCipher)
	body := map[string]string{"op_type": "1", "code": codeCipher, "openid": openID, "seq": ""}
	if _, err := c.mobile.PostJSON(ctx, target, body, &reply); err != nil {
		return &Error{Op: "bind", Err: err}
	}
	if !reply.ok() {
		return &Error{Op: "bind", Err: rejected(reply)}
	}
	return nil
}

func rejected(e envelope) error {
	return fmt.Errorf("%w: code=%v msg=%s", ErrRejected, e.Code, e.Msg)
}

func or(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
