// Package netx holds the small JSON-over-HTTP helpers shared by the lease
// provider adapter and the identity client.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single request when no client is supplied.
const DefaultTimeout = 20 * time.Second

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// ErrDecode marks a 2xx response whose body is not the expected JSON.
var ErrDecode = errors.New("decode response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s failed: %d %s; body: %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Server reports a 5xx status.
func (e *StatusError) Server() bool {
	return e.StatusCode >= 500
}

// Client issues JSON requests with a fixed set of default headers.
type Client struct {
	HTTP   *http.Client
	Header http.Header
}

// NewClient returns a Client using hc, or a fresh http.Client with
// DefaultTimeout when hc is nil.
func NewClient(hc *http.Client, header http.Header) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	if header == nil {
		header = http.Header{}
	}
	return &Client{HTTP: hc, Header: header}
}

// WithHeader returns a copy of c that sets key to value on every request,
// replacing the default for key. c is left as is.
func (c *Client) WithHeader(key, value string) *Client {
	h := c.Header.Clone()
	h.Set(key, value)
	return &Client{HTTP: c.HTTP, Header: h}
}

// GetJSON performs GET rawURL?query and decodes the body into out when out is
// not nil. The raw body is returned for logging.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) ([]byte, error) {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, out)
}

// PostJSON encodes body as JSON, posts it and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) ([]byte, error) {
	for k, vals := range c.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = safeURL(req.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := raw
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return raw, &StatusError{URL: safeURL(req.URL), StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	return raw, nil
}

// safeURL drops the password from the userinfo and every query value, so
// tokens never end up in error text.
func safeURL(u *url.URL) string {
	c := *u
	if q := c.Query(); len(q) > 0 {
		masked := url.Values{}
		for k := range q {
			masked.Set(k, "xxxxx")
		}
		c.RawQuery = masked.Encode()
	}
	return c.Redacted()
}
