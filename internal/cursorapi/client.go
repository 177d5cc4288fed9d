// Package cursorapi talks to the cursor.com web endpoints the settings page
// uses for account and usage data.
package cursorapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zsprackett/cursor-usage/internal/cursorauth"
	"github.com/zsprackett/cursor-usage/internal/retry"
)

const (
	DefaultBaseURL = "https://www.cursor.com"
	// SettingsURL is the account page in a browser.
	SettingsURL = DefaultBaseURL + "/settings"

	profilePath = "/api/auth/me"
	usagePath   = "/api/usage"

	// UsageModel is the model whose premium request quota is tracked.
	UsageModel = "gpt-4"

	maxResponseBytes = 1 << 20 // 1 MiB
)

// browserHeaders mimic Chrome on macOS loading the settings page.
var browserHeaders = [][2]string{
	{"Accept", "*/*"},
	{"Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7,en-GB;q=0.6"},
	{"Cache-Control", "no-cache"},
	{"Connection", "keep-alive"},
	{"Pragma", "no-cache"},
	{"Referer", SettingsURL},
	{"User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"},
	{"sec-ch-ua", `"Chromium";v="116", "Not)A;Brand";v="24", "Google Chrome";v="116"`},
	{"sec-ch-ua-mobile", "?0"},
	{"sec-ch-ua-platform", `"macOS"`},
	{"Sec-Fetch-Dest", "empty"},
	{"Sec-Fetch-Mode", "cors"},
	{"Sec-Fetch-Site", "same-origin"},
}

// StatusError is returned for responses the client considers transient.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Code, e.Body)
}

type Client struct {
	http    *http.Client
	baseURL string
	policy  retry.Policy
	logger  *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		http:    newHTTPClient(),
		baseURL: DefaultBaseURL,
		policy:  retry.Default,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func newHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          4,
		},
	}
}

// Profile fetches the signed-in account. A nil profile with a nil error means
// the endpoint answered with something other than 200.
func (c *Client) Profile(ctx context.Context, s cursorauth.Session) (*Profile, error) {
	var p Profile
	found, err := c.get(ctx, profilePath, s, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// Usage fetches request counts for UsageModel. A nil result with a nil error
// means no data: a non-200 answer or no entry for the model.
func (c *Client) Usage(ctx context.Context, s cursorauth.Session) (*ModelUsage, error) {
	var u UsageResponse
	found, err := c.get(ctx, usagePath, s, &u)
	if err != nil || !found {
		return nil, err
	}
	m, ok := u.Models[UsageModel]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// get performs a GET with retries and decodes a 200 body into out. found is
// false for non-200 responses that aren't worth retrying.
func (c *Client) get(ctx context.Context, path string, s cursorauth.Session, out any) (found bool, err error) {
	url := c.baseURL + path
	attempt := 0
	return retry.Do(ctx, c.policy, func(ctx context.Context) (bool, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		for _, h := range browserHeaders {
			req.Header.Set(h[0], h[1])
		}
		req.Header.Set("Cookie", s.Cookie())

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("cursorapi: request failed", "path", path, "attempt", attempt, "err", err)
			return false, fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
		if err != nil {
			return false, fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			c.logger.Debug("cursorapi: server error", "path", path, "attempt", attempt, "status", resp.StatusCode)
			return false, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		case resp.StatusCode != http.StatusOK:
			c.logger.Debug("cursorapi: no data", "path", path, "status", resp.StatusCode)
			return false, nil
		}

		if len(body) > maxResponseBytes {
			return false, retry.Permanent(errors.New("API response too large"))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return false, retry.Permanent(fmt.Errorf("parse response: %w", err))
		}
		return true, nil
	})
}
