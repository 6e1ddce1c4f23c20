// Package transport is the authenticated HTTP layer of the SDK. It attaches
// the bearer credential to every outgoing request, detects expiry on the way
// back, and silently refreshes and replays once before surfacing a failure.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	bearerPrefix        = "Bearer "

	// Tuned for slow backend links, and applied uniformly to every request
	// including the refresh call itself.
	defaultTimeout = 30 * time.Second
)

// CredentialStore is the token surface the transport needs: read on every
// dispatch, written by the silent refresh. credentials.Store satisfies it.
type CredentialStore interface {
	Get() (token string, ok bool)
	Set(token string) error
	Clear() error
}

// Client wraps net/http with a fixed base URL, JSON encoding, a cookie jar
// (the refresh credential rides in an HttpOnly cookie) and the
// refresh-and-retry behaviour described on Do.
type Client struct {
	baseURL          string
	http             *http.Client
	creds            CredentialStore
	log              zerolog.Logger
	onSessionExpired func(err error)

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. The caller is
// then responsible for providing a cookie jar.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClientLogger sets the transport logger. Token values are never logged.
func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithSessionExpiredHandler registers the callback invoked when a silent
// refresh fails terminally. The UI layer uses it to notify the user and
// navigate to the login boundary; the transport itself has no notion of
// navigation.
func WithSessionExpiredHandler(fn func(err error)) ClientOption {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

// SetSessionExpiredHandler is the post-construction form of
// WithSessionExpiredHandler, for wiring that is circular at build time (the
// session manager consumes the client, and the handler tears the session
// down). Call it before the client starts serving requests.
func (c *Client) SetSessionExpiredHandler(fn func(err error)) {
	c.onSessionExpired = fn
}

// New creates a Client rooted at baseURL, reading credentials from creds.
func New(baseURL string, creds CredentialStore, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[transport.New] baseURL is required")
	}
	if creds == nil {
		return nil, errors.New("[transport.New] credential store is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[transport.New] cookiejar.New")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		log:     zerolog.Nop(),
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
	}
	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

type requestConfig struct {
	noRetry bool
	query   url.Values
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithoutRetry opts the request out of refresh-and-retry. The session state
// machine uses this for the auth endpoints so a failed login surfaces as a
// login error rather than a session-expired teardown.
func WithoutRetry() RequestOption {
	return func(rc *requestConfig) {
		rc.noRetry = true
	}
}

// WithQuery appends query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(rc *requestConfig) {
		rc.query = q
	}
}

// Do issues one JSON request and decodes the 2xx response body into out
// (which may be nil). On the first 401/403 it refreshes the access token via
// the cookie-backed refresh endpoint and replays the request once; a
// successful replay is indistinguishable from a first-try success. A failed
// refresh clears the credential store, fires the session-expired handler and
// returns an error matching ErrSessionExpired. Every other failure is
// returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, options ...RequestOption) error {
	cfg := requestConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.Do] failed to encode request body")
		}
	}

	req, err := c.newRequest(ctx, method, path, payload, cfg)
	if err != nil {
		return err
	}
	if token, ok := c.creds.Get(); ok {
		req.Header.Set(headerAuthorization, bearerPrefix+token)
	}

	status, respBody, err := c.send(req)
	if err != nil {
		return err
	}
	if status < http.StatusBadRequest {
		return decodeBody(respBody, out)
	}

	if (status == http.StatusUnauthorized || status == http.StatusForbidden) && !cfg.noRetry {
		return c.refreshAndRetry(ctx, method, path, payload, cfg, out)
	}

	return normalizeError(status, respBody)
}

// refreshAndRetry runs the silent refresh and replays the original request
// exactly once. A 401/403 on the replayed request is never retried again.
func (c *Client) refreshAndRetry(ctx context.Context, method, path string, payload []byte, cfg requestConfig, out any) error {
	token, err := c.refreshToken(ctx)
	if err != nil {
		// A caller whose own context ended while waiting did not observe
		// a failed refresh; the rotation may still complete for everyone
		// else. Only a refresh failure is a session signal.
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return errors.Wrap(err, "[Client.refreshAndRetry] cancelled while awaiting refresh")
		}
		c.expireSession(err)
		return errors.WithMessagef(ErrSessionExpired, "refresh failed: %v", err)
	}

	req, err := c.newRequest(ctx, method, path, payload, cfg)
	if err != nil {
		return err
	}
	req.Header.Set(headerAuthorization, bearerPrefix+token)

	status, respBody, err := c.send(req)
	if err != nil {
		return err
	}
	if status < http.StatusBadRequest {
		return decodeBody(respBody, out)
	}
	return normalizeError(status, respBody)
}

// expireSession is the terminal path: drop the credential and hand the
// failure to the UI boundary.
func (c *Client) expireSession(cause error) {
	if err := c.creds.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("transport: failed to clear credentials")
	}
	c.log.Warn().Err(cause).Msg("transport: session expired, refresh failed")
	if c.onSessionExpired != nil {
		c.onSessionExpired(cause)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, cfg requestConfig) (*http.Request, error) {
	target := c.baseURL + path
	if len(cfg.query) > 0 {
		target += "?" + cfg.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.newRequest] %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, uuid.New().String())
	return req, nil
}

// send dispatches the request and drains the response body.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.send] %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.send] reading response of %s %s", req.Method, req.URL.Path)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(headerRequestID)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("transport: request")

	return resp.StatusCode, body, nil
}

func decodeBody(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "[Client.Do] failed to decode response body")
	}
	return nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, out any, options ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, options...)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, options...)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, options ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, options...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, options ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, options...)
}
