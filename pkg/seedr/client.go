package seedr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/seedrcc/go-seedr/pkg/httputils"
	"github.com/seedrcc/go-seedr/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Client is an authenticated Seedr API client. It owns exactly one Token,
// transparently refreshing it once per request when the service reports it
// expired. A Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	ownsHTTP  bool
	endpoints Endpoints
	timeout   time.Duration
	log       *logrus.Entry
	auth      *Auth

	// invoked with the new Token after every successful refresh, so the
	// caller can persist it
	onTokenRefresh func(Token)

	mu    sync.Mutex
	token Token
}

type Option func(*Client)

// WithHTTPClient supplies a pre-configured HTTP client. The caller remains
// responsible for releasing its resources.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithOnTokenRefresh registers a callback invoked with the new Token every
// time a refresh succeeds. The new Token is installed in the client before
// the callback runs.
func WithOnTokenRefresh(fn func(Token)) Option {
	return func(c *Client) { c.onTokenRefresh = fn }
}

// WithEndpoints overrides the remote endpoint set.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client from an existing Token, e.g. one restored from its
// persisted form.
func New(token Token, opts ...Option) (*Client, error) {
	if !token.Valid() {
		return nil, &TokenError{Message: "access token is required"}
	}

	c := newClient(opts...)
	c.token = token
	return c, nil
}

// FromPassword creates a client by authenticating with a username and
// password.
func FromPassword(ctx context.Context, username, password string, opts ...Option) (*Client, error) {
	c := newClient(opts...)

	res, err := c.auth.AuthorizePassword(ctx, username, password)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.token = res.Token()
	return c, nil
}

// FromDeviceCode creates a client by completing the device flow with a code
// previously approved by the user. The device code is retained on the Token
// so the session can refresh itself.
func FromDeviceCode(ctx context.Context, deviceCode string, opts ...Option) (*Client, error) {
	c := newClient(opts...)

	res, err := c.auth.AuthorizeDevice(ctx, deviceCode)
	if err != nil {
		c.Close()
		return nil, err
	}

	token := res.Token()
	token.DeviceCode = deviceCode
	c.token = token
	return c, nil
}

// FromRefreshToken creates a client from an existing refresh token.
func FromRefreshToken(ctx context.Context, refreshToken string, opts ...Option) (*Client, error) {
	c := newClient(opts...)

	res, err := c.auth.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		c.Close()
		return nil, err
	}

	token := res.Token()
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	c.token = token
	return c, nil
}

func newClient(opts ...Option) *Client {
	c := &Client{
		endpoints: DefaultEndpoints(),
		timeout:   defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.GetLogger("seedr")
	}
	if c.http == nil {
		c.http = httputils.NewRetryableHttpClient(c.timeout, ratelimit.New(2, ratelimit.WithoutSlack))
		c.ownsHTTP = true
	}

	c.auth = &Auth{
		http:      c.http,
		endpoints: c.endpoints,
		log:       c.log,
	}

	return c
}

// Token returns the current session token.
func (c *Client) Token() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close releases the underlying HTTP connections when the client created
// them itself.
func (c *Client) Close() {
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
}

// RefreshToken manually refreshes the access token instead of waiting for an
// automatic refresh on an API call.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResult, error) {
	res, _, err := c.refresh(ctx, nil)
	return res, err
}

// api executes one authenticated call against the resource endpoint and
// returns the raw JSON body. The operation is selected by fn; form fields go
// in the POST body (multipart when an attachment is present). An expired
// token triggers exactly one refresh-and-retry; every other failure is
// classified and returned as-is.
func (c *Client) api(ctx context.Context, method, fn string, form map[string]string, attachment []byte) (json.RawMessage, error) {
	snapshot := c.Token()

	body, err := c.do(ctx, method, fn, snapshot.AccessToken, form, attachment)
	if err != nil {
		return nil, err
	}

	if isExpiredToken(body) {
		refreshed, err := c.refreshAfterExpiry(ctx, snapshot)
		if err != nil {
			return nil, err
		}

		body, err = c.do(ctx, method, fn, refreshed.AccessToken, form, attachment)
		if err != nil {
			return nil, err
		}

		// a second expiry after a fresh token is terminal
		if isExpiredToken(body) {
			return nil, &AuthenticationError{Message: "token reported expired again after refresh"}
		}
	}

	return checkResultEnvelope(body)
}

// do performs a single HTTP round trip and classifies transport and status
// failures. Token-expiry handling is the caller's concern.
func (c *Client) do(ctx context.Context, method, fn, accessToken string, form map[string]string, attachment []byte) ([]byte, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)
	if fn != "" {
		q.Set("func", fn)
	}

	requestURL, err := httputils.URLWithQuery(c.endpoints.Resource, q)
	if err != nil {
		return nil, fmt.Errorf("creating request URL: %w", err)
	}

	var reqBody io.Reader
	contentType := ""

	if method == http.MethodPost {
		if attachment != nil {
			buf := new(bytes.Buffer)
			w := multipart.NewWriter(buf)
			for k, v := range form {
				if err := w.WriteField(k, v); err != nil {
					return nil, fmt.Errorf("writing form field: %w", err)
				}
			}
			fw, err := w.CreateFormFile(torrentFileField, torrentFileField)
			if err != nil {
				return nil, fmt.Errorf("creating file part: %w", err)
			}
			if _, err := fw.Write(attachment); err != nil {
				return nil, fmt.Errorf("writing file part: %w", err)
			}
			if err := w.Close(); err != nil {
				return nil, fmt.Errorf("closing multipart writer: %w", err)
			}
			reqBody = buf
			contentType = w.FormDataContentType()
		} else if len(form) > 0 {
			values := url.Values{}
			for k, v := range form {
				values.Set(k, v)
			}
			reqBody = strings.NewReader(values.Encode())
			contentType = "application/x-www-form-urlencoded"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Tracef("Requesting func=%s", fn)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: fn, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Op: fn, Err: err}
	}

	switch {
	case res.StatusCode >= http.StatusInternalServerError:
		return nil, &ServerError{StatusCode: res.StatusCode, Status: res.Status}
	case res.StatusCode == http.StatusUnauthorized:
		return nil, &AuthenticationError{StatusCode: res.StatusCode, Message: "invalid or expired token"}
	case res.StatusCode >= http.StatusBadRequest:
		return nil, apiErrorFromBody(res.StatusCode, raw)
	}

	return raw, nil
}

// refreshAfterExpiry handles an expired-token signal observed with the given
// token snapshot. Refreshes are serialized on the token mutex; a call whose
// snapshot was already replaced by a concurrent refresh reuses the new token
// instead of issuing a redundant exchange.
func (c *Client) refreshAfterExpiry(ctx context.Context, stale Token) (Token, error) {
	_, token, err := c.refresh(ctx, &stale)
	return token, err
}

// refresh exchanges the held credential for a new access token, installs the
// new Token and invokes the refresh callback. The refresh token takes
// precedence over the device code when both are present. The mutex is held
// across the exchange so concurrent refreshes cannot race each other.
func (c *Client) refresh(ctx context.Context, stale *Token) (*AuthResult, Token, error) {
	c.mu.Lock()

	if stale != nil && c.token.AccessToken != stale.AccessToken {
		current := c.token
		c.mu.Unlock()
		c.log.Debugf("Token already refreshed by a concurrent call")
		return nil, current, nil
	}

	current := c.token

	var (
		res *AuthResult
		err error
	)

	switch {
	case current.RefreshToken != "":
		res, err = c.auth.RefreshAccessToken(ctx, current.RefreshToken)
	case current.DeviceCode != "":
		res, err = c.auth.AuthorizeDevice(ctx, current.DeviceCode)
	default:
		c.mu.Unlock()
		return nil, Token{}, &AuthenticationError{Message: "session expired: no refresh token or device code available"}
	}

	if err != nil {
		c.mu.Unlock()
		var ae *AuthenticationError
		if errors.As(err, &ae) {
			return nil, Token{}, err
		}
		return nil, Token{}, &AuthenticationError{Message: "token refresh failed", Err: err}
	}

	if res.AccessToken == "" {
		c.mu.Unlock()
		return nil, Token{}, &AuthenticationError{Message: "token refresh response did not contain a new access token"}
	}

	newToken := Token{
		AccessToken:  res.AccessToken,
		RefreshToken: current.RefreshToken,
		DeviceCode:   current.DeviceCode,
	}
	c.token = newToken
	c.mu.Unlock()

	c.log.Debugf("Refreshed access token: %s", maskSecret(newToken.AccessToken))

	// the new token is already installed, so a failing callback cannot
	// lose it
	if c.onTokenRefresh != nil {
		c.onTokenRefresh(newToken)
	}

	return res, newToken, nil
}

func isExpiredToken(body []byte) bool {
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Error == expiredTokenError
}

// checkResultEnvelope fails the call when the body carries an explicit
// failure indicator: a "result" field present and not boolean true.
func checkResultEnvelope(body []byte) (json.RawMessage, error) {
	var env struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
		Code   int             `json:"code"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		// non-object bodies pass through untouched
		return body, nil
	}

	if env.Result != nil && string(env.Result) != "true" {
		message := env.Error
		if message == "" {
			message = "unknown API error"
		}
		return nil, &APIError{Code: env.Code, Message: message}
	}

	return body, nil
}

func apiErrorFromBody(statusCode int, body []byte) *APIError {
	var remote struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	_ = json.Unmarshal(body, &remote)

	return &APIError{
		StatusCode: statusCode,
		Code:       remote.Code,
		Message:    remote.Error,
	}
}
