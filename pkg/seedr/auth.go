package seedr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lucperkins/rek"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/seedrcc/go-seedr/pkg/httputils"
	"github.com/seedrcc/go-seedr/pkg/logger"
)

// AuthResult is the outcome of a successful grant exchange. It is only used
// to construct a Token; it is not retained by the client.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceCode   string `json:"device_code,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Token converts the result into a session Token.
func (r *AuthResult) Token() Token {
	return Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		DeviceCode:   r.DeviceCode,
	}
}

// DeviceCode is the challenge issued by the device flow. The user enters
// UserCode at VerificationURL; the application polls AuthorizeDevice with
// Code every Interval seconds.
type DeviceCode struct {
	Code            string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// Auth performs the raw grant exchanges with the Seedr OAuth endpoints.
// All methods are stateless; each returns an AuthResult or a classified
// error (NetworkError, ServerError, AuthenticationError).
type Auth struct {
	http      *http.Client
	endpoints Endpoints
	log       *logrus.Entry
}

func NewAuth() *Auth {
	return NewAuthWithEndpoints(DefaultEndpoints())
}

func NewAuthWithEndpoints(e Endpoints) *Auth {
	return &Auth{
		http:      httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(2, ratelimit.WithoutSlack)),
		endpoints: e,
		log:       logger.GetLogger("seedr-auth"),
	}
}

// GetDeviceCode fetches a device and user code for the device auth flow.
// This does not by itself complete authentication.
func (a *Auth) GetDeviceCode(ctx context.Context) (*DeviceCode, error) {
	a.log.Tracef("Requesting device code")

	requestURL, err := httputils.URLWithQuery(a.endpoints.DeviceCode, url.Values{
		"client_id": []string{deviceClientID},
	})
	if err != nil {
		return nil, fmt.Errorf("creating device code URL: %w", err)
	}

	resp, err := rek.Get(requestURL,
		rek.Client(a.http),
		rek.Context(ctx),
	)
	if err != nil {
		return nil, &NetworkError{Op: "device code request", Err: err}
	}
	defer resp.Body().Close()

	body, err := readAuthBody(resp, "device code request")
	if err != nil {
		return nil, err
	}

	dc := new(DeviceCode)
	if err := json.Unmarshal(body, dc); err != nil {
		return nil, &AuthenticationError{Message: "decoding device code response", Err: err}
	}

	return dc, nil
}

// AuthorizeDevice exchanges an approved device code for tokens. Before the
// user approves the code out-of-band this fails with an AuthenticationError
// whose Code is "authorization_pending"; see IsAuthorizationPending.
func (a *Auth) AuthorizeDevice(ctx context.Context, deviceCode string) (*AuthResult, error) {
	a.log.Tracef("Authorizing device code: %s", maskSecret(deviceCode))

	requestURL, err := httputils.URLWithQuery(a.endpoints.DeviceAuthorize, url.Values{
		"client_id":   []string{deviceClientID},
		"device_code": []string{deviceCode},
	})
	if err != nil {
		return nil, fmt.Errorf("creating device authorize URL: %w", err)
	}

	resp, err := rek.Get(requestURL,
		rek.Client(a.http),
		rek.Context(ctx),
	)
	if err != nil {
		return nil, &NetworkError{Op: "device authorization", Err: err}
	}
	defer resp.Body().Close()

	return decodeAuthResult(resp, "device authorization")
}

// AuthorizePassword exchanges a username and password for tokens.
func (a *Auth) AuthorizePassword(ctx context.Context, username, password string) (*AuthResult, error) {
	a.log.Tracef("Exchanging password grant for user: %s", username)

	resp, err := rek.Post(a.endpoints.Token,
		rek.Client(a.http),
		rek.FormData(map[string]string{
			"grant_type": "password",
			"client_id":  passwordClientID,
			"type":       "login",
			"username":   username,
			"password":   password,
		}),
		rek.Context(ctx),
	)
	if err != nil {
		return nil, &NetworkError{Op: "password grant", Err: err}
	}
	defer resp.Body().Close()

	return decodeAuthResult(resp, "password grant")
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// response does not echo the refresh token back; callers keep the one they
// exchanged.
func (a *Auth) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	a.log.Tracef("Exchanging refresh token: %s", maskSecret(refreshToken))

	resp, err := rek.Post(a.endpoints.Token,
		rek.Client(a.http),
		rek.FormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     passwordClientID,
		}),
		rek.Context(ctx),
	)
	if err != nil {
		return nil, &NetworkError{Op: "refresh token grant", Err: err}
	}
	defer resp.Body().Close()

	return decodeAuthResult(resp, "refresh token grant")
}

// readAuthBody reads the response body and classifies HTTP-level failures:
// 5xx is a ServerError, any other non-2xx an AuthenticationError.
func readAuthBody(resp *rek.Response, op string) ([]byte, error) {
	body, err := io.ReadAll(resp.Body())
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, &ServerError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, authErrorFromBody(resp.StatusCode(), body, op)
	}

	return body, nil
}

// decodeAuthResult classifies failures and decodes a grant response. The
// token endpoints report grant failures in the body, occasionally with a
// 2xx status, so a missing access token is treated as a failed exchange.
func decodeAuthResult(resp *rek.Response, op string) (*AuthResult, error) {
	body, err := readAuthBody(resp, op)
	if err != nil {
		return nil, err
	}

	res := new(AuthResult)
	if err := json.Unmarshal(body, res); err != nil {
		return nil, &AuthenticationError{Message: "decoding " + op + " response", Err: err}
	}

	if res.AccessToken == "" {
		return nil, authErrorFromBody(resp.StatusCode(), body, op)
	}

	return res, nil
}

func authErrorFromBody(statusCode int, body []byte, op string) *AuthenticationError {
	var remote struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &remote)

	message := op + " failed"
	if remote.ErrorDescription != "" {
		message = remote.ErrorDescription
	}

	return &AuthenticationError{
		StatusCode: statusCode,
		Code:       remote.Error,
		Message:    message,
	}
}
