package seedr

import (
	"errors"
	"fmt"
)

// NetworkError wraps a connection-level failure (timeout, DNS, refusal).
// The client never retries these internally.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a 5xx response from the remote service.
type ServerError struct {
	StatusCode int
	Status     string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Status)
}

// APIError is a 4xx response or an explicit in-body failure indicator.
// Message and Code carry the remote error when the body provides them.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: %s", e.Message)
	}
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// AuthenticationError covers a 401, a failed auth/refresh exchange, or a
// refresh attempted without any usable credential. Code carries the remote
// grant error (e.g. "authorization_pending") when available.
type AuthenticationError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication error: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthorizationPending reports whether err is the device flow's normal
// "user has not approved the code yet" condition, as opposed to a hard
// authentication failure. Callers polling AuthorizeDevice should keep
// polling while this returns true.
func IsAuthorizationPending(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae) && ae.Code == "authorization_pending"
}

// TokenError indicates a malformed persisted token.
type TokenError struct {
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("token error: %s", e.Message)
}

func (e *TokenError) Unwrap() error { return e.Err }
