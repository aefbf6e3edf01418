package seedr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Token holds the credentials of a Seedr session. The access token is always
// present; a session that can refresh itself additionally carries a refresh
// token or a device code. Tokens are treated as immutable values: a refresh
// produces a new Token, it never mutates an existing one.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceCode   string `json:"device_code,omitempty"`
}

// Valid reports whether the mandatory access token is present.
func (t Token) Valid() bool {
	return t.AccessToken != ""
}

// Refreshable reports whether the token carries a credential usable for an
// automatic refresh.
func (t Token) Refreshable() bool {
	return t.RefreshToken != "" || t.DeviceCode != ""
}

// ToJSON encodes the token as a JSON object, omitting absent fields.
func (t Token) ToJSON() (string, error) {
	if !t.Valid() {
		return "", &TokenError{Message: "access token is required"}
	}

	b, err := json.Marshal(t)
	if err != nil {
		return "", &TokenError{Message: "encoding token", Err: err}
	}

	return string(b), nil
}

// ToBase64 encodes the JSON form as base64 for compact single-string storage,
// e.g. in an environment variable.
func (t Token) ToBase64() (string, error) {
	s, err := t.ToJSON()
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func TokenFromJSON(s string) (Token, error) {
	var t Token

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&t); err != nil {
		return Token{}, &TokenError{Message: "decoding token json", Err: err}
	}

	if !t.Valid() {
		return Token{}, &TokenError{Message: "token json is missing access_token"}
	}

	return t, nil
}

func TokenFromBase64(s string) (Token, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Token{}, &TokenError{Message: "decoding token base64", Err: err}
	}

	return TokenFromJSON(string(b))
}

// String returns a masked representation safe for logs. Secrets are never
// printed beyond a short prefix.
func (t Token) String() string {
	return fmt.Sprintf("Token(access_token=%s, refresh_token=%s, device_code=%s)",
		maskSecret(t.AccessToken), maskSecret(t.RefreshToken), maskSecret(t.DeviceCode))
}

func maskSecret(s string) string {
	if s == "" {
		return "<none>"
	}
	if len(s) <= 5 {
		return s + "****"
	}
	return s[:5] + "****"
}
