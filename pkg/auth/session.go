package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	sessionCookieName = "prospection_session"
	stateCookieName   = "prospection_oauth_state"
	minSecretLen      = 32

	// SessionDuration is the lifetime of a login session.
	SessionDuration = 7 * 24 * time.Hour
	// StateDuration bounds how long an OAuth round trip may take.
	StateDuration = 10 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStateExpired     = errors.New("oauth state expired")
)

// SessionCookieName is the cookie carrying the opaque session token.
func SessionCookieName() string {
	return sessionCookieName
}

// StateCookieName is the cookie carrying the signed OAuth state.
func StateCookieName() string {
	return stateCookieName
}

// SessionSecretBytes pads s to at least 32 bytes for use as an HMAC key.
func SessionSecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}

// GenerateSessionToken returns 32 random bytes, hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Sign returns value with an HMAC-SHA256 signature appended.
func Sign(value string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(value))
	sig := hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "." + sig
}

// Verify checks a token produced by Sign and returns the original value.
func Verify(token string, secret []byte) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid token format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return "", ErrInvalidSignature
	}
	return string(payload), nil
}

// NewOAuthState returns a random state value and its signed form. The raw
// state goes to the provider; the signed form goes into the state cookie.
func NewOAuthState(secret []byte, now time.Time) (state, signed string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	state = hex.EncodeToString(b)
	expires := strconv.FormatInt(now.Add(StateDuration).Unix(), 10)
	return state, Sign(state+"|"+expires, secret), nil
}

// VerifyOAuthState checks that state matches the signed cookie value and has
// not expired.
func VerifyOAuthState(state, signed string, secret []byte, now time.Time) error {
	payload, err := Verify(signed, secret)
	if err != nil {
		return err
	}
	want, expires, ok := strings.Cut(payload, "|")
	if !ok {
		return errors.New("invalid state payload")
	}
	if state == "" || !hmac.Equal([]byte(want), []byte(state)) {
		return errors.New("state mismatch")
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return errors.New("invalid state payload")
	}
	if now.Unix() > exp {
		return ErrStateExpired
	}
	return nil
}
