package identity

import (
	"errors"
	"strings"
)

// Error codes, in the auth/... form the web SDK reports.
const (
	CodeEmailAlreadyInUse                    = "auth/email-already-in-use"
	CodeUserNotFound                         = "auth/user-not-found"
	CodeWrongPassword                        = "auth/wrong-password"
	CodeInvalidCredential                    = "auth/invalid-credential"
	CodeInvalidEmail                         = "auth/invalid-email"
	CodeWeakPassword                         = "auth/weak-password"
	CodeUserDisabled                         = "auth/user-disabled"
	CodeTooManyRequests                      = "auth/too-many-requests"
	CodeAccountExistsWithDifferentCredential = "auth/account-exists-with-different-credential"
	CodePopupClosedByUser                    = "auth/popup-closed-by-user"
	CodeInternal                             = "auth/internal-error"
)

// Error is a provider failure translated to an auth/... code.
type Error struct {
	Code string
	// Message is the provider's raw message, kept for logs.
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "identity: " + e.Code
	}
	return "identity: " + e.Code + " (" + e.Message + ")"
}

var messageCodes = map[string]string{
	"EMAIL_EXISTS":                     CodeEmailAlreadyInUse,
	"EMAIL_NOT_FOUND":                  CodeUserNotFound,
	"INVALID_PASSWORD":                 CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":        CodeInvalidCredential,
	"INVALID_IDP_RESPONSE":             CodeInvalidCredential,
	"INVALID_EMAIL":                    CodeInvalidEmail,
	"MISSING_EMAIL":                    CodeInvalidEmail,
	"WEAK_PASSWORD":                    CodeWeakPassword,
	"MISSING_PASSWORD":                 CodeWeakPassword,
	"USER_DISABLED":                    CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":      CodeTooManyRequests,
	"FEDERATED_USER_ID_ALREADY_LINKED": CodeAccountExistsWithDifferentCredential,
}

// errorFromMessage maps a provider message such as
// "WEAK_PASSWORD : Password should be at least 6 characters" to an *Error.
func errorFromMessage(msg string) *Error {
	key, _, _ := strings.Cut(msg, " ")
	key = strings.TrimSpace(strings.TrimSuffix(key, ":"))
	code, ok := messageCodes[key]
	if !ok {
		code = CodeInternal
	}
	return &Error{Code: code, Message: msg}
}

// CodeOf returns the auth/... code carried by err, or "" when err is not an
// *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
