package types

import (
	"errors"
	"fmt"
)

// Code identifies a failure class in the authorization flow.
type Code string

const (
	// CodePopupBlocked means the browser refused to open the popup.
	CodePopupBlocked Code = "popup_blocked"
	// CodePopupClosed means navigation was attempted on a dead popup.
	CodePopupClosed Code = "popup_closed"
	// CodeSessionInitFailed means the OAuth session could not be created.
	CodeSessionInitFailed Code = "session_init_failed"
	// CodeAuthURLComputationFailed means the authorization URL could not
	// be assembled, usually because session initialization failed.
	CodeAuthURLComputationFailed Code = "auth_url_computation_failed"
	// CodeSessionPollFailed means the session poll did not yield a code.
	CodeSessionPollFailed Code = "session_poll_failed"
	// CodeAccessTokenFailed means the code-for-token exchange failed.
	CodeAccessTokenFailed Code = "access_token_failed"
	// CodeRefreshFailed means the refresh grant failed.
	CodeRefreshFailed Code = "refresh_failed"
	// CodeRevokeFailed means the revocation call failed.
	CodeRevokeFailed Code = "revoke_failed"
	// CodeAuthorizationCancelled means the user cancelled or closed the popup.
	CodeAuthorizationCancelled Code = "authorization_cancelled"
	// CodeAuthorizationTimedOut means no terminal signal arrived in time.
	CodeAuthorizationTimedOut Code = "authorization_timed_out"
	// CodeNoTokenReturned means the exchange succeeded but yielded no token.
	CodeNoTokenReturned Code = "no_token_returned"
)

// Error is a typed authorization failure carrying a stable code and a
// human-readable message. It wraps the underlying cause when one exists.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// NewError creates a typed error. cause may be nil.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so typed
// failures can be matched with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// IsCode reports whether err is (or wraps, at any depth) a typed error
// with the given code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// ErrorCode extracts the code from err, or the empty code if err is not typed.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
