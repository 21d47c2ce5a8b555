package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	plain := NewError(CodeSessionInitFailed, "failed to initialize OAuth session", nil)
	if got := plain.Error(); got != "session_init_failed: failed to initialize OAuth session" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := NewError(CodeSessionInitFailed, "failed to initialize OAuth session", errors.New("boom"))
	if got := wrapped.Error(); got != "session_init_failed: failed to initialize OAuth session: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(CodeAccessTokenFailed, "failed to exchange authorization code", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NewError(CodeAuthorizationCancelled, "authorization cancelled", nil)

	if !errors.Is(err, NewError(CodeAuthorizationCancelled, "different message", errors.New("other"))) {
		t.Error("errors.Is should match typed errors by code")
	}
	if errors.Is(err, NewError(CodeAuthorizationTimedOut, "authorization cancelled", nil)) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestIsCode(t *testing.T) {
	inner := NewError(CodeSessionInitFailed, "failed to initialize OAuth session", nil)
	outer := NewError(CodeAuthURLComputationFailed, "failed to compute authorization URL", inner)
	doubleWrapped := fmt.Errorf("while authorizing: %w", outer)

	if !IsCode(doubleWrapped, CodeAuthURLComputationFailed) {
		t.Error("IsCode should find the outer code")
	}
	if !IsCode(doubleWrapped, CodeSessionInitFailed) {
		t.Error("IsCode should find the wrapped inner code")
	}
	if IsCode(doubleWrapped, CodeRevokeFailed) {
		t.Error("IsCode matched an absent code")
	}
	if IsCode(errors.New("plain"), CodeRevokeFailed) {
		t.Error("IsCode matched an untyped error")
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(NewError(CodePopupBlocked, "browser blocked the popup window", nil)); got != CodePopupBlocked {
		t.Errorf("ErrorCode() = %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Errorf("ErrorCode() = %q, want empty", got)
	}
}
