// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPopupClosed is returned when the user dismisses the sign-in popup.
	ErrPopupClosed = errors.New("sign-in popup closed by user")
	// ErrPopupExpired is returned when the popup's code expires before the user completes it.
	ErrPopupExpired = errors.New("sign-in popup expired")
	// ErrAccessDenied is returned when the user declines the consent screen.
	ErrAccessDenied = errors.New("access denied by user")
	// ErrUnknownFailure stands in for a failure that carried no detail.
	ErrUnknownFailure = errors.New("sign-in failed")

	// ErrSignInPending is returned when a sign-in is started while another is still in flight.
	ErrSignInPending = errors.New("sign-in already in progress")
	// ErrAlreadySignedIn is returned once a sign-in has succeeded on this screen.
	ErrAlreadySignedIn = errors.New("already signed in")
	// ErrClosed is returned after the sign-in screen has been torn down.
	ErrClosed = errors.New("sign-in screen closed")
)

// SignInError wraps a failure reported by an identity provider.
// Callers can reach the cause with errors.Is / errors.As.
type SignInError struct {
	Provider string
	Err      error
}

func (e *SignInError) Error() string {
	return fmt.Sprintf("%s sign-in failed: %v", e.Provider, e.Err)
}

func (e *SignInError) Unwrap() error {
	return e.Err
}

// IsUserCancellation reports whether err means the user walked away from the popup
// rather than something going wrong.
func IsUserCancellation(err error) bool {
	return errors.Is(err, ErrPopupClosed) || errors.Is(err, ErrAccessDenied)
}
