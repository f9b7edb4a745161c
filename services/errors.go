package services

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired is returned when a calendar operation is
// attempted for a user without a usable Google credential. The user has to
// go through the authorization flow again.
var ErrAuthenticationRequired = errors.New("no valid google credential for user")

// ErrEventNotFound is returned when the provider reports the referenced
// calendar event as missing.
var ErrEventNotFound = errors.New("calendar event not found")

// AuthorizationError means the authorization-code exchange failed: the code
// was expired, already used, the redirect URI did not match, or the state
// parameter did not verify. The user must restart the flow.
type AuthorizationError struct {
	Reason string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// RemoteServiceError carries the provider's status and message for a failed
// calendar call. These are surfaced as-is and never retried automatically.
type RemoteServiceError struct {
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("google calendar error %d: %s", e.Status, e.Message)
}
