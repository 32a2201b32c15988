package services

import (
	"errors"
	"fmt"
	"slices"

	"github.com/desertthunder/synoplay/internal/shared"
)

var errorMessages = map[int]string{
	400: "No such account or password",
	401: "Account disabled",
	402: "Permission denied",
	403: "2-step verification needed",
	404: "Two-step verification code error",
}

// Codes the NAS returns when a SID is missing, expired or revoked.
var sessionCodes = []int{105, 106, 107, 119}

// ErrorMessage maps a remote error code to a human-readable message.
func ErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", code)
}

// IsSessionCode reports whether code signals an invalid session.
func IsSessionCode(code int) bool {
	return slices.Contains(sessionCodes, code)
}

// APIError is a non-success envelope returned by the NAS.
//
// Kind is one of the [shared] sentinels and is what errors.Is matches against.
type APIError struct {
	Code   int
	API    string
	Method string
	Kind   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message())
}

func (e *APIError) Unwrap() error { return e.Kind }

// Message returns the mapped message for the remote code.
func (e *APIError) Message() string {
	return ErrorMessage(e.Code)
}

// loginError classifies a rejected login.
func loginError(e *APIError) *APIError {
	switch e.Code {
	case 403, 404:
		e.Kind = shared.ErrTwoFactorRequired
	default:
		e.Kind = shared.ErrAuthFailed
	}
	return e
}

// callError classifies a rejected library call. hadSession tells whether a SID was sent.
func callError(e *APIError, hadSession bool) *APIError {
	switch {
	case IsSessionCode(e.Code) && hadSession:
		e.Kind = shared.ErrSessionExpired
	case IsSessionCode(e.Code):
		e.Kind = shared.ErrNotAuthenticated
	default:
		e.Kind = shared.ErrAPIRequest
	}
	return e
}

// Describe turns err into a short message for people rather than logs.
func Describe(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrTwoFactorRequired):
		return "Two-step verification is not supported. Use an account without 2FA."
	case errors.Is(err, shared.ErrSessionExpired):
		return "Session expired. Log in again."
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrMalformedRequest):
		return "Not logged in. Run login first."
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, shared.ErrTimeout):
		return "The NAS did not answer in time."
	case errors.Is(err, shared.ErrNetwork):
		return "Could not reach the NAS. Check the address and your network."
	case errors.Is(err, shared.ErrMissingConfig):
		return "No NAS address configured. Set nas.url or SYNOPLAY_NAS_URL."
	default:
		return err.Error()
	}
}
