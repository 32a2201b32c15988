package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrTwoFactorRequired = fmt.Errorf("%w: two-step verification required", ErrAuthFailed)
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrSessionExpired    = fmt.Errorf("session expired")
	ErrMalformedRequest  = fmt.Errorf("malformed request: no session established")

	// Transport errors
	ErrNetwork = fmt.Errorf("network or CORS failure")
	ErrTimeout = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrCacheMiss          = fmt.Errorf("cache entry not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
