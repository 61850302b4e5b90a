package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("auth token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrSessionLocked    = fmt.Errorf("session is locked by another process")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNotFound           = fmt.Errorf("record not found")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// ErrAutocancelled marks a request superseded by a newer fetch of the same resource.
	// The message must keep the word "autocancelled" so string checks still match after wrapping.
	ErrAutocancelled = fmt.Errorf("the request was autocancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Quota and plan errors
	ErrGated = fmt.Errorf("not available on the current plan")
)
