package ev

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a normalized provider failure category
type ErrorCode string

const (
	CodeAuthFailed      ErrorCode = "AUTH_FAILED"
	CodeAuthExpired     ErrorCode = "AUTH_EXPIRED"
	CodeVehicleOffline  ErrorCode = "VEHICLE_OFFLINE"
	CodeVehicleAsleep   ErrorCode = "VEHICLE_ASLEEP"
	CodeVehicleNotFound ErrorCode = "VEHICLE_NOT_FOUND"
	CodeCommandFailed   ErrorCode = "COMMAND_FAILED"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeAPIError        ErrorCode = "API_ERROR"
	CodeNetworkError    ErrorCode = "NETWORK_ERROR"
	CodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	CodeTimeout         ErrorCode = "TIMEOUT"
)

// ProviderError is a manufacturer failure normalized into the shared taxonomy.
// Adapters must map every provider-specific error into one of these at the
// TransformError boundary before the hub sees it.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	Retryable  bool
	StatusCode int // original HTTP status if the failure came off the wire
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewProviderError creates a ProviderError with the retryability the taxonomy
// assigns to the code
func NewProviderError(code ErrorCode, message string) *ProviderError {
	return &ProviderError{
		Code:      code,
		Message:   message,
		Retryable: codeRetryable(code),
	}
}

// codeRetryable is the fixed retryability table for the taxonomy
func codeRetryable(code ErrorCode) bool {
	switch code {
	case CodeAuthFailed, CodeVehicleNotFound, CodeInvalidRequest, CodeNotSupported:
		return false
	default:
		return true
	}
}

// FromStatusCode maps an HTTP status into the taxonomy. This is the default
// table shared across adapters; individual adapters may override it in their
// TransformError when the provider encodes failures differently.
func FromStatusCode(status int, message string) *ProviderError {
	var code ErrorCode
	switch status {
	case http.StatusUnauthorized:
		code = CodeAuthFailed
	case http.StatusForbidden:
		code = CodeAuthExpired
	case http.StatusNotFound:
		code = CodeVehicleNotFound
	case http.StatusRequestTimeout:
		code = CodeVehicleAsleep
	case http.StatusTooManyRequests:
		code = CodeRateLimited
	case http.StatusServiceUnavailable:
		code = CodeVehicleOffline
	default:
		code = CodeAPIError
	}

	err := NewProviderError(code, message)
	err.StatusCode = status
	return err
}

// IsRetryable reports whether err is a ProviderError marked retryable.
// Non-ProviderError values are treated as non-retryable so unexpected
// failures surface immediately instead of burning the retry budget.
func IsRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr != nil && perr.Retryable
	}
	return false
}

// AsProviderError extracts a ProviderError from err, or wraps err as an
// API_ERROR if it is not one
func AsProviderError(err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr == nil {
			// Typed nil inside the error interface; calling its Error
			// method would panic
			return NewProviderError(CodeAPIError, "unspecified provider failure")
		}
		return perr
	}
	return NewProviderError(CodeAPIError, err.Error())
}

// Hard failures raised by the hub itself. These indicate caller programming
// errors, not transient provider conditions, and are returned as plain errors
// rather than CommandResult values.
var (
	ErrConnectionNotFound  = errors.New("no connection for this user and vehicle")
	ErrConnectionExists    = errors.New("connection already exists")
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrManufacturerUnknown = errors.New("unknown manufacturer")
	ErrInvalidTransition   = errors.New("invalid connection state transition")
)
