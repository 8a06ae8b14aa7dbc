package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyAPIKey indicates that no API key was supplied.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates that a provider answered with no text.
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrNoResponseChoice indicates that a provider returned no choices.
	ErrNoResponseChoice = errors.New("no response choices returned")

	// ErrUnsupportedProvider indicates that no factory is registered for a provider.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// ErrorType names a class of provider failure. The value doubles as the
// status label reported by the metrics middleware.
type ErrorType string

const (
	ErrorTypeUnknown        ErrorType = "unknown"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeBadRequest     ErrorType = "bad_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeContentPolicy  ErrorType = "content_policy"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeTimeout        ErrorType = "timeout"
)

// retryableTypes are transient: another attempt may succeed.
var retryableTypes = map[ErrorType]bool{
	ErrorTypeRateLimit:   true,
	ErrorTypeServerError: true,
	ErrorTypeNetwork:     true,
	ErrorTypeTimeout:     true,
}

func (t ErrorType) String() string {
	if t == "" {
		return string(ErrorTypeUnknown)
	}
	return string(t)
}

// ProviderError is a classified failure from an LLM provider.
type ProviderError struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Type != "" && e.Type != ErrorTypeUnknown {
		base += fmt.Sprintf(" [%s]", e.Type)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool { return retryableTypes[e.Type] }

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Type:       errType,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ErrorClassifier maps raw SDK failures to ProviderErrors for one provider.
type ErrorClassifier struct {
	Provider string
}

// ClassifyHTTPError classifies a failure by HTTP status code. Auth and
// rate-limit failures get a provider-scoped message in place of the raw one.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	errType := classifyStatus(statusCode)
	switch errType {
	case ErrorTypeAuthentication:
		message = ec.Provider + " authentication failed"
	case ErrorTypeRateLimit:
		message = ec.Provider + " rate limit exceeded"
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

func classifyStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorTypeAuthentication
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code == http.StatusRequestTimeout:
		return ErrorTypeTimeout
	case code >= http.StatusInternalServerError:
		return ErrorTypeServerError
	case code >= http.StatusBadRequest:
		return ErrorTypeBadRequest
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyContextError classifies cancellation and deadline failures.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeNetwork, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// isRetryable treats classified errors by their type and retries anything
// unclassified except cancellation.
func isRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.IsRetryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrCircuitOpen)
}
