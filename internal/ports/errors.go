package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that adapters wrap or return directly.
var (
	// ErrUnknownSource indicates that a fetch named a source that is not registered.
	ErrUnknownSource = errors.New("unknown source")

	// ErrNoResponse indicates that a source returned neither a response nor an error.
	ErrNoResponse = errors.New("source returned no response")

	// ErrBlankResponse indicates that a source returned only whitespace.
	ErrBlankResponse = errors.New("source returned a blank response")

	// ErrFetchPanicked indicates that a fetcher panicked.
	ErrFetchPanicked = errors.New("fetch panicked")

	// ErrRateLimited indicates that a backend rejected the request for rate reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation ran out of time.
	ErrTimeout = errors.New("operation timed out")

	// ErrConfigNotFound indicates that a configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration not found")
)

// SourceError represents a failure while fetching from one source.
type SourceError struct {
	// SourceID is the source that failed.
	SourceID string

	// Operation describes what was being attempted.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for SourceError.
func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: source=%s, operation=%s, err=%v", e.SourceID, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is likely transient.
func (e *SourceError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) || errors.Is(e.Err, ErrTimeout)
}

// NewSourceError creates a new SourceError with the given details.
func NewSourceError(sourceID, operation string, err error) *SourceError {
	return &SourceError{SourceID: sourceID, Operation: operation, Err: err}
}

// StoreError represents a failure while persisting a result.
type StoreError struct {
	// Location is the target the store attempted to write, if known.
	Location string

	Operation string

	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: operation=%s, location=%s, err=%v", e.Operation, e.Location, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(location, operation string, err error) *StoreError {
	return &StoreError{Location: location, Operation: operation, Err: err}
}

// MetricsError represents an error that occurred while recording metrics.
type MetricsError struct {
	Metric string

	Operation string

	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{Metric: metric, Operation: operation, Err: err}
}

// ConfigError represents an error in configuration loading or validation.
type ConfigError struct {
	// ConfigKey is the configuration key or file involved.
	ConfigKey string

	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{ConfigKey: key, Err: err}
}
