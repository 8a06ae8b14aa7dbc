package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during aggregation.
var (
	// ErrNoResponses indicates that no source produced a usable response.
	// Its message is the one carried by a failed AggregationResult.
	ErrNoResponses = errors.New("no responses available")

	// ErrEmptyQuery indicates that the query was empty or whitespace only.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrNoSources indicates that no sources are configured to answer a query.
	ErrNoSources = errors.New("no sources configured")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ScoringError describes a failure inside one stage of the scoring pipeline.
// Scoring stages degrade rather than abort, so these errors are reported to
// observers instead of being returned to callers.
type ScoringError struct {
	// Stage names the pipeline stage, such as "relevance" or "consensus".
	Stage string

	// SourceID is set when the failure concerns a single response.
	SourceID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ScoringError.
func (e *ScoringError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("scoring error: stage=%s, err=%v", e.Stage, e.Err)
	}
	return fmt.Sprintf("scoring error: stage=%s, source=%s, err=%v", e.Stage, e.SourceID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScoringError) Unwrap() error { return e.Err }

// NewScoringError creates a new ScoringError with the given details.
func NewScoringError(stage, sourceID string, err error) *ScoringError {
	return &ScoringError{Stage: stage, SourceID: sourceID, Err: err}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}
