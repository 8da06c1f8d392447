package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the kinds of failures the risk engine can report
type ErrorCategory string

const (
	// Caller supplied a value the engine cannot work with
	ErrorCategoryInvalidInput ErrorCategory = "INVALID_INPUT"
	// Close requested for a symbol that has no open position
	ErrorCategoryPositionNotFound ErrorCategory = "POSITION_NOT_FOUND"
	// State file could not be read or written
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"
	// Limits or thresholds contradict each other
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
)

// RiskError represents a categorized error with context
type RiskError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *RiskError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *RiskError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *RiskError) IsRetryable() bool {
	return e.Retryable
}

// NewRiskError creates a new categorized error
func NewRiskError(category ErrorCategory, component, operation, message string) *RiskError {
	return &RiskError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with risk error context
func WrapError(err error, category ErrorCategory, component, operation string) *RiskError {
	if err == nil {
		return nil
	}

	return &RiskError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *RiskError) WithContext(key string, value interface{}) *RiskError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *RiskError) WithRetryable(retryable bool) *RiskError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	return category == ErrorCategoryPersistence
}

func NewInvalidInputError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryInvalidInput, component, operation, message)
}

func NewPositionNotFoundError(component, operation, symbol string) *RiskError {
	return NewRiskError(ErrorCategoryPositionNotFound, component, operation,
		fmt.Sprintf("no open position for %s", symbol)).WithContext("symbol", symbol)
}

func NewPersistenceError(component, operation string, err error) *RiskError {
	return WrapError(err, ErrorCategoryPersistence, component, operation)
}

func NewConfigurationError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryConfiguration, component, operation, message)
}

// CategoryOf returns the category of err, or "" when err is not a RiskError
func CategoryOf(err error) ErrorCategory {
	var riskErr *RiskError
	if stderrors.As(err, &riskErr) {
		return riskErr.Category
	}
	return ""
}

func IsInvalidInput(err error) bool     { return CategoryOf(err) == ErrorCategoryInvalidInput }
func IsPositionNotFound(err error) bool { return CategoryOf(err) == ErrorCategoryPositionNotFound }
func IsPersistence(err error) bool      { return CategoryOf(err) == ErrorCategoryPersistence }
func IsConfiguration(err error) bool    { return CategoryOf(err) == ErrorCategoryConfiguration }

// IsRetryable reports whether another attempt could succeed. Errors outside
// the taxonomy are treated as transient.
func IsRetryable(err error) bool {
	var riskErr *RiskError
	if stderrors.As(err, &riskErr) {
		return riskErr.Retryable
	}
	return err != nil
}
