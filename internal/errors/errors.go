package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Generic error types
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"

	// Measurement query error types
	ErrorTypeInvalidTimeRange  ErrorType = "invalid_time_range"
	ErrorTypeInvalidFieldIndex ErrorType = "invalid_field_index"
	ErrorTypeInvalidMergeCount ErrorType = "invalid_merge_count"
	ErrorTypeInvalidItemsCount ErrorType = "invalid_items_count"
	ErrorTypeNoDataRecords     ErrorType = "no_data_records"
	ErrorTypeSensorNotExisting ErrorType = "sensor_not_existing"
	ErrorTypeDataAccess        ErrorType = "data_access"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the internal error to errors.Is and errors.As.
func (e *APIError) Unwrap() error {
	return e.err
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func newError(t ErrorType, code int, msg string, err error) *APIError {
	return &APIError{
		Type:    t,
		Message: msg,
		Code:    code,
		err:     err,
	}
}

// NewValidationError creates a new validation error for malformed input
func NewValidationError(msg string, err error) *APIError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, msg, err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, msg, err)
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, msg, err)
}

// NewInvalidTimeRangeError reports a negative or inverted time window
func NewInvalidTimeRangeError(from, to int64) *APIError {
	return newError(ErrorTypeInvalidTimeRange, http.StatusNotAcceptable,
		"Invalid time range. Please provide an unix timestamp: from >= 0 and to >= 0", nil).
		WithDetails(map[string]int64{"from": from, "to": to})
}

// NewInvalidFieldIndexError reports a field index outside the record's values
func NewInvalidFieldIndexError(fieldIndex, fieldCount int) *APIError {
	return newError(ErrorTypeInvalidFieldIndex, http.StatusNotAcceptable,
		"Invalid field index. Please provide a number >= 0. Also make sure, it's not too high.", nil).
		WithDetails(map[string]int{"fieldIndex": fieldIndex, "fieldCount": fieldCount})
}

// NewInvalidMergeCountError reports a merge count or granularity below one
func NewInvalidMergeCountError(msg string) *APIError {
	return newError(ErrorTypeInvalidMergeCount, http.StatusNotAcceptable, msg, nil)
}

// NewInvalidItemsCountError reports a ranking size below one
func NewInvalidItemsCountError(items int) *APIError {
	return newError(ErrorTypeInvalidItemsCount, http.StatusNotAcceptable,
		"Invalid number of items. Please provide a number >= 1", nil).
		WithDetails(map[string]int{"items": items})
}

// NewNoDataRecordsError reports an empty sensor scope where at least one sensor is required
func NewNoDataRecordsError(msg string) *APIError {
	return newError(ErrorTypeNoDataRecords, http.StatusNotAcceptable, msg, nil)
}

// NewSensorNotExistingError reports a chip ID without a metadata row
func NewSensorNotExistingError(chipID uint64) *APIError {
	return newError(ErrorTypeSensorNotExisting, http.StatusNotFound,
		"This sensor does not exist.", nil).
		WithDetails(map[string]uint64{"chipId": chipID})
}

// NewDataAccessError wraps an unrecoverable store failure
func NewDataAccessError(msg string, err error) *APIError {
	return newError(ErrorTypeDataAccess, http.StatusInternalServerError, msg, err)
}

// AsAPIError returns err as an *APIError, wrapping unknown errors as internal errors
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError("internal server error", err)
}

// IsType checks if err carries an APIError of the given type
func IsType(err error, t ErrorType) bool {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Type == t
	}
	return false
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}
