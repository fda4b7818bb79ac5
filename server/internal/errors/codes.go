package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for scheduling operations.
type ErrorCode string

const (
	// ErrCodeInvalidInterval indicates a malformed interval (end <= start).
	ErrCodeInvalidInterval ErrorCode = "INVALID_INTERVAL"
	// ErrCodeInvalidArgument indicates invalid request parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInsufficientCapacity indicates the window cannot hold the full budget or occurrence count.
	ErrCodeInsufficientCapacity ErrorCode = "INSUFFICIENT_CAPACITY"
	// ErrCodeNoSlotsAvailable indicates zero free slots or zero valid candidates.
	ErrCodeNoSlotsAvailable ErrorCode = "NO_SLOTS_AVAILABLE"
	// ErrCodeInvalidRankingProposal indicates a ranker returned an unusable proposal.
	ErrCodeInvalidRankingProposal ErrorCode = "INVALID_RANKING_PROPOSAL"
	// ErrCodeEventCreationFailure indicates the event creator rejected one event.
	ErrCodeEventCreationFailure ErrorCode = "EVENT_CREATION_FAILURE"
	// ErrCodeBusyDataUnavailable indicates the calendar provider returned no data.
	ErrCodeBusyDataUnavailable ErrorCode = "BUSY_DATA_UNAVAILABLE"
	// ErrCodeRankerUnavailable indicates the ranking backend could not be reached.
	ErrCodeRankerUnavailable ErrorCode = "RANKER_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// SchedError represents a structured error for scheduling operations.
type SchedError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SchedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SchedError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *SchedError) WithContext(key string, value interface{}) *SchedError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *SchedError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidInterval creates an invalid interval error.
func InvalidInterval(msg string) *SchedError {
	return &SchedError{Code: ErrCodeInvalidInterval, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *SchedError {
	return &SchedError{Code: ErrCodeInvalidArgument, Message: msg}
}

// InsufficientCapacity creates an insufficient capacity error.
func InsufficientCapacity(msg string) *SchedError {
	return &SchedError{Code: ErrCodeInsufficientCapacity, Message: msg}
}

// NoSlotsAvailable creates a no slots available error.
func NoSlotsAvailable(msg string) *SchedError {
	return &SchedError{Code: ErrCodeNoSlotsAvailable, Message: msg}
}

// InvalidRankingProposal creates an invalid ranking proposal error.
func InvalidRankingProposal(msg string) *SchedError {
	return &SchedError{Code: ErrCodeInvalidRankingProposal, Message: msg}
}

// EventCreationFailure creates an event creation failure error.
func EventCreationFailure(msg string, cause error) *SchedError {
	return &SchedError{Code: ErrCodeEventCreationFailure, Message: msg, Cause: cause}
}

// BusyDataUnavailable creates a busy data unavailable error.
func BusyDataUnavailable(cause error) *SchedError {
	return &SchedError{Code: ErrCodeBusyDataUnavailable, Message: "no busy-period data available", Cause: cause}
}

// RankerUnavailable creates a ranker unavailable error.
func RankerUnavailable(msg string, cause error) *SchedError {
	return &SchedError{Code: ErrCodeRankerUnavailable, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *SchedError {
	return &SchedError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *SchedError {
	return &SchedError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error (or anything it wraps) carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var schedErr *SchedError
	if stderrors.As(err, &schedErr) {
		return schedErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a SchedError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var schedErr *SchedError
	if stderrors.As(err, &schedErr) {
		return schedErr.Code
	}
	return defaultCode
}
