// Package errors provides the error taxonomy for the capture terminal.
//
// Every failure the operator can run into is one of three kinds, each handled
// by the part of the capture session that owns it and translated into session
// state for rendering:
//
//   - ValidationError: a required field is empty. Shown inline next to the
//     field; the workflow stage does not advance.
//   - CameraUnavailableError: the decoding capability could not attach to the
//     camera (permission denied or device missing). Shown as a blocking
//     banner; recoverable by resetting the session.
//   - SubmissionError: the backend request failed. Shown as a retry banner;
//     the collected fields are preserved.
//
// Per-frame decode misses are not errors and never appear here.
//
// # Usage
//
//	err := errors.NewValidationError("Employment ID is required").WithField("workerId")
//
//	var camErr *errors.CameraUnavailableError
//	if errors.As(err, &camErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Workflow sentinel errors
var (
	// ErrInvalidTransition indicates an operation was invoked in a stage that does not allow it.
	ErrInvalidTransition = New("operation not allowed in current stage")
	// ErrSubmissionInFlight indicates a submission is already pending for this session.
	ErrSubmissionInFlight = New("submission already in flight")
)

// Camera sentinel errors
var (
	// ErrPermissionDenied indicates the operator has not granted access to the camera device.
	ErrPermissionDenied = New("camera permission denied")
	// ErrDeviceUnavailable indicates the camera device is missing or busy.
	ErrDeviceUnavailable = New("camera device unavailable")
	// ErrDecoderStopped indicates the decoder handle was stopped before it started.
	ErrDecoderStopped = New("decoder stopped")
)

// Submission sentinel errors
var (
	// ErrMalformedResponse indicates the backend answered 2xx with an unreadable body.
	ErrMalformedResponse = New("malformed response")
	// ErrUnexpectedStatus indicates the backend answered with a non-2xx status.
	ErrUnexpectedStatus = New("unexpected status")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ClassifiedError is the base interface for all capture terminal errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ClassifiedError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operator can retry the action.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to show the operator.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Message returns the message without the cause chain.
func (e *baseError) Message() string {
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// ValidationError represents a user-correctable input defect.
//
// Example:
//
//	err := errors.NewValidationError("Quantity is required").WithField("quantity")
//	fmt.Println(err) // "validation error [field=quantity]: Quantity is required"
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%q", fmt.Sprint(e.Value)))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationErrors collects every field failure found in one pass.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for _, err := range e {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// -----------------------------------------------------------------------------
// Camera
// -----------------------------------------------------------------------------

// CameraUnavailableError reports that the decoding capability could not
// attach to the live camera feed.
//
// Example:
//
//	err := errors.NewCameraUnavailableError("/dev/video0", errors.ErrPermissionDenied)
//	fmt.Println(err) // "camera unavailable [device=/dev/video0]: camera permission denied"
type CameraUnavailableError struct {
	baseError
	Device string
}

// NewCameraUnavailableError creates a new CameraUnavailableError.
// The cause should wrap ErrPermissionDenied or ErrDeviceUnavailable when known.
func NewCameraUnavailableError(device string, cause error) *CameraUnavailableError {
	return &CameraUnavailableError{
		baseError: baseError{
			message:    "camera unavailable",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Device: device,
	}
}

// PermissionDenied reports whether the failure was an access refusal.
func (e *CameraUnavailableError) PermissionDenied() bool {
	return errors.Is(e.cause, ErrPermissionDenied)
}

// Error returns the formatted error message.
func (e *CameraUnavailableError) Error() string {
	prefix := e.message
	if e.Device != "" {
		prefix = fmt.Sprintf("%s [device=%s]", e.message, e.Device)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return prefix
}

// Is checks if this error matches the target.
func (e *CameraUnavailableError) Is(target error) bool {
	if _, ok := target.(*CameraUnavailableError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Submission
// -----------------------------------------------------------------------------

// SubmissionError represents a failed round-trip to the submission endpoint.
//
// Example:
//
//	err := errors.NewSubmissionError("backend rejected record", errors.ErrUnexpectedStatus).WithStatusCode(502)
type SubmissionError struct {
	baseError
	StatusCode int
	Body       string
}

// NewSubmissionError creates a new SubmissionError. Submission failures are
// retryable by default: the operator resubmits the preserved fields.
func NewSubmissionError(message string, cause error) *SubmissionError {
	return &SubmissionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithStatusCode records the HTTP status returned by the backend.
func (e *SubmissionError) WithStatusCode(code int) *SubmissionError {
	e.StatusCode = code
	return e
}

// WithBody records a (trimmed) response body for diagnostics.
func (e *SubmissionError) WithBody(body string) *SubmissionError {
	e.Body = body
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SubmissionError) WithRetryable(r bool) *SubmissionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SubmissionError) Error() string {
	prefix := "submission error"
	if e.StatusCode != 0 {
		prefix = fmt.Sprintf("submission error [status=%d]", e.StatusCode)
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s (body: %s)", msg, e.Body)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *SubmissionError) Is(target error) bool {
	if _, ok := target.(*SubmissionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a condition the operator
// can recover from by repeating the action.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var classified ClassifiedError
	if As(err, &classified) {
		return classified.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to the operator.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var classified ClassifiedError
	if As(err, &classified) {
		return classified.IsUserFacing()
	}

	var validation ValidationErrors
	return As(err, &validation)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ClassifiedError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var classified ClassifiedError
	if As(err, &classified) {
		return classified.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to open scanner")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
