// Package apperror provides coded application errors with severity levels
// and additional details, plus conversion to and from gRPC status errors.
//
// Solver errors fall into three groups:
//   - range and input errors, raised at entry before anything is mutated
//   - rejected operations, raised when a step runs without its precondition
//   - consistency failures, raised by opt-in verification after a run; the
//     network is left as is and must be treated as corrupted
package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Range and input
	CodeOutOfRange      ErrorCode = "OUT_OF_RANGE"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
	CodeInvalidNetwork  ErrorCode = "INVALID_NETWORK"
	CodeInvalidSource   ErrorCode = "INVALID_SOURCE"
	CodeInvalidOption   ErrorCode = "INVALID_OPTION"

	// Rejected operations
	CodeRejectedOperation ErrorCode = "REJECTED_OPERATION"
	CodeNothingPending    ErrorCode = "NOTHING_PENDING"

	// Algorithms
	CodeAlgorithmError   ErrorCode = "ALGORITHM_ERROR"
	CodeInvalidAlgorithm ErrorCode = "INVALID_ALGORITHM"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeIterationLimit   ErrorCode = "ITERATION_LIMIT"

	// Consistency
	CodeConsistencyViolation  ErrorCode = "CONSISTENCY_VIOLATION"
	CodeCapacityOverflow      ErrorCode = "CAPACITY_OVERFLOW"
	CodeNegativeFlow          ErrorCode = "NEGATIVE_FLOW"
	CodeConservationViolation ErrorCode = "CONSERVATION_VIOLATION"
	CodeBalanceViolation      ErrorCode = "BALANCE_VIOLATION"
	CodeFlowValueMismatch     ErrorCode = "FLOW_VALUE_MISMATCH"
	CodeBrokenPath            ErrorCode = "BROKEN_PATH"

	// General
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnimplemented ErrorCode = "UNIMPLEMENTED"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates that the data the error refers to can no
	// longer be trusted.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
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

// Error is an application error with a code, message, optional field,
// details, cause and severity.
type Error struct {
	Code     ErrorCode      // Code identifies the kind of error.
	Message  string         // Message is a human-readable description.
	Field    string         // Field names the offending input, if any.
	Details  map[string]any // Details carries structured context.
	Cause    error          // Cause is the wrapped error.
	Severity Severity       // Severity is the criticality level.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && t.Message == e.Message
	}
	return false
}

// GRPCStatus converts the application error into a gRPC status.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.grpcCode(), e.Message)
}

func (e *Error) grpcCode() codes.Code {
	switch e.Code {
	case CodeInvalidArgument, CodeNilInput, CodeInvalidNetwork, CodeInvalidSource,
		CodeInvalidOption, CodeInvalidAlgorithm:
		return codes.InvalidArgument

	case CodeOutOfRange:
		return codes.OutOfRange

	case CodeRejectedOperation, CodeNothingPending:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	case CodeTimeout, CodeIterationLimit:
		return codes.DeadlineExceeded

	case CodeCanceled:
		return codes.Canceled

	case CodeUnimplemented:
		return codes.Unimplemented

	case CodeConsistencyViolation, CodeCapacityOverflow, CodeNegativeFlow,
		CodeConservationViolation, CodeBalanceViolation, CodeFlowValueMismatch,
		CodeBrokenPath:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}

// New creates an error with SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWithField creates an error bound to an input field.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates an error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates an error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates an error that wraps cause.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the details.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from err, CodeInternal for foreign errors.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ToGRPC converts err into a gRPC status error.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	return status.Error(codes.Internal, err.Error())
}

// FromGRPC converts a gRPC error into an *Error.
func FromGRPC(err error) *Error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return New(CodeInternal, err.Error())
	}

	var code ErrorCode
	switch st.Code() {
	case codes.InvalidArgument:
		code = CodeInvalidArgument
	case codes.OutOfRange:
		code = CodeOutOfRange
	case codes.NotFound:
		code = CodeNotFound
	case codes.DeadlineExceeded:
		code = CodeTimeout
	case codes.Canceled:
		code = CodeCanceled
	case codes.FailedPrecondition:
		code = CodeRejectedOperation
	case codes.DataLoss:
		code = CodeConsistencyViolation
	default:
		code = CodeInternal
	}

	return New(code, st.Message())
}

// IsWarning reports whether err carries SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical reports whether err carries SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrNilGraph       = New(CodeNilInput, "network is nil")
	ErrTimeout        = New(CodeTimeout, "operation timed out")
	ErrCanceled       = New(CodeCanceled, "operation canceled")
	ErrIterationLimit = New(CodeIterationLimit, "iteration limit exceeded")
)

// ValidationErrors collects errors and warnings from several checks.
type ValidationErrors struct {
	Errors   []*Error // Errors holds SeverityError and SeverityCritical entries.
	Warnings []*Error // Warnings holds SeverityWarning entries.
}

// NewValidationErrors creates an empty collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends err to Errors or Warnings according to its severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError adds a new SeverityError entry.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning adds a new SeverityWarning entry.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// HasErrors reports whether any error was collected.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// IsValid reports whether no error was collected. Warnings do not count.
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// ErrorMessages returns the messages of all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// First returns the first collected error, nil when there is none.
func (v *ValidationErrors) First() *Error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
