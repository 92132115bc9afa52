package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data
	ErrorTypeValidation
	// Network errors - remote call failed or returned an unexpected shape
	ErrorTypeNetwork
	// FileSystem errors - cache or token file I/O failures
	ErrorTypeFileSystem
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	StatusCode int // HTTP status of a failed remote call, 0 if none
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status code %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStatus records the HTTP status of the failed call
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("Status: %d\n", e.StatusCode))
	}

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, e.Context[k]))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors for common error types

// ConfigError creates a configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// ConfigWarning creates a recoverable configuration problem; the run goes on
func ConfigWarning(message string) *Error {
	return New(ErrorTypeConfig, SeverityLow, message)
}

// ValidationError creates a validation error
func ValidationError(message string) *Error {
	return New(ErrorTypeValidation, SeverityHigh, message)
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityHigh, fmt.Sprintf(format, args...))
}

// InvalidInput reports ill-formed input handed to the ranker
func InvalidInput(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, SeverityCritical, fmt.Sprintf(format, args...))
}

// FetchError wraps a failed remote call. Fetch failures abort the run.
func FetchError(err error, message string) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityCritical, message)
}

// FetchErrorf wraps a failed remote call with formatting
func FetchErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityCritical, fmt.Sprintf(format, args...))
}

// FileSystemError wraps a filesystem error
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, message)
}

// FileSystemErrorf wraps a filesystem error with formatting
func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityHigh, fmt.Sprintf(format, args...))
}

// InternalError creates an internal error
func InternalError(message string) *Error {
	return New(ErrorTypeInternal, SeverityCritical, message)
}

// InternalErrorf creates an internal error with formatting
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

func asError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	if e, ok := asError(err); ok {
		return e.IsFatal()
	}
	return false
}

// IsFetchError reports whether err came from a failed remote call
func IsFetchError(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrorTypeNetwork
	}
	return false
}

// IsInvalidInput reports whether err is a validation failure
func IsInvalidInput(err error) bool {
	if e, ok := asError(err); ok {
		return e.Type == ErrorTypeValidation
	}
	return false
}

// HTTPStatus returns the HTTP status recorded on err, or 0
func HTTPStatus(err error) int {
	if e, ok := asError(err); ok {
		return e.StatusCode
	}
	return 0
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}

	if e, ok := asError(err); ok {
		return e.Severity
	}

	return SeverityMedium
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	if e, ok := asError(err); ok {
		return e.Type
	}
	return ErrorTypeInternal
}
