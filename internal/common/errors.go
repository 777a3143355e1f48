package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrBackend           = errors.New("recognition backend failure")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("persistence conflict")
	ErrInternal          = errors.New("internal error")
	ErrDatabase          = errors.New("database error")
)

// Error codes carried by AppError.Code.
const (
	CodeNotFound    = "INPUT_NOT_FOUND"
	CodeUnsupported = "UNSUPPORTED_FORMAT"
	CodeBackend     = "BACKEND_FAILURE"
	CodeValidation  = "VALIDATION_FAILURE"
	CodeConflict    = "PERSISTENCE_CONFLICT"
	CodeDatabase    = "DATABASE_ERROR"
	CodeConfig      = "CONFIG_ERROR"
	CodeInvalid     = "INVALID_INPUT"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NotFound(format string, args ...any) error {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func InvalidInput(format string, args ...any) error {
	return NewAppError(CodeInvalid, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func Unsupported(format string, args ...any) error {
	return NewAppError(CodeUnsupported, fmt.Sprintf(format, args...), ErrUnsupportedFormat)
}

// Backend wraps a recognition backend error. Both the sentinel and the cause stay reachable through errors.Is.
func Backend(engine string, cause error) error {
	return NewAppError(CodeBackend, engine, errors.Join(ErrBackend, cause))
}

func Validation(format string, args ...any) error {
	return NewAppError(CodeValidation, fmt.Sprintf(format, args...), ErrValidation)
}

func Database(op string, cause error) error {
	return NewAppError(CodeDatabase, op, errors.Join(ErrDatabase, cause))
}

// ToStatus maps a pipeline error onto a gRPC status for RPC front-ends.
func ToStatus(err error) *status.Status {
	switch {
	case err == nil:
		return status.New(codes.OK, "")
	case errors.Is(err, ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrBackend):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, ErrConflict):
		return status.New(codes.Aborted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	default:
		return status.New(codes.Internal, err.Error())
	}
}
