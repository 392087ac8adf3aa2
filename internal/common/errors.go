package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries a machine-readable code alongside the message. Handlers map
// the code to an HTTP status via HTTPStatus.
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

// Stable error codes surfaced in the response envelope.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

// Common base errors.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflicting state")
	ErrQuota        = errors.New("quota exceeded")
	ErrInternal     = errors.New("internal error")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return NewAppError(CodeValidation, message, ErrInvalidInput)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(CodeUnauthorized, message, ErrUnauthorized)
}

func QuotaError(message string) *AppError {
	return NewAppError(CodeQuotaExceeded, message, ErrQuota)
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

func ConflictError(message string) *AppError {
	return NewAppError(CodeConflict, message, ErrConflict)
}

func InternalError(message string, cause error) *AppError {
	return NewAppError(CodeInternal, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error to the response status code. Unknown errors are 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeValidation:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeQuotaExceeded:
			return http.StatusPaymentRequired
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrQuota):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// ErrorCode extracts the machine-readable code, defaulting to INTERNAL_ERROR.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
