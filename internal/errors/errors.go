package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeSourceUnavailable ErrCode = "SOURCE_UNAVAILABLE"
	ErrCodeTransport         ErrCode = "TRANSPORT_ERROR"
	ErrCodeTransportConflict ErrCode = "TRANSPORT_CONFLICT"
	ErrCodeHandlerFailure    ErrCode = "HANDLER_FAILURE"
	ErrCodeNotFound          ErrCode = "NOT_FOUND"
	ErrCodeInternal          ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest        ErrCode = "BAD_REQUEST"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailableError reports that an activity source could not answer
func NewSourceUnavailableError(source string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeSourceUnavailable,
		Message: fmt.Sprintf("%s unavailable", source),
		Err:     err,
	}
}

// NewTransportError creates a generic chat transport error
func NewTransportError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: fmt.Sprintf("%s failed", op),
		Err:     err,
	}
}

// NewTransportConflictError signals that another delivery mode (a webhook)
// is registered for the same bot
func NewTransportConflictError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransportConflict,
		Message: "competing delivery mode registered",
		Err:     err,
	}
}

// NewHandlerFailureError wraps an error raised while handling one inbound event
func NewHandlerFailureError(updateID int64, err error) *AppError {
	return &AppError{
		Code:    ErrCodeHandlerFailure,
		Message: fmt.Sprintf("update %d handler failed", updateID),
		Err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsSourceUnavailable checks if the error is a source unavailable error
func IsSourceUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeSourceUnavailable
}

// IsTransportConflict checks if the error is a transport conflict error
func IsTransportConflict(err error) bool {
	return CodeOf(err) == ErrCodeTransportConflict
}

// IsTransportError checks if the error is a generic transport error
func IsTransportError(err error) bool {
	return CodeOf(err) == ErrCodeTransport
}

// IsHandlerFailure checks if the error is a handler failure
func IsHandlerFailure(err error) bool {
	return CodeOf(err) == ErrCodeHandlerFailure
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
