package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a machine-readable classification shared by the REST and realtime
// surfaces.
type ErrorCode string

const (
	// Cart domain
	ErrCodeInsufficientStock  ErrorCode = "INSUFFICIENT_STOCK"
	ErrCodeVariantRequired    ErrorCode = "VARIANT_REQUIRED"
	ErrCodeVariantInvalid     ErrorCode = "VARIANT_INVALID"
	ErrCodeProductUnavailable ErrorCode = "PRODUCT_UNAVAILABLE"
	ErrCodeLineItemNotFound   ErrorCode = "LINE_ITEM_NOT_FOUND"
	ErrCodeInvalidQuantity    ErrorCode = "INVALID_QUANTITY"

	// Chat domain
	ErrCodeRoomJoinFailed    ErrorCode = "ROOM_JOIN_FAILED"
	ErrCodeMessageTooLong    ErrorCode = "MESSAGE_TOO_LONG"
	ErrCodeMessageEmpty      ErrorCode = "MESSAGE_EMPTY"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"

	// Shared
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
)

// Error is a domain-level failure scoped to the single operation that raised it.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error carrying the same code, so contextual copies still satisfy
// errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) ErrorCode() string { return string(e.Code) }

func (e *Error) ErrorMessage() string { return e.Message }

func (e *Error) IsRetryable() bool { return e.Retryable }

func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrCodeVariantRequired, ErrCodeVariantInvalid, ErrCodeInvalidQuantity,
		ErrCodeMessageEmpty, ErrCodeMessageTooLong, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeProductUnavailable, ErrCodeLineItemNotFound:
		return http.StatusNotFound
	case ErrCodeInsufficientStock, ErrCodeInvalidState:
		return http.StatusConflict
	case ErrCodeStorageUnavailable, ErrCodePersistenceFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Withf returns a copy of the error with a more specific message.
func (e *Error) Withf(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Unavailable classifies a storage failure as retryable.
func Unavailable(op string, err error) *Error {
	return &Error{
		Code:      ErrCodeStorageUnavailable,
		Message:   op,
		Retryable: true,
		Err:       err,
	}
}

var (
	ErrInsufficientStock  = NewError(ErrCodeInsufficientStock, "insufficient stock")
	ErrVariantRequired    = NewError(ErrCodeVariantRequired, "a variant must be selected for this product")
	ErrVariantInvalid     = NewError(ErrCodeVariantInvalid, "variant is not available for this product")
	ErrProductUnavailable = NewError(ErrCodeProductUnavailable, "product not found or inactive")
	ErrLineItemNotFound   = NewError(ErrCodeLineItemNotFound, "item not found in cart")
	ErrInvalidQuantity    = NewError(ErrCodeInvalidQuantity, "quantity must be at least 1")

	ErrRoomJoinFailed    = NewError(ErrCodeRoomJoinFailed, "could not join room")
	ErrMessageTooLong    = NewError(ErrCodeMessageTooLong, "message is too long")
	ErrMessageEmpty      = NewError(ErrCodeMessageEmpty, "message is empty")
	ErrPersistenceFailed = &Error{Code: ErrCodePersistenceFailed, Message: "message could not be stored", Retryable: true}
	ErrInvalidState      = NewError(ErrCodeInvalidState, "operation not allowed in current state")

	ErrStorageUnavailable = &Error{Code: ErrCodeStorageUnavailable, Message: "storage unavailable", Retryable: true}
)

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
