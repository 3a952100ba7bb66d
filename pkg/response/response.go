package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mariodrm17/Practica1/pkg/log"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// CodedError is implemented by errors that carry a machine-readable code and an HTTP
// status. ErrorMessage is the client-facing text and never includes the cause.
type CodedError interface {
	error
	ErrorCode() string
	ErrorMessage() string
	HTTPStatus() int
	IsRetryable() bool
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Created sends a 201 created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// FromError renders err using its code and status when it carries them, and a generic
// 500 otherwise. It reports whether err was a coded error. A wrapped cause is logged,
// never sent.
func FromError(c *gin.Context, err error) bool {
	var coded CodedError
	if !errors.As(err, &coded) {
		InternalError(c, "internal error")
		return false
	}
	if cause := errors.Unwrap(coded); cause != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(cause).Str("code", coded.ErrorCode()).Msg(coded.ErrorMessage())
	}
	c.JSON(coded.HTTPStatus(), Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      coded.ErrorCode(),
			Message:   coded.ErrorMessage(),
			Retryable: coded.IsRetryable(),
		},
	})
	return true
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
