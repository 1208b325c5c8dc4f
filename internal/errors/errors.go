package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryNotFound    ErrorCategory = "not_found"
	CategoryValidation  ErrorCategory = "validation"
	CategoryStorage     ErrorCategory = "storage"
	CategorySubsystem   ErrorCategory = "subsystem"
	CategoryExternalAPI ErrorCategory = "external_api"
	CategoryRateLimit   ErrorCategory = "rate_limit"
	CategoryInternal    ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with category and HTTP context
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewNotFoundError signals that a requested entity is absent. The
// analysis engine aborts the affected operation without writing any
// partial record.
func NewNotFoundError(resource, id string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("resource", errors.New(resource))
	errorMap.Set("id", errors.New(id))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s %s not found", resource, id)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryNotFound, http.StatusNotFound)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewStorageError wraps a storage read/write failure. These propagate
// unchanged to the caller; the engine never retries them.
func NewStorageError(op string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("storage %s failed", op))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryStorage, http.StatusInternalServerError)
}

// NewSubsystemError records that an auxiliary scoring subsystem could not
// run. Callers log it and continue with that subsystem's neutral result.
func NewSubsystemError(name string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s subsystem unavailable", name))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategorySubsystem, http.StatusServiceUnavailable)
}

// NewExternalAPIError creates an external API error
func NewExternalAPIError(apiName string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("api_name", errors.New(apiName))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s API error", apiName)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryExternalAPI, http.StatusBadGateway)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
}

// IsNotFound reports whether err is a NotFound application error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == CategoryNotFound
	}
	return false
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// ErrorHandler is a gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			appErr := ToAppError(err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}

// LogError logs an error with appropriate level and request context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	switch err.Category {
	case CategoryNotFound, CategoryValidation, CategoryRateLimit:
		logEntry.Warn(err.ErrBuilder.Msg)
	case CategorySubsystem, CategoryExternalAPI:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Info(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Info(err.ErrBuilder.Msg)
		}
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Error(err.ErrBuilder.Msg)
		}
	}
}
