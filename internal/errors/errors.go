package errors

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "AUTHENTICATION_ERROR"
	ErrCodeForbidden          = "AUTHORIZATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInvariantViolation = "INVARIANT_VIOLATION"
	ErrCodeInvalidUpdate      = "INVALID_UPDATE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error kinds. Services wrap these so handlers can map any domain error with
// errors.Is without knowing the specific sentinel.
var (
	ErrValidation         = stderrors.New("validation error")
	ErrAuthentication     = stderrors.New("authentication error")
	ErrAuthorization      = stderrors.New("authorization error")
	ErrNotFound           = stderrors.New("not found")
	ErrConflict           = stderrors.New("conflict")
	ErrInvariantViolation = stderrors.New("invariant violation")
	ErrInvalidUpdate      = stderrors.New("invalid update")
	ErrServiceUnavailable = stderrors.New("service unavailable")
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// DetailedError carries structured details (e.g. rejected field names) next to
// a wrapped kind.
type DetailedError struct {
	Err     error
	Details interface{}
}

func (e *DetailedError) Error() string { return e.Err.Error() }

func (e *DetailedError) Unwrap() error { return e.Err }

// WithDetails attaches details to err.
func WithDetails(err error, details interface{}) error {
	return &DetailedError{Err: err, Details: details}
}

// envelope is the uniform failure body: {"success": false, "error": {...}}.
type envelope struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, envelope{Success: false, Error: err})
}

type kindMapping struct {
	kind   error
	status int
	code   string
}

var kindMappings = []kindMapping{
	{ErrValidation, http.StatusBadRequest, ErrCodeValidation},
	{ErrInvalidUpdate, http.StatusBadRequest, ErrCodeInvalidUpdate},
	{ErrAuthentication, http.StatusUnauthorized, ErrCodeUnauthorized},
	{ErrAuthorization, http.StatusForbidden, ErrCodeForbidden},
	{ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{ErrConflict, http.StatusConflict, ErrCodeConflict},
	{ErrInvariantViolation, http.StatusConflict, ErrCodeInvariantViolation},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
}

// Classify maps an error to its HTTP status and API code. ok is false for
// errors outside the domain taxonomy.
func Classify(err error) (status int, code string, ok bool) {
	if m, found := classify(err); found {
		return m.status, m.code, true
	}
	return http.StatusInternalServerError, ErrCodeInternalError, false
}

func classify(err error) (kindMapping, bool) {
	for _, m := range kindMappings {
		if stderrors.Is(err, m.kind) {
			return m, true
		}
	}
	return kindMapping{}, false
}

// Respond writes err using the taxonomy. Unexpected errors are logged with
// detail and surfaced as a generic internal error.
func Respond(c *gin.Context, logger zerolog.Logger, err error) {
	m, ok := classify(err)
	if !ok {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		InternalError(c, "")
		return
	}

	apiErr := NewAPIError(m.code, publicMessage(err, m.kind))
	var detailed *DetailedError
	if stderrors.As(err, &detailed) {
		apiErr.Details = detailed.Details
	}
	RespondWithError(c, m.status, apiErr)
}

// publicMessage drops the kind prefix from wrapped errors ("not found: task
// not found" becomes "task not found").
func publicMessage(err, kind error) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if idx := strings.Index(msg, prefix); idx >= 0 {
		return msg[idx+len(prefix):]
	}
	return msg
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeValidation, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeValidation, message, details))
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context) {
	RespondWithError(c, http.StatusTooManyRequests, NewAPIError(ErrCodeRateLimited, "Rate limit exceeded"))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
