// Package response writes the single JSON envelope used by every endpoint.
//
//	success: {"success":true,"message":...,"data":...,"pagination":...}
//	failure: {"success":false,"message":...,"code":...,"errors":[...],"error":...}
package response

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/pkg/logger"
)

// Envelope is the response body shape.
type Envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       any                `json:"data,omitempty"`
	Pagination any                `json:"pagination,omitempty"`
	Code       string             `json:"code,omitempty"`
	Errors     []schema.Violation `json:"errors,omitempty"`
	Error      string             `json:"error,omitempty"`
}

var exposeDetail atomic.Bool

// ExposeErrorDetail controls whether 500 responses carry the underlying
// error text. Enabled in development only.
func ExposeErrorDetail(on bool) { exposeDetail.Store(on) }

func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// List writes a page of items; data is always a JSON array.
func List(c *gin.Context, message string, items any, pagination any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: items, Pagination: pagination})
}

// Status maps an error to its HTTP status and machine-readable code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, apperr.ErrMalformedID):
		return http.StatusBadRequest, "MALFORMED_ID"
	case errors.Is(err, apperr.ErrTokenExpired):
		return http.StatusBadRequest, "TOKEN_EXPIRED"
	case errors.Is(err, apperr.ErrTokenUsed):
		return http.StatusBadRequest, "TOKEN_ALREADY_USED"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperr.ErrTokenNotFound):
		return http.StatusNotFound, "TOKEN_NOT_FOUND"
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, apperr.ErrUpload):
		return http.StatusInternalServerError, "UPLOAD_ERROR"
	case errors.Is(err, apperr.ErrPersistence):
		return http.StatusInternalServerError, "PERSISTENCE_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// Error writes err using the envelope. Server-side failures are logged and
// their cause is hidden unless detail exposure is on.
func Error(c *gin.Context, err error) {
	status, code := Status(err)
	env := Envelope{Success: false, Code: code}

	var ve *schema.ValidationError
	switch {
	case errors.As(err, &ve):
		env.Message = "Validation failed"
		env.Errors = ve.Violations
	case status >= http.StatusInternalServerError:
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		env.Message = http.StatusText(status)
		if exposeDetail.Load() {
			env.Error = err.Error()
		}
	default:
		env.Message = err.Error()
	}
	c.AbortWithStatusJSON(status, env)
}

// Fail writes a failure with an explicit status, for boundary checks that
// have no domain error (unknown routes, oversized bodies).
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Code: code, Message: message})
}
