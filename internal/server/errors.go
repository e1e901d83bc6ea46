package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	admindomain "github.com/propsight/propsight/internal/admin/domain"
	pddomain "github.com/propsight/propsight/internal/propertydata/domain"
	quotadomain "github.com/propsight/propsight/internal/quota/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware renders the last error pushed onto the context as
// a JSON error payload, once, after the handler chain completes.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, payload("unauthorized", "missing or invalid user identity")
	case errors.Is(err, quotadomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, payload("insufficient_credits", "not enough credits remaining; upgrade your plan or wait for the monthly reset")
	case errors.Is(err, pddomain.ErrInvalidPostcode),
		errors.Is(err, quotadomain.ErrInvalidCredits),
		errors.Is(err, quotadomain.ErrInvalidUser),
		errors.Is(err, quotadomain.ErrUnknownPlan),
		errors.Is(err, admindomain.ErrMissingAdmin),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, payload("invalid_request", err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, payload("not_found", "resource not found")
	case errors.Is(err, pddomain.ErrRateLimited):
		return http.StatusTooManyRequests, payload("rate_limited", err.Error())
	case errors.Is(err, pddomain.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, payload("provider_unconfigured", "valuation provider credentials are not configured")
	case errors.Is(err, pddomain.ErrProviderFailure):
		return http.StatusBadGateway, payload("provider_failure", err.Error())
	default:
		return http.StatusInternalServerError, payload("internal_error", "internal error")
	}
}

func payload(errType, message string) errorPayload {
	return errorPayload{Type: errType, Message: message}
}
