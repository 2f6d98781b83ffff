package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// mapError turns a service error into a status and a body. Engine errors
// carry their own message; everything else gets a fixed one so internals
// never leak.
func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch requestdomain.KindOf(err) {
	case requestdomain.KindNotFound:
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case requestdomain.KindForbidden:
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: err.Error()}
	case requestdomain.KindInvalidState:
		return http.StatusConflict, errorPayload{Type: "invalid_state", Message: err.Error()}
	case requestdomain.KindInsufficientCredits:
		return http.StatusUnprocessableEntity, errorPayload{Type: "insufficient_credits", Message: err.Error()}
	case requestdomain.KindInvalidInput:
		return http.StatusBadRequest, errorPayload{Type: "invalid_input", Message: err.Error()}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Code:    err.Error(),
					Message: "invalid value",
				},
			},
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client
// sees plus the raw sentinel text.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if kind := requestdomain.KindOf(err); kind != requestdomain.KindInternal {
		return payload.Type, string(kind)
	}
	return payload.Type, ""
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, userdomain.ErrInvalidID),
		errors.Is(err, versiondomain.ErrInvalidRequest),
		errors.Is(err, ledgerdomain.ErrInvalidWorkspace):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, workspacedomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrWorkspaceNotFound):
		return true
	default:
		return false
	}
}
