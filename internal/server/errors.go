package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/talentgrid/campushire/internal/authorization"
	eligibilitydomain "github.com/talentgrid/campushire/internal/eligibility/domain"
	interviewdomain "github.com/talentgrid/campushire/internal/interview/domain"
	invitationdomain "github.com/talentgrid/campushire/internal/invitation/domain"
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
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
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

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, invitationdomain.ErrUnauthorized):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictErrorMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
		errors.Is(err, invitationdomain.ErrInvalidInvitation),
		errors.Is(err, invitationdomain.ErrInvalidJob),
		errors.Is(err, invitationdomain.ErrInvalidCollege),
		errors.Is(err, invitationdomain.ErrInvalidProposedDates),
		errors.Is(err, invitationdomain.ErrInvalidExpiresInDays),
		errors.Is(err, invitationdomain.ErrInvalidStudentLimits),
		errors.Is(err, invitationdomain.ErrInvalidVisitWindow),
		errors.Is(err, invitationdomain.ErrInvalidDeclineReason),
		errors.Is(err, invitationdomain.ErrInvalidAlternativeDates),
		errors.Is(err, invitationdomain.ErrInvalidResponseAction),
		errors.Is(err, invitationdomain.ErrInvalidStatus),
		errors.Is(err, invitationdomain.ErrInvalidEligibilityCourses),
		errors.Is(err, eligibilitydomain.ErrInvalidStudent),
		errors.Is(err, eligibilitydomain.ErrInvalidCollege),
		errors.Is(err, eligibilitydomain.ErrInvalidCourse),
		errors.Is(err, eligibilitydomain.ErrInvalidCGPA),
		errors.Is(err, interviewdomain.ErrInvalidJob),
		errors.Is(err, interviewdomain.ErrInvalidSlot),
		errors.Is(err, interviewdomain.ErrInvalidSlotSpec),
		errors.Is(err, interviewdomain.ErrInvalidSlotStatus),
		errors.Is(err, interviewdomain.ErrInvalidAssignment),
		errors.Is(err, interviewdomain.ErrInvalidFeedback):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invitationdomain.ErrInvalidStateTransition),
		errors.Is(err, invitationdomain.ErrNegotiationLimitExceeded),
		errors.Is(err, interviewdomain.ErrInvalidStateTransition),
		errors.Is(err, interviewdomain.ErrNoAcceptedInvitation),
		errors.Is(err, interviewdomain.ErrInsufficientCandidates),
		errors.Is(err, interviewdomain.ErrCapacityExhausted),
		errors.Is(err, interviewdomain.ErrSlotCancelled),
		errors.Is(err, interviewdomain.ErrSlotNotInProgress),
		errors.Is(err, interviewdomain.ErrNotConfirmed),
		errors.Is(err, interviewdomain.ErrJoinWindowClosed),
		errors.Is(err, interviewdomain.ErrFeedbackAlreadySubmitted):
		return true
	default:
		return false
	}
}

func conflictErrorMessage(err error) string {
	if err == nil {
		return "conflict"
	}
	return err.Error()
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invitationdomain.ErrNotFound),
		errors.Is(err, interviewdomain.ErrSlotNotFound),
		errors.Is(err, interviewdomain.ErrAssignmentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog buckets request errors for the access log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusTooManyRequests:
		return "throttled", payload.Type
	default:
		return "client", payload.Type
	}
}
