package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/engage-api/internal/api/shared"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/engage"
	"github.com/phrazzld/engage-api/internal/jobs"
	"github.com/phrazzld/engage-api/internal/orchestrator"
	"github.com/phrazzld/engage-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never leak to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, domain.ErrCommentReplied):
		return http.StatusConflict

	case errors.As(err, &validationErrs),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrEmptyTaskAgentID),
		errors.Is(err, domain.ErrEmptyTaskName),
		errors.Is(err, domain.ErrEmptyPostLeadID),
		errors.Is(err, domain.ErrNoGeneratedPost),
		errors.Is(err, domain.ErrPostNotGenerated),
		errors.Is(err, domain.ErrEmptyCommentPostID),
		errors.Is(err, domain.ErrEmptyCommentID),
		errors.Is(err, domain.ErrEmptyReply),
		errors.Is(err, engage.ErrEmptySubreddit),
		errors.Is(err, orchestrator.ErrNoAction),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// The work cannot be accepted right now.
	case errors.Is(err, jobs.ErrQueueFull),
		errors.Is(err, jobs.ErrQueueClosed),
		errors.Is(err, jobs.ErrRunnerStopped),
		errors.Is(err, engage.ErrPlatformUnavailable),
		errors.Is(err, engage.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, dispatch.ErrUnregisteredType):
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrPostNotFound):
		return "Post not found"
	case errors.Is(err, store.ErrCommentNotFound):
		return "Comment not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		return "Invalid task status"
	case errors.Is(err, domain.ErrEmptyTaskAgentID):
		return "Agent ID is required"
	case errors.Is(err, domain.ErrEmptyPostLeadID):
		return "Post has no lead"
	case errors.Is(err, domain.ErrNoGeneratedPost):
		return "Post has no generated content"
	case errors.Is(err, domain.ErrPostNotGenerated):
		return "Post content is not AI-generated"
	case errors.Is(err, engage.ErrEmptySubreddit):
		return "Subreddit name is required"
	case errors.Is(err, domain.ErrEmptyReply):
		return "Reply content is required"
	case errors.Is(err, domain.ErrCommentReplied):
		return "Comment has already been replied to"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request parameters"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Task has already finished"

	case errors.Is(err, jobs.ErrQueueFull):
		return "Too much work queued, try again later"
	case errors.Is(err, jobs.ErrQueueClosed),
		errors.Is(err, jobs.ErrRunnerStopped):
		return "Server is shutting down"
	case errors.Is(err, engage.ErrPlatformUnavailable):
		return "Platform client is not configured"
	case errors.Is(err, engage.ErrGeneratorUnavailable):
		return "Content generator is not configured"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a message naming the
// offending field without echoing its value.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// Example format: "Key: 'PublishRequest.AgentID' Error:Field validation for 'AgentID' failed on the 'required' tag"
	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 5 {
				return fmt.Sprintf("Invalid %s: %s", fieldParts[1], getValidationTagMessage(fieldParts[3]))
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gt", "gte":
		return "too small"
	case "max", "lt", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "dive":
		return "invalid entry"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. A non-empty message
// overrides the safe message derived from err.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
