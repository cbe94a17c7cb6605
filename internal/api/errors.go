package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/todoapp/internal/recurrence"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/internal/todos"
)

const genericErrorMessage = "Something went wrong. Please try again."

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidID          = errors.New("invalid id")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// fail maps a service error onto a response. Unexpected errors are logged
// and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *todos.ValidationError
	switch {
	case errors.As(err, &verr):
		abort(c, newBadRequestError(verr.Error()))
	case errors.Is(err, errInvalidRequestBody), errors.Is(err, errInvalidID):
		abort(c, newBadRequestError(err.Error()))
	case errors.Is(err, store.ErrNotFound):
		abort(c, newNotFoundError("not found"))
	case errors.Is(err, store.ErrConflict):
		abort(c, newConflictError("already exists"))
	case errors.Is(err, todos.ErrAlreadyCompleted):
		abort(c, newConflictError("todo is already completed"))
	case errors.Is(err, todos.ErrNotRecurring):
		abort(c, newConflictError("todo is not recurring"))
	case errors.Is(err, recurrence.ErrMissingDueDate):
		abort(c, newConflictError("recurring todo has no due date"))
	default:
		_ = c.Error(err)
		h.logger.Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
		abort(c, newAPIError(http.StatusInternalServerError, genericErrorMessage))
	}
}
