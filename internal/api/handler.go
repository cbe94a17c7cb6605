// Package api exposes the todo service over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nhle/todoapp/internal/logging"
	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/internal/todos"
)

const userIDCtxKey = "user_id"

// Sweeper finds reminders that are due for a user.
type Sweeper interface {
	CheckDue(ctx context.Context, userID int64) ([]model.NotificationPayload, error)
}

// Handler serves the /api routes.
type Handler struct {
	logger     zerolog.Logger
	todos      *todos.Service
	sweeper    Sweeper
	userHeader string
}

// New creates a Handler. userHeader names the request header carrying the
// authenticated user id.
func New(logger zerolog.Logger, service *todos.Service, sweeper Sweeper, userHeader string) *Handler {
	return &Handler{
		logger:     logger.With().Str("component", "api").Logger(),
		todos:      service,
		sweeper:    sweeper,
		userHeader: userHeader,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(logging.GinLogger(h.logger))
	router.Use(gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes mounts the API on router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.HandleHealth)

	api := router.Group("/api", h.HandleUserMiddleware)

	api.GET("/todos", h.HandleListTodos)
	api.POST("/todos", h.HandleCreateTodo)
	api.GET("/todos/:id", h.HandleGetTodo)
	api.PUT("/todos/:id", h.HandleUpdateTodo)
	api.DELETE("/todos/:id", h.HandleDeleteTodo)
	api.POST("/todos/:id/complete", h.HandleCompleteTodo)
	api.POST("/todos/:id/subtasks", h.HandleAddSubtask)

	api.PUT("/subtasks/:id", h.HandleUpdateSubtask)
	api.DELETE("/subtasks/:id", h.HandleDeleteSubtask)

	api.GET("/tags", h.HandleListTags)
	api.POST("/tags", h.HandleCreateTag)
	api.PUT("/tags/:id", h.HandleUpdateTag)
	api.DELETE("/tags/:id", h.HandleDeleteTag)

	api.GET("/templates", h.HandleListTemplates)
	api.POST("/templates", h.HandleCreateTemplate)
	api.DELETE("/templates/:id", h.HandleDeleteTemplate)
	api.POST("/templates/:id/use", h.HandleUseTemplate)

	api.GET("/notifications/check", h.HandleCheckNotifications)
	api.GET("/notifications", h.HandleListNotifications)
	api.POST("/notifications/:id/read", h.HandleMarkNotificationRead)

	api.GET("/calendar", h.HandleCalendar)
	api.GET("/holidays", h.HandleHolidays)

	api.GET("/export", h.HandleExport)
	api.POST("/import", h.HandleImport)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleUserMiddleware resolves the authenticated user from the configured
// header. Missing, malformed or unknown ids are rejected.
func (h *Handler) HandleUserMiddleware(c *gin.Context) {
	header := c.GetHeader(h.userHeader)
	if header == "" {
		h.logger.Warn().Msg("user header missing")
		abort(c, newUnauthorizedError("authentication required"))
		return
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Warn().Str("header", header).Msg("invalid user header")
		abort(c, newUnauthorizedError("authentication required"))
		return
	}

	user, err := h.todos.User(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Warn().Int64("user_id", id).Msg("unknown user")
			abort(c, newUnauthorizedError("authentication required"))
			return
		}
		h.fail(c, err)
		return
	}

	c.Set(userIDCtxKey, user.ID)
	c.Next()
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDCtxKey)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errInvalidRequestBody
	}
	return nil
}
