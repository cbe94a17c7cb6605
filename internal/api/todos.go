package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nhle/todoapp/internal/model"
	"github.com/nhle/todoapp/internal/store"
	"github.com/nhle/todoapp/internal/todos"
)

// HandleListTodos serves GET /api/todos. Query parameters: status,
// priority, tags (comma-separated ids), q, due, sort, order, limit, offset.
func (h *Handler) HandleListTodos(c *gin.Context) {
	filter := store.TodoFilter{
		Status:   c.Query("status"),
		Query:    c.Query("q"),
		Due:      c.Query("due"),
		SortBy:   c.Query("sort"),
		SortDesc: strings.EqualFold(c.Query("order"), "desc"),
	}

	if p := c.Query("priority"); p != "" {
		priority, err := model.ParsePriority(p)
		if err != nil {
			abort(c, newBadRequestError("priority must be one of high, medium, low"))
			return
		}
		filter.Priority = &priority
	}
	if tags := c.Query("tags"); tags != "" {
		for _, raw := range strings.Split(tags, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				abort(c, newBadRequestError("tags must be a comma-separated list of ids"))
				return
			}
			filter.TagIDs = append(filter.TagIDs, id)
		}
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit", 0); err != nil {
		abort(c, newBadRequestError("limit must be a number"))
		return
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil {
		abort(c, newBadRequestError("offset must be a number"))
		return
	}

	result, err := h.todos.List(c.Request.Context(), userID(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleCreateTodo serves POST /api/todos.
func (h *Handler) HandleCreateTodo(c *gin.Context) {
	var req todos.CreateTodoInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	todo, err := h.todos.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// HandleGetTodo serves GET /api/todos/:id.
func (h *Handler) HandleGetTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	todo, err := h.todos.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// HandleUpdateTodo serves PUT /api/todos/:id. Only keys present in the body
// are changed.
func (h *Handler) HandleUpdateTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req todos.UpdateTodoInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.todos.Update(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleDeleteTodo serves DELETE /api/todos/:id.
func (h *Handler) HandleDeleteTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.todos.Delete(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleCompleteTodo serves POST /api/todos/:id/complete.
func (h *Handler) HandleCompleteTodo(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	completion, err := h.todos.Complete(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

// HandleAddSubtask serves POST /api/todos/:id/subtasks.
func (h *Handler) HandleAddSubtask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req todos.AddSubtaskInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	sub, err := h.todos.AddSubtask(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// HandleUpdateSubtask serves PUT /api/subtasks/:id.
func (h *Handler) HandleUpdateSubtask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req todos.UpdateSubtaskInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	sub, err := h.todos.UpdateSubtask(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// HandleDeleteSubtask serves DELETE /api/subtasks/:id.
func (h *Handler) HandleDeleteSubtask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.todos.DeleteSubtask(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
