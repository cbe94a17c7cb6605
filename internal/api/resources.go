package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/todoapp/internal/todos"
)

// HandleListTags serves GET /api/tags.
func (h *Handler) HandleListTags(c *gin.Context) {
	tags, err := h.todos.ListTags(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// HandleCreateTag serves POST /api/tags.
func (h *Handler) HandleCreateTag(c *gin.Context) {
	var req todos.TagInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tag, err := h.todos.CreateTag(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// HandleUpdateTag serves PUT /api/tags/:id.
func (h *Handler) HandleUpdateTag(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req todos.TagInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tag, err := h.todos.UpdateTag(c.Request.Context(), userID(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// HandleDeleteTag serves DELETE /api/tags/:id.
func (h *Handler) HandleDeleteTag(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.todos.DeleteTag(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListTemplates serves GET /api/templates.
func (h *Handler) HandleListTemplates(c *gin.Context) {
	templates, err := h.todos.ListTemplates(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// HandleCreateTemplate serves POST /api/templates.
func (h *Handler) HandleCreateTemplate(c *gin.Context) {
	var req todos.CreateTemplateInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tpl, err := h.todos.CreateTemplate(c.Request.Context(), userID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// HandleDeleteTemplate serves DELETE /api/templates/:id.
func (h *Handler) HandleDeleteTemplate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.todos.DeleteTemplate(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleUseTemplate serves POST /api/templates/:id/use.
func (h *Handler) HandleUseTemplate(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	todo, err := h.todos.UseTemplate(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, todo)
}

// HandleCheckNotifications serves GET /api/notifications/check. It runs the
// reminder sweep for the caller and returns the reminders claimed by it.
func (h *Handler) HandleCheckNotifications(c *gin.Context) {
	payloads, err := h.sweeper.CheckDue(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": payloads})
}

// HandleListNotifications serves GET /api/notifications?unread=true.
func (h *Handler) HandleListNotifications(c *gin.Context) {
	notifications, err := h.todos.Notifications(c.Request.Context(), userID(c), c.Query("unread") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// HandleMarkNotificationRead serves POST /api/notifications/:id/read.
func (h *Handler) HandleMarkNotificationRead(c *gin.Context) {
	if err := h.todos.MarkNotificationRead(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleCalendar serves GET /api/calendar?year=&month=, defaulting to the
// current month of the anchored zone.
func (h *Handler) HandleCalendar(c *gin.Context) {
	now := h.todos.Anchor().Now()
	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		abort(c, newBadRequestError("year must be a number"))
		return
	}
	month, err := queryInt(c, "month", int(now.Month()))
	if err != nil {
		abort(c, newBadRequestError("month must be a number"))
		return
	}

	cal, err := h.todos.Calendar(c.Request.Context(), userID(c), year, time.Month(month))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// HandleHolidays serves GET /api/holidays?year=.
func (h *Handler) HandleHolidays(c *gin.Context) {
	year, err := queryInt(c, "year", h.todos.Anchor().Now().Year())
	if err != nil {
		abort(c, newBadRequestError("year must be a number"))
		return
	}
	holidays, err := h.todos.Holidays(c.Request.Context(), year)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, holidays)
}

// HandleExport serves GET /api/export as a downloadable JSON document.
func (h *Handler) HandleExport(c *gin.Context) {
	doc, err := h.todos.Export(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	filename := "todos-" + doc.ExportedAt.Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, doc)
}

// HandleImport serves POST /api/import.
func (h *Handler) HandleImport(c *gin.Context) {
	var doc todos.ExportDocument
	if err := bindJSON(c, &doc); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.todos.Import(c.Request.Context(), userID(c), &doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
