package eventlog

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/ncobase/shopconsole/net/resp"
)

const defaultRecent = 100

// Handler serves the recent events.
type Handler struct {
	store *Store
}

// NewHandler creates an event log handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Recent returns the latest entries, ?limit=n bounded by the store limit.
func (h *Handler) Recent(c *gin.Context) {
	n := int64(defaultRecent)
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			resp.Fail(c.Writer, resp.BadRequest("limit must be a positive integer"))
			return
		}
		n = parsed
	}

	entries, err := h.store.Recent(c.Request.Context(), n)
	if err != nil {
		logger.Warn(c.Request.Context(), "Failed to read project logs", "error", err)
		resp.Fail(c.Writer, resp.ServiceUnavailable("failed to read logs"))
		return
	}
	resp.Success(c.Writer, entries)
}

// RegisterRoutes registers HTTP routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/logs", h.Recent)
}
