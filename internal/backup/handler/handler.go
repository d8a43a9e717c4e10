// Package handler exposes the bot users backup over HTTP.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/shopconsole/ecode"
	"github.com/ncobase/shopconsole/internal/backup/service"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/ncobase/shopconsole/net/resp"
)

// Handler serves the backup endpoints.
type Handler struct {
	ctrl           *service.Controller
	importer       *service.Importer
	dir            string
	maxImportBytes int64
}

// New creates a handler. maxImportBytes <= 0 leaves uploads unbounded.
func New(ctrl *service.Controller, importer *service.Importer, dir string, maxImportBytes int64) *Handler {
	return &Handler{
		ctrl:           ctrl,
		importer:       importer,
		dir:            dir,
		maxImportBytes: maxImportBytes,
	}
}

// Status returns the export snapshot.
func (h *Handler) Status(c *gin.Context) {
	snap := h.ctrl.Status(c.Request.Context())
	if snap.Degraded {
		resp.JSON(c.Writer, http.StatusInternalServerError, snap)
		return
	}
	resp.Success(c.Writer, snap)
}

// Action dispatches start, stop and clear. ?action=import takes the raw
// body as an import payload instead.
func (h *Handler) Action(c *gin.Context) {
	if c.Query("action") == string(structs.ActionImport) {
		h.Import(c)
		return
	}

	var req structs.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c.Writer, resp.BadRequest("Invalid action"))
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case structs.ActionStart:
		if err := h.ctrl.Start(ctx); err != nil {
			resp.Fail(c.Writer, toException(err))
			return
		}
		resp.Success(c.Writer, "Background Telegram users export started.")
	case structs.ActionStop:
		if err := h.ctrl.Stop(ctx); err != nil {
			resp.Fail(c.Writer, toException(err))
			return
		}
		resp.Success(c.Writer, "Stop command sent.")
	case structs.ActionClear:
		if err := h.ctrl.Clear(ctx); err != nil {
			resp.Fail(c.Writer, toException(err))
			return
		}
		resp.Success(c.Writer, "Export status cleared.")
	default:
		resp.Fail(c.Writer, resp.BadRequest("Invalid action"))
	}
}

// Import replaces the bot users collection with the uploaded JSON array.
func (h *Handler) Import(c *gin.Context) {
	body := c.Request.Body
	if h.maxImportBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxImportBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp.Fail(c.Writer, &resp.Exception{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    ecode.RequestErr,
				Message: fmt.Sprintf("import payload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		resp.Fail(c.Writer, resp.BadRequest("failed to read request body"))
		return
	}

	n, err := h.importer.ImportAll(c.Request.Context(), data)
	if err != nil {
		resp.Fail(c.Writer, toException(err))
		return
	}
	resp.Success(c.Writer, &structs.ImportResult{
		Message: "Telegram database imported successfully.",
		Count:   n,
	})
}

// Download serves an exported file from the backup directory.
func (h *Handler) Download(c *gin.Context) {
	path, err := service.ResolveDownload(h.dir, c.Query("file"))
	if err != nil {
		resp.Fail(c.Writer, toException(err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	c.Header("Content-Type", "application/json")
	http.ServeFile(c.Writer, c.Request, path)
}

// toException maps service errors onto API failures.
func toException(err error) *resp.Exception {
	switch {
	case errors.Is(err, structs.ErrConflict):
		return resp.WithCode(ecode.ExportRunning, "Export is already running.")
	case errors.Is(err, structs.ErrImportShapeInvalid):
		return resp.WithCode(ecode.ImportInvalid, err.Error())
	case errors.Is(err, structs.ErrImportBusy):
		return resp.Conflict(err.Error())
	case errors.Is(err, structs.ErrStoreUnavailable):
		return resp.WithCode(ecode.StoreUnreachable, err.Error())
	case errors.Is(err, structs.ErrFileNotSpecified):
		return resp.BadRequest("File not specified")
	case errors.Is(err, structs.ErrFileForbidden):
		return resp.Forbidden("Access denied")
	case errors.Is(err, structs.ErrFileNotFound):
		return resp.NotFound("File not found")
	default:
		return resp.InternalServer(err.Error())
	}
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	backup := r.Group("/backup/telegram")
	backup.GET("", h.Status)
	backup.POST("", h.Action)
	backup.POST("/import", h.Import)
	r.GET("/download", h.Download)
}
