package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avramart/tutorhub-api/internal/middleware"
	"github.com/avramart/tutorhub-api/internal/service"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/response"
)

// ExportJobHandler exposes asynchronous schedule export endpoints.
type ExportJobHandler struct {
	jobs *service.ExportJobService
}

// NewExportJobHandler constructs ExportJobHandler.
func NewExportJobHandler(jobs *service.ExportJobService) *ExportJobHandler {
	return &ExportJobHandler{jobs: jobs}
}

type createExportRequest struct {
	Format string `json:"format" binding:"required"`
}

// Create queues a new export job for the caller.
func (h *ExportJobHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), user, service.ExportFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// Status returns the caller's export job metadata.
func (h *ExportJobHandler) Status(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.jobs.GetStatus(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// Download streams a finished export. The signed token is the only
// credential, so the route stays outside the authenticated group.
func (h *ExportJobHandler) Download(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Content-Type", download.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}
