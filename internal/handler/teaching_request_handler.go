package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avramart/tutorhub-api/internal/middleware"
	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/service"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/response"
)

// TeachingRequestHandler exposes the role transition workflow.
type TeachingRequestHandler struct {
	requests *service.TeachingRequestService
}

// NewTeachingRequestHandler constructs TeachingRequestHandler.
func NewTeachingRequestHandler(requests *service.TeachingRequestService) *TeachingRequestHandler {
	return &TeachingRequestHandler{requests: requests}
}

// Apply submits a teaching request for the calling student.
func (h *TeachingRequestHandler) Apply(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.requests.Apply(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List returns all teaching requests with applicant identity. Admin only.
func (h *TeachingRequestHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, err := h.requests.List(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests)
}

type decideRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// Decide approves or rejects a pending teaching request. Admin only.
func (h *TeachingRequestHandler) Decide(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decision := models.TeachingRequestStatus(strings.ToUpper(req.Decision))
	request, err := h.requests.Decide(c.Request.Context(), c.Param("id"), user, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}
