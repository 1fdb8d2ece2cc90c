package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avramart/tutorhub-api/internal/middleware"
	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/service"
	appErrors "github.com/avramart/tutorhub-api/pkg/errors"
	"github.com/avramart/tutorhub-api/pkg/response"
)

// MeetingHandler exposes meeting slot lifecycle and booking endpoints.
type MeetingHandler struct {
	booking *service.BookingService
}

// NewMeetingHandler constructs MeetingHandler.
func NewMeetingHandler(booking *service.BookingService) *MeetingHandler {
	return &MeetingHandler{booking: booking}
}

// Create publishes a new bookable slot owned by the calling teacher.
func (h *MeetingHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	meeting, err := h.booking.CreateMeeting(c.Request.Context(), user, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, meeting)
}

// Delete removes a slot owned by the calling teacher.
func (h *MeetingHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.booking.RemoveMeeting(c.Request.Context(), c.Param("id"), user); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Claim books an open slot for the calling student.
func (h *MeetingHandler) Claim(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	meeting, err := h.booking.Claim(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting)
}

// Vacate gives up a previously claimed slot.
func (h *MeetingHandler) Vacate(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	meeting, err := h.booking.Vacate(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meeting)
}

// ListForCourse returns the open slots of a course the caller is enrolled in.
func (h *MeetingHandler) ListForCourse(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	meetings, err := h.booking.ListUnclaimedForCourse(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings)
}

// ListMine returns the caller's meetings, as teacher or as student.
func (h *MeetingHandler) ListMine(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var (
		meetings []models.Meeting
		err      error
	)
	if user.Role == models.RoleTeacher {
		meetings, err = h.booking.ListForTeacher(c.Request.Context(), user)
	} else {
		meetings, err = h.booking.ListForStudent(c.Request.Context(), user)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, meetings)
}
