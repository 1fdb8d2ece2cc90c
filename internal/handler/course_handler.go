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

// CourseHandler exposes course catalog and enrollment endpoints.
type CourseHandler struct {
	enrollments *service.EnrollmentService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(enrollments *service.EnrollmentService) *CourseHandler {
	return &CourseHandler{enrollments: enrollments}
}

// List returns the full course catalog.
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.enrollments.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// ListMine returns the courses attached to the caller, as teacher or student.
func (h *CourseHandler) ListMine(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var (
		courses interface{}
		err     error
	)
	if user.Role == models.RoleTeacher {
		courses, err = h.enrollments.ListForTeacher(c.Request.Context(), user)
	} else {
		courses, err = h.enrollments.ListForStudent(c.Request.Context(), user)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Create opens a new course owned by the calling teacher.
func (h *CourseHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.enrollments.CreateCourse(c.Request.Context(), user, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Delete removes a course owned by the calling teacher, with its meetings
// and memberships.
func (h *CourseHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.enrollments.RemoveCourse(c.Request.Context(), c.Param("id"), user); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enroll adds the calling student to a course.
func (h *CourseHandler) Enroll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	course, err := h.enrollments.Enroll(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// Unenroll removes the calling student from a course, vacating future slots
// and dropping past unclaimed remnants.
func (h *CourseHandler) Unenroll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	course, err := h.enrollments.Unenroll(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}
