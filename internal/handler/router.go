package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/avramart/tutorhub-api/internal/middleware"
	"github.com/avramart/tutorhub-api/internal/models"
	"github.com/avramart/tutorhub-api/internal/service"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Courses  *service.EnrollmentService
	Booking  *service.BookingService
	Requests *service.TeachingRequestService
	Export   *service.ScheduleExportService
	Jobs     *service.ExportJobService
}

// Register wires all API routes onto the given group.
func Register(api *gin.RouterGroup, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users, svc.Export)
	courseHandler := NewCourseHandler(svc.Courses)
	meetingHandler := NewMeetingHandler(svc.Booking)
	requestHandler := NewTeachingRequestHandler(svc.Requests)
	exportHandler := NewExportJobHandler(svc.Jobs)

	// download tokens are self-authenticating
	api.GET("/exports/:token", exportHandler.Download)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(svc.Auth), authHandler.Logout)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.Auth), middleware.LoadUser(svc.Users))

	me := secured.Group("/users/me")
	me.GET("", userHandler.Me)
	me.PUT("", userHandler.UpdateProfile)
	me.PUT("/email", userHandler.ChangeEmail)
	me.PUT("/password", userHandler.ChangePassword)
	me.GET("/schedule/export", userHandler.ExportSchedule)
	me.POST("/schedule/exports", exportHandler.Create)
	me.GET("/schedule/exports/:id", exportHandler.Status)

	courses := secured.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/mine", courseHandler.ListMine)
	courses.POST("", courseHandler.Create)
	courses.DELETE("/:id", courseHandler.Delete)
	courses.POST("/:id/enroll", courseHandler.Enroll)
	courses.DELETE("/:id/enroll", courseHandler.Unenroll)
	courses.GET("/:id/meetings", meetingHandler.ListForCourse)

	meetings := secured.Group("/meetings")
	meetings.GET("/mine", meetingHandler.ListMine)
	meetings.POST("", meetingHandler.Create)
	meetings.DELETE("/:id", meetingHandler.Delete)
	meetings.POST("/:id/claim", meetingHandler.Claim)
	meetings.DELETE("/:id/claim", meetingHandler.Vacate)

	requests := secured.Group("/teaching-requests")
	requests.POST("", requestHandler.Apply)
	requests.GET("", middleware.RequireRoles(models.RoleAdmin), requestHandler.List)
	requests.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), requestHandler.Decide)
}
