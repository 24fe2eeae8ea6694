package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Terms       *TermHandler
	Schedule    *ScheduleHandler
	Enrollments *EnrollmentHandler
	Attendance  *AttendanceHandler
	Imports     *ImportHandler
	Exclusions  *ExclusionHandler
	Exports     *ExportHandler
	Students    *StudentHandler
	Requests    *RequestHandler
	Leaves      *LeaveHandler
	Reports     *ReportHandler
	Teachers    *TeacherHandler
}

// RegisterRoutes mounts the API on r. actor guards every route except signed downloads.
func RegisterRoutes(r gin.IRouter, prefix string, h Handlers, actor gin.HandlerFunc) {
	api := r.Group(prefix)
	api.GET("/exports/:token", h.Exports.Download)

	secured := api.Group("")
	secured.Use(actor)

	terms := secured.Group("/terms")
	terms.GET("", h.Terms.List)
	terms.POST("", h.Terms.Create)
	terms.GET("/active", h.Terms.GetActive)
	terms.GET("/:id", h.Terms.Get)
	terms.PATCH("/:id", h.Terms.Update)
	terms.GET("/:id/schedule/:teacher", h.Schedule.TeacherWeek)
	terms.POST("/:id/sessions", h.Enrollments.CreateSession)
	terms.POST("/:id/enrollments", h.Enrollments.Enroll)
	terms.DELETE("/:id/enrollments", h.Enrollments.Remove)
	terms.POST("/:id/change-time", h.Enrollments.ChangeTime)
	terms.PUT("/:id/attendance", h.Attendance.Mark)
	terms.DELETE("/:id/attendance", h.Attendance.Clear)
	terms.POST("/:id/import", h.Imports.Import)
	terms.GET("/:id/exclusions", h.Exclusions.List)
	terms.POST("/:id/exclusions", h.Exclusions.Create)
	terms.DELETE("/:id/exclusions/:exclusionId", h.Exclusions.Delete)
	terms.GET("/:id/exports/:teacher", h.Exports.Generate)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PATCH("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.POST("/:id/level", h.Students.ChangeLevel)
	students.POST("/:id/installments", h.Students.AddInstallment)
	students.POST("/:id/installments/:iid/pay", h.Students.PayInstallment)

	requests := secured.Group("/requests")
	requests.GET("", h.Requests.List)
	requests.GET("/:id", h.Requests.Get)
	requests.POST("/:id/review", h.Requests.Review)

	leaves := secured.Group("/leaves")
	leaves.GET("", h.Leaves.List)
	leaves.POST("", h.Leaves.Submit)
	leaves.POST("/:id/review", h.Leaves.Review)

	reports := secured.Group("/reports")
	reports.Use(middleware.WithResponseMeta())
	reports.GET("/enrollment", h.Reports.Enrollment)
	reports.GET("/financial", h.Reports.Financial)
	reports.GET("/revenue", h.Reports.Revenue)
	reports.GET("/workload", h.Reports.Workload)
	reports.GET("/demographics", h.Reports.Demographics)
	reports.GET("/attendance", h.Reports.Attendance)

	teachers := secured.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.PUT("", h.Teachers.Upsert)
	teachers.GET("/:id", h.Teachers.Get)
}
