package app

import (
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/middleware"
	"course_studio_backend/internal/model"
	"course_studio_backend/pkg/monitoring"
	"course_studio_backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 管理员接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		a.registerCourseRoutes(admin, c)
		a.registerUploadRoutes(admin, c)
	}
}

func (a *App) registerCourseRoutes(admin *gin.RouterGroup, c *controllers) {
	write := a.limiters.admin.Middleware(security.ByUser)

	courses := admin.Group("/courses")
	{
		courses.GET("", c.course.ListCourses)
		courses.POST("", write, c.course.CreateCourse)
		courses.GET("/:courseId", c.course.GetCourse)
		courses.PUT("/:courseId", write, c.course.UpdateCourse)
		courses.DELETE("/:courseId", write, c.course.DeleteCourse)

		// 章节
		courses.POST("/:courseId/chapters", write, c.chapter.CreateChapter)
		courses.PATCH("/:courseId/chapters", write, c.chapter.ReorderChapters)
		courses.DELETE("/:courseId/chapters/:chapterId", write, c.chapter.DeleteChapter)

		// 课时
		courses.POST("/:courseId/chapters/:chapterId/lessons", write, c.lesson.CreateLesson)
		courses.PATCH("/:courseId/chapters/:chapterId/lessons", write, c.lesson.ReorderLessons)
		courses.GET("/:courseId/chapters/:chapterId/lessons/:lessonId", c.lesson.GetLesson)
		courses.PUT("/:courseId/chapters/:chapterId/lessons/:lessonId", write, c.lesson.UpdateLesson)
		courses.DELETE("/:courseId/chapters/:chapterId/lessons/:lessonId", write, c.lesson.DeleteLesson)
	}
}

func (a *App) registerUploadRoutes(admin *gin.RouterGroup, c *controllers) {
	uploads := admin.Group("/uploads")
	uploads.Use(a.limiters.upload.Middleware(security.ByUser))
	{
		uploads.POST("", c.upload.PresignUpload)
		uploads.DELETE("", c.upload.DeleteUpload)
	}
}
