package controller

import (
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CourseController 课程管理接口
type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

type ListCoursesRequest struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=draft published archived"`
}

// CreateCourse POST /api/admin/courses
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.CourseService.CreateCourse(ctx.Request.Context(), util.GetActor(ctx), req)
	respondAction(ctx, result, err, http.StatusCreated)
}

// ListCourses GET /api/admin/courses
func (c *CourseController) ListCourses(ctx *gin.Context) {
	var req ListCoursesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	courses, total, err := c.CourseService.ListCourses(ctx.Request.Context(), util.GetActor(ctx), req.Page, req.Limit, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  courses,
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
	})
}

// GetCourse GET /api/admin/courses/:courseId 编辑视图：课程及有序的章节、课时
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourseOutline(ctx.Request.Context(), util.GetActor(ctx), ctx.Param("courseId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// UpdateCourse PUT /api/admin/courses/:courseId
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.CourseService.UpdateCourse(ctx.Request.Context(), util.GetActor(ctx), ctx.Param("courseId"), req)
	respondAction(ctx, result, err, http.StatusOK)
}

// DeleteCourse DELETE /api/admin/courses/:courseId
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	result, err := c.CourseService.DeleteCourse(ctx.Request.Context(), util.GetActor(ctx), ctx.Param("courseId"))
	respondAction(ctx, result, err, http.StatusOK)
}
