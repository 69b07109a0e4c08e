package controller

import (
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LessonController 课时接口，课时总是挂在 课程/章节 路径下
type LessonController struct {
	StructureService *service.CourseStructureService
	CourseService    *service.CourseService
}

func NewLessonController(structureService *service.CourseStructureService, courseService *service.CourseService) *LessonController {
	return &LessonController{StructureService: structureService, CourseService: courseService}
}

type LessonRequest struct {
	Name         string          `json:"name"`
	Description  json.RawMessage `json:"description,omitempty"`
	VideoKey     string          `json:"videoKey,omitempty"`
	ThumbnailKey string          `json:"thumbnailKey,omitempty"`
}

type ReorderLessonsRequest struct {
	Lessons []service.PositionUpdate `json:"lessons"`
}

// CreateLesson POST /api/admin/courses/:courseId/chapters/:chapterId/lessons
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	var req LessonRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StructureService.CreateLesson(ctx.Request.Context(), util.GetActor(ctx), service.CreateLessonRequest{
		CourseID:     ctx.Param("courseId"),
		ChapterID:    ctx.Param("chapterId"),
		Name:         req.Name,
		Description:  req.Description,
		VideoKey:     req.VideoKey,
		ThumbnailKey: req.ThumbnailKey,
	})
	respondAction(ctx, result, err, http.StatusCreated)
}

// ReorderLessons PATCH /api/admin/courses/:courseId/chapters/:chapterId/lessons
func (c *LessonController) ReorderLessons(ctx *gin.Context) {
	var req ReorderLessonsRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StructureService.ReorderLessons(ctx.Request.Context(), util.GetActor(ctx),
		ctx.Param("chapterId"), ctx.Param("courseId"), req.Lessons)
	respondAction(ctx, result, err, http.StatusOK)
}

// DeleteLesson DELETE /api/admin/courses/:courseId/chapters/:chapterId/lessons/:lessonId
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	result, err := c.StructureService.DeleteLesson(ctx.Request.Context(), util.GetActor(ctx), service.DeleteLessonRequest{
		CourseID:  ctx.Param("courseId"),
		ChapterID: ctx.Param("chapterId"),
		LessonID:  ctx.Param("lessonId"),
	})
	respondAction(ctx, result, err, http.StatusOK)
}

// GetLesson GET /api/admin/courses/:courseId/chapters/:chapterId/lessons/:lessonId
func (c *LessonController) GetLesson(ctx *gin.Context) {
	lesson, err := c.CourseService.GetLesson(ctx.Request.Context(), util.GetActor(ctx),
		ctx.Param("courseId"), ctx.Param("chapterId"), ctx.Param("lessonId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// UpdateLesson PUT /api/admin/courses/:courseId/chapters/:chapterId/lessons/:lessonId
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	var req LessonRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.CourseService.UpdateLesson(ctx.Request.Context(), util.GetActor(ctx), service.UpdateLessonRequest{
		CourseID:     ctx.Param("courseId"),
		ChapterID:    ctx.Param("chapterId"),
		LessonID:     ctx.Param("lessonId"),
		Name:         req.Name,
		Description:  req.Description,
		VideoKey:     req.VideoKey,
		ThumbnailKey: req.ThumbnailKey,
	})
	respondAction(ctx, result, err, http.StatusOK)
}
