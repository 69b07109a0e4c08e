package controller

import (
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChapterController 章节的创建、删除与排序
type ChapterController struct {
	StructureService *service.CourseStructureService
}

func NewChapterController(structureService *service.CourseStructureService) *ChapterController {
	return &ChapterController{StructureService: structureService}
}

type CreateChapterRequest struct {
	Name string `json:"name"`
}

// ReorderChaptersRequest 课程全部章节的新位置
type ReorderChaptersRequest struct {
	Chapters []service.PositionUpdate `json:"chapters"`
}

// CreateChapter POST /api/admin/courses/:courseId/chapters
func (c *ChapterController) CreateChapter(ctx *gin.Context) {
	var req CreateChapterRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StructureService.CreateChapter(ctx.Request.Context(), util.GetActor(ctx), service.CreateChapterRequest{
		CourseID: ctx.Param("courseId"),
		Name:     req.Name,
	})
	respondAction(ctx, result, err, http.StatusCreated)
}

// DeleteChapter DELETE /api/admin/courses/:courseId/chapters/:chapterId
func (c *ChapterController) DeleteChapter(ctx *gin.Context) {
	result, err := c.StructureService.DeleteChapter(ctx.Request.Context(), util.GetActor(ctx), service.DeleteChapterRequest{
		CourseID:  ctx.Param("courseId"),
		ChapterID: ctx.Param("chapterId"),
	})
	respondAction(ctx, result, err, http.StatusOK)
}

// ReorderChapters PATCH /api/admin/courses/:courseId/chapters
func (c *ChapterController) ReorderChapters(ctx *gin.Context) {
	var req ReorderChaptersRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StructureService.ReorderChapters(ctx.Request.Context(), util.GetActor(ctx), ctx.Param("courseId"), req.Chapters)
	respondAction(ctx, result, err, http.StatusOK)
}
