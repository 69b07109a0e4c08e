package controller

import (
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondAction 把服务层结果映射为 HTTP 响应；successCode 为成功时的状态码
func respondAction(ctx *gin.Context, result service.ActionResult, err error, successCode int) {
	if err != nil {
		respondError(ctx, err)
		return
	}

	code := successCode
	switch result.Kind {
	case service.KindInvalid:
		code = http.StatusBadRequest
	case service.KindNotFound:
		code = http.StatusNotFound
	case service.KindUnexpected:
		code = http.StatusInternalServerError
	}
	util.JSON(ctx, code, result.Message, result)
}

// respondError 只处理鉴权和查询类接口返回的 error
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnauthorized):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrForbidden):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrCourseNotFound):
		util.Error(ctx, http.StatusNotFound, "Course not found")
	case errors.Is(err, util.ErrChapterNotFound):
		util.Error(ctx, http.StatusNotFound, "Chapter not found")
	case errors.Is(err, util.ErrLessonNotFound):
		util.Error(ctx, http.StatusNotFound, "Lesson not found in the chapter")
	default:
		util.LogInternalError(ctx, err)
	}
}

// bindJSON 请求体无法解析时按校验失败返回
func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		util.JSON(ctx, http.StatusBadRequest, "Invalid data", service.ActionResult{
			Status:  service.StatusError,
			Message: "Invalid data",
			Fields:  []service.FieldError{{Field: "body", Error: err.Error()}},
		})
		return false
	}
	return true
}
