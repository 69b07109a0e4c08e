package controller

import (
	"course_studio_backend/internal/service"
	"course_studio_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadController 对象存储预签名上传与删除
type UploadController struct {
	StorageService *service.StorageService
}

func NewUploadController(storageService *service.StorageService) *UploadController {
	return &UploadController{StorageService: storageService}
}

// PresignUpload POST /api/admin/uploads
func (c *UploadController) PresignUpload(ctx *gin.Context) {
	var req service.PresignUploadRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StorageService.PresignUpload(ctx.Request.Context(), util.GetActor(ctx), req)
	respondAction(ctx, result, err, http.StatusOK)
}

// DeleteUpload DELETE /api/admin/uploads
func (c *UploadController) DeleteUpload(ctx *gin.Context) {
	var req service.DeleteUploadRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.StorageService.DeleteUpload(ctx.Request.Context(), util.GetActor(ctx), req)
	respondAction(ctx, result, err, http.StatusOK)
}
