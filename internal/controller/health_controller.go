package controller

import (
	"context"
	"course_studio_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// HealthCheck 数据库不可用返回 503；redis 只影响缓存与失效通知，降级为 degraded
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	status := "ok"
	redisState := "up"
	if c.Redis == nil {
		redisState = "disabled"
	} else if err := c.Redis.Ping(pingCtx).Err(); err != nil {
		status = "degraded"
		redisState = "down"
	}

	util.Success(ctx, gin.H{
		"status": status,
		"components": gin.H{
			"database": "up",
			"redis":    redisState,
		},
	})
}
