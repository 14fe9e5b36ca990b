package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Duration string            `json:"duration"`
}

// Health 检查数据库与 Redis 连通性，任一失败返回 503
// @Summary 健康检查
// @Tags Common
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := HealthStatus{Status: "ok", Checks: map[string]string{}}

		if db != nil {
			status.Checks["database"] = "ok"
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				status.Status = "degraded"
				status.Checks["database"] = err.Error()
			}
		}

		if rdb != nil {
			status.Checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				status.Status = "degraded"
				status.Checks["redis"] = err.Error()
			}
		}

		status.Duration = time.Since(start).String()
		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
