package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/pkg/logger"
	"storefront/pkg/response"
	"storefront/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上下文键
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// ErrRoleNotFound 用户资料不存在
var ErrRoleNotFound = errors.New("role not found")

// RoleResolver 根据用户ID查询角色
type RoleResolver interface {
	GetRole(ctx context.Context, profileID string) (string, error)
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件，需放在 AuthMiddleware 之后
// 角色以 profiles 表为准，不信任令牌中的声明
func AdminMiddleware(roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "Unauthorized")
			c.Abort()
			return
		}

		role, err := roles.GetRole(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			} else {
				logger.Log.Error("resolve role failed", zap.String("user_id", userID), zap.Error(err))
				response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to resolve role")
			}
			c.Abort()
			return
		}

		if role != RoleAdmin {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			c.Abort()
			return
		}

		c.Set(ContextRole, role)
		c.Next()
	}
}
