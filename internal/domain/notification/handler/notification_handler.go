package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain/notification/service"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/logger"
	"storefront/pkg/response"
	"storefront/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListQuery 列表查询参数
type ListQuery struct {
	utils.Pagination
	Unread bool `form:"unread"`
}

// List 我的通知
// @Summary 我的通知
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param unread query bool false "只看未读"
// @Success 200 {object} response.Response{data=service.InboxResult}
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.List(c.Request.Context(), c.GetString(middleware.ContextUserID), q.Unread, q.Pagination)
	if err != nil {
		logger.Log.Error("list notifications failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch notifications")
		return
	}
	response.Success(c, result)
}

// MarkRead 标记已读
// @Summary 标记通知已读
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	err := h.service.MarkRead(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrNotificationNotFound, "Notification not found")
			return
		}
		logger.Log.Error("mark notification read failed", zap.String("id", c.Param("id")), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to update notification")
		return
	}
	response.Success(c, nil)
}

// MarkAllRead 全部已读
// @Summary 全部标记已读
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		logger.Log.Error("mark all notifications read failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to update notifications")
		return
	}
	response.Success(c, gin.H{"updated": n})
}
