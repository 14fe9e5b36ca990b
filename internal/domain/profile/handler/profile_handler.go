package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain/profile/service"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 用户资料处理器
type ProfileHandler struct {
	service service.ProfileService
}

func NewProfileHandler(service service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Me 获取当前用户资料
// @Summary 当前用户资料
// @Tags Profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response{data=model.Profile}
// @Failure 404 {object} response.Response
// @Router /profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrProfileNotFound, "Profile not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch profile")
		return
	}
	response.Success(c, profile)
}
