package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain/order/model"
	"storefront/internal/domain/order/service"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/logger"
	"storefront/pkg/response"
	"storefront/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	service service.OrderService
	roles   middleware.RoleResolver
}

func NewOrderHandler(service service.OrderService, roles middleware.RoleResolver) *OrderHandler {
	return &OrderHandler{service: service, roles: roles}
}

// CreateOrderInput 下单请求
type CreateOrderInput struct {
	Email         string           `json:"email"`
	Name          string           `json:"name"`
	Platform      string           `json:"platform"`
	Items         []model.LineItem `json:"items" binding:"required,min=1"`
	DiscountCents int64            `json:"discount_cents"`
	TotalCost     *int64           `json:"total_cost"`
}

// CreateOrder 创建待支付订单
// @Summary 创建订单
// @Description 在创建支付会话之前写入 pending/unpaid 订单
// @Tags Order
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body CreateOrderInput true "订单草稿"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	email := input.Email
	if email == "" {
		email = c.GetString(middleware.ContextEmail)
	}

	order, err := h.service.PlaceOrder(c.Request.Context(), c.GetString(middleware.ContextUserID), service.OrderDraft{
		Email:         email,
		Name:          input.Name,
		Platform:      input.Platform,
		Items:         input.Items,
		DiscountCents: input.DiscountCents,
		TotalCost:     input.TotalCost,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			response.Error(c, http.StatusBadRequest, response.ErrOrderInvalid, err.Error())
			return
		}
		logger.Log.Error("place order failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to create order")
		return
	}
	response.Success(c, order)
}

// GetOrder 订单详情
// @Summary 订单详情
// @Tags Order
// @Security BearerAuth
// @Produce json
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	if !h.authorize(c, order.ProfileID) {
		return
	}
	response.Success(c, order)
}

// GetPaymentStatus 支付状态快照，支付完成页轮询使用
// @Summary 订单支付状态
// @Tags Order
// @Security BearerAuth
// @Produce json
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.PaymentSnapshot}
// @Failure 404 {object} response.Response
// @Router /orders/{id}/payment [get]
func (h *OrderHandler) GetPaymentStatus(c *gin.Context) {
	snapshot, err := h.service.GetPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	if !h.authorize(c, snapshot.ProfileID) {
		return
	}
	response.Success(c, snapshot)
}

// ListOrders 当前用户的订单
// @Summary 我的订单
// @Tags Order
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.ListOrders(c.Request.Context(), c.GetString(middleware.ContextUserID), page)
	if err != nil {
		logger.Log.Error("list orders failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch orders")
		return
	}
	response.Success(c, result)
}

// ListActions 订单操作日志（管理员）
// @Summary 订单操作日志
// @Tags Order
// @Security BearerAuth
// @Produce json
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=[]model.OrderAction}
// @Router /orders/{id}/actions [get]
func (h *OrderHandler) ListActions(c *gin.Context) {
	actions, err := h.service.ListActions(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Log.Error("list order actions failed", zap.String("order_id", c.Param("id")), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch order actions")
		return
	}
	response.Success(c, actions)
}

func (h *OrderHandler) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrOrderNotFound) {
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
		return
	}
	logger.Log.Error("get order failed", zap.String("order_id", c.Param("id")), zap.Error(err))
	response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to fetch order")
}

// authorize 订单所有者或管理员可见
func (h *OrderHandler) authorize(c *gin.Context, owner *string) bool {
	userID := c.GetString(middleware.ContextUserID)
	if owner != nil && *owner == userID {
		return true
	}

	role, err := h.roles.GetRole(c.Request.Context(), userID)
	if err == nil && role == middleware.RoleAdmin {
		return true
	}
	if err != nil && !errors.Is(err, middleware.ErrRoleNotFound) {
		logger.Log.Error("resolve role failed", zap.String("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Failed to resolve role")
		return false
	}
	response.Error(c, http.StatusForbidden, response.ErrOrderForbidden, "Order belongs to another customer")
	return false
}
