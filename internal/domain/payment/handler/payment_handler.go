package handler

import (
	"errors"
	"net/http"

	"storefront/internal/domain/payment/service"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/pkg/middleware"
	"storefront/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody 回调请求体上限
const maxWebhookBody = 1 << 20

// ErrorResponse 支付接口错误格式 {error}
type ErrorResponse struct {
	Error string `json:"error"`
}

// RefundResponse 退款结果
type RefundResponse struct {
	Success bool                  `json:"success"`
	Refund  *service.RefundResult `json:"refund"`
}

// PaymentHandler 支付相关接口，保持与前端约定的响应格式，不使用统一响应包装
type PaymentHandler struct {
	checkout service.CheckoutService
	webhook  service.WebhookService
	refund   service.RefundService
}

func NewPaymentHandler(checkout service.CheckoutService, webhook service.WebhookService, refund service.RefundService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, webhook: webhook, refund: refund}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// CreateCheckoutSession 创建托管支付会话
// @Summary 创建支付会话
// @Tags Payment
// @Accept json
// @Produce json
// @Param input body service.CheckoutRequest true "支付请求"
// @Success 200 {object} service.CheckoutResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /stripe-checkout [post]
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.checkout.CreateSession(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			fail(c, http.StatusBadRequest, "Missing required fields")
		case errors.Is(err, service.ErrInvalidQuantity):
			fail(c, http.StatusBadRequest, "Item quantity must be positive")
		case errors.Is(err, service.ErrOrderNotFound):
			fail(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, service.ErrOrderNotPayable):
			fail(c, http.StatusConflict, "Order is no longer awaiting payment")
		default:
			logger.Log.Error("stripe checkout error", zap.String("order_id", req.OrderID), zap.Error(err))
			msg := strategy.ProviderMessage(err)
			if msg == "" {
				msg = "Checkout failed"
			}
			fail(c, http.StatusInternalServerError, msg)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook 支付服务商回调
// @Summary 支付回调
// @Tags Payment
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "签名"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /stripe-webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		fail(c, http.StatusBadRequest, "Missing stripe-signature header")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "Unable to read request body")
		return
	}

	outcome, err := h.webhook.Handle(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, strategy.ErrInvalidSignature) {
			logger.Log.Warn("webhook signature verification failed", zap.Error(err))
			fail(c, http.StatusBadRequest, "Webhook Error: invalid signature")
			return
		}
		// 返回 5xx 让服务商重试
		logger.Log.Error("webhook handler error", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Webhook handler failed")
		return
	}

	logger.Log.Debug("webhook handled", zap.String("outcome", outcome))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Refund 管理员退款
// @Summary 订单退款
// @Tags Payment
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body service.RefundRequest true "退款请求"
// @Success 200 {object} RefundResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /stripe-refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req service.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.refund.Refund(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingOrderID):
			fail(c, http.StatusBadRequest, "Missing order_id")
		case errors.Is(err, service.ErrOrderNotFound):
			fail(c, http.StatusNotFound, "Order not found")
		case errors.Is(err, service.ErrNotRefundable):
			fail(c, http.StatusBadRequest, "Only paid orders can be refunded")
		case errors.Is(err, service.ErrMissingPaymentIntent):
			fail(c, http.StatusBadRequest, "Missing Stripe Payment Intent for this order")
		default:
			logger.Log.Error("stripe refund error", zap.String("order_id", req.OrderID), zap.Error(err))
			msg := strategy.ProviderMessage(err)
			if msg == "" {
				msg = "Refund failed"
			}
			fail(c, http.StatusInternalServerError, msg)
		}
		return
	}

	c.JSON(http.StatusOK, RefundResponse{Success: true, Refund: result})
}
