package payment

import (
	orderRepo "storefront/internal/domain/order/repository"
	"storefront/internal/domain/payment/handler"
	"storefront/internal/domain/payment/service"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/domain/profile"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖订单模块与通知任务处理器
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	gateway := strategy.NewStripeGateway(ctx.Stripe, config.GlobalConfig.Stripe.WebhookSecret)
	orders := orderRepo.NewOrderRepository(ctx.DB)

	var dispatcher service.Dispatcher
	if ctx.Pool != nil {
		dispatcher = ctx.Pool
	}

	checkout := service.NewCheckoutService(gateway, orders, config.GlobalConfig.Stripe.DefaultCurrency, ctx.Metrics)
	webhook := service.NewWebhookService(gateway, orders, ctx.Cache, dispatcher, ctx.Metrics)
	refund := service.NewRefundService(gateway, orders, dispatcher, ctx.Metrics)

	h := handler.NewPaymentHandler(checkout, webhook, refund)

	// 2. 路由注册
	setupRoutes(ctx.Router, h, profile.NewRoleResolver(ctx))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler, roles middleware.RoleResolver) {
	// 浏览器直接调用
	r.POST("/stripe-checkout", h.CreateCheckoutSession)

	// 支付回调 (无需鉴权，但需验签)
	r.POST("/stripe-webhook", h.Webhook)

	r.POST("/stripe-refund", middleware.AuthMiddleware(), middleware.AdminMiddleware(roles), h.Refund)
}
