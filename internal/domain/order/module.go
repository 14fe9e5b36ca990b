package order

import (
	"storefront/internal/domain/order/handler"
	"storefront/internal/domain/order/repository"
	"storefront/internal/domain/order/service"
	"storefront/internal/domain/profile"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewOrderRepository(ctx.DB)
	actions := repository.NewActionRepository(ctx.SQLX)
	svc := service.NewOrderService(repo, actions)

	roles := profile.NewRoleResolver(ctx)
	h := handler.NewOrderHandler(svc, roles)

	setupRoutes(ctx.Router, h, roles)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler, roles middleware.RoleResolver) {
	g := r.Group("/orders")
	g.Use(middleware.AuthMiddleware())
	{
		g.POST("", h.CreateOrder)
		g.GET("", h.ListOrders)
		g.GET("/:id", h.GetOrder)
		g.GET("/:id/payment", h.GetPaymentStatus)
		g.GET("/:id/actions", middleware.AdminMiddleware(roles), h.ListActions)
	}
}
