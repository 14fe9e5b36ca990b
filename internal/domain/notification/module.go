package notification

import (
	"storefront/internal/domain/notification/handler"
	"storefront/internal/domain/notification/repository"
	"storefront/internal/domain/notification/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/push"
	"storefront/internal/pkg/registry"
	"storefront/internal/pkg/worker"

	"github.com/gin-gonic/gin"
)

// NotificationModule 站内通知模块
type NotificationModule struct{}

func init() {
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	// 需要先于 payment 注册任务处理器
	return 5
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewNotificationRepository(ctx.DB)
	svc := service.NewNotificationService(repo, push.GlobalPushService)
	h := handler.NewNotificationHandler(svc)

	if ctx.Pool != nil {
		for _, kind := range []string{worker.TaskPaymentConfirmed, worker.TaskPaymentFailed, worker.TaskRefundCreated} {
			ctx.Pool.Handle(kind, svc.Deliver)
		}
	}

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	g := r.Group("/notifications")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.List)
		g.PATCH("/read-all", h.MarkAllRead)
		g.PATCH("/:id/read", h.MarkRead)
	}
}
