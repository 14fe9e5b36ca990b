package catalog

import (
	"storefront/internal/domain/catalog/gateway"
	"storefront/internal/domain/catalog/handler"
	"storefront/internal/domain/catalog/service"
	"storefront/internal/domain/profile"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CatalogModule 商品目录模块
type CatalogModule struct{}

func init() {
	registry.Register(&CatalogModule{})
}

func (m *CatalogModule) Name() string {
	return "catalog"
}

func (m *CatalogModule) Priority() int {
	return 30
}

func (m *CatalogModule) Init(ctx *registry.ModuleContext) error {
	gw := gateway.NewStripeCatalogGateway(ctx.Stripe)
	svc := service.NewCatalogService(gw, ctx.Cache, config.GlobalConfig.Storefront.DefaultCategory, ctx.Metrics)
	h := handler.NewCatalogHandler(svc)

	setupRoutes(ctx.Router, h, profile.NewRoleResolver(ctx))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CatalogHandler, roles middleware.RoleResolver) {
	r.GET("/stripe-products", h.ListProducts)
	r.POST("/stripe-products-admin", middleware.AuthMiddleware(), middleware.AdminMiddleware(roles), h.Admin)
}
