package common

import (
	_ "storefront/docs"
	"storefront/internal/domain/profile"
	commonHandler "storefront/internal/pkg/common"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	// 注册通用路由
	setupRoutes(ctx, profile.NewRoleResolver(ctx))
	return nil
}

func setupRoutes(ctx *registry.ModuleContext, roles middleware.RoleResolver) {
	r := ctx.Router

	// 商品图片上传，仅管理员
	r.POST("/upload", middleware.AuthMiddleware(), middleware.AdminMiddleware(roles), commonHandler.UploadFile)

	r.GET("/health", commonHandler.Health(ctx.DB, ctx.Redis))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
