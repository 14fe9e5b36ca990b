package profile

import (
	"storefront/internal/domain/profile/handler"
	"storefront/internal/domain/profile/repository"
	"storefront/internal/domain/profile/service"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// ProfileModule 用户资料模块
type ProfileModule struct{}

func init() {
	registry.Register(&ProfileModule{})
}

func (m *ProfileModule) Name() string {
	return "profile"
}

func (m *ProfileModule) Priority() int {
	return 1
}

func (m *ProfileModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewProfileRepository(ctx.DB)
	svc := service.NewProfileService(repo, ctx.Cache)
	h := handler.NewProfileHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ProfileHandler) {
	g := r.Group("/profiles")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("/me", h.Me)
	}
}

// NewRoleResolver 供其他模块构造管理员中间件
func NewRoleResolver(ctx *registry.ModuleContext) middleware.RoleResolver {
	return service.NewProfileService(repository.NewProfileRepository(ctx.DB), ctx.Cache)
}
