package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "storefront/internal/domain/catalog"
	_ "storefront/internal/domain/common"
	_ "storefront/internal/domain/notification"
	_ "storefront/internal/domain/order"
	_ "storefront/internal/domain/payment"
	_ "storefront/internal/domain/profile"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/push"
	"storefront/internal/pkg/registry"
	"storefront/internal/pkg/uploader"
	"storefront/internal/pkg/worker"
	"storefront/pkg/cache"
	"storefront/pkg/database"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// @title Storefront API
// @version 1.0
// @description Storefront orders, checkout and payment webhooks.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 配置与日志
	config.LoadConfig()
	cfg := config.GlobalConfig
	if err := logger.InitLogger(cfg.App.Env, cfg.App.Debug); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// 2. 基础设施
	db, err := database.InitDatabase()
	if err != nil {
		logger.Log.Fatal("init database failed", zap.Error(err))
	}
	sqlxDB, err := database.NewSQLX(db)
	if err != nil {
		logger.Log.Fatal("init sqlx failed", zap.Error(err))
	}
	rdb, err := database.InitRedis()
	if err != nil {
		logger.Log.Fatal("init redis failed", zap.Error(err))
	}

	collector := metrics.GetGlobalCollector()

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Fatal("get sql.DB failed", zap.Error(err))
	}
	poolMonitor := database.NewPoolMonitor(sqlDB, 30*time.Second)
	if err := poolMonitor.RegisterMetrics(nil, cfg.Database.DBName); err != nil {
		logger.Log.Warn("register db stats collector failed", zap.Error(err))
	}
	poolMonitor.Start()

	// 可选能力，未配置时跳过
	if err := uploader.InitUploader(); err != nil {
		logger.Log.Warn("oss uploader disabled", zap.Error(err))
	}
	if err := push.InitPushService(); err != nil {
		logger.Log.Warn("push service disabled", zap.Error(err))
	}

	stripeAPI := client.New(cfg.Stripe.SecretKey, nil)

	pool := worker.NewPool(cfg.Server.Workers, cfg.Server.QueueSize, collector)

	// 3. 路由与中间件
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(
		middleware.RecoveryMiddleware(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(cfg.Storefront.AllowedOrigins),
		middleware.MetricsMiddleware(collector),
		middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)),
	)

	// 4. 模块初始化
	if err := registry.InitModules(&registry.ModuleContext{
		DB:      db,
		SQLX:    sqlxDB,
		Redis:   rdb,
		Cache:   cache.NewRedisCache(rdb, cfg.App.Env),
		Router:  r,
		Stripe:  stripeAPI,
		Pool:    pool,
		Metrics: collector,
	}); err != nil {
		logger.Log.Fatal("init modules failed", zap.Error(err))
	}
	pool.Start()

	// 5. 启动与优雅退出
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown failed", zap.Error(err))
	}

	// 先停 HTTP 再停任务池，已入队的回调通知有机会处理完
	pool.Stop()
	poolMonitor.Stop()
	if err := rdb.Close(); err != nil {
		logger.Log.Warn("close redis failed", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Log.Warn("close database failed", zap.Error(err))
	}
}
