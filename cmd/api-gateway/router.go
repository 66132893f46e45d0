// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/idle-market-backend/internal/common/config"
	"github.com/dumeirei/idle-market-backend/internal/common/jwt"
	"github.com/dumeirei/idle-market-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/idle-market-backend/internal/common/middleware"
	adminHandler "github.com/dumeirei/idle-market-backend/internal/handler/admin"
	discountHandler "github.com/dumeirei/idle-market-backend/internal/handler/discount"
	"github.com/dumeirei/idle-market-backend/internal/middleware"
	"github.com/dumeirei/idle-market-backend/internal/repository"
	adminService "github.com/dumeirei/idle-market-backend/internal/service/admin"
	discountService "github.com/dumeirei/idle-market-backend/internal/service/discount"
)

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// 初始化仓储
	discountRepo := repository.NewDiscountRepository(db)
	assignmentRepo := repository.NewDiscountAssignmentRepository(db)
	operationLogRepo := repository.NewOperationLogRepository(db)

	// 初始化服务
	discountSvc := discountService.NewDiscountService(db, discountRepo, assignmentRepo, cfg)
	discountAdminSvc := adminService.NewDiscountAdminService(db, discountRepo, assignmentRepo, operationLogRepo, cfg)

	// 初始化处理器
	discountH := discountHandler.NewDiscountHandler(discountSvc)
	discountAdminH := adminHandler.NewDiscountAdminHandler(discountAdminSvc)

	// 操作日志记录器
	operationLogger := commonMiddleware.NewOperationLogger(operationLogRepo)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.CORS(nil))
	r.Use(middleware.AccessLog(logger))
	r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		SkipPaths:   []string{"/health", "/ping", "/ready", "/metrics"},
	}))
	r.Use(metrics.GetMetrics().Middleware())

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Prometheus 指标
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metrics.Handler())
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口：折扣码详情、分享与校验不强制登录
		public := v1.Group("/discounts")
		public.Use(middleware.OptionalAuth(jwtManager))
		{
			public.GET("/:id", discountH.GetDetail)
			public.GET("/:id/share", discountH.GetShareInfo)
			public.POST("/validate", discountH.Validate)
		}

		// 用户端接口（需要用户认证）
		user := v1.Group("/discounts")
		user.Use(middleware.UserAuth(jwtManager))
		{
			user.GET("", discountH.ListAvailable)
			user.POST("/redeem",
				middleware.RedeemRateLimit(redisClient, 10, time.Minute),
				discountH.Redeem)
			user.POST("/release", discountH.Release)
		}
	}

	// 管理后台 API
	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth(jwtManager))
	admin.Use(operationLogger.Log())
	{
		admin.POST("/discounts", discountAdminH.IssueDiscount)
		admin.GET("/discounts", discountAdminH.GetDiscountList)
		admin.GET("/discounts/code/:code", discountAdminH.GetDiscountByCode)
		admin.GET("/discounts/:id", discountAdminH.GetDiscountDetail)
		admin.PUT("/discounts/:id", discountAdminH.UpdateDiscount)
		admin.DELETE("/discounts/:id", discountAdminH.DeleteDiscount)
		admin.PUT("/discounts/:id/status", discountAdminH.UpdateStatus)
		admin.PUT("/discounts/:id/visibility", discountAdminH.UpdateVisibility)

		admin.POST("/discounts/:id/assignments", discountAdminH.AssignUsers)
		admin.GET("/discounts/:id/assignments", discountAdminH.GetAssignmentList)
		admin.PUT("/discounts/:id/assignments/:user_id", discountAdminH.UpdateAssignment)
		admin.DELETE("/discounts/:id/assignments/:user_id", discountAdminH.RevokeAssignment)

		admin.GET("/operation-logs", discountAdminH.GetOperationLogList)
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})
}
