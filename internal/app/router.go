package app

import (
	"ai_exam_backend/internal/config"
	"ai_exam_backend/internal/middleware"
	"ai_exam_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由（答题场景通过访问码使用，无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		paper := public.Group("/paper")
		{
			paper.POST("/generate", c.paper.GeneratePaper)
			paper.POST("/analyze", c.paper.AnalyzePaper)

			paper.POST("/shared/generate", c.paper.GenerateShared)
			paper.GET("/shared/:paperId", c.paper.GetPaper)
			paper.GET("/access/:accessCode", c.paper.GetPaperByAccessCode)
			paper.POST("/shared/:paperId/submit", c.paper.SubmitAnswers)
			paper.GET("/shared/:paperId/result/:userId", c.paper.GetUserResult)
		}
	}

	// 2. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(middleware.RoleAdmin))
	{
		admin.PUT("/paper/:paperId/status", c.paper.UpdateStatus)
		admin.DELETE("/paper/:paperId", c.paper.DeletePaper)
	}
}
