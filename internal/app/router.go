package app

import (
	"quantum_quest_backend/docs"
	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/middleware"
	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// Public routes
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/exchange", c.user.Exchange)
	}

	// Authenticated routes
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/users/me", c.user.GetMe)
		api.GET("/leaderboard", c.user.Leaderboard)

		api.GET("/games", c.game.ListGames)
		api.GET("/games/:slug", c.game.GetGame)
		api.GET("/games/:slug/levels", c.game.ListLevels)
		api.GET("/games/:slug/progress", c.progress.GetGameProgress)

		api.GET("/levels/:id/challenge", c.game.GetChallengeParams)
		api.GET("/levels/:id/progress", c.progress.GetLevelProgress)
		api.POST("/levels/:id/complete", c.progress.SubmitLevel)

		proctoring := api.Group("/proctoring/sessions")
		{
			proctoring.POST("", c.proctoring.CreateSession)
			proctoring.GET("", c.proctoring.ListSessions)
			proctoring.GET("/:token", c.proctoring.GetSession)
			proctoring.POST("/:token/verify", c.proctoring.VerifySession)
			proctoring.POST("/:token/start", c.proctoring.StartSession)
			proctoring.POST("/:token/complete", c.proctoring.CompleteSession)
			proctoring.GET("/:token/monitor", c.proctoring.MonitorSession)

			// Manual flags come from proctors reviewing a session, not from
			// students.
			proctoring.POST("/:token/flags",
				middleware.RoleMiddleware(model.Proctor, model.Teacher),
				c.proctoring.FlagSession)

			if a.services.evidence != nil {
				proctoring.POST("/:token/evidence", c.proctoring.UploadEvidence)
			}
		}
	}
}
