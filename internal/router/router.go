package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusvillage/backend/internal/handler"
	"focusvillage/backend/internal/middleware"
	"focusvillage/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	taskHandler *handler.TaskHandler,
	progressionHandler *handler.ProgressionHandler,
	coachHandler *handler.CoachHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Everything below resolves an identity: authenticated user or
	// device-scoped guest.
	scoped := api.Group("")
	scoped.Use(middleware.Identity(authService))

	timer := scoped.Group("/timer")
	timer.GET("/state", timerHandler.GetState)
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/reset", timerHandler.Reset)
	timer.POST("/mode", timerHandler.SwitchMode)
	timer.PUT("/duration", timerHandler.SetCustomDuration)

	tasks := scoped.Group("/tasks")
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete)
	tasks.POST("/:id/focus", taskHandler.Focus)

	progression := scoped.Group("/progression")
	progression.GET("", progressionHandler.GetProfile)
	progression.GET("/history", progressionHandler.GetHistory)
	progression.POST("/harvest", progressionHandler.Harvest)

	scoped.POST("/coach/chat", coachHandler.Chat)

	return engine
}
