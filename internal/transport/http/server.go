package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "userapi/internal/app"
	"userapi/internal/bootstrap"
	"userapi/internal/repository"
	"userapi/internal/transport/http/handler"
	"userapi/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(app.Logger), middleware.Metrics())

	healthHandler := handler.NewHealthHandler(app.DB, app.MQConn, handler.ServiceInfo{
		Name:          app.Config.App.Name,
		Env:           app.Config.App.Env,
		StartedAt:     app.StartedAt,
		EventsEnabled: app.Config.EventsEnabled(),
	})
	router.GET("/test", healthHandler.Test)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var events appsvc.EventPublisher
	if app.Events != nil {
		events = app.Events
	}
	userRepo := repository.NewUserRepository(app.DB)
	userService := appsvc.NewUserService(userRepo, events, app.Logger)
	userHandler := handler.NewUserHandler(userService, app.Logger)

	users := router.Group("/users")
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	return router
}
