// internal/routes/routes.go
package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"gcu-service/docs"
	"gcu-service/internal/config"
	"gcu-service/internal/database"
	"gcu-service/internal/events"
	"gcu-service/internal/handler"
	"gcu-service/internal/middleware"
	"gcu-service/internal/service"
	"gcu-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	gcuService       *service.GCUService
	operationService *service.OperationService
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db is nil when history is disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	gcuService *service.GCUService,
	operationService *service.OperationService,
	bus *events.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		gcuService:       gcuService,
		operationService: operationService,
		wsHandler:        handler.NewWebSocketHandler(gcuService, bus, config.Security.AllowedOrigins, logger),
	}
}

// StartStreaming forwards bus events to WebSocket clients until ctx is done
func (r *Router) StartStreaming(ctx context.Context) {
	go r.wsHandler.Run(ctx)
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Debug("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.gcuService, r.config, r.logger)
	gcuHandler := handler.NewGCUHandler(r.gcuService, r.logger)
	operationHandler := handler.NewOperationHandler(r.operationService, r.logger)

	healthHandler.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	gcuHandler.RegisterRoutes(apiV1)
	operationHandler.RegisterRoutes(apiV1)

	r.wsHandler.RegisterRoutes(router)

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	docs.SwaggerInfo.Version = r.config.App.Version

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
