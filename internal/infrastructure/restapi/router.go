package restapi

import (
	"strings"

	"collateral_monitor/internal/infrastructure/configloader"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// SetupRouter configures and returns the Gin engine.
func SetupRouter(customerHandler *CustomerHandler, cfg *configloader.Config, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	api := router.Group(cfg.Server.BasePath)
	{
		api.GET("/customers", customerHandler.ListCustomersHandler)
		api.POST("/customers", customerHandler.CreateCustomerHandler)
		api.GET("/customers/:id", customerHandler.GetCustomerHandler)
		api.PATCH("/customers/:id", customerHandler.UpdateCustomerHandler)
		api.DELETE("/customers/:id", customerHandler.DeleteCustomerHandler)
		api.POST("/customers/:id/refresh", customerHandler.RefreshCustomerHandler)
	}

	router.GET("/healthz", customerHandler.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Swagger.Enabled {
		swaggerPath := strings.TrimRight(cfg.Swagger.Path, "/")
		router.StaticFile("/docs/swagger.yaml", cfg.Swagger.SpecFile)
		swaggerURL := ginSwagger.URL("/docs/swagger.yaml")
		router.GET(swaggerPath+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))
		zapLogger.Info("Swagger UI enabled", zap.String("path", swaggerPath+"/index.html"))
	}

	return router
}
