package handlers

import (
	"fmt"

	"github.com/SscSPs/fund_ledger/cmd/docs"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/SscSPs/fund_ledger/internal/middleware"
	"github.com/SscSPs/fund_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) error {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	if err := setupAPIV1Routes(r, cfg, services); err != nil {
		return err
	}

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
) error {
	// Service token first, JWT for everything the token did not authenticate
	v1 := r.Group("/api/v1",
		middleware.ServiceTokenAuth(cfg.ServiceTokenHash),
		middleware.AuthMiddleware(cfg.JWTSecret),
	)
	v1.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	registerLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	// Donation intake is rate limited; reads and the spending workflow are not
	intake := v1.Group("", middleware.RateLimit(registerLimiter))

	RegisterLedgerRoutes(v1, service.Ledger)
	RegisterGroupRoutes(v1, service.Spending)
	RegisterPaymentRoutes(intake, service.Allocation)
	RegisterSubscriptionRoutes(intake, service.MonthlyAllocation)
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
