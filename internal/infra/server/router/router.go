// Package router sets up the HTTP routing for the application.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/integration/entrypoint/controller"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
)

// Router holds the Gin engine and controller dependencies.
type Router struct {
	engine                *gin.Engine
	healthController      *controller.HealthController
	transactionController *controller.TransactionController
	analyticsController   *controller.AnalyticsController
	writeRateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new router instance with all dependencies.
func NewRouter(
	healthController *controller.HealthController,
	transactionController *controller.TransactionController,
	analyticsController *controller.AnalyticsController,
	writeRateLimiter *middleware.RateLimiter,
) *Router {
	return &Router{
		healthController:      healthController,
		transactionController: transactionController,
		analyticsController:   analyticsController,
		writeRateLimiter:      writeRateLimiter,
	}
}

// Setup configures and returns the Gin engine with all routes.
func (r *Router) Setup(environment string) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if environment == "test" {
		gin.SetMode(gin.TestMode)
	}

	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	if environment != "test" {
		r.engine.Use(gin.Logger())
	}

	r.setupHealthRoutes()
	r.setupAPIRoutes()

	return r.engine
}

// setupHealthRoutes configures health check endpoints.
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.healthController.Check)
}

// setupAPIRoutes configures the main API routes.
func (r *Router) setupAPIRoutes() {
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RequireUserID())

	if r.transactionController != nil {
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", r.transactionController.List)
			transactions.GET("/stats", r.transactionController.Stats)
			transactions.GET("/type/:type", r.transactionController.ListByType)
			transactions.GET("/date-range", r.transactionController.ListByDateRange)
			transactions.POST("", r.limitWrites(r.transactionController.Create)...)
			transactions.PUT("/:id", r.limitWrites(r.transactionController.Update)...)
			transactions.DELETE("/:id", r.limitWrites(r.transactionController.Delete)...)
		}
	}

	if r.analyticsController != nil {
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/category-breakdown", r.analyticsController.CategoryBreakdown)
			analytics.GET("/trends", r.analyticsController.Trends)
			analytics.GET("/report", r.analyticsController.Report)
		}
	}
}

// limitWrites prefixes handler with the per-user write rate limiter, when configured.
func (r *Router) limitWrites(handler gin.HandlerFunc) []gin.HandlerFunc {
	if r.writeRateLimiter == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{r.writeRateLimiter.Middleware(), handler}
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
