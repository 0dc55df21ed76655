package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"cabdispatch/internal/auth"
	"cabdispatch/internal/handler"
	"cabdispatch/internal/logging"
	"cabdispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	VehicleHandler *handler.VehicleHandler
	UserHandler    *handler.UserHandler
	Resolver       *auth.Resolver
	RedisClient    *redis.Client // nil disables idempotent replay
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idempotent := middleware.IdempotencyMiddleware(deps.RedisClient)
	annotate := middleware.NewRelicAttributes()

	v1 := router.Group("/v1")

	// Registration is open; a valid admin token allows granting ADMIN.
	v1.POST("/users", auth.OptionalMiddleware(deps.Resolver), annotate, idempotent, deps.UserHandler.Register)

	authed := v1.Group("", auth.Middleware(deps.Resolver), annotate, idempotent)
	{
		authed.GET("/users/:id", deps.UserHandler.Get)

		vehicles := authed.Group("/vehicles")
		{
			vehicles.POST("", deps.VehicleHandler.Register)
			vehicles.GET("", deps.VehicleHandler.ListAvailable)
			vehicles.GET("/nearby", deps.VehicleHandler.Nearby)
			vehicles.GET("/:id", deps.VehicleHandler.Get)
			vehicles.POST("/:id/status", deps.VehicleHandler.SetStatus)
			vehicles.POST("/:id/location", deps.VehicleHandler.UpdateLocation)
		}

		bookings := authed.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Create)
			bookings.GET("", deps.BookingHandler.List)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.POST("/:id/assign", deps.BookingHandler.AssignDriver)
			bookings.POST("/:id/status", deps.BookingHandler.ChangeStatus)
			bookings.POST("/:id/start", deps.BookingHandler.Start)
			bookings.POST("/:id/complete", deps.BookingHandler.Complete)
			bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
			bookings.POST("/:id/payment", deps.BookingHandler.RecordPayment)
		}
	}

	return router
}
