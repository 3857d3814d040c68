package main

import (
	"time"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/handlers"
	"github.com/automas/booking-engine/internal/middleware"
	"github.com/automas/booking-engine/pkg/jwt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type routeHandlers struct {
	health   *handlers.HealthHandler
	wizard   *handlers.WizardHandler
	catalog  *handlers.CatalogHandler
	payments *handlers.PaymentHandler
	outcomes *handlers.OutcomeHandler
	admin    *handlers.AdminHandler
}

func newRouter(cfg *config.Config, logger *logrus.Logger, jwtService *jwt.Service, h routeHandlers) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Server.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", h.health.Health)

	session := middleware.BrowserSession(cfg.Server.Environment == "production")

	// Gateway return pages at the paths the payment gateway redirects to
	public := router.Group("/", session)
	{
		public.GET("/pago-exitoso", h.outcomes.Success)
		public.GET("/pago-fallido", h.outcomes.Failure)
		public.GET("/pago-pendiente", h.outcomes.Pending)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.health.Health)

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/cities", h.catalog.ListCities)
			catalog.GET("/locations", h.catalog.ListLocations)
		}

		wizard := v1.Group("/wizard", session)
		{
			wizard.POST("", h.wizard.Start)
			wizard.GET("/:id", h.wizard.Get)
			wizard.DELETE("/:id", h.wizard.Close)
			wizard.POST("/:id/vehicle", h.wizard.SubmitVehicle)
			wizard.GET("/:id/services", h.wizard.ListServices)
			wizard.POST("/:id/service", h.wizard.SelectService)
			wizard.GET("/:id/locations", h.wizard.ListLocations)
			wizard.GET("/:id/locations/nearby", h.wizard.NearbyLocations)
			wizard.POST("/:id/location", h.wizard.SelectLocation)
			wizard.GET("/:id/slots", h.wizard.ListSlots)
			wizard.POST("/:id/slot", h.wizard.SelectSlot)
			wizard.POST("/:id/quote", h.wizard.Quote)
			wizard.POST("/:id/coupon", h.wizard.ApplyCoupon)
			wizard.POST("/:id/pay", h.wizard.Pay)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/coupons/validate", h.payments.ValidateCoupon)
			payments.GET("/:id/status", h.payments.Status)
		}

		outcomes := v1.Group("/outcomes", session)
		{
			outcomes.GET("/success", h.outcomes.Success)
			outcomes.GET("/success/receipt.pdf", h.outcomes.Receipt)
			outcomes.GET("/failure", h.outcomes.Failure)
			outcomes.GET("/pending", h.outcomes.Pending)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.OperatorAuth(jwtService, logger))
		{
			admin.GET("/payments/:id/events", h.admin.PaymentEvents)
			admin.GET("/catalog/unmapped", h.admin.UnmappedServiceIDs)
			admin.GET("/jobs", h.admin.Jobs)
			admin.POST("/handoffs/purge", middleware.RequireRole(jwt.RoleAdmin), h.admin.PurgeHandoffs)
		}
	}

	return router
}
