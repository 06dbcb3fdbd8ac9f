package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pickpoint/internal/logging"
	"pickpoint/internal/metrics"
	"pickpoint/internal/services"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	API          *APIHandler
	Admin        *AdminHandler
	WhatsApp     *WhatsAppHandler
	Users        services.UserService
	Metrics      *metrics.Metrics
	Logger       *logging.Logger
	HealthChecks map[string]HealthCheck
}

func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(deps.Logger))
	router.Use(RequestID())
	router.Use(RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(Metrics(deps.Metrics))
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/health", health(deps.HealthChecks))

	router.POST("/api/whatsapp/webhook", deps.WhatsApp.HandleWebhook)

	api := router.Group("/api")
	{
		api.POST("/packages", deps.API.CreatePackage)
		api.GET("/packages", deps.API.ListPackages)
		api.POST("/packages/fees/preview", deps.API.PreviewBulkFee)
		api.POST("/packages/pickup", deps.API.BulkPickup)
		api.GET("/packages/:id", deps.API.GetPackage)
		api.GET("/packages/:id/fee", deps.API.PreviewFee)
		api.POST("/packages/:id/pickup", deps.API.Pickup)
		api.POST("/packages/:id/pay", deps.API.MarkPaid)
		api.POST("/packages/:id/destroy", deps.API.Destroy)
		api.POST("/packages/:id/payment-link", deps.API.CreatePaymentLink)

		api.GET("/pay/:token", deps.API.ResolvePaymentLink)
		api.POST("/pay/:token", deps.API.PayPaymentLink)

		api.GET("/locations", deps.API.ListLocations)
		api.GET("/locations/:id", deps.API.GetLocation)

		api.PUT("/customers/:phone", deps.API.UpsertCustomer)
		api.POST("/customers/:phone/membership", deps.API.PurchaseMembership)
	}

	admin := router.Group("/api/admin", AdminAuth(deps.Users))
	{
		admin.POST("/locations", deps.Admin.CreateLocation)
		admin.PUT("/locations/:id", deps.Admin.UpdateLocation)
		admin.DELETE("/packages/:id", deps.Admin.DeletePackage)
		admin.GET("/reports/revenue", deps.Admin.RevenueReport)
		admin.POST("/reminders/run", deps.Admin.RunReminders)
	}

	return router
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
