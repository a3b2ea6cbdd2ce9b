package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/propertybot-backend/internal/handlers"
	"github.com/Ananth-NQI/propertybot-backend/internal/middleware"
)

// Options carries the handlers and settings the routes need
type Options struct {
	WhatsApp *handlers.WhatsAppHandler
	Health   *handlers.HealthHandler
	Admin    *handlers.AdminHandler

	ValidateWebhooks bool
	TwilioAuthToken  string
	// AdminAPIKey guards /admin; without one the group is only served when
	// OpenAdmin is set.
	AdminAPIKey string
	OpenAdmin   bool
	PublicURL        string
	ImagesDir        string
	Version          string
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, opts Options) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Property Bot Backend!",
			"version": opts.Version,
			"endpoints": fiber.Map{
				"health":        "/health",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"admin":         "/admin",
				"images":        "/images",
			},
		})
	})

	app.Get("/health", opts.Health.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")
	if opts.ValidateWebhooks {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(opts.TwilioAuthToken, opts.PublicURL), opts.WhatsApp.HandleWebhook)
	} else {
		// Development: skip validation for ngrok
		log.Println("⚠️  WhatsApp webhook validation DISABLED")
		webhooks.Post("/whatsapp", opts.WhatsApp.HandleWebhook)
	}

	// ========== TEST ROUTES ==========
	app.Post("/test/whatsapp", opts.WhatsApp.HandleTestWebhook)

	// ========== ADMIN ROUTES ==========
	switch {
	case opts.AdminAPIKey != "":
		setupAdminRoutes(app.Group("/admin", middleware.RequireAdminKey(opts.AdminAPIKey)), opts.Admin)
	case opts.OpenAdmin:
		log.Println("⚠️  Admin routes served WITHOUT authentication")
		setupAdminRoutes(app.Group("/admin"), opts.Admin)
	default:
		log.Println("⚠️  ADMIN_API_KEY not set - admin routes disabled")
	}

	// ========== MEDIA ==========
	if opts.ImagesDir != "" {
		app.Static("/images", opts.ImagesDir, fiber.Static{
			MaxAge:        int(time.Hour.Seconds()),
			CacheDuration: 10 * time.Second,
		})
	}
}

func setupAdminRoutes(admin fiber.Router, h *handlers.AdminHandler) {
	admin.Get("/leads", h.GetLeads)
	admin.Get("/leads/:userID", h.GetLead)
	admin.Get("/sessions", h.GetSessionStats)
}
