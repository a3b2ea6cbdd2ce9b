package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/propertybot-backend/internal/services"
)

// SessionStatter reports session counts
type SessionStatter interface {
	Stats() services.SessionStats
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version          string
	Storage          string
	Responder        string
	TwilioConfigured bool

	sessions SessionStatter
	ping     func() error
}

// NewHealthHandler creates a new health handler. ping may be nil when no database is used.
func NewHealthHandler(version string, sessions SessionStatter, ping func() error) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		sessions: sessions,
		ping:     ping,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	database := fiber.Map{"type": h.Storage}
	if h.ping != nil {
		if err := h.ping(); err != nil {
			status = "unhealthy"
			code = fiber.StatusServiceUnavailable
			database["error"] = err.Error()
		}
	}

	stats := h.sessions.Stats()
	return c.Status(code).JSON(fiber.Map{
		"status":          status,
		"service":         "Property Bot Backend",
		"version":         h.Version,
		"active_sessions": stats.ActiveSessions,
		"storage":         database,
		"responder":       h.Responder,
		"twilio":          h.TwilioConfigured,
	})
}
