package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/propertybot-backend/internal/storage"
)

// AdminHandler exposes captured leads and session counts
type AdminHandler struct {
	store    storage.Store
	sessions SessionStatter
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, sessions SessionStatter) *AdminHandler {
	return &AdminHandler{
		store:    store,
		sessions: sessions,
	}
}

// GetLeads lists every lead
func (h *AdminHandler) GetLeads(c *fiber.Ctx) error {
	leads, err := h.store.GetAllLeads()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch leads",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"leads":   leads,
		"count":   len(leads),
	})
}

// GetLead returns the lead for one sender
func (h *AdminHandler) GetLead(c *fiber.Ctx) error {
	lead, err := h.store.GetLead(c.Params("userID"))
	if errors.Is(err, storage.ErrLeadNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch lead",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"lead":    lead,
	})
}

// GetSessionStats reports how many conversations are live
func (h *AdminHandler) GetSessionStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"sessions": h.sessions.Stats(),
	})
}
