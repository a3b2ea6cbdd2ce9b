package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/propertybot-backend/internal/services"
)

// MessageRouter decides the reply to one inbound message
type MessageRouter interface {
	Route(ctx context.Context, text, userID string) services.OutboundAction
}

// ReplySender delivers a routed reply to the buyer
type ReplySender interface {
	Deliver(ctx context.Context, to string, action services.OutboundAction) error
}

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	router MessageRouter
	sender ReplySender
}

// NewWhatsAppHandler creates a handler. A nil sender logs replies instead of sending them.
func NewWhatsAppHandler(router MessageRouter, sender ReplySender) *WhatsAppHandler {
	return &WhatsAppHandler{
		router: router,
		sender: sender,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // whatsapp:+96899123456
	To         string `form:"To"`
	Body       string `form:"Body"`
	NumMedia   string `form:"NumMedia"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no body
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	log.Printf("📱 WhatsApp Message from %s: %s", from, payload.Body)

	ctx := c.UserContext()
	action := h.router.Route(ctx, payload.Body, from)

	if h.sender == nil {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", action.Body())
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.sender.Deliver(ctx, from, action); err != nil {
		var transportErr *services.TransportError
		if errors.As(err, &transportErr) {
			log.Printf("❌ Failed to send WhatsApp response: %v", err)
		} else {
			log.Printf("❌ Unexpected delivery error: %v", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deliver reply",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is a WhatsApp message without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook routes a message and returns the reply instead of sending it
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.From == "" || payload.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and message are required",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)
	action := h.router.Route(c.UserContext(), payload.Message, strings.TrimPrefix(payload.From, "whatsapp:"))

	return c.JSON(fiber.Map{
		"success":  true,
		"response": action.Body(),
		"action":   action,
	})
}
