package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// PromptContext is everything the responder is allowed to see for one turn
type PromptContext struct {
	LanguageHint       models.Language
	NegotiationSummary string
	PropertyKnowledge  string
	RecentHistory      []models.HistoryEntry
	UserMessage        string
	PriceAgreed        bool
}

// Responder generates a free-text reply. The result is never parsed.
type Responder interface {
	Respond(ctx context.Context, pc PromptContext) (string, error)
	Name() string
}

// BuildPrompt renders the agent prompt for a turn
func BuildPrompt(pc PromptContext) string {
	dialect := "English"
	if pc.LanguageHint == models.LanguageArabic {
		dialect = "Omani Arabic dialect"
	}

	stance := "Maintain professional negotiation stance"
	if pc.PriceAgreed {
		stance = "Price is already agreed, focus on next steps"
	}

	var history strings.Builder
	for _, h := range pc.RecentHistory {
		speaker := "Agent"
		if h.FromUser {
			speaker = "Client"
		}
		fmt.Fprintf(&history, "%s: %s\n", speaker, h.Text)
	}

	return fmt.Sprintf(`You are a real estate agent in Oman, communicating in %s.
You are selling a luxurious three-villa complex in Al Ansab, Muscat.

Current state:
%s

Property Knowledge:
%s

Guidelines:
- %s
- Never quote a price other than the ones in the current state
- Be direct but courteous
- Focus on property value and features
- If client asks about one villa, explain benefits of whole complex
- For owner contact, ask for client details
- Property is for sale only, not for rent

Previous messages:
%s
User's message: %q

Respond naturally while following the guidelines.`,
		dialect, pc.NegotiationSummary, strings.TrimSpace(pc.PropertyKnowledge), stance, history.String(), pc.UserMessage)
}
