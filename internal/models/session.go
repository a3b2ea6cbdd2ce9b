package models

import (
	"time"
)

// Language is the reply language detected for a conversation
type Language string

const (
	LanguageUnset   Language = ""
	LanguageEnglish Language = "english"
	LanguageArabic  Language = "arabic"
)

// ConversationPhase is advisory only; it drives next-step suggestions, never correctness
type ConversationPhase string

const (
	PhaseInitial     ConversationPhase = "initial"
	PhaseExploring   ConversationPhase = "exploring"
	PhaseNegotiating ConversationPhase = "negotiating"
	PhaseConcluded   ConversationPhase = "concluded"
)

// Preferences holds what we know about the buyer. Empty strings mean "not captured".
type Preferences struct {
	Language     Language        `json:"language"`
	ContactName  string          `json:"contact_name,omitempty"`
	ContactPhone string          `json:"contact_phone,omitempty"`
	InterestTags map[string]bool `json:"interest_tags,omitempty"`
}

// HasContact reports whether either contact field has been captured
func (p Preferences) HasContact() bool {
	return p.ContactName != "" || p.ContactPhone != ""
}

// HistoryEntry is a single message in the conversation
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	FromUser  bool      `json:"from_user"`
}

// NegotiationStatus is the conversation-level view of the price negotiation.
// Prices are whole currency units; zero means "not set".
type NegotiationStatus struct {
	Discussed       bool  `json:"discussed"`
	Completed       bool  `json:"completed"`
	ReferredToOwner bool  `json:"referred_to_owner"`
	AgreedPrice     int64 `json:"agreed_price,omitempty"`
	LastOffer       int64 `json:"last_offer,omitempty"`
}

// ConversationState is everything we track for one sender
type ConversationState struct {
	UserID            string            `json:"user_id"`
	Preferences       Preferences       `json:"preferences"`
	History           []HistoryEntry    `json:"history"`
	Negotiation       NegotiationStatus `json:"negotiation"`
	Phase             ConversationPhase `json:"phase"`
	CreatedAt         time.Time         `json:"created_at"`
	LastInteractionAt time.Time         `json:"last_interaction_at"`
}

// NewConversationState creates default state for a first-time sender
func NewConversationState(userID string, now time.Time) *ConversationState {
	return &ConversationState{
		UserID: userID,
		Preferences: Preferences{
			InterestTags: make(map[string]bool),
		},
		History:           []HistoryEntry{},
		Phase:             PhaseInitial,
		CreatedAt:         now,
		LastInteractionAt: now,
	}
}

// Clone returns a deep copy so callers never hold references into the store
func (c *ConversationState) Clone() *ConversationState {
	out := *c
	out.History = append([]HistoryEntry(nil), c.History...)
	out.Preferences.InterestTags = make(map[string]bool, len(c.Preferences.InterestTags))
	for tag := range c.Preferences.InterestTags {
		out.Preferences.InterestTags[tag] = true
	}
	return &out
}

// RecentHistory returns up to n of the newest entries, oldest first
func (c *ConversationState) RecentHistory(n int) []HistoryEntry {
	if n <= 0 {
		return nil
	}
	start := len(c.History) - n
	if start < 0 {
		start = 0
	}
	return append([]HistoryEntry(nil), c.History[start:]...)
}

// Offer is a single numeric proposal from the buyer
type Offer struct {
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NegotiationSession is the authoritative numeric state for one sender's negotiation
type NegotiationSession struct {
	AskingPrice        int64     `json:"asking_price"`
	MinAcceptablePrice int64     `json:"min_acceptable_price"`
	CurrentCounter     int64     `json:"current_counter"`
	Offers             []Offer   `json:"offers"`
	IsComplete         bool      `json:"is_complete"`
	AgreedPrice        int64     `json:"agreed_price,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// RoundsElapsed is the number of offers evaluated so far
func (n *NegotiationSession) RoundsElapsed() int {
	return len(n.Offers)
}

// LastOffer returns the most recent offer amount, or 0
func (n *NegotiationSession) LastOffer() int64 {
	if len(n.Offers) == 0 {
		return 0
	}
	return n.Offers[len(n.Offers)-1].Amount
}

// Clone returns a deep copy of the negotiation
func (n *NegotiationSession) Clone() *NegotiationSession {
	out := *n
	out.Offers = append([]Offer(nil), n.Offers...)
	return &out
}
