package services

import (
	"fmt"
	"math"
	"time"

	"github.com/Ananth-NQI/propertybot-backend/internal/models"
	"github.com/Ananth-NQI/propertybot-backend/internal/property"
)

// DecisionKind is the engine's answer to an offer
type DecisionKind string

const (
	DecisionAccept       DecisionKind = "accept"
	DecisionCounter      DecisionKind = "counter"
	DecisionFinalCounter DecisionKind = "final_counter"
)

// fallbackDiscount applies when no tier matches the shortfall
const fallbackDiscount = 0.01

// Decision is the outcome of evaluating one offer
type Decision struct {
	Kind  DecisionKind `json:"kind"`
	Price int64        `json:"price"`
	Round int          `json:"round"`
}

// NegotiationEngine is a deterministic price state machine. It only
// mutates the NegotiationSession it is handed.
type NegotiationEngine struct {
	askingPrice int64
	policy      property.NegotiationPolicy
	now         func() time.Time
}

// NewNegotiationEngine creates an engine for the listing's price and policy
func NewNegotiationEngine(listing *property.Listing) *NegotiationEngine {
	return &NegotiationEngine{
		askingPrice: listing.AskingPrice,
		policy:      listing.Negotiation,
		now:         time.Now,
	}
}

// SetClock overrides the time source used to stamp offers
func (e *NegotiationEngine) SetClock(now func() time.Time) {
	e.now = now
}

// MaxRounds returns the number of offers allowed before the final counter
func (e *NegotiationEngine) MaxRounds() int {
	return e.policy.MaxRounds
}

// NewSession starts a negotiation at the asking price
func (e *NegotiationEngine) NewSession() *models.NegotiationSession {
	return &models.NegotiationSession{
		AskingPrice:        e.askingPrice,
		MinAcceptablePrice: int64(math.Round(float64(e.askingPrice) * e.policy.MinAcceptableRatio)),
		CurrentCounter:     e.askingPrice,
		Offers:             []models.Offer{},
		CreatedAt:          e.now(),
	}
}

// EvaluateOffer records the offer and returns the engine's answer. Once the
// rounds are used up, any offer below the floor gets the final counter.
func (e *NegotiationEngine) EvaluateOffer(session *models.NegotiationSession, amount int64) (Decision, error) {
	if amount <= 0 {
		return Decision{}, fmt.Errorf("%w: got %d", ErrInvalidOffer, amount)
	}
	if session.IsComplete {
		return Decision{}, ErrNegotiationClosed
	}

	session.Offers = append(session.Offers, models.Offer{Amount: amount, Timestamp: e.now()})
	round := session.RoundsElapsed()

	if amount >= session.MinAcceptablePrice {
		session.IsComplete = true
		session.AgreedPrice = amount
		return Decision{Kind: DecisionAccept, Price: amount, Round: round}, nil
	}

	if round >= e.policy.MaxRounds {
		session.CurrentCounter = session.MinAcceptablePrice
		return Decision{Kind: DecisionFinalCounter, Price: session.MinAcceptablePrice, Round: round}, nil
	}

	counter := e.counterFor(session, amount)
	session.CurrentCounter = counter
	return Decision{Kind: DecisionCounter, Price: counter, Round: round}, nil
}

// counterFor maps the shortfall to a tiered discount. A concession is never
// withdrawn: the counter cannot rise above the previous one, nor fall below
// the minimum acceptable price.
func (e *NegotiationEngine) counterFor(session *models.NegotiationSession, amount int64) int64 {
	asking := float64(session.AskingPrice)
	shortfall := (asking - float64(amount)) / asking

	discount := fallbackDiscount
	for _, tier := range e.policy.DiscountTiers {
		if shortfall > tier.Shortfall {
			discount = tier.Discount
			break
		}
	}

	counter := int64(math.Round(asking * (1 - discount)))
	if session.CurrentCounter > 0 && counter > session.CurrentCounter {
		counter = session.CurrentCounter
	}
	if counter < session.MinAcceptablePrice {
		counter = session.MinAcceptablePrice
	}
	return counter
}
