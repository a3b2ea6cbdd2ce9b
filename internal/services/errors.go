package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOffer means a non-positive amount reached the negotiation engine
	ErrInvalidOffer = errors.New("invalid offer: amount must be positive")

	// ErrNegotiationClosed means the engine was called after the price was agreed
	ErrNegotiationClosed = errors.New("negotiation already completed")

	// ErrInvalidPatch means a session update would break a state invariant
	ErrInvalidPatch = errors.New("invalid session patch")
)

// GatewayError wraps a failure of the generative responder
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("responder %s failed: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure to deliver a reply to the messaging provider
type TransportError struct {
	To  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to deliver reply to %s: %v", e.To, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
