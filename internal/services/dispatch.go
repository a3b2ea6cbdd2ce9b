package services

import (
	"context"
	"log"
)

// Dispatcher delivers a routed action through the messaging provider
type Dispatcher struct {
	messenger Messenger
}

// NewDispatcher creates a dispatcher on top of a Messenger
func NewDispatcher(messenger Messenger) *Dispatcher {
	return &Dispatcher{messenger: messenger}
}

// Deliver sends media items one by one, then the text. Any failure stops
// delivery and is returned as a *TransportError.
func (d *Dispatcher) Deliver(ctx context.Context, to string, action OutboundAction) error {
	for _, item := range action.Media {
		if err := ctx.Err(); err != nil {
			return &TransportError{To: to, Err: err}
		}
		if err := d.messenger.SendWhatsAppMedia(to, item.URL, item.Caption); err != nil {
			return &TransportError{To: to, Err: err}
		}
	}

	body := action.Body()
	if body == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &TransportError{To: to, Err: err}
	}
	if err := d.messenger.SendWhatsAppMessage(to, body); err != nil {
		return &TransportError{To: to, Err: err}
	}

	log.Printf("📤 Delivered %s reply to %s (%d media)", action.Kind, to, len(action.Media))
	return nil
}
