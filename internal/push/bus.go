package push

import (
	"context"
	"encoding/json"
	"sync"
)

// Sent is one event recorded by a Bus.
type Sent struct {
	Event   string
	Payload json.RawMessage
}

// Bus is an in-process channel. Emitted events are recorded rather than
// delivered; Inject delivers inbound events to the registered handlers. It
// backs offline mode and tests.
type Bus struct {
	*Registry

	mu     sync.Mutex
	sent   []Sent
	inject sync.Mutex
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{Registry: NewRegistry()}
}

// Emit records the event.
func (b *Bus) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.sent = append(b.sent, Sent{Event: event, Payload: raw})
	b.mu.Unlock()
	return nil
}

// Inject delivers an inbound event. Concurrent injections are serialised.
func (b *Bus) Inject(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.inject.Lock()
	defer b.inject.Unlock()
	b.Dispatch(event, raw)
	return nil
}

// Sent returns a copy of the recorded events.
func (b *Bus) Sent() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Sent(nil), b.sent...)
}

// SentNamed returns the recorded events with the given name.
func (b *Bus) SentNamed(event string) []Sent {
	var out []Sent
	for _, s := range b.Sent() {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}
