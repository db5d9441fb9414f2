// Package router forwards push channel events into the conversation store.
package router

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
	"messenger-client/internal/presence"
	"messenger-client/internal/push"
	"messenger-client/internal/store"
)

// Sink accepts decoded events in arrival order.
type Sink interface {
	Deliver(ev store.Event) error
}

// Router is either subscribed or unsubscribed. Mount and Unmount move between
// the two and are no-ops when already in the target state.
type Router struct {
	listener push.Listener
	sink     Sink
	log      *zap.Logger

	handlers map[string]push.Handler

	mu   sync.Mutex
	subs map[string]push.Subscription
}

// New builds a router. Handlers are created once here so their identity does
// not change between mounts.
func New(listener push.Listener, sink Sink, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{listener: listener, sink: sink, log: log}
	r.handlers = map[string]push.Handler{
		models.EventAddOnlineUser:     r.presenceHandler(models.EventAddOnlineUser, true),
		models.EventRemoveOfflineUser: r.presenceHandler(models.EventRemoveOfflineUser, false),
		models.EventNewMessage:        r.onNewMessage,
		models.EventReadMessage:       r.onReadMessage,
	}
	return r
}

// Events lists the push events the router listens to.
func Events() []string {
	return []string{
		models.EventAddOnlineUser,
		models.EventRemoveOfflineUser,
		models.EventNewMessage,
		models.EventReadMessage,
	}
}

// Mount registers the handlers.
func (r *Router) Mount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs != nil {
		return
	}
	r.subs = make(map[string]push.Subscription, len(r.handlers))
	for _, event := range Events() {
		r.subs[event] = r.listener.On(event, r.handlers[event])
	}
	r.log.Debug("router mounted")
}

// Unmount deregisters exactly the handlers Mount registered.
func (r *Router) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		return
	}
	for event, sub := range r.subs {
		r.listener.Off(event, sub)
	}
	r.subs = nil
	r.log.Debug("router unmounted")
}

// Subscribed reports the current state.
func (r *Router) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs != nil
}

func (r *Router) onNewMessage(raw json.RawMessage) {
	var payload models.NewMessageEvent
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message.ConversationID == 0 {
		r.dropped(models.EventNewMessage, err)
		return
	}
	r.forward(models.EventNewMessage, store.MessageReceived{
		Message: payload.Message,
		Receipt: payload.MessageRead,
		Sender:  payload.Sender,
	})
}

func (r *Router) onReadMessage(raw json.RawMessage) {
	var payload models.ReadMessageEvent
	if err := json.Unmarshal(raw, &payload); err != nil || payload.MessageRead == nil {
		r.dropped(models.EventReadMessage, err)
		return
	}
	r.forward(models.EventReadMessage, store.ReadReceiptUpdated{
		ConversationID: payload.ConversationID,
		Receipt:        payload.MessageRead,
	})
}

func (r *Router) presenceHandler(event string, online bool) push.Handler {
	return func(raw json.RawMessage) {
		ev, err := presence.Decode(raw, online)
		if err != nil {
			r.dropped(event, err)
			return
		}
		r.forward(event, ev)
	}
}

func (r *Router) forward(event string, ev store.Event) {
	observability.IncPushEvent("in", event)
	if err := r.sink.Deliver(ev); err != nil {
		r.log.Debug("push event not delivered", zap.String("event", event), zap.Error(err))
	}
}

func (r *Router) dropped(event string, err error) {
	observability.IncPushDecodeError(event)
	r.log.Warn("malformed push payload", zap.String("event", event), zap.Error(err))
}
