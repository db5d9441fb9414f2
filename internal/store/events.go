package store

import "messenger-client/internal/models"

// Event is one input to the reducer.
type Event interface {
	Name() string
}

// ConversationsLoaded replaces the list with a bulk load from the backend.
type ConversationsLoaded struct {
	Conversations []models.Conversation
}

// SearchResults adds placeholder conversations for searched users.
type SearchResults struct {
	Users []models.User
}

// PlaceholdersCleared drops placeholders that never received a message.
type PlaceholdersCleared struct{}

// MessageSent records a message the local user persisted.
type MessageSent struct {
	Recipient models.User
	Message   models.Message
}

// MessageReceived merges a message pushed by the server. Seen is decided by
// the read-receipt coordinator before the event is reduced.
type MessageReceived struct {
	Message models.Message
	Receipt models.ReadReceipt
	Sender  *models.User
	Seen    bool
}

// ConversationActivated selects the conversation with the given peer username.
type ConversationActivated struct {
	Username string
}

// ActiveCleared deselects the active conversation.
type ActiveCleared struct{}

// PresenceChanged flips a peer online or offline.
type PresenceChanged struct {
	UserID int
	Online bool
}

// ReadReceiptUpdated records that the peer has read up to Receipt.
type ReadReceiptUpdated struct {
	ConversationID int
	Receipt        *models.ReadReceipt
}

func (ConversationsLoaded) Name() string   { return "conversations_loaded" }
func (SearchResults) Name() string         { return "search_results" }
func (PlaceholdersCleared) Name() string   { return "placeholders_cleared" }
func (MessageSent) Name() string           { return "message_sent" }
func (MessageReceived) Name() string       { return "message_received" }
func (ConversationActivated) Name() string { return "conversation_activated" }
func (ActiveCleared) Name() string         { return "active_cleared" }
func (PresenceChanged) Name() string       { return "presence_changed" }
func (ReadReceiptUpdated) Name() string    { return "read_receipt_updated" }
