package models

// Push channel event names.
const (
	EventNewMessage        = "new-message"
	EventReadMessage       = "read-message"
	EventAddOnlineUser     = "add-online-user"
	EventRemoveOfflineUser = "remove-offline-user"
)

// NewMessageEvent is the payload of a new-message push.
type NewMessageEvent struct {
	Message     Message     `json:"message"`
	MessageRead ReadReceipt `json:"messageRead"`
	RecipientID int         `json:"recipientId,omitempty"`
	Sender      *User       `json:"sender,omitempty"`
}

// ReadMessageEvent is the payload of a read-message push.
type ReadMessageEvent struct {
	MessageRead    *ReadReceipt `json:"messageRead"`
	ConversationID int          `json:"conversationId"`
}
