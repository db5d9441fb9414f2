package models

import "time"

// Message represents a chat message as returned by the backend.
type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversationId"`
	SenderID       int       `json:"senderId"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ReadReceipt records whether a recipient has read a message in a conversation.
type ReadReceipt struct {
	ID             int       `json:"id,omitempty"`
	MessageID      int       `json:"messageId,omitempty"`
	ConversationID int       `json:"conversationId"`
	RecipientID    int       `json:"recipientId"`
	HasBeenRead    bool      `json:"hasBeenRead"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewMessage is the body of a send request.
type NewMessage struct {
	RecipientID    int    `json:"recipientId" binding:"required"`
	Text           string `json:"text" binding:"required"`
	ConversationID int    `json:"conversationId,omitempty"`
	Sender         *User  `json:"sender,omitempty"`
}

// SavedMessage is the backend response to a send request.
type SavedMessage struct {
	Message     Message     `json:"message"`
	MessageRead ReadReceipt `json:"messageRead"`
	Sender      *User       `json:"sender,omitempty"`
}
