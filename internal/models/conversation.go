package models

// Conversation is the thread between the local user and exactly one other user.
// A zero ID marks a placeholder that the server has not assigned yet.
type Conversation struct {
	ID                int           `json:"id,omitempty"`
	OtherUser         User          `json:"otherUser"`
	Messages          []Message     `json:"messages"`
	MessagesRead      []ReadReceipt `json:"messagesRead"`
	NumUnread         int           `json:"numUnread"`
	LatestMessageText string        `json:"latestMessageText,omitempty"`
	LastRead          *ReadReceipt  `json:"lastRead,omitempty"`
}

// IsPlaceholder reports whether the conversation was synthesized locally and never persisted.
func (c Conversation) IsPlaceholder() bool {
	return c.ID == 0
}

// HasMessage reports whether a message with the given id is already in the thread.
func (c Conversation) HasMessage(id int) bool {
	if id == 0 {
		return false
	}
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share slices with the store.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	out.MessagesRead = append([]ReadReceipt(nil), c.MessagesRead...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if out.MessagesRead == nil {
		out.MessagesRead = []ReadReceipt{}
	}
	if c.LastRead != nil {
		lr := *c.LastRead
		out.LastRead = &lr
	}
	return out
}

// CloneConversations deep-copies a conversation list.
func CloneConversations(in []Conversation) []Conversation {
	out := make([]Conversation, 0, len(in))
	for _, c := range in {
		out = append(out, c.Clone())
	}
	return out
}
