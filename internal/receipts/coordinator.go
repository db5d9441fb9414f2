// Package receipts decides when inbound messages count as read and what must
// be flushed to the server when a conversation becomes active.
package receipts

import (
	"messenger-client/internal/models"
	"messenger-client/internal/store"
)

// Decision is the outcome for one inbound message.
type Decision struct {
	// Seen means the message landed in the visible conversation.
	Seen bool
	// Notify means a read-message push and a read persistence call are due.
	Notify bool
}

// Flush lists what an activation has to report to the server.
type Flush struct {
	ConversationID int
	// Unread holds the receipts addressed to the local user that were still
	// unread before activation.
	Unread []models.ReadReceipt
}

// Empty reports whether nothing has to be sent.
func (f Flush) Empty() bool {
	return f.ConversationID == 0 || len(f.Unread) == 0
}

// Latest returns the most recent unread receipt flagged read, which is what
// the peer is told about.
func (f Flush) Latest() *models.ReadReceipt {
	if len(f.Unread) == 0 {
		return nil
	}
	latest := f.Unread[0]
	for _, r := range f.Unread[1:] {
		if !r.UpdatedAt.Before(latest.UpdatedAt) {
			latest = r
		}
	}
	latest.HasBeenRead = true
	return &latest
}

// Inbound decides whether msg is seen immediately given the current state.
// A message already in the conversation is a redelivery and is never seen
// again. sender is consulted only when the conversation id is not known yet, which
// happens for the first message into a placeholder.
func Inbound(s store.State, msg models.Message, sender *models.User) Decision {
	if msg.SenderID == s.Me || s.Active == "" {
		return Decision{}
	}
	username := ""
	if c, ok := s.Find(msg.ConversationID); ok {
		if c.HasMessage(msg.ID) {
			return Decision{}
		}
		username = c.OtherUser.Username
	} else if sender != nil && msg.ConversationID != 0 {
		username = sender.Username
	}
	if username != s.Active {
		return Decision{}
	}
	return Decision{Seen: true, Notify: true}
}

// Activation collects the receipts that activating username will flip.
// Activating an already read conversation yields an empty flush.
func Activation(s store.State, username string) Flush {
	c, ok := s.FindByUsername(username)
	if !ok || c.IsPlaceholder() || len(c.Messages) == 0 {
		return Flush{}
	}
	f := Flush{ConversationID: c.ID}
	for _, r := range c.MessagesRead {
		if r.RecipientID == s.Me && !r.HasBeenRead {
			f.Unread = append(f.Unread, r)
		}
	}
	return f
}
