package store

import (
	"sort"

	"messenger-client/internal/models"
)

// MergeSearchResults appends a placeholder for every user that has no
// conversation yet. Existing conversations keep their position.
func MergeSearchResults(convs []models.Conversation, users []models.User) []models.Conversation {
	known := make(map[int]bool, len(convs)+len(users))
	for _, c := range convs {
		known[c.OtherUser.ID] = true
	}

	out := make([]models.Conversation, len(convs), len(convs)+len(users))
	copy(out, convs)
	for _, u := range users {
		if u.ID == 0 || known[u.ID] {
			continue
		}
		known[u.ID] = true
		out = append(out, newConversation(0, u))
	}
	return out
}

// ClearPlaceholders removes conversations that were never persisted.
func ClearPlaceholders(convs []models.Conversation) []models.Conversation {
	out := make([]models.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.IsPlaceholder() && len(c.Messages) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// AppendSentMessage records an outgoing message. The conversation keyed by the
// recipient is updated, promoted if it was a placeholder, or created when it
// does not exist yet.
func AppendSentMessage(convs []models.Conversation, recipient models.User, msg models.Message) []models.Conversation {
	i := indexByUser(convs, recipient.ID)
	if i < 0 {
		if indexByID(convs, msg.ConversationID) >= 0 {
			// the conversation already exists under another peer id
			return convs
		}
		c := withMessage(newConversation(msg.ConversationID, recipient), msg)
		return prepend(c, convs)
	}

	c := convs[i]
	if c.HasMessage(msg.ID) {
		return convs
	}
	c = withMessage(c, msg)
	if c.IsPlaceholder() {
		c.ID = msg.ConversationID
	}
	return replaceAt(convs, i, c)
}

// MergeIncomingMessage merges a pushed message. When sender is set and the
// conversation is unknown, a conversation is created at the front of the list
// (or the sender's placeholder is promoted). Messages from the peer add the
// receipt and bump the unread count unless seen is true.
func MergeIncomingMessage(convs []models.Conversation, me int, msg models.Message, receipt models.ReadReceipt, sender *models.User, seen bool) []models.Conversation {
	if sender != nil && indexByID(convs, msg.ConversationID) < 0 && msg.ConversationID != 0 {
		switch i := indexByUser(convs, sender.ID); {
		case i < 0:
			convs = prepend(newConversation(msg.ConversationID, *sender), convs)
		case convs[i].IsPlaceholder():
			c := convs[i]
			c.ID = msg.ConversationID
			convs = replaceAt(convs, i, c)
		}
	}

	i := indexByID(convs, msg.ConversationID)
	if i < 0 {
		return convs
	}
	c := convs[i]
	if c.HasMessage(msg.ID) {
		return convs
	}
	c = withMessage(c, msg)

	if msg.SenderID != me {
		receipt.HasBeenRead = seen
		if receipt.ConversationID == 0 {
			receipt.ConversationID = msg.ConversationID
		}
		c = withReceipt(c, receipt)
		if seen {
			c.NumUnread = 0
		} else {
			c.NumUnread++
		}
	}
	return replaceAt(convs, i, c)
}

// ActivateConversation selects the conversation with the peer username, flags
// every receipt addressed to the local user as read and zeroes the unread count.
func ActivateConversation(s State, username string) State {
	s.Active = username
	i := indexByUsername(s.Conversations, username)
	if i < 0 {
		return s
	}

	c := s.Conversations[i]
	receipts := make([]models.ReadReceipt, len(c.MessagesRead))
	for j, r := range c.MessagesRead {
		if r.RecipientID == s.Me {
			r.HasBeenRead = true
		}
		receipts[j] = r
	}
	c.MessagesRead = receipts
	c.NumUnread = 0
	s.Conversations = replaceAt(s.Conversations, i, c)
	return s
}

// ApplyPresence flips the online flag of one peer. Other conversations are
// shared with the input.
func ApplyPresence(convs []models.Conversation, userID int, online bool) []models.Conversation {
	i := indexByUser(convs, userID)
	if i < 0 || convs[i].OtherUser.Online == online {
		return convs
	}
	c := convs[i]
	c.OtherUser.Online = online
	return replaceAt(convs, i, c)
}

// RecordReadReceiptUpdate stores the latest receipt the peer acknowledged.
// Receipts addressed to the local user and receipts older than the current
// one are ignored.
func RecordReadReceiptUpdate(convs []models.Conversation, me, conversationID int, receipt *models.ReadReceipt) []models.Conversation {
	if receipt == nil || receipt.RecipientID == me {
		return convs
	}
	i := indexByID(convs, conversationID)
	if i < 0 {
		return convs
	}
	c := convs[i]
	if c.LastRead != nil && c.LastRead.UpdatedAt.After(receipt.UpdatedAt) {
		return convs
	}
	r := *receipt
	c.LastRead = &r
	return replaceAt(convs, i, c)
}

// LoadConversations normalises a bulk load: messages and receipts are sorted,
// LastRead, NumUnread and LatestMessageText are derived, and duplicate peers
// collapse into the first conversation.
func LoadConversations(me int, convs []models.Conversation) []models.Conversation {
	seen := make(map[int]bool, len(convs))
	out := make([]models.Conversation, 0, len(convs))
	for _, in := range convs {
		if seen[in.OtherUser.ID] {
			continue
		}
		seen[in.OtherUser.ID] = true

		c := in.Clone()
		sort.SliceStable(c.Messages, func(a, b int) bool {
			return c.Messages[a].CreatedAt.Before(c.Messages[b].CreatedAt)
		})
		sort.SliceStable(c.MessagesRead, func(a, b int) bool {
			return c.MessagesRead[a].UpdatedAt.Before(c.MessagesRead[b].UpdatedAt)
		})

		c.LastRead = nil
		c.NumUnread = 0
		for j := range c.MessagesRead {
			r := c.MessagesRead[j]
			if r.RecipientID == me {
				if !r.HasBeenRead {
					c.NumUnread++
				}
				continue
			}
			if r.HasBeenRead {
				c.LastRead = &r
			}
		}
		if n := len(c.Messages); n > 0 {
			c.LatestMessageText = c.Messages[n-1].Text
		}
		out = append(out, c)
	}
	return out
}
