package store

import "messenger-client/internal/models"

// State is the reconciled client view. It is treated as immutable: every
// transition returns a new State and leaves the previous one untouched.
type State struct {
	Me            int                   `json:"me"`
	Conversations []models.Conversation `json:"conversations"`
	Active        string                `json:"activeConversation,omitempty"`
}

// New returns an empty state for the local user.
func New(me int) State {
	return State{Me: me, Conversations: []models.Conversation{}}
}

// Find returns the conversation with a server-assigned id.
func (s State) Find(conversationID int) (models.Conversation, bool) {
	if i := indexByID(s.Conversations, conversationID); i >= 0 {
		return s.Conversations[i], true
	}
	return models.Conversation{}, false
}

// FindByUser returns the conversation whose other participant has userID.
func (s State) FindByUser(userID int) (models.Conversation, bool) {
	if i := indexByUser(s.Conversations, userID); i >= 0 {
		return s.Conversations[i], true
	}
	return models.Conversation{}, false
}

// FindByUsername returns the conversation whose other participant has username.
func (s State) FindByUsername(username string) (models.Conversation, bool) {
	if i := indexByUsername(s.Conversations, username); i >= 0 {
		return s.Conversations[i], true
	}
	return models.Conversation{}, false
}

// Clone deep-copies the state for hand-off to observers.
func (s State) Clone() State {
	out := s
	out.Conversations = models.CloneConversations(s.Conversations)
	return out
}

func indexByID(convs []models.Conversation, id int) int {
	if id == 0 {
		return -1
	}
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexByUser(convs []models.Conversation, userID int) int {
	for i, c := range convs {
		if c.OtherUser.ID == userID {
			return i
		}
	}
	return -1
}

func indexByUsername(convs []models.Conversation, username string) int {
	if username == "" {
		return -1
	}
	for i, c := range convs {
		if c.OtherUser.Username == username {
			return i
		}
	}
	return -1
}

func replaceAt(convs []models.Conversation, i int, c models.Conversation) []models.Conversation {
	out := make([]models.Conversation, len(convs))
	copy(out, convs)
	out[i] = c
	return out
}

func prepend(c models.Conversation, convs []models.Conversation) []models.Conversation {
	out := make([]models.Conversation, 0, len(convs)+1)
	out = append(out, c)
	return append(out, convs...)
}

func withMessage(c models.Conversation, m models.Message) models.Conversation {
	msgs := make([]models.Message, len(c.Messages), len(c.Messages)+1)
	copy(msgs, c.Messages)
	c.Messages = append(msgs, m)
	c.LatestMessageText = m.Text
	return c
}

func withReceipt(c models.Conversation, r models.ReadReceipt) models.Conversation {
	receipts := make([]models.ReadReceipt, len(c.MessagesRead), len(c.MessagesRead)+1)
	copy(receipts, c.MessagesRead)
	c.MessagesRead = append(receipts, r)
	return c
}

func newConversation(id int, other models.User) models.Conversation {
	return models.Conversation{
		ID:           id,
		OtherUser:    other,
		Messages:     []models.Message{},
		MessagesRead: []models.ReadReceipt{},
	}
}
