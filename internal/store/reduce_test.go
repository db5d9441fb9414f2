package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/models"
)

const me = 1

var (
	bob   = models.User{ID: 2, Username: "bob"}
	carol = models.User{ID: 3, Username: "carol"}
	t0    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func incoming(id, convID, sender int, text string) MessageReceived {
	return MessageReceived{
		Message: models.Message{ID: id, ConversationID: convID, SenderID: sender, Text: text, CreatedAt: t0.Add(time.Duration(id) * time.Second)},
		Receipt: models.ReadReceipt{ID: 100 + id, MessageID: id, ConversationID: convID, RecipientID: me},
	}
}

func TestSearchResultsNeverDuplicatePeers(t *testing.T) {
	s := New(me)
	s = Reduce(s, SearchResults{Users: []models.User{bob, carol, bob}})
	s = Reduce(s, SearchResults{Users: []models.User{carol, bob}})

	require.Len(t, s.Conversations, 2)
	seen := map[int]bool{}
	for _, c := range s.Conversations {
		assert.False(t, seen[c.OtherUser.ID], "duplicate conversation for %d", c.OtherUser.ID)
		seen[c.OtherUser.ID] = true
		assert.True(t, c.IsPlaceholder())
		assert.Empty(t, c.Messages)
		assert.Zero(t, c.NumUnread)
	}
	assert.Equal(t, "bob", s.Conversations[0].OtherUser.Username)
	assert.Equal(t, "carol", s.Conversations[1].OtherUser.Username)
}

func TestSearchResultsKeepExistingFirst(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 9, OtherUser: carol}}})
	s = Reduce(s, SearchResults{Users: []models.User{carol, bob}})

	require.Len(t, s.Conversations, 2)
	assert.Equal(t, 9, s.Conversations[0].ID)
	assert.Equal(t, bob.ID, s.Conversations[1].OtherUser.ID)
}

func TestPlaceholderPromotedByFirstSentMessage(t *testing.T) {
	s := Reduce(New(me), SearchResults{Users: []models.User{bob}})
	s = Reduce(s, MessageSent{Recipient: models.User{ID: 2}, Message: models.Message{ID: 1, ConversationID: 42, SenderID: me, Text: "hi"}})

	require.Len(t, s.Conversations, 1)
	c := s.Conversations[0]
	assert.Equal(t, 42, c.ID)
	assert.Len(t, c.Messages, 1)
	assert.Equal(t, "hi", c.LatestMessageText)
	assert.Equal(t, "bob", c.OtherUser.Username)
}

func TestSentMessageWithoutPlaceholderCreatesConversation(t *testing.T) {
	s := Reduce(New(me), MessageSent{Recipient: bob, Message: models.Message{ID: 1, ConversationID: 42, SenderID: me, Text: "hi"}})

	c, ok := s.FindByUser(bob.ID)
	require.True(t, ok)
	assert.Equal(t, 42, c.ID)
	assert.Len(t, c.Messages, 1)
}

func TestClearPlaceholdersKeepsPersisted(t *testing.T) {
	s := Reduce(New(me), SearchResults{Users: []models.User{bob, carol}})
	s = Reduce(s, MessageSent{Recipient: bob, Message: models.Message{ID: 1, ConversationID: 42, SenderID: me, Text: "hi"}})
	s = Reduce(s, PlaceholdersCleared{})

	require.Len(t, s.Conversations, 1)
	assert.Equal(t, 42, s.Conversations[0].ID)
}

func TestIncomingMessageCountsMatchedCalls(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	for i := 1; i <= 5; i++ {
		s = Reduce(s, incoming(i, 7, bob.ID, "m"))
	}
	s = Reduce(s, incoming(6, 99, bob.ID, "unmatched"))

	c, ok := s.Find(7)
	require.True(t, ok)
	assert.Len(t, c.Messages, 5)
	assert.Equal(t, 5, c.NumUnread)
	assert.Len(t, c.MessagesRead, 5)
	_, ok = s.Find(99)
	assert.False(t, ok)
}

func TestIncomingMessageIsIdempotent(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	ev := incoming(1, 7, bob.ID, "hello")
	s = Reduce(s, ev)
	s = Reduce(s, ev)

	c, _ := s.Find(7)
	assert.Len(t, c.Messages, 1)
	assert.Equal(t, 1, c.NumUnread)
}

func TestIncomingMessageWithSenderPrependsConversation(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: carol}}})
	ev := incoming(1, 8, bob.ID, "first")
	ev.Sender = &bob
	s = Reduce(s, ev)

	require.Len(t, s.Conversations, 2)
	assert.Equal(t, 8, s.Conversations[0].ID)
	assert.Equal(t, "first", s.Conversations[0].LatestMessageText)
	assert.Equal(t, 1, s.Conversations[0].NumUnread)
}

func TestIncomingMessageWithSenderPromotesPlaceholder(t *testing.T) {
	s := Reduce(New(me), SearchResults{Users: []models.User{bob}})
	ev := incoming(1, 8, bob.ID, "first")
	ev.Sender = &bob
	s = Reduce(s, ev)

	require.Len(t, s.Conversations, 1)
	assert.Equal(t, 8, s.Conversations[0].ID)
	assert.Len(t, s.Conversations[0].Messages, 1)
}

func TestOwnMessageDoesNotTouchUnread(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	s = Reduce(s, incoming(1, 7, me, "from another device"))

	c, _ := s.Find(7)
	assert.Len(t, c.Messages, 1)
	assert.Zero(t, c.NumUnread)
	assert.Empty(t, c.MessagesRead)
}

func TestUnseenThenActivated(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	s = Reduce(s, incoming(1, 7, bob.ID, "ping"))

	c, _ := s.Find(7)
	require.Equal(t, 1, c.NumUnread)
	require.False(t, c.MessagesRead[0].HasBeenRead)

	s = Reduce(s, ConversationActivated{Username: "bob"})
	s = Reduce(s, ConversationActivated{Username: "bob"})

	c, _ = s.Find(7)
	assert.Equal(t, "bob", s.Active)
	assert.Zero(t, c.NumUnread)
	assert.True(t, c.MessagesRead[0].HasBeenRead)
}

func TestSeenMessageStoresReadReceipt(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	ev := incoming(1, 7, bob.ID, "ping")
	ev.Seen = true
	s = Reduce(s, ev)

	c, _ := s.Find(7)
	assert.Zero(t, c.NumUnread)
	assert.True(t, c.MessagesRead[0].HasBeenRead)
}

func TestPresenceCommutesWithUnrelatedMessages(t *testing.T) {
	base := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{
		{ID: 7, OtherUser: bob},
		{ID: 8, OtherUser: carol},
	}})
	presence := PresenceChanged{UserID: carol.ID, Online: true}
	msg := incoming(1, 7, bob.ID, "hi")

	a := Reduce(Reduce(base, presence), msg)
	b := Reduce(Reduce(base, msg), presence)

	assert.Equal(t, a, b)
	c, _ := a.FindByUser(carol.ID)
	assert.True(t, c.OtherUser.Online)
}

func TestPresenceSharesUnmatchedConversations(t *testing.T) {
	base := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{
		{ID: 7, OtherUser: bob, Messages: []models.Message{{ID: 1, ConversationID: 7}}},
		{ID: 8, OtherUser: carol},
	}})
	next := Reduce(base, PresenceChanged{UserID: carol.ID, Online: true})

	assert.Same(t, &base.Conversations[0].Messages[0], &next.Conversations[0].Messages[0])
	assert.False(t, base.Conversations[1].OtherUser.Online)
}

func TestReduceDoesNotMutatePreviousState(t *testing.T) {
	before := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	snapshot := before.Clone()

	after := Reduce(before, incoming(1, 7, bob.ID, "hi"))
	after = Reduce(after, ConversationActivated{Username: "bob"})

	assert.Equal(t, snapshot, before)
	assert.NotEqual(t, before, after)
}

func TestReadReceiptUpdate(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{ID: 7, OtherUser: bob}}})
	newer := &models.ReadReceipt{ID: 5, ConversationID: 7, RecipientID: bob.ID, HasBeenRead: true, UpdatedAt: t0.Add(time.Minute)}
	older := &models.ReadReceipt{ID: 4, ConversationID: 7, RecipientID: bob.ID, HasBeenRead: true, UpdatedAt: t0}
	mine := &models.ReadReceipt{ID: 6, ConversationID: 7, RecipientID: me, HasBeenRead: true, UpdatedAt: t0.Add(time.Hour)}

	s = Reduce(s, ReadReceiptUpdated{ConversationID: 7, Receipt: newer})
	s = Reduce(s, ReadReceiptUpdated{ConversationID: 7, Receipt: older})
	s = Reduce(s, ReadReceiptUpdated{ConversationID: 7, Receipt: mine})
	s = Reduce(s, ReadReceiptUpdated{ConversationID: 99, Receipt: newer})
	s = Reduce(s, ReadReceiptUpdated{ConversationID: 7})

	c, _ := s.Find(7)
	require.NotNil(t, c.LastRead)
	assert.Equal(t, 5, c.LastRead.ID)
}

func TestLoadSortsAndDerives(t *testing.T) {
	loaded := []models.Conversation{{
		ID:        7,
		OtherUser: bob,
		Messages: []models.Message{
			{ID: 3, Text: "third", CreatedAt: t0.Add(2 * time.Second)},
			{ID: 1, Text: "first", CreatedAt: t0},
			{ID: 2, Text: "second", CreatedAt: t0.Add(time.Second)},
		},
		MessagesRead: []models.ReadReceipt{
			{ID: 11, RecipientID: bob.ID, HasBeenRead: true, UpdatedAt: t0.Add(time.Minute)},
			{ID: 10, RecipientID: bob.ID, HasBeenRead: true, UpdatedAt: t0},
			{ID: 12, RecipientID: me, HasBeenRead: false, UpdatedAt: t0},
			{ID: 13, RecipientID: me, HasBeenRead: false, UpdatedAt: t0.Add(time.Second)},
		},
	}, {ID: 8, OtherUser: bob}}

	s := Reduce(New(me), ConversationsLoaded{Conversations: loaded})

	require.Len(t, s.Conversations, 1)
	c := s.Conversations[0]
	assert.Equal(t, []int{1, 2, 3}, []int{c.Messages[0].ID, c.Messages[1].ID, c.Messages[2].ID})
	assert.Equal(t, "third", c.LatestMessageText)
	assert.Equal(t, 2, c.NumUnread)
	require.NotNil(t, c.LastRead)
	assert.Equal(t, 11, c.LastRead.ID)
	assert.Equal(t, 3, loaded[0].Messages[0].ID, "input must not be reordered")
}

func TestLoadKeepsArrivalOrderOnTies(t *testing.T) {
	s := Reduce(New(me), ConversationsLoaded{Conversations: []models.Conversation{{
		ID:        7,
		OtherUser: bob,
		Messages: []models.Message{
			{ID: 2, CreatedAt: t0},
			{ID: 1, CreatedAt: t0},
		},
	}}})

	assert.Equal(t, 2, s.Conversations[0].Messages[0].ID)
	assert.Equal(t, 1, s.Conversations[0].Messages[1].ID)
}

func TestActiveCleared(t *testing.T) {
	s := Reduce(New(me), ConversationActivated{Username: "nobody"})
	assert.Equal(t, "nobody", s.Active)
	s = Reduce(s, ActiveCleared{})
	assert.Empty(t, s.Active)
}
