package store

// Reduce applies one event and returns the next state. It never mutates s and
// never fails: events that reference unknown conversations leave the state as is.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case ConversationsLoaded:
		s.Conversations = LoadConversations(s.Me, ev.Conversations)
	case SearchResults:
		s.Conversations = MergeSearchResults(s.Conversations, ev.Users)
	case PlaceholdersCleared:
		s.Conversations = ClearPlaceholders(s.Conversations)
	case MessageSent:
		s.Conversations = AppendSentMessage(s.Conversations, ev.Recipient, ev.Message)
	case MessageReceived:
		s.Conversations = MergeIncomingMessage(s.Conversations, s.Me, ev.Message, ev.Receipt, ev.Sender, ev.Seen)
	case ConversationActivated:
		s = ActivateConversation(s, ev.Username)
	case ActiveCleared:
		s.Active = ""
	case PresenceChanged:
		s.Conversations = ApplyPresence(s.Conversations, ev.UserID, ev.Online)
	case ReadReceiptUpdated:
		s.Conversations = RecordReadReceiptUpdate(s.Conversations, s.Me, ev.ConversationID, ev.Receipt)
	}
	return s
}
