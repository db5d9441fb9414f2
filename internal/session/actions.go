package session

import (
	"context"

	"go.uber.org/zap"

	"messenger-client/internal/models"
	"messenger-client/internal/store"
)

// Load fetches every conversation of the session user. When the backend is
// unreachable the last cached snapshot is used instead, if there is one.
func (s *Session) Load(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	convs, err := s.api.FetchConversations(ctx)
	if err != nil {
		s.fail(ctx, "fetch_conversations", err)
		cached, ok := s.loadCache(ctx)
		if !ok {
			return err
		}
		s.log.Warn("backend unavailable, using cached conversations", zap.Int("conversations", len(cached)))
		_, derr := s.dispatch(ctx, store.ConversationsLoaded{Conversations: cached})
		return derr
	}

	out, err := s.dispatch(ctx, store.ConversationsLoaded{Conversations: convs})
	if err != nil {
		return err
	}
	_ = s.saveCache(ctx, out.state.Conversations)
	return nil
}

func (s *Session) loadCache(ctx context.Context) ([]models.Conversation, bool) {
	if s.cache == nil {
		return nil, false
	}
	convs, err := s.cache.Load(ctx, s.user.ID)
	if err != nil {
		s.log.Debug("no cached conversations", zap.Error(err))
		return nil, false
	}
	return convs, true
}

// AddSearchedUsers adds a placeholder conversation for each user without one.
func (s *Session) AddSearchedUsers(ctx context.Context, users []models.User) error {
	_, err := s.dispatch(ctx, store.SearchResults{Users: users})
	return err
}

// ClearSearchedUsers drops placeholders that never received a message.
func (s *Session) ClearSearchedUsers(ctx context.Context) error {
	_, err := s.dispatch(ctx, store.PlaceholdersCleared{})
	return err
}

// PostMessage persists a message, records it locally and announces it to the
// recipient. The local state is not rolled back when the save fails because
// nothing is recorded before the save succeeds.
func (s *Session) PostMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error) {
	if err := s.ready(); err != nil {
		return models.SavedMessage{}, err
	}
	if body.Sender == nil {
		body.Sender = &models.User{ID: s.user.ID, Username: s.user.Username}
	}

	saved, err := s.api.SaveMessage(ctx, body)
	if err != nil {
		s.fail(ctx, "save_message", err)
		return models.SavedMessage{}, err
	}

	if _, err := s.dispatch(ctx, store.MessageSent{
		Recipient: models.User{ID: body.RecipientID},
		Message:   saved.Message,
	}); err != nil {
		return saved, err
	}

	sender := saved.Sender
	if sender == nil {
		sender = body.Sender
	}
	s.emit(ctx, models.EventNewMessage, models.NewMessageEvent{
		Message:     saved.Message,
		MessageRead: saved.MessageRead,
		RecipientID: body.RecipientID,
		Sender:      sender,
	})
	return saved, nil
}

// SetActiveChat selects the conversation with username. Unread messages in it
// are marked read on the backend with one call, then the peer is told about
// the latest one. An empty username clears the selection.
func (s *Session) SetActiveChat(ctx context.Context, username string) error {
	if username == "" {
		_, err := s.dispatch(ctx, store.ActiveCleared{})
		return err
	}

	out, err := s.dispatch(ctx, store.ConversationActivated{Username: username})
	if err != nil {
		return err
	}
	if out.flush.Empty() {
		return nil
	}

	if err := s.api.MarkConversationRead(ctx, out.flush.ConversationID); err != nil {
		s.fail(ctx, "mark_read", err)
		return err
	}
	s.emit(ctx, models.EventReadMessage, models.ReadMessageEvent{
		MessageRead:    out.flush.Latest(),
		ConversationID: out.flush.ConversationID,
	})
	return nil
}

// Logout ends the backend session and closes this one.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.api.Logout(ctx, s.user.ID); err != nil {
		s.fail(ctx, "logout", err)
		return err
	}
	if _, err := s.dispatch(ctx, store.ActiveCleared{}); err != nil {
		return err
	}
	return s.Close()
}
