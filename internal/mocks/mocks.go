package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-client/internal/models"
	"messenger-client/internal/repositories"
	"messenger-client/internal/store"
)

type APIMock struct {
	mock.Mock
}

func (m *APIMock) SaveMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error) {
	args := m.Called(ctx, body)
	var saved models.SavedMessage
	if val := args.Get(0); val != nil {
		saved = val.(models.SavedMessage)
	}
	return saved, args.Error(1)
}

func (m *APIMock) MarkConversationRead(ctx context.Context, conversationID int) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *APIMock) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *APIMock) Logout(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type SnapshotRepositoryMock struct {
	mock.Mock
}

func (m *SnapshotRepositoryMock) Save(ctx context.Context, userID int, convs []models.Conversation) error {
	args := m.Called(ctx, userID, convs)
	return args.Error(0)
}

func (m *SnapshotRepositoryMock) Load(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	m.Called(ctx, level, text, requestID, userID)
}

// ClientMock stands in for a running session behind the local view API.
type ClientMock struct {
	mock.Mock
}

func (m *ClientMock) Snapshot() store.State {
	args := m.Called()
	return args.Get(0).(store.State)
}

func (m *ClientMock) ActiveConversation() (models.Conversation, bool) {
	args := m.Called()
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1)
}

func (m *ClientMock) AddSearchedUsers(ctx context.Context, users []models.User) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func (m *ClientMock) ClearSearchedUsers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ClientMock) PostMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error) {
	args := m.Called(ctx, body)
	var saved models.SavedMessage
	if val := args.Get(0); val != nil {
		saved = val.(models.SavedMessage)
	}
	return saved, args.Error(1)
}

func (m *ClientMock) SetActiveChat(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *ClientMock) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ repositories.SnapshotRepository = (*SnapshotRepositoryMock)(nil)
var _ interface {
	SaveMessage(context.Context, models.NewMessage) (models.SavedMessage, error)
	MarkConversationRead(context.Context, int) error
	FetchConversations(context.Context) ([]models.Conversation, error)
	Logout(context.Context, int) error
} = (*APIMock)(nil)
