package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/gateway"
	"messenger-client/internal/mocks"
	"messenger-client/internal/models"
	"messenger-client/internal/session"
	"messenger-client/internal/store"
	"messenger-client/internal/telemetry"
)

var (
	_ Client = (*mocks.ClientMock)(nil)
	_ Client = (*session.Session)(nil)
)

var bob = models.User{ID: 2, Username: "bob"}

func setupConversationRouter(client Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	NewConversationHandler(client).Register(r)
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListConversations(t *testing.T) {
	client := new(mocks.ClientMock)
	st := store.State{Me: 1, Active: "bob", Conversations: []models.Conversation{{ID: 7, OtherUser: bob, NumUnread: 2}}}
	client.On("Snapshot").Return(st).Once()

	rec := serve(setupConversationRouter(client), http.MethodGet, "/conversations", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations      []models.Conversation `json:"conversations"`
		ActiveConversation string                `json:"activeConversation"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, 2, resp.Conversations[0].NumUnread)
	assert.Equal(t, "bob", resp.ActiveConversation)
	client.AssertExpectations(t)
}

func TestGetActive(t *testing.T) {
	client := new(mocks.ClientMock)
	client.On("ActiveConversation").Return(models.Conversation{ID: 7, OtherUser: bob}, true).Once()
	rec := serve(setupConversationRouter(client), http.MethodGet, "/conversations/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"bob"`)

	client = new(mocks.ClientMock)
	client.On("ActiveConversation").Return(nil, false).Once()
	rec = serve(setupConversationRouter(client), http.MethodGet, "/conversations/active", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetActive(t *testing.T) {
	client := new(mocks.ClientMock)
	client.On("SetActiveChat", mock.Anything, "bob").Return(nil).Once()

	rec := serve(setupConversationRouter(client), http.MethodPut, "/conversations/active", `{"username":"bob"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	client.AssertExpectations(t)
}

func TestSetActiveBackendFailure(t *testing.T) {
	client := new(mocks.ClientMock)
	client.On("SetActiveChat", mock.Anything, "bob").Return(&gateway.Error{Op: "mark_read", Status: 500, Err: assert.AnError}).Once()

	rec := serve(setupConversationRouter(client), http.MethodPut, "/conversations/active", `{"username":"bob"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backendStatus":500`)
}

func TestSearchResults(t *testing.T) {
	client := new(mocks.ClientMock)
	client.On("AddSearchedUsers", mock.Anything, []models.User{bob}).Return(nil).Once()
	client.On("ClearSearchedUsers", mock.Anything).Return(nil).Once()
	r := setupConversationRouter(client)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/conversations/search", `{"users":[{"id":2,"username":"bob"}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/conversations/search", `{}`).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodDelete, "/conversations/search", "").Code)
	client.AssertExpectations(t)
}

func TestPostMessage(t *testing.T) {
	client := new(mocks.ClientMock)
	saved := models.SavedMessage{Message: models.Message{ID: 50, ConversationID: 9, SenderID: 1, Text: "hi"}}
	client.On("PostMessage", mock.Anything, models.NewMessage{RecipientID: 2, Text: "hi"}).Return(saved, nil).Once()

	rec := serve(setupConversationRouter(client), http.MethodPost, "/messages", `{"recipientId":2,"text":"hi"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.SavedMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 50, resp.Message.ID)
	client.AssertExpectations(t)
}

func TestPostMessageValidation(t *testing.T) {
	client := new(mocks.ClientMock)
	r := setupConversationRouter(client)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/messages", `{"text":"hi"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/messages", `{"recipientId":2}`).Code)
	client.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything)
}

func TestSessionErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{session.ErrClosed, http.StatusServiceUnavailable},
		{session.ErrSessionPending, http.StatusConflict},
		{session.ErrNoSession, http.StatusUnauthorized},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		client := new(mocks.ClientMock)
		client.On("Logout", mock.Anything).Return(tc.err).Once()
		rec := serve(setupConversationRouter(client), http.MethodPost, "/logout", "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestLogout(t *testing.T) {
	client := new(mocks.ClientMock)
	client.On("Logout", mock.Anything).Return(nil).Once()

	rec := serve(setupConversationRouter(client), http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDebugRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := new(mocks.ClientMock)
	client.On("Snapshot").Return(store.State{Me: 1, Conversations: []models.Conversation{}}).Once()

	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "audit.client", mock.MatchedBy(func(ev any) bool {
		env, ok := ev.(telemetry.AuditEnvelope)
		return ok && env.UserID != nil && *env.UserID == "1" && env.RequestID == "req-1"
	})).Return(nil).Once()
	emitter := telemetry.NewAuditEmitter(pub, "audit.client", "messenger-client", "test", nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	RegisterDebugRoutes(r, emitter, client, true)

	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/debug/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"me":1`)
	pub.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, new(mocks.ClientMock), false)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/debug/state", "").Code)
}
