package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-client/internal/gateway"
	"messenger-client/internal/models"
	"messenger-client/internal/observability"
	"messenger-client/internal/session"
	"messenger-client/internal/store"
)

// Client is the running session as seen by the local view API.
type Client interface {
	Snapshot() store.State
	ActiveConversation() (models.Conversation, bool)
	AddSearchedUsers(ctx context.Context, users []models.User) error
	ClearSearchedUsers(ctx context.Context) error
	PostMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error)
	SetActiveChat(ctx context.Context, username string) error
	Logout(ctx context.Context) error
}

// ConversationHandler exposes the session state to a local UI.
type ConversationHandler struct {
	client Client
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(client Client) *ConversationHandler {
	return &ConversationHandler{client: client}
}

// Register mounts the routes on group.
func (h *ConversationHandler) Register(group gin.IRoutes) {
	group.GET("/conversations", h.ListConversations)
	group.GET("/conversations/active", h.GetActive)
	group.PUT("/conversations/active", h.SetActive)
	group.POST("/conversations/search", h.AddSearchResults)
	group.DELETE("/conversations/search", h.ClearSearchResults)
	group.POST("/messages", h.PostMessage)
	group.POST("/logout", h.Logout)
}

// ListConversations returns the current conversation list.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	st := h.client.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"conversations":      st.Conversations,
		"activeConversation": st.Active,
	})
}

func (h *ConversationHandler) GetActive(c *gin.Context) {
	conv, ok := h.client.ActiveConversation()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active conversation"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// SetActive selects a conversation by peer username. An empty username clears
// the selection.
func (h *ConversationHandler) SetActive(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.client.SetActiveChat(requestContext(c), req.Username); err != nil {
		writeError(c, err, "could not activate conversation")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) AddSearchResults(c *gin.Context) {
	var req struct {
		Users []models.User `json:"users" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.client.AddSearchedUsers(requestContext(c), req.Users); err != nil {
		writeError(c, err, "could not add search results")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) ClearSearchResults(c *gin.Context) {
	if err := h.client.ClearSearchedUsers(requestContext(c)); err != nil {
		writeError(c, err, "could not clear search results")
		return
	}
	c.Status(http.StatusNoContent)
}

// PostMessage sends a message to a peer.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req models.NewMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.client.PostMessage(requestContext(c), req)
	if err != nil {
		writeError(c, err, "could not send message")
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *ConversationHandler) Logout(c *gin.Context) {
	if err := h.client.Logout(requestContext(c)); err != nil {
		writeError(c, err, "could not log out")
		return
	}
	c.Status(http.StatusNoContent)
}

func requestContext(c *gin.Context) context.Context {
	return observability.ContextWithRequestID(c.Request.Context(), requestIDFromContext(c))
}

func writeError(c *gin.Context, err error, msg string) {
	var gerr *gateway.Error
	switch {
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session closed"})
	case errors.Is(err, session.ErrSessionPending):
		c.JSON(http.StatusConflict, gin.H{"error": "session is still loading"})
	case errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": msg})
	case errors.As(err, &gerr):
		c.JSON(http.StatusBadGateway, gin.H{"error": msg, "backendStatus": gerr.Status})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
