// Package gateway is the REST side of the sync gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

const tokenHeader = "x-access-token"

// Client calls the messenger backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a Client. A zero timeout leaves requests bounded only
// by their context.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// SaveMessage persists a message: POST /api/messages.
func (c *Client) SaveMessage(ctx context.Context, body models.NewMessage) (models.SavedMessage, error) {
	var out models.SavedMessage
	err := c.do(ctx, "save_message", http.MethodPost, "/api/messages", body, &out)
	return out, err
}

// MarkConversationRead flips every unread receipt of the caller in the
// conversation: PUT /api/messages_read.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID int) error {
	body := struct {
		ConversationID int `json:"conversationId"`
	}{ConversationID: conversationID}
	return c.do(ctx, "mark_read", http.MethodPut, "/api/messages_read", body, nil)
}

// FetchConversations loads every conversation of the caller: GET /api/conversations.
func (c *Client) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.do(ctx, "fetch_conversations", http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentUser returns the authenticated user: GET /auth/user.
func (c *Client) CurrentUser(ctx context.Context) (models.SessionUser, error) {
	var out models.SessionUser
	err := c.do(ctx, "current_user", http.MethodGet, "/auth/user", nil, &out)
	return out, err
}

// Logout ends the backend session: DELETE /auth/logout.
func (c *Client) Logout(ctx context.Context, userID int) error {
	body := struct {
		ID int `json:"id"`
	}{ID: userID}
	return c.do(ctx, "logout", http.MethodDelete, "/auth/logout", body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, span := otel.Tracer("messenger-client/gateway").Start(ctx, "gateway."+op)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", path))
	start := time.Now()
	defer func() {
		observability.ObserveGateway(op, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		raw, merr := json.Marshal(in)
		if merr != nil {
			return &Error{Op: op, Err: errors.Wrap(merr, "encode request")}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(msg)))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
