package upstream

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

func conversationPath(id int64, rest string) string {
	return "/api/chat/conversations/" + strconv.FormatInt(id, 10) + rest
}

// ListConversations returns the user's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/chat/conversations",
		fallback: "Failed to load conversations",
	}, &out)
	return out.Conversations, err
}

// GetMessages returns a conversation's messages, oldest first.
func (c *Client) GetMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     conversationPath(conversationID, "/messages"),
		fallback: "Failed to load messages",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []models.Message{}
	}
	return out.Messages, nil
}

// PostMessage sends a message. The returned message is nil when the server
// acknowledged the send without echoing the created message.
func (c *Client) PostMessage(ctx context.Context, conversationID int64, content string) (*models.Message, error) {
	var out struct {
		Message *models.Message `json:"message"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     conversationPath(conversationID, "/messages"),
		body:     map[string]string{"content": content},
		fallback: "Failed to send message",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Message != nil && out.Message.MessageID == 0 {
		return nil, nil
	}
	return out.Message, nil
}

// CreateConversation opens a conversation with another user. The server returns
// the existing conversation id when one already exists.
func (c *Client) CreateConversation(ctx context.Context, userID int64) (int64, error) {
	var out struct {
		ConversationID int64 `json:"conversation_id"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/chat/conversations",
		body:     map[string]int64{"user_id": userID},
		fallback: "Failed to start conversation",
	}, &out)
	return out.ConversationID, err
}

// MarkRead marks the other party's messages as read and returns how many changed.
func (c *Client) MarkRead(ctx context.Context, conversationID int64) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     conversationPath(conversationID, "/read"),
		fallback: "Failed to mark messages as read",
	}, &out)
	return out.Count, err
}
