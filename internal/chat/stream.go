package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/gorilla/websocket"
)

// Push is the frame the companion server sends on a conversation's WebSocket.
type Push struct {
	Type           string           `json:"type"`
	ConversationID int64            `json:"conversation_id"`
	Messages       []models.Message `json:"messages,omitempty"`
	Timestamp      int64            `json:"timestamp"`
}

// PushTypeMessages carries the conversation's current message list.
const PushTypeMessages = "messages"

// WebSocketDialer returns a Dialer for the companion server at baseURL
// (http or https). header is sent with the upgrade request.
func WebSocketDialer(baseURL string, header http.Header) Dialer {
	return func(ctx context.Context, conversationID int64) (Stream, error) {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil {
			return nil, err
		}
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
		u.Path += "/api/chat/conversations/" + strconv.FormatInt(conversationID, 10) + "/ws"

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("open push stream: %s: %w", resp.Status, err)
			}
			return nil, fmt.Errorf("open push stream: %w", err)
		}
		return &wsStream{conn: conn}, nil
	}
}

type wsStream struct {
	conn *websocket.Conn
}

// Next blocks until a message list arrives. Cancelling ctx closes the connection.
func (s *wsStream) Next(ctx context.Context) ([]models.Message, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		var p Push
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		if p.Type != PushTypeMessages {
			continue
		}
		if p.Messages == nil {
			p.Messages = []models.Message{}
		}
		return p.Messages, nil
	}
}

func (s *wsStream) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
