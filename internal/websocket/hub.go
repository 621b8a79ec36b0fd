package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/chat"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Client is one WebSocket subscriber of a conversation
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	conversationID int64
}

// Hub fans conversation updates out to subscribed WebSocket clients
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *chat.Push
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	origins    []string
	log        *zap.Logger
}

// NewHub creates a Hub. Call Run to start it. Browser origins outside
// allowedOrigins are refused; "*" allows any. With none given only
// same-host origins are accepted.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *chat.Push, 256),
		quit:       make(chan struct{}),
		origins:    allowedOrigins,
		log:        logger.Named("websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin lets non-browser clients (no Origin header) through.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ErrHubStopped is returned when subscribing to a stopped hub.
var ErrHubStopped = errors.New("websocket hub stopped")

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.conversationID] == nil {
				h.clients[client.conversationID] = make(map[*Client]bool)
			}
			h.clients[client.conversationID][client] = true
			h.log.Debug("client registered",
				zap.Int64("conversation_id", client.conversationID),
				zap.Int("total", len(h.clients[client.conversationID])))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case push := <-h.broadcast:
			data, err := json.Marshal(push)
			if err != nil {
				h.log.Error("failed to marshal push", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.clients[push.ConversationID] {
				select {
				case client.send <- data:
				default:
					// slow client
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.conversationID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.log.Debug("client unregistered",
		zap.Int64("conversation_id", client.conversationID),
		zap.Int("remaining", len(clients)))
	if len(clients) == 0 {
		delete(h.clients, client.conversationID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// BroadcastMessages sends a conversation's message list to its subscribers.
func (h *Hub) BroadcastMessages(conversationID int64, msgs []models.Message) {
	push := &chat.Push{
		Type:           chat.PushTypeMessages,
		ConversationID: conversationID,
		Messages:       msgs,
		Timestamp:      time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- push:
	case <-h.quit:
	}
}

// ClientCount returns the number of subscribers of a conversation.
func (h *Hub) ClientCount(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
}

// Serve upgrades the request and subscribes the connection to conversationID.
// onClose runs once the connection is gone. It returns after the client is
// registered, so a following broadcast reaches it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, conversationID int64, onClose func()) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		conversationID: conversationID,
	}
	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go func() {
		client.readPump()
		if onClose != nil {
			onClose()
		}
	}()
	return nil
}

// readPump drains the connection so control frames are processed and a closed
// connection is noticed. Clients do not send data frames.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
