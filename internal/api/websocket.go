package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chipzone/server/internal/auth"
	"github.com/chipzone/server/internal/streaming"
	"github.com/gorilla/websocket"
)

const (
	// Supported WebSocket protocol versions
	ProtocolVersion1 = "chipzone-v1"

	defaultPingInterval = 30 * time.Second
	pongWait            = 60 * time.Second
	writeTimeout        = 10 * time.Second
	maxMessageSize      = 16 * 1024
	replyBuffer         = 16
)

// WebSocketError represents an error message sent over WebSocket
type WebSocketError struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketConnection is one upgraded zone feed connection. Feed events
// arrive through client; replies to the client's own requests go through
// replies.
type WebSocketConnection struct {
	conn    *websocket.Conn
	client  *streaming.Client
	version string
	replies chan []byte
}

// WebSocketHandlers serves the zone change feed.
type WebSocketHandlers struct {
	hub        *streaming.Hub
	jwtService *auth.JWTService
	upgrader   websocket.Upgrader
}

// NewWebSocketHandlers creates a new WebSocket handlers instance
func NewWebSocketHandlers(hub *streaming.Hub, jwtService *auth.JWTService, allowedOrigins []string) *WebSocketHandlers {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &WebSocketHandlers{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// HandleWebSocket handles GET /ws/zones
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token, err := extractToken(r)
	if err != nil {
		log.Printf("[ZoneFeed] Authentication failed: %v", err)
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		log.Printf("[ZoneFeed] Token validation failed: %v", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	requestedVersions := r.Header.Get("Sec-WebSocket-Protocol")
	selectedVersion := negotiateVersion(requestedVersions)
	if selectedVersion == "" {
		log.Printf("[ZoneFeed] Version negotiation failed: requested=%s", requestedVersions)
		http.Error(w, "Unsupported protocol version", http.StatusBadRequest)
		return
	}

	plan, err := h.hub.Manager().PlanSubscription(claims.UserID, streaming.SubscriptionRequest{})
	if err != nil {
		log.Printf("[ZoneFeed] PlanSubscription failed: %v", err)
		http.Error(w, "Failed to create subscription", http.StatusInternalServerError)
		return
	}

	var responseHeaders http.Header
	if requestedVersions != "" {
		responseHeaders = http.Header{}
		responseHeaders.Set("Sec-WebSocket-Protocol", selectedVersion)
	}

	conn, err := h.upgrader.Upgrade(w, r, responseHeaders)
	if err != nil {
		h.hub.Manager().RemoveSubscription(plan.SubscriptionID)
		log.Printf("[ZoneFeed] Upgrade failed: %v", err)
		return
	}

	wsConn := &WebSocketConnection{
		conn:    conn,
		client:  streaming.NewClient(claims.UserID, plan.SubscriptionID),
		version: selectedVersion,
		replies: make(chan []byte, replyBuffer),
	}

	if !h.hub.Register(wsConn.client) {
		h.hub.Manager().RemoveSubscription(plan.SubscriptionID)
		if err := conn.Close(); err != nil {
			log.Printf("[ZoneFeed] Failed to close connection: %v", err)
		}
		return
	}

	wsConn.reply("", "welcome", subscriptionAck{SubscriptionID: plan.SubscriptionID, Version: selectedVersion})

	go wsConn.writePump()
	go wsConn.readPump(h)
}

// extractToken extracts JWT token from request (query param or header)
func extractToken(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
	}

	return "", fmt.Errorf("missing authentication token")
}

// negotiateVersion selects the highest supported protocol version
func negotiateVersion(requested string) string {
	if requested == "" {
		return ProtocolVersion1
	}

	requestedVersions := strings.Split(requested, ",")
	for i := range requestedVersions {
		requestedVersions[i] = strings.TrimSpace(requestedVersions[i])
	}

	supportedVersions := []string{ProtocolVersion1}
	for _, supported := range supportedVersions {
		for _, requested := range requestedVersions {
			if requested == supported {
				return supported
			}
		}
	}

	return ""
}

// readPump handles incoming messages from the WebSocket connection
func (c *WebSocketConnection) readPump(handlers *WebSocketHandlers) {
	defer func() {
		handlers.hub.Unregister(c.client)
		if err := c.conn.Close(); err != nil {
			log.Printf("[ZoneFeed] Failed to close connection: %v", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ZoneFeed] Failed to set read deadline: %v", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ZoneFeed] WebSocket error: %v", err)
			}
			break
		}

		var msg streaming.Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.sendError("", "Invalid message format", "InvalidMessageFormat")
			continue
		}

		handlers.handleMessage(c, &msg)
	}
}

// writePump handles outgoing messages to the WebSocket connection
func (c *WebSocketConnection) writePump() {
	ticker := time.NewTicker(defaultPingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			log.Printf("[ZoneFeed] Failed to close connection: %v", err)
		}
	}()

	events := c.client.Send()
	for {
		select {
		case message, ok := <-events:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					log.Printf("[ZoneFeed] Failed to write close message: %v", err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-c.replies:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketConnection) enqueue(message []byte) {
	select {
	case c.replies <- message:
	default:
		log.Printf("[ZoneFeed] Dropping reply for client %s: channel full", c.client.ID)
	}
}

func (c *WebSocketConnection) reply(id, messageType string, data interface{}) {
	message, err := streaming.EncodeMessage(messageType, id, data)
	if err != nil {
		log.Printf("[ZoneFeed] Failed to marshal %s response: %v", messageType, err)
		return
	}
	c.enqueue(message)
}

// sendError sends an error message to the client
func (c *WebSocketConnection) sendError(id, errorMsg, code string) {
	messageBytes, err := json.Marshal(WebSocketError{
		Type:    "error",
		ID:      id,
		Error:   errorMsg,
		Message: errorMsg,
		Code:    code,
	})
	if err != nil {
		log.Printf("[ZoneFeed] Failed to marshal error message: %v", err)
		return
	}
	c.enqueue(messageBytes)
}

type subscriptionAck struct {
	SubscriptionID string                        `json:"subscription_id"`
	Version        string                        `json:"version,omitempty"`
	Request        *streaming.SubscriptionRequest `json:"request,omitempty"`
}

// handleMessage routes messages to appropriate handlers
func (h *WebSocketHandlers) handleMessage(conn *WebSocketConnection, msg *streaming.Message) {
	switch msg.Type {
	case "ping":
		conn.reply(msg.ID, "pong", nil)
	case "subscribe":
		h.handleSubscribe(conn, msg)
	default:
		conn.sendError(msg.ID, "Unknown message type", "UnknownMessageType")
	}
}

// handleSubscribe replaces the connection's area and event filter.
func (h *WebSocketHandlers) handleSubscribe(conn *WebSocketConnection, msg *streaming.Message) {
	var req streaming.SubscriptionRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			conn.sendError(msg.ID, "Invalid subscribe payload", "InvalidMessageFormat")
			return
		}
	}

	plan, err := h.hub.Manager().UpdateSubscription(conn.client.UserID, conn.client.SubscriptionID, req)
	if err != nil {
		log.Printf("[ZoneFeed] UpdateSubscription failed for client %s: %v", conn.client.ID, err)
		conn.sendError(msg.ID, err.Error(), "InvalidSubscriptionRequest")
		return
	}

	conn.reply(msg.ID, "subscribed", subscriptionAck{SubscriptionID: plan.SubscriptionID, Request: &plan.Request})
}
