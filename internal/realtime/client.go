package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/quality"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ConnectionStateHandler is called when a client reports a connection state
// change (reconnecting, connected).
type ConnectionStateHandler func(sessionID, userID uuid.UUID, state string)

// Client represents a single WebSocket connection in a session room.
type Client struct {
	ID        string
	SessionID uuid.UUID
	UserID    uuid.UUID
	Role      string
	hub       *Hub
	monitor   *quality.Monitor
	onState   ConnectionStateHandler
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The token
// arrives as a query parameter since browsers cannot set headers on WS dials.
func ServeWs(hub *Hub, monitor *quality.Monitor, logger *zap.Logger,
	jwtValidate func(token string) (userID, role string, err error),
	onState ConnectionStateHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionIDStr := c.Query("session_id")
		token := c.Query("token")
		if sessionIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and token required"})
			return
		}
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session_id"})
			return
		}
		userIDStr, role, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, _ := uuid.Parse(userIDStr)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      role,
			hub:       hub,
			monitor:   monitor,
			onState:   onState,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		if c.monitor != nil {
			c.monitor.Forget(c.SessionID, c.UserID)
		}
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "quality_sample":
			// Live telemetry from this participant; classify and fan the
			// result out to everyone watching the session.
			if c.monitor == nil {
				continue
			}
			var sample quality.Sample
			if err := json.Unmarshal(msg.Data, &sample); err != nil {
				continue
			}
			status := c.monitor.Observe(c.SessionID, c.UserID, sample)
			c.hub.NotifySession(c.SessionID, "quality_update", status)
		case "connection_state":
			var payload struct {
				State string `json:"state"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.State == "" {
				continue
			}
			if c.onState != nil {
				c.onState(c.SessionID, c.UserID, payload.State)
			}
			c.hub.NotifySession(c.SessionID, "participant_update", map[string]string{
				"user_id": c.UserID.String(),
				"state":   payload.State,
			})
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
