package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait (seconds) drive the heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// PresenceHandler is called when a client joins or leaves a session room
// (e.g. to maintain participant rows).
type PresenceHandler func(sessionID, userID uuid.UUID)

// Hub maintains session_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish so
// every instance's watchers see waiting-room and quality changes.
type Hub struct {
	// sessionID -> map[clientID]*Client
	sessions map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per session
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    Publisher
	redisSub Subscriber
	onJoin   PresenceHandler
	onLeave  PresenceHandler
}

// Publisher publishes session events to Redis for cross-instance broadcast.
type Publisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to session channels and invokes handler for incoming
// events.
type Subscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    pub,
		redisSub: sub,
	}
}

// SetPresenceHandlers sets the join/leave callbacks.
func (h *Hub) SetPresenceHandlers(onJoin, onLeave PresenceHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Register adds a client to a session room. Starts the Redis subscription for
// this session on first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(c.SessionID, func(event string, payload []byte) {
				h.Broadcast(c.SessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.SessionID] = cancel
			}
		}
	}
	h.sessions[c.SessionID][c.ID] = c
	onJoin := h.onJoin
	h.mu.Unlock()
	if onJoin != nil {
		onJoin(c.SessionID, c.UserID)
	}
	h.logger.Debug("client joined session",
		zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Unregister removes a client from a session room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.sessions[c.SessionID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	onLeave := h.onLeave
	h.mu.Unlock()
	if onLeave != nil {
		onLeave(c.SessionID, c.UserID)
	}
	h.logger.Debug("client left session",
		zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Broadcast sends a message to all local clients in a session.
func (h *Hub) Broadcast(sessionID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot under the lock: Register/Unregister mutate the inner map and
	// iterating it concurrently is a fatal runtime error.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// NotifySession sends to local clients and publishes to Redis for other
// instances. This is the change-notification path for waiting-room
// transitions and quality updates.
func (h *Hub) NotifySession(sessionID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(sessionID, event, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, event, data)
	}
}

// WatcherCount returns the number of connected clients in a session room.
func (h *Hub) WatcherCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
