package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains activity_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// activityID -> map[clientID]*Client
	activities map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per activity
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishActivityEvent(activityID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to activity channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeActivity(activityID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		activities: make(map[uuid.UUID]map[string]*Client),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
	}
}

// Register adds a client to an activity room. Starts the Redis subscription
// for this activity if it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.activities[c.ActivityID] == nil {
		h.activities[c.ActivityID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeActivity(c.ActivityID, func(event string, payload []byte) {
				h.BroadcastToActivity(c.ActivityID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ActivityID] = cancel
			}
		}
	}
	h.activities[c.ActivityID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined activity room", zap.String("client_id", c.ID), zap.String("activity_id", c.ActivityID.String()))
}

// Unregister removes a client from an activity room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.activities[c.ActivityID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.activities, c.ActivityID)
			if cancel, ok := h.subs[c.ActivityID]; ok {
				cancel()
				delete(h.subs, c.ActivityID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left activity room", zap.String("client_id", c.ID), zap.String("activity_id", c.ActivityID.String()))
}

// BroadcastToActivity sends a message to all clients in an activity room (local only).
func (h *Hub) BroadcastToActivity(activityID uuid.UUID, event string, payload interface{}) {
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

	h.mu.RLock()
	clients := h.activities[activityID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishToActivity publishes to Redis only, so the subscriber callback
// performs the broadcast once for all instances (including this one) without
// duplicate delivery to local clients. Falls back to a local broadcast when
// Redis is not wired.
func (h *Hub) PublishToActivity(activityID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishActivityEvent(activityID, event, data)
		return
	}
	h.BroadcastToActivity(activityID, event, payload)
}

// ViewerCount returns the number of connected clients in an activity room.
func (h *Hub) ViewerCount(activityID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.activities[activityID])
}
