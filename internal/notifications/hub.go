package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"arcanum/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per content room
	maxConnsPerRoom = 256
	// Max total connections
	maxTotalConns = 10000
)

// EngagementHub maps contentID -> set of websocket clients watching that
// content's live engagement stream.
type EngagementHub struct {
	mu         sync.RWMutex
	rooms      map[uint]map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
}

// NewEngagementHub creates a hub with no rooms.
func NewEngagementHub() *EngagementHub {
	return &EngagementHub{
		rooms:    make(map[uint]map[*Client]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds a connection to a content room. Returns the Client or an
// error if limits are exceeded.
func (h *EngagementHub) Register(contentID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	room, ok := h.rooms[contentID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[contentID] = room
	}
	if len(room) >= maxConnsPerRoom {
		h.mu.Unlock()
		return nil, errors.New("room connection limit reached")
	}

	client := NewClient(h, conn, contentID)
	room[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketRoomConnections.WithLabelValues(strconv.FormatUint(uint64(contentID), 10)).Inc()
	return client, nil
}

// UnregisterClient removes a client from its room.
func (h *EngagementHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[client.ContentID]; ok {
		if _, exists := room[client]; exists {
			delete(room, client)
			h.totalConns--
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, client.ContentID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketRoomConnections.WithLabelValues(strconv.FormatUint(uint64(client.ContentID), 10)).Dec()
	}
}

// Broadcast sends a message to every client in one content room.
func (h *EngagementHub) Broadcast(contentID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[contentID]; ok {
		data := []byte(message)
		for c := range room {
			c.TrySend(data)
		}
	}
}

// RoomSize reports the number of clients watching a content room.
func (h *EngagementHub) RoomSize(contentID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[contentID])
}

// StartWiring connects the publisher to this hub: it subscribes to the Redis
// channel pattern and forwards payloads into the matching room.
func (h *EngagementHub) StartWiring(ctx context.Context, p *Publisher) error {
	return p.StartPatternSubscriber(ctx, func(channel, payload string) {
		var contentID uint
		if _, err := fmt.Sscanf(channel, channelPrefix+"%d", &contentID); err != nil {
			log.Printf("invalid engagement channel: %s", channel)
			return
		}
		h.Broadcast(contentID, payload)
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *EngagementHub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	h.mu.Lock()
	for contentID, room := range h.rooms {
		for client := range room {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for content %d: %v", contentID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for content %d: %v", contentID, err)
			}
		}
	}
	h.rooms = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()

	close(h.done)
	return nil
}
