package websocket

import (
	"log/slog"
	"sync"
)

// Event is the wire envelope for every outbound message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Outbound event types.
const (
	EventRoomUpdate   = "room_update"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventGameState    = "game_state"
	EventRoomsList    = "rooms_list"
	EventLeaderboard  = "leaderboard"
	EventError        = "error"
)

type roomBroadcast struct {
	roomID    string
	excludeID string
	event     *Event
}

// Hub tracks every live connection and which room it currently belongs
// to, and fans events out accordingly. A client is registered on
// connect before it has a room; JoinRoom/LeaveRoom maintain the room
// index as registry membership changes.
type Hub struct {
	// All connected clients by client ID
	clients map[string]*Client

	// Room membership index: room ID -> client ID -> client
	rooms map[string]map[string]*Client

	// Protects clients and rooms
	mu sync.RWMutex

	// Register requests from new connections
	Register chan *Client

	// Unregister requests from closing connections
	Unregister chan *Client

	broadcast    chan *roomBroadcast
	broadcastAll chan *Event
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		rooms:        make(map[string]map[string]*Client),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		broadcast:    make(chan *roomBroadcast, 256),
		broadcastAll: make(chan *Event, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)
		case client := <-h.Unregister:
			h.handleUnregister(client)
		case b := <-h.broadcast:
			h.handleBroadcast(b)
		case event := <-h.broadcastAll:
			h.handleBroadcastAll(event)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	slog.Info("client registered", "client_id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.ID]; !exists {
		return
	}
	delete(h.clients, client.ID)
	h.removeFromRoom(client)
	close(client.send)
	slog.Info("client unregistered", "client_id", client.ID, "remaining_clients", len(h.clients))
}

// JoinRoom adds the client to a room's fan-out set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client)
	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
}

// LeaveRoom removes the client from its room's fan-out set, if any.
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(client)
}

// removeFromRoom must be called with mu held.
func (h *Hub) removeFromRoom(client *Client) {
	for roomID, room := range h.rooms {
		if _, ok := room[client.ID]; ok {
			delete(room, client.ID)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// RoomClientCount returns the number of live connections mapped to a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom queues an event for every connection in the room.
func (h *Hub) BroadcastToRoom(roomID string, event Event) {
	h.broadcast <- &roomBroadcast{roomID: roomID, event: &event}
}

// BroadcastToRoomExcept queues an event for every connection in the
// room except the named client.
func (h *Hub) BroadcastToRoomExcept(roomID, excludeClientID string, event Event) {
	h.broadcast <- &roomBroadcast{roomID: roomID, excludeID: excludeClientID, event: &event}
}

// BroadcastAll queues an event for every live connection.
func (h *Hub) BroadcastAll(event Event) {
	h.broadcastAll <- &event
}

func (h *Hub) handleBroadcast(b *roomBroadcast) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[b.roomID]
	if !exists {
		return
	}
	for id, client := range room {
		if id == b.excludeID {
			continue
		}
		h.trySend(client, b.event)
	}
}

func (h *Hub) handleBroadcastAll(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		h.trySend(client, event)
	}
}

// trySend must be called with mu held.
func (h *Hub) trySend(client *Client, event *Event) {
	select {
	case client.send <- event:
	default:
		slog.Warn("dropping event, client buffer full", "client_id", client.ID, "type", event.Type)
	}
}

// SendToClient delivers an event to a single connection.
func (h *Hub) SendToClient(client *Client, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, exists := h.clients[client.ID]; !exists {
		return
	}
	h.trySend(client, &event)
}

// SendError sends a scoped error event to one connection only, never
// broadcast.
func (h *Hub) SendError(client *Client, message string) {
	h.SendToClient(client, Event{
		Type:    EventError,
		Payload: map[string]string{"message": message},
	})
}
