package service

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/websocket"
)

// MaxRoomPlayers caps room membership.
const MaxRoomPlayers = 6

const (
	minTotalQuestions = 5
	maxTotalQuestions = 30
)

// roomEntry pairs a room with the mutex that serializes every
// mutation touching it, client events and timer callbacks alike.
type roomEntry struct {
	mu      sync.Mutex
	room    *models.Room
	deleted bool
}

// RoomService owns the set of rooms and their membership lifecycle.
// The registry map has its own lock; each room has its own. No
// operation on one room ever blocks another room.
type RoomService struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
	hub   *websocket.Hub

	// Invoked after a room is removed so the game layer can cancel
	// any timers still scheduled for it.
	onRoomDeleted func(roomID string)
}

func NewRoomService(hub *websocket.Hub) *RoomService {
	return &RoomService{
		rooms: make(map[string]*roomEntry),
		hub:   hub,
	}
}

// SetRoomDeletedHandler registers the cleanup hook called when a room
// is deleted. Set once at wiring time.
func (s *RoomService) SetRoomDeletedHandler(fn func(roomID string)) {
	s.onRoomDeleted = fn
}

// WithRoom runs fn with the room's lock held, or returns
// ErrRoomNotFound if the room does not exist anymore. This is the
// serialization point every game mutation goes through; a timer
// callback racing a deletion finds the room gone here and becomes a
// no-op.
func (s *RoomService) WithRoom(roomID string, fn func(room *models.Room) error) error {
	s.mu.RLock()
	entry, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return ErrRoomNotFound
	}
	return fn(entry.room)
}

// CreateRoom validates settings, creates the room with the caller as
// host, and registers the connection with it.
func (s *RoomService) CreateRoom(client *websocket.Client, playerName, roomName string, categories []models.Category, difficulty models.Difficulty, totalQuestions int) (*models.Room, *models.Player, error) {
	if n := utf8.RuneCountInString(playerName); n < 2 || n > 20 {
		return nil, nil, ErrPlayerName
	}
	if n := utf8.RuneCountInString(roomName); n < 3 || n > 30 {
		return nil, nil, ErrRoomName
	}
	if len(categories) == 0 {
		return nil, nil, ErrNoCategories
	}
	for _, c := range categories {
		if !c.Valid() {
			return nil, nil, ErrUnknownCategory
		}
	}
	if !difficulty.Valid() {
		return nil, nil, ErrInvalidDifficulty
	}
	if totalQuestions < minTotalQuestions || totalQuestions > maxTotalQuestions {
		return nil, nil, ErrQuestionCount
	}

	player := &models.Player{
		ID:   client.ID,
		Name: playerName,
	}
	room := &models.Room{
		ID:                 generateRoomID(),
		Name:               roomName,
		HostID:             player.ID,
		Players:            []*models.Player{player},
		Status:             models.RoomWaiting,
		TotalQuestions:     totalQuestions,
		SelectedCategories: append([]models.Category(nil), categories...),
		Difficulty:         difficulty,
		CreatedAt:          time.Now().UnixMilli(),
	}

	s.mu.Lock()
	for {
		if _, taken := s.rooms[room.ID]; !taken {
			break
		}
		room.ID = generateRoomID()
	}
	s.rooms[room.ID] = &roomEntry{room: room}
	snapshot := room.Snapshot()
	s.mu.Unlock()

	client.RoomID = room.ID
	client.Username = playerName
	s.hub.JoinRoom(client, room.ID)
	s.BroadcastRoomsList()

	slog.Info("room created", "room_id", room.ID, "name", roomName, "host", playerName)
	return snapshot, player, nil
}

// JoinRoom appends a player to a waiting room and notifies the
// existing members.
func (s *RoomService) JoinRoom(client *websocket.Client, roomID, playerName string) (*models.Room, *models.Player, error) {
	if n := utf8.RuneCountInString(playerName); n < 2 || n > 20 {
		return nil, nil, ErrPlayerName
	}

	player := &models.Player{
		ID:   client.ID,
		Name: playerName,
	}

	var snapshot *models.Room
	err := s.WithRoom(roomID, func(room *models.Room) error {
		if room.Status != models.RoomWaiting {
			return ErrGameInProgress
		}
		if len(room.Players) >= MaxRoomPlayers {
			return ErrRoomFull
		}
		room.Players = append(room.Players, player)
		snapshot = room.Snapshot()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	client.RoomID = roomID
	client.Username = playerName
	s.hub.JoinRoom(client, roomID)

	s.hub.BroadcastToRoomExcept(roomID, client.ID, websocket.Event{
		Type:    websocket.EventPlayerJoined,
		Payload: map[string]interface{}{"player": player, "room": snapshot},
	})
	s.BroadcastRoomsList()

	slog.Info("player joined room", "room_id", roomID, "player", playerName)
	return snapshot, player, nil
}

// LeaveRoom removes the calling connection's player from its room.
// Idempotent: leaving twice, or while not in any room, is a no-op.
// When the last player leaves the room is deleted immediately;
// otherwise host departure promotes the next player in join order.
func (s *RoomService) LeaveRoom(client *websocket.Client) {
	roomID := client.RoomID
	if roomID == "" {
		return
	}

	s.mu.RLock()
	entry, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		client.RoomID = ""
		s.hub.LeaveRoom(client)
		return
	}

	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		client.RoomID = ""
		s.hub.LeaveRoom(client)
		return
	}

	room := entry.room
	idx := -1
	for i, p := range room.Players {
		if p.ID == client.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		entry.mu.Unlock()
		client.RoomID = ""
		s.hub.LeaveRoom(client)
		return
	}

	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	s.hub.LeaveRoom(client)
	client.RoomID = ""

	if len(room.Players) == 0 {
		entry.deleted = true
		entry.mu.Unlock()

		s.mu.Lock()
		delete(s.rooms, roomID)
		s.mu.Unlock()

		if s.onRoomDeleted != nil {
			s.onRoomDeleted(roomID)
		}
		slog.Info("room deleted", "room_id", roomID)
	} else {
		if room.HostID == client.ID {
			room.HostID = room.Players[0].ID
			slog.Info("host migrated", "room_id", roomID, "new_host", room.HostID)
		}
		snapshot := room.Snapshot()
		entry.mu.Unlock()

		s.hub.BroadcastToRoom(roomID, websocket.Event{
			Type:    websocket.EventPlayerLeft,
			Payload: map[string]interface{}{"playerId": client.ID, "room": snapshot},
		})
	}

	s.BroadcastRoomsList()
	slog.Info("player left room", "room_id", roomID, "player", client.Username)
}

// ToggleReady flips the calling player's ready flag and broadcasts the
// updated room. The host's flag carries no meaning for start
// eligibility but is tracked like any other.
func (s *RoomService) ToggleReady(client *websocket.Client) {
	roomID := client.RoomID
	if roomID == "" {
		return
	}

	var snapshot *models.Room
	err := s.WithRoom(roomID, func(room *models.Room) error {
		player := room.FindPlayer(client.ID)
		if player == nil {
			return ErrRoomNotFound
		}
		player.IsReady = !player.IsReady
		snapshot = room.Snapshot()
		return nil
	})
	if err != nil {
		return
	}

	s.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:    websocket.EventRoomUpdate,
		Payload: map[string]interface{}{"room": snapshot},
	})
}

// ListWaitingRooms returns summaries of rooms still accepting players.
func (s *RoomService) ListWaitingRooms() []models.RoomSummary {
	s.mu.RLock()
	entries := make([]*roomEntry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	summaries := make([]models.RoomSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.room.Status == models.RoomWaiting {
			summaries = append(summaries, models.RoomSummary{
				ID:          e.room.ID,
				Name:        e.room.Name,
				PlayerCount: len(e.room.Players),
				MaxPlayers:  MaxRoomPlayers,
				Difficulty:  e.room.Difficulty,
				Categories:  append([]models.Category(nil), e.room.SelectedCategories...),
			})
		}
		e.mu.Unlock()
	}
	return summaries
}

// RoomCount returns the number of waiting rooms, for the stats endpoint.
func (s *RoomService) RoomCount() int {
	return len(s.ListWaitingRooms())
}

// BroadcastRoomsList pushes the waiting-rooms list to every live
// connection. Must not be called while holding a room lock.
func (s *RoomService) BroadcastRoomsList() {
	s.hub.BroadcastAll(websocket.Event{
		Type:    websocket.EventRoomsList,
		Payload: s.ListWaitingRooms(),
	})
}

// SendRoomsList answers a single connection's rooms_list poll.
func (s *RoomService) SendRoomsList(client *websocket.Client) {
	s.hub.SendToClient(client, websocket.Event{
		Type:    websocket.EventRoomsList,
		Payload: s.ListWaitingRooms(),
	})
}

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateRoomID() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = roomIDAlphabet[rand.Intn(len(roomIDAlphabet))]
	}
	return string(code)
}
