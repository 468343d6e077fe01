// internal/handlers/game_handler.go

package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/service"
	"github.com/finebank/investquest/internal/websocket"
)

// Inbound message types. The set is closed; anything else gets an
// error event back.
const (
	EventCreateRoom   = "create_room"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventPlayerReady  = "player_ready"
	EventStartGame    = "start_game"
	EventSubmitAnswer = "submit_answer"
	EventRoomsList    = "rooms_list"
	EventLeaderboard  = "leaderboard"
)

// Payloads, one struct per inbound message type.

type CreateRoomData struct {
	PlayerName     string            `json:"playerName"`
	RoomName       string            `json:"roomName"`
	Categories     []models.Category `json:"categories"`
	Difficulty     models.Difficulty `json:"difficulty"`
	TotalQuestions int               `json:"totalQuestions"`
}

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type SubmitAnswerData struct {
	Answer int `json:"answer"`
}

// GameHandler routes inbound websocket messages to the room registry
// and the game state machine, and answers the poll message types.
type GameHandler struct {
	roomService        *service.RoomService
	gameService        *service.GameService
	leaderboardService *service.LeaderboardService
	hub                *websocket.Hub
}

func NewGameHandler(
	roomService *service.RoomService,
	gameService *service.GameService,
	leaderboardService *service.LeaderboardService,
	hub *websocket.Hub,
) *GameHandler {
	return &GameHandler{
		roomService:        roomService,
		gameService:        gameService,
		leaderboardService: leaderboardService,
		hub:                hub,
	}
}

// HandleMessage processes one inbound websocket message. It runs on
// the connection's read goroutine, so a connection's own events are
// naturally ordered.
func (h *GameHandler) HandleMessage(client *websocket.Client, message []byte) {
	var envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(message, &envelope); err != nil {
		h.hub.SendError(client, "Invalid message format")
		return
	}

	slog.Debug("message received", "type", envelope.Type, "client_id", client.ID)

	switch envelope.Type {
	case EventCreateRoom:
		h.handleCreateRoom(client, envelope.Payload)
	case EventJoinRoom:
		h.handleJoinRoom(client, envelope.Payload)
	case EventLeaveRoom:
		h.roomService.LeaveRoom(client)
	case EventPlayerReady:
		h.roomService.ToggleReady(client)
	case EventStartGame:
		h.handleStartGame(client)
	case EventSubmitAnswer:
		h.handleSubmitAnswer(client, envelope.Payload)
	case EventRoomsList:
		h.roomService.SendRoomsList(client)
	case EventLeaderboard:
		h.leaderboardService.SendLeaderboard(client)
	default:
		h.hub.SendError(client, "Unknown message type")
	}
}

// HandleDisconnect treats a dropped connection exactly like an
// explicit leave_room request.
func (h *GameHandler) HandleDisconnect(client *websocket.Client) {
	h.roomService.LeaveRoom(client)
}

func (h *GameHandler) handleCreateRoom(client *websocket.Client, payload json.RawMessage) {
	var data CreateRoomData
	if err := json.Unmarshal(payload, &data); err != nil {
		h.hub.SendError(client, "Invalid create_room payload")
		return
	}

	room, player, err := h.roomService.CreateRoom(client, data.PlayerName, data.RoomName,
		data.Categories, data.Difficulty, data.TotalQuestions)
	if err != nil {
		h.hub.SendError(client, err.Error())
		return
	}

	h.hub.SendToClient(client, websocket.Event{
		Type:    websocket.EventRoomUpdate,
		Payload: map[string]interface{}{"room": room, "playerId": player.ID},
	})
}

func (h *GameHandler) handleJoinRoom(client *websocket.Client, payload json.RawMessage) {
	var data JoinRoomData
	if err := json.Unmarshal(payload, &data); err != nil {
		h.hub.SendError(client, "Invalid join_room payload")
		return
	}

	room, player, err := h.roomService.JoinRoom(client, data.RoomID, data.PlayerName)
	if err != nil {
		h.hub.SendError(client, err.Error())
		return
	}

	h.hub.SendToClient(client, websocket.Event{
		Type:    websocket.EventRoomUpdate,
		Payload: map[string]interface{}{"room": room, "playerId": player.ID},
	})
}

func (h *GameHandler) handleStartGame(client *websocket.Client) {
	if err := h.gameService.StartGame(client); err != nil {
		h.hub.SendError(client, err.Error())
	}
}

func (h *GameHandler) handleSubmitAnswer(client *websocket.Client, payload json.RawMessage) {
	var data SubmitAnswerData
	if err := json.Unmarshal(payload, &data); err != nil {
		h.hub.SendError(client, "Invalid submit_answer payload")
		return
	}

	// Late or duplicate submissions are dropped inside the service;
	// no response is owed for them.
	h.gameService.SubmitAnswer(client, data.Answer)
}
