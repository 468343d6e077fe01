// internal/handlers/websocket_handler.go

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	ws "github.com/finebank/investquest/internal/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins before exposing this publicly
		return true
	},
}

type WebSocketHandler struct {
	hub         *ws.Hub
	gameHandler *GameHandler
}

func NewWebSocketHandler(hub *ws.Hub, gameHandler *GameHandler) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		gameHandler: gameHandler,
	}
}

// HandleConnection upgrades the request and starts the client's pumps.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade connection", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := ws.NewClient(h.hub, conn, clientID)
	client.SetMessageHandler(h.gameHandler.HandleMessage)
	client.SetCloseHandler(h.gameHandler.HandleDisconnect)

	h.hub.Register <- client

	go client.ReadPump()
	go client.WritePump()

	slog.Info("websocket connection established", "client_id", clientID)
}

// RegisterRoutes registers the websocket endpoint.
func (h *WebSocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleConnection)
}
