package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	ws "chat-relay/internal/websocket"
	"chat-relay/pkg/logger"
)

type WebSocketHandlers struct {
	hub        *ws.Hub
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewWebSocketHandlers(hub *ws.Hub, sendBuffer int) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:        hub,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// hub. Identity and room intent arrive later as protocol events, so the
// upgrade itself carries no parameters.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, h.sendBuffer)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleHealth is a liveness probe.
func (h *WebSocketHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
