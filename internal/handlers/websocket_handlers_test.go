package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/internal/session"
	ws "chat-relay/internal/websocket"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := services.NewRegistry(services.NewCodeGenerator(4, 10), services.HistoryPolicy{Retain: true})
	hub := ws.NewHub(registry, session.NewBinder())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	h := NewWebSocketHandlers(hub, 64)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/healthz", h.HandleHealth)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, typ models.EventType, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(models.Envelope{Type: typ, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env models.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHandleWebSocket_CreateAndJoinOverWire(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	connA := dialWS(t, srv)
	writeEvent(t, connA, models.EventCreateRoom, models.CreateRoomPayload{
		ParticipantID: "a", ParticipantName: "Alice",
	})

	env := readEvent(t, connA)
	req.Equal(models.EventRoomCreated, env.Type)
	var created models.RoomCreatedPayload
	req.NoError(json.Unmarshal(env.Payload, &created))
	req.Len(created.RoomCode, 4)

	connB := dialWS(t, srv)
	writeEvent(t, connB, models.EventJoinRoom, models.JoinRoomPayload{
		RoomCode: created.RoomCode, ParticipantID: "b", ParticipantName: "Bob",
	})

	env = readEvent(t, connB)
	req.Equal(models.EventRoomJoined, env.Type)
	var joined models.RoomJoinedPayload
	req.NoError(json.Unmarshal(env.Payload, &joined))
	req.Len(joined.Members, 2)

	// Alice is told someone arrived.
	env = readEvent(t, connA)
	req.Equal(models.EventUserJoined, env.Type)
}

func TestHandleWebSocket_MalformedEnvelope(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	env := readEvent(t, conn)
	req.Equal(models.EventError, env.Type)
}

func TestHandleWebSocket_DisconnectCleansUp(t *testing.T) {
	req := require.New(t)
	srv := startTestServer(t)

	connA := dialWS(t, srv)
	writeEvent(t, connA, models.EventCreateRoom, models.CreateRoomPayload{
		ParticipantID: "a", ParticipantName: "Alice",
	})
	env := readEvent(t, connA)
	var created models.RoomCreatedPayload
	req.NoError(json.Unmarshal(env.Payload, &created))

	connB := dialWS(t, srv)
	writeEvent(t, connB, models.EventJoinRoom, models.JoinRoomPayload{
		RoomCode: created.RoomCode, ParticipantID: "b", ParticipantName: "Bob",
	})
	readEvent(t, connB) // room_joined

	// Drop Bob's socket without a leave_room; Alice still gets the
	// membership updates, as if he had left politely.
	readEvent(t, connA) // user_joined
	readEvent(t, connA) // members_update
	connB.Close()

	env = readEvent(t, connA)
	req.Equal(models.EventMembersUpdate, env.Type)
	var update models.MembersUpdatePayload
	req.NoError(json.Unmarshal(env.Payload, &update))
	req.Len(update.Members, 1)
}

func TestHandleHealth(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
