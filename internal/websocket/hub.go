// Package websocket runs the relay's event loop: one hub goroutine drains
// connection registration, disconnects, and inbound protocol events, so
// every registry mutation and its fan-out happen as one atomic step and
// room members always observe events in submission order.
package websocket

import (
	"errors"
	"strings"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/internal/session"
	"chat-relay/pkg/logger"
)

type inboundEvent struct {
	client *Client
	env    models.Envelope
}

// Hub owns the set of live connections and routes every event between
// them and the room registry. It never reaches into room internals beyond
// the registry's API, and nothing mutates the registry except through it.
type Hub struct {
	registry *services.Registry
	binder   *session.Binder

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	shutdown   chan struct{}
	done       chan struct{}
}

func NewHub(registry *services.Registry, binder *session.Binder) *Hub {
	return &Hub{
		registry:   registry,
		binder:     binder,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register hands a freshly upgraded connection to the hub loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a connection, cleaning up any room binding it held.
// Safe to call more than once; called by the read pump on any disconnect.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch queues one inbound event for processing.
func (h *Hub) Dispatch(c *Client, env models.Envelope) {
	select {
	case h.inbound <- inboundEvent{client: c, env: env}:
	case <-h.done:
	}
}

// Shutdown stops the loop and closes every client's send channel.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// Run drains the hub's channels until Shutdown. Each arm completes fully
// before the next event is taken, which is what serializes concurrent
// joins, leaves, and messages against the registry.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.shutdown:
			for _, c := range h.clients {
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c.id] = c
			logger.Debug("Connection %s registered. Total connections: %d", c.id, len(h.clients))

		case c := <-h.unregister:
			h.handleDisconnect(c)

		case ev := <-h.inbound:
			h.handleEvent(ev.client, ev.env)
		}
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	binding, ok := h.binder.Unbind(c.id)
	if !ok {
		return
	}
	// Leave the room only if this connection is still the member's live
	// one; a reconnect may already have rebound the identity elsewhere.
	if conn, ok := h.registry.MemberConn(binding.RoomCode, binding.ParticipantID); ok && conn == c.id {
		h.departRoom(binding.RoomCode, binding.ParticipantID)
	}
	logger.Debug("Connection %s unbound from room %s", c.id, binding.RoomCode)
}

func (h *Hub) handleEvent(c *Client, env models.Envelope) {
	switch env.Type {
	case models.EventCreateRoom:
		h.handleCreateRoom(c, env)
	case models.EventJoinRoom:
		h.handleJoinRoom(c, env)
	case models.EventLeaveRoom:
		h.handleLeaveRoom(c, env)
	case models.EventSendMessage:
		h.handleSendMessage(c, env)
	case models.EventTyping:
		h.handleTyping(c, env, models.EventUserTyping)
	case models.EventStopTyping:
		h.handleTyping(c, env, models.EventUserStopTyping)
	default:
		h.sendError(c, &models.ProtocolError{Event: env.Type, Reason: "unknown event type"})
	}
}

func (h *Hub) handleCreateRoom(c *Client, env models.Envelope) {
	var p models.CreateRoomPayload
	if err := models.DecodePayload(env, &p); err != nil {
		h.sendError(c, err)
		return
	}

	// Creating a room while bound elsewhere implicitly leaves first.
	if prev, ok := h.binder.Lookup(c.id); ok {
		h.departRoom(prev.RoomCode, prev.ParticipantID)
	}

	code, members, err := h.registry.CreateRoom(models.Participant{
		ID:     p.ParticipantID,
		Name:   p.ParticipantName,
		ConnID: c.id,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}

	h.binder.Bind(c.id, session.Binding{RoomCode: code, ParticipantID: p.ParticipantID})
	h.sendEvent(c, models.EventRoomCreated, models.RoomCreatedPayload{RoomCode: code, Members: members})
	logger.Info("Room %s created by %s", code, p.ParticipantName)
}

func (h *Hub) handleJoinRoom(c *Client, env models.Envelope) {
	var p models.JoinRoomPayload
	if err := models.DecodePayload(env, &p); err != nil {
		h.sendError(c, err)
		return
	}
	code := strings.ToUpper(p.RoomCode)

	members, history, err := h.registry.JoinRoom(code, models.Participant{
		ID:     p.ParticipantID,
		Name:   p.ParticipantName,
		ConnID: c.id,
	})
	if errors.Is(err, services.ErrRoomNotFound) {
		h.sendEvent(c, models.EventRoomNotFound, models.RoomNotFoundPayload{RoomCode: code})
		return
	}

	prev, wasBound := h.binder.Bind(c.id, session.Binding{RoomCode: code, ParticipantID: p.ParticipantID})
	if wasBound && prev.RoomCode != code {
		h.departRoom(prev.RoomCode, prev.ParticipantID)
	}

	h.sendEvent(c, models.EventRoomJoined, models.RoomJoinedPayload{RoomCode: code, Members: members})
	if len(history) > 0 {
		h.sendEvent(c, models.EventChatHistory, models.ChatHistoryPayload{RoomCode: code, Messages: history})
	}
	h.broadcast(code, c.id, models.EventUserJoined, models.UserNoticePayload{RoomCode: code, Username: p.ParticipantName})
	h.broadcast(code, "", models.EventMembersUpdate, models.MembersUpdatePayload{RoomCode: code, Members: members})
	logger.Info("%s joined room %s (%d members)", p.ParticipantName, code, len(members))
}

func (h *Hub) handleLeaveRoom(c *Client, env models.Envelope) {
	var p models.LeaveRoomPayload
	if err := models.DecodePayload(env, &p); err != nil {
		h.sendError(c, err)
		return
	}
	code := strings.ToUpper(p.RoomCode)

	if binding, ok := h.binder.Lookup(c.id); ok &&
		binding.RoomCode == code && binding.ParticipantID == p.ParticipantID {
		h.binder.Unbind(c.id)
	}
	h.departRoom(code, p.ParticipantID)
}

func (h *Hub) handleSendMessage(c *Client, env models.Envelope) {
	var p models.SendMessagePayload
	if err := models.DecodePayload(env, &p); err != nil {
		h.sendError(c, err)
		return
	}
	code := strings.ToUpper(p.RoomCode)

	msg := models.Message{
		SenderID:   p.ParticipantID,
		SenderName: p.ParticipantName,
		Body:       p.Body,
		Timestamp:  time.Now(),
	}
	if err := h.registry.AppendMessage(code, msg); err != nil {
		h.sendEvent(c, models.EventRoomNotFound, models.RoomNotFoundPayload{RoomCode: code})
		return
	}
	h.broadcast(code, "", models.EventNewMessage, msg)
}

func (h *Hub) handleTyping(c *Client, env models.Envelope, notice models.EventType) {
	var p models.TypingPayload
	if err := models.DecodePayload(env, &p); err != nil {
		h.sendError(c, err)
		return
	}
	code := strings.ToUpper(p.RoomCode)

	binding, ok := h.binder.Lookup(c.id)
	if !ok || binding.RoomCode != code {
		return
	}
	name, ok := h.registry.MemberName(code, binding.ParticipantID)
	if !ok {
		return
	}
	h.broadcast(code, c.id, notice, models.UserNoticePayload{RoomCode: code, Username: name})
}

// departRoom removes a membership record and tells whoever is left. When
// the last member goes the registry deletes the room and there is nobody
// to notify.
func (h *Hub) departRoom(code, participantID string) {
	name, _ := h.registry.MemberName(code, participantID)
	members, removed := h.registry.LeaveRoom(code, participantID)
	if !removed || members == nil {
		return
	}
	h.broadcast(code, "", models.EventMembersUpdate, models.MembersUpdatePayload{RoomCode: code, Members: members})
	h.broadcast(code, "", models.EventUserLeft, models.UserNoticePayload{RoomCode: code, Username: name})
}

// broadcast fans one event out to every connection bound to the room,
// minus exceptConn when set. Delivery to a dead connection is dropped
// silently; it never blocks the loop or the other members.
func (h *Hub) broadcast(code, exceptConn string, t models.EventType, payload interface{}) {
	data, err := models.NewEvent(t, payload)
	if err != nil {
		logger.Error("Error marshaling %s event: %v", t, err)
		return
	}
	for _, connID := range h.registry.Connections(code) {
		if connID == exceptConn {
			continue
		}
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		if !client.enqueue(data) {
			logger.Debug("Dropped %s event for slow connection %s", t, connID)
		}
	}
}

func (h *Hub) sendEvent(c *Client, t models.EventType, payload interface{}) {
	data, err := models.NewEvent(t, payload)
	if err != nil {
		logger.Error("Error marshaling %s event: %v", t, err)
		return
	}
	c.enqueue(data)
}

func (h *Hub) sendError(c *Client, err error) {
	payload := models.ErrorPayload{Reason: err.Error()}
	var pe *models.ProtocolError
	if errors.As(err, &pe) {
		payload = models.ErrorPayload{Event: pe.Event, Reason: pe.Reason}
	}
	h.sendEvent(c, models.EventError, payload)
}
