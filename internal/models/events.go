package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type EventType string

// Client -> server events.
const (
	EventCreateRoom  EventType = "create_room"
	EventJoinRoom    EventType = "join_room"
	EventLeaveRoom   EventType = "leave_room"
	EventSendMessage EventType = "send_message"
	EventTyping      EventType = "typing"
	EventStopTyping  EventType = "stop_typing"
)

// Server -> client events.
const (
	EventRoomCreated    EventType = "room_created"
	EventRoomJoined     EventType = "room_joined"
	EventRoomNotFound   EventType = "room_not_found"
	EventMembersUpdate  EventType = "members_update"
	EventNewMessage     EventType = "new_message"
	EventChatHistory    EventType = "chat_history"
	EventUserJoined     EventType = "user_joined"
	EventUserLeft       EventType = "user_left"
	EventUserTyping     EventType = "user_typing"
	EventUserStopTyping EventType = "user_stop_typing"
	EventError          EventType = "error"
)

// Envelope is the framing for every event on the wire: a type tag plus the
// raw payload, decoded into one of the typed payload structs below.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomPayload struct {
	ParticipantID   string `json:"participantId" validate:"required"`
	ParticipantName string `json:"participantName" validate:"required,max=64"`
}

type JoinRoomPayload struct {
	RoomCode        string `json:"roomCode" validate:"required,alphanum"`
	ParticipantID   string `json:"participantId" validate:"required"`
	ParticipantName string `json:"participantName" validate:"required,max=64"`
}

type LeaveRoomPayload struct {
	RoomCode      string `json:"roomCode" validate:"required,alphanum"`
	ParticipantID string `json:"participantId" validate:"required"`
}

type SendMessagePayload struct {
	RoomCode        string `json:"roomCode" validate:"required,alphanum"`
	ParticipantID   string `json:"participantId" validate:"required"`
	ParticipantName string `json:"participantName" validate:"required,max=64"`
	Body            string `json:"body" validate:"required,max=4096"`
}

type TypingPayload struct {
	RoomCode string `json:"roomCode" validate:"required,alphanum"`
}

type RoomCreatedPayload struct {
	RoomCode string       `json:"roomCode"`
	Members  []MemberInfo `json:"members"`
}

type RoomJoinedPayload struct {
	RoomCode string       `json:"roomCode"`
	Members  []MemberInfo `json:"members"`
}

type RoomNotFoundPayload struct {
	RoomCode string `json:"roomCode"`
}

type MembersUpdatePayload struct {
	RoomCode string       `json:"roomCode"`
	Members  []MemberInfo `json:"members"`
}

type ChatHistoryPayload struct {
	RoomCode string    `json:"roomCode"`
	Messages []Message `json:"messages"`
}

// UserNoticePayload carries user_joined/user_left/user_typing/user_stop_typing.
type UserNoticePayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type ErrorPayload struct {
	Event  EventType `json:"event,omitempty"`
	Reason string    `json:"reason"`
}

// ProtocolError reports an inbound event that failed framing or payload
// validation. It is sent back to the offending connection only.
type ProtocolError struct {
	Event  EventType
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %q: %s", e.Event, e.Reason)
}

var validate = validator.New()

// DecodePayload unmarshals and validates an envelope's payload into dst.
// Any failure comes back as a *ProtocolError.
func DecodePayload(env Envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return &ProtocolError{Event: env.Type, Reason: "missing payload"}
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return &ProtocolError{Event: env.Type, Reason: "malformed payload"}
	}
	if err := validate.Struct(dst); err != nil {
		return &ProtocolError{Event: env.Type, Reason: err.Error()}
	}
	return nil
}

// NewEvent marshals a typed payload into a wire-ready envelope.
func NewEvent(t EventType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}
