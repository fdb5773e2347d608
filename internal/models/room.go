package models

import "time"

// Participant is the logical identity behind a connection. The same
// participant may rebind to a new connection on reconnect without
// duplicating its membership.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ConnID string `json:"-"`
}

// Member is a participant's membership record inside one room. Keyed by
// participant ID in the room's member map; ConnID tracks the single live
// connection currently bound to that identity.
type Member struct {
	ParticipantID string    `json:"id"`
	DisplayName   string    `json:"name"`
	ConnID        string    `json:"-"`
	JoinedAt      time.Time `json:"-"`
}

// MemberInfo is the wire-facing view of a member.
type MemberInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
}

// Room groups participants into one broadcast scope. Rooms are ephemeral:
// the registry deletes a room as soon as its last member leaves.
type Room struct {
	Code      string
	Members   map[string]*Member
	History   []Message
	CreatedAt time.Time
}
