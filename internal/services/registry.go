package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"chat-relay/internal/models"
)

// ErrRoomNotFound is returned for any operation against an unregistered
// room code. Local to the requesting connection, never fatal.
var ErrRoomNotFound = errors.New("room not found")

// HistoryPolicy controls whether a room keeps its messages for replay to
// new joiners, and how many. Limit 0 means unbounded.
type HistoryPolicy struct {
	Retain bool
	Limit  int
}

// Registry is the single source of truth for rooms and their members.
// All room state is owned here; every mutation happens under the registry
// mutex, so concurrent joins or leaves on one room can never interleave.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room

	codes   *CodeGenerator
	history HistoryPolicy
}

func NewRegistry(codes *CodeGenerator, history HistoryPolicy) *Registry {
	return &Registry{
		rooms:   make(map[string]*models.Room),
		codes:   codes,
		history: history,
	}
}

// CreateRoom allocates a fresh code and registers a room with p as its
// only member. Fails only if the code generator exhausts its retries.
func (r *Registry) CreateRoom(p models.Participant) (string, []models.MemberInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.codes.Generate(func(c string) bool {
		_, live := r.rooms[c]
		return live
	})
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	room := &models.Room{
		Code:      code,
		Members:   map[string]*models.Member{},
		CreatedAt: now,
	}
	room.Members[p.ID] = &models.Member{
		ParticipantID: p.ID,
		DisplayName:   p.Name,
		ConnID:        p.ConnID,
		JoinedAt:      now,
	}
	r.rooms[code] = room
	return code, memberSnapshot(room), nil
}

// JoinRoom adds p to the room, or rebinds its connection if the same
// participant ID is already a member (reconnect). Returns the resulting
// member list and a copy of any retained history for replay.
func (r *Registry) JoinRoom(code string, p models.Participant) ([]models.MemberInfo, []models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	if m, exists := room.Members[p.ID]; exists {
		m.DisplayName = p.Name
		m.ConnID = p.ConnID
	} else {
		room.Members[p.ID] = &models.Member{
			ParticipantID: p.ID,
			DisplayName:   p.Name,
			ConnID:        p.ConnID,
			JoinedAt:      time.Now(),
		}
	}

	history := make([]models.Message, len(room.History))
	copy(history, room.History)
	return memberSnapshot(room), history, nil
}

// LeaveRoom removes the participant's membership record. A second call for
// the same participant, or a call against a dead code, is a no-op. When the
// last member leaves the room is deleted on the spot; the code becomes
// unknown immediately.
func (r *Registry) LeaveRoom(code, participantID string) ([]models.MemberInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	if _, member := room.Members[participantID]; !member {
		return memberSnapshot(room), false
	}

	delete(room.Members, participantID)
	if len(room.Members) == 0 {
		delete(r.rooms, code)
		return nil, true
	}
	return memberSnapshot(room), true
}

// AppendMessage records a message in the room's history, subject to the
// registry's retention policy. Fan-out is the caller's business.
func (r *Registry) AppendMessage(code string, msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	if !r.history.Retain {
		return nil
	}
	room.History = append(room.History, msg)
	if r.history.Limit > 0 && len(room.History) > r.history.Limit {
		room.History = room.History[len(room.History)-r.history.Limit:]
	}
	return nil
}

// Members returns the current member list for a room, or false if the
// code is unknown.
func (r *Registry) Members(code string) ([]models.MemberInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	return memberSnapshot(room), true
}

// Connections returns the connection IDs currently bound to the room's
// members, for fan-out.
func (r *Registry) Connections(code string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	return lo.Map(sortedMembers(room), func(m *models.Member, _ int) string {
		return m.ConnID
	})
}

// MemberConn returns the connection currently bound to a member. Callers
// cleaning up after a disconnect use this to avoid evicting a participant
// who has already rebound to a newer connection.
func (r *Registry) MemberConn(code, participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return "", false
	}
	m, ok := room.Members[participantID]
	if !ok {
		return "", false
	}
	return m.ConnID, true
}

// MemberName resolves a participant's display name inside a room.
func (r *Registry) MemberName(code, participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return "", false
	}
	m, ok := room.Members[participantID]
	if !ok {
		return "", false
	}
	return m.DisplayName, true
}

// HasRoom reports whether a code is live.
func (r *Registry) HasRoom(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ReapIdle deletes rooms that have sat empty longer than retention and
// returns how many went. Rooms already deleted eagerly are simply absent,
// so the sweep is idempotent.
func (r *Registry) ReapIdle(retention time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reaped := 0
	for code, room := range r.rooms {
		if len(room.Members) == 0 && time.Since(room.CreatedAt) > retention {
			delete(r.rooms, code)
			reaped++
		}
	}
	return reaped
}

func sortedMembers(room *models.Room) []*models.Member {
	members := lo.Values(room.Members)
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ParticipantID < members[j].ParticipantID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

func memberSnapshot(room *models.Room) []models.MemberInfo {
	return lo.Map(sortedMembers(room), func(m *models.Member, _ int) models.MemberInfo {
		return models.MemberInfo{ID: m.ParticipantID, Name: m.DisplayName}
	})
}
