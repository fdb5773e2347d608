package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinder_BindAndLookup(t *testing.T) {
	req := require.New(t)
	binder := NewBinder()

	_, wasBound := binder.Bind("c1", Binding{RoomCode: "AB12", ParticipantID: "p1"})
	req.False(wasBound)
	req.Equal(1, binder.Count())

	binding, ok := binder.Lookup("c1")
	req.True(ok)
	req.Equal(Binding{RoomCode: "AB12", ParticipantID: "p1"}, binding)
}

func TestBinder_RebindReturnsPrevious(t *testing.T) {
	req := require.New(t)
	binder := NewBinder()

	binder.Bind("c1", Binding{RoomCode: "AB12", ParticipantID: "p1"})
	prev, wasBound := binder.Bind("c1", Binding{RoomCode: "CD34", ParticipantID: "p1"})
	req.True(wasBound)
	req.Equal(Binding{RoomCode: "AB12", ParticipantID: "p1"}, prev)

	// One binding per connection, always.
	req.Equal(1, binder.Count())
	binding, _ := binder.Lookup("c1")
	req.Equal("CD34", binding.RoomCode)
}

func TestBinder_RebindSameRoomIsNotAPreviousBinding(t *testing.T) {
	req := require.New(t)
	binder := NewBinder()

	binder.Bind("c1", Binding{RoomCode: "AB12", ParticipantID: "p1"})
	_, wasBound := binder.Bind("c1", Binding{RoomCode: "AB12", ParticipantID: "p1"})
	req.False(wasBound)
}

func TestBinder_Unbind(t *testing.T) {
	req := require.New(t)
	binder := NewBinder()

	binder.Bind("c1", Binding{RoomCode: "AB12", ParticipantID: "p1"})
	binding, ok := binder.Unbind("c1")
	req.True(ok)
	req.Equal("AB12", binding.RoomCode)
	req.Zero(binder.Count())

	// Unbinding an unbound connection is a no-op.
	_, ok = binder.Unbind("c1")
	req.False(ok)
	_, ok = binder.Lookup("c1")
	req.False(ok)
}
