package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
)

func TestReaper_SweepsEmptyRooms(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(HistoryPolicy{})
	registry.rooms["OLD1"] = &models.Room{
		Code:      "OLD1",
		Members:   map[string]*models.Member{},
		CreatedAt: time.Now().Add(-time.Hour),
	}

	reaper := NewReaper(registry, 10*time.Millisecond, time.Minute)
	reaper.Start()
	defer reaper.Stop()

	req.Eventually(func() bool {
		return !registry.HasRoom("OLD1")
	}, time.Second, 10*time.Millisecond)
}

func TestReaper_StopTerminatesSweep(t *testing.T) {
	registry := newTestRegistry(HistoryPolicy{})
	reaper := NewReaper(registry, 10*time.Millisecond, time.Minute)
	reaper.Start()
	reaper.Stop()

	// A stopped reaper must leave later state alone.
	registry.rooms["OLD1"] = &models.Room{
		Code:      "OLD1",
		Members:   map[string]*models.Member{},
		CreatedAt: time.Now().Add(-time.Hour),
	}
	time.Sleep(50 * time.Millisecond)
	require.True(t, registry.HasRoom("OLD1"))
}
