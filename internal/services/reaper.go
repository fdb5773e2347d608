package services

import (
	"time"

	"chat-relay/pkg/logger"
)

// Reaper periodically purges rooms that have sat empty past the retention
// window. The registry already deletes emptied rooms eagerly, so this is a
// safety net and usually finds nothing.
type Reaper struct {
	registry  *Registry
	interval  time.Duration
	retention time.Duration
	done      chan struct{}
}

func NewReaper(registry *Registry, interval, retention time.Duration) *Reaper {
	return &Reaper{
		registry:  registry,
		interval:  interval,
		retention: retention,
		done:      make(chan struct{}),
	}
}

func (r *Reaper) Start() {
	go r.run()
}

func (r *Reaper) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if n := r.registry.ReapIdle(r.retention); n > 0 {
				logger.Debug("Reaped %d idle room(s)", n)
			}
		}
	}
}

func (r *Reaper) Stop() {
	close(r.done)
}
