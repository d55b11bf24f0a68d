package application

import (
	"context"
	"log"
	"sync"
	"time"
)

type SchedulerState string

const (
	SchedulerIdle        SchedulerState = "idle"
	SchedulerPolling     SchedulerState = "polling"
	SchedulerAutoRunning SchedulerState = "auto"
)

// Scheduler drives when the store refreshes: manual one-shots, and an
// auto-simulation loop that runs one simulate+refresh cycle immediately on
// enable and then on a fixed interval until disabled. Cancellation uses an
// explicit generation token: disabling bumps the generation, so a tick from
// a superseded loop can never run a cycle. At most one cycle is in flight at
// a time; requests that arrive while one is running are coalesced to a no-op.
type Scheduler struct {
	service  *MonitorService
	interval time.Duration

	mu         sync.Mutex
	auto       bool
	generation uint64
	cancel     context.CancelFunc
	busy       bool
}

func NewScheduler(service *MonitorService, interval time.Duration) *Scheduler {
	return &Scheduler{service: service, interval: interval}
}

// EnableAuto starts the auto-simulation loop. Enabling while already enabled
// is a no-op.
func (s *Scheduler) EnableAuto() {
	s.mu.Lock()
	if s.auto {
		s.mu.Unlock()
		return
	}
	s.auto = true
	s.generation++
	token := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.runAuto(ctx, token)
}

// DisableAuto stops the loop; no partial cycle is left scheduled. An
// in-flight request is not aborted, but its result is discarded by the
// store's staleness guard if a newer snapshot lands first.
func (s *Scheduler) DisableAuto() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.auto {
		return
	}
	s.auto = false
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// AutoEnabled reports whether the auto-simulation loop is active.
func (s *Scheduler) AutoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

// State reports the scheduler's current mode.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.auto:
		return SchedulerAutoRunning
	case s.busy:
		return SchedulerPolling
	default:
		return SchedulerIdle
	}
}

// ForceRefresh runs an immediate cycle: a plain poll in manual mode, a full
// simulate+refresh while auto is active (the regular interval is not
// disturbed). Coalesced to a no-op when a cycle is already in flight.
func (s *Scheduler) ForceRefresh(ctx context.Context) error {
	return s.runCycle(ctx, s.AutoEnabled())
}

func (s *Scheduler) runAuto(ctx context.Context, token uint64) {
	if err := s.runCycle(ctx, true); err != nil {
		log.Printf("scheduler: auto cycle: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.current(token) {
				return
			}
			if err := s.runCycle(ctx, true); err != nil {
				log.Printf("scheduler: auto cycle: %v", err)
			}
		}
	}
}

func (s *Scheduler) current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto && s.generation == token
}

func (s *Scheduler) runCycle(ctx context.Context, simulate bool) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil
	}
	s.busy = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	var simErr error
	if simulate {
		if simErr = s.service.Simulate(ctx); simErr != nil {
			log.Printf("scheduler: simulate: %v", simErr)
		}
	}
	// Refresh even after a failed simulate so the offline indicator tracks
	// the authority's reachability.
	if err := s.service.Refresh(ctx); err != nil {
		return err
	}
	return simErr
}
