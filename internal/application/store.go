package application

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

var (
	ErrUnknownLocation = errors.New("unknown location")
	ErrCommandInFlight = errors.New("a command for this location is already in flight")
)

// Store holds the authoritative-so-far roster. An authoritative replace swaps
// the whole sequence; an optimistic update touches exactly one location and is
// always superseded by the next replace. Fetches take a ticket before the
// request goes out so that a stale response can never overwrite a newer
// snapshot, regardless of network response ordering.
type Store struct {
	mu          sync.Mutex
	locations   []domain.Location
	generation  uint64
	fetchSeq    uint64
	lastApplied uint64
	fetchedAt   time.Time
	offline     bool
	pending     map[int]bool
	subscribers map[chan domain.Snapshot]struct{}
}

func NewStore() *Store {
	return &Store{
		pending:     make(map[int]bool),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

// BeginFetch issues a ticket for an outgoing roster request. The matching
// ApplyAuthoritative or MarkOffline call passes it back.
func (s *Store) BeginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	return s.fetchSeq
}

// ApplyAuthoritative replaces the whole roster with the authority's view.
// Returns false when a response from a newer fetch has already been applied;
// the caller discards the stale result.
func (s *Store) ApplyAuthoritative(ticket uint64, locations []domain.Location, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket <= s.lastApplied {
		return false
	}

	replaced := make([]domain.Location, len(locations))
	copy(replaced, locations)
	sort.Slice(replaced, func(i, j int) bool { return replaced[i].ID < replaced[j].ID })

	s.locations = replaced
	s.generation++
	s.lastApplied = ticket
	s.fetchedAt = at
	s.offline = false
	s.notifyLocked()
	return true
}

// MarkOffline records a failed fetch. The last known roster stays in place;
// the flag is not raised when a newer snapshot already landed.
func (s *Store) MarkOffline(ticket uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket <= s.lastApplied {
		return
	}
	if !s.offline {
		s.offline = true
		s.notifyLocked()
	}
}

// ApplyOptimistic adjusts one location's count by delta (clamped to
// [0, capacity+1]) and reclassifies it, before the authority has confirmed.
// At most one optimistic command per location may be outstanding: the pending
// flag stays raised for the command's whole lifetime, across any replaces
// that land in between, until the command path calls ClearPending.
func (s *Store) ApplyOptimistic(locationID, delta int) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.locations {
		if s.locations[i].ID == locationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Location{}, ErrUnknownLocation
	}
	if s.pending[locationID] {
		return domain.Location{}, ErrCommandInFlight
	}

	loc := s.locations[idx]
	count := loc.CurrentCount + delta
	if count < 0 {
		count = 0
	}
	if count > loc.Capacity+1 {
		count = loc.Capacity + 1
	}
	loc.CurrentCount = count

	updated, err := domain.Reclassify(loc)
	if err != nil {
		return domain.Location{}, err
	}
	s.locations[idx] = updated
	s.pending[locationID] = true
	s.notifyLocked()
	return updated, nil
}

// ClearPending releases a location's optimistic lock once its command has
// resolved, whichever way it went.
func (s *Store) ClearPending(locationID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, locationID)
}

// Pending reports whether an optimistic command is outstanding for the
// location, so views can disable its controls.
func (s *Store) Pending(locationID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[locationID]
}

// Snapshot returns a copy of the current reconciled state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers for snapshot-change notifications. Slow receivers miss
// intermediate snapshots rather than blocking the store, but always receive
// the newest one. The returned func cancels the subscription.
func (s *Store) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() domain.Snapshot {
	locations := make([]domain.Location, len(s.locations))
	copy(locations, s.locations)
	return domain.Snapshot{
		Locations:  locations,
		Generation: s.generation,
		FetchedAt:  s.fetchedAt,
		Offline:    s.offline,
	}
}

func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		// Evict an unread older snapshot first so the buffer always holds
		// the newest state, never a stale intermediate.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
