package application

import (
	"testing"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

func TestApplyAuthoritativeSortsByID(t *testing.T) {
	store := NewStore()
	ticket := store.BeginFetch()
	applied := store.ApplyAuthoritative(ticket, []domain.Location{
		loc(t, 9, "Gym", 40, 5),
		loc(t, 2, "Library", 100, 30),
		loc(t, 5, "Cafeteria", 30, 12),
	}, time.Now().UTC())
	if !applied {
		t.Fatalf("replace rejected")
	}

	snap := store.Snapshot()
	for i, want := range []int{2, 5, 9} {
		if snap.Locations[i].ID != want {
			t.Fatalf("position %d: id = %d, want %d", i, snap.Locations[i].ID, want)
		}
	}
	if snap.Generation != 1 {
		t.Fatalf("generation = %d, want 1", snap.Generation)
	}
}

func TestStaleFetchResponseIsDiscarded(t *testing.T) {
	store := NewStore()
	first := store.BeginFetch()
	second := store.BeginFetch()

	// The later fetch's response lands first.
	if !store.ApplyAuthoritative(second, []domain.Location{loc(t, 1, "Cafeteria", 30, 20)}, time.Now().UTC()) {
		t.Fatalf("newer response rejected")
	}
	if store.ApplyAuthoritative(first, []domain.Location{loc(t, 1, "Cafeteria", 30, 5)}, time.Now().UTC()) {
		t.Fatalf("stale response applied")
	}

	snap := store.Snapshot()
	if snap.Locations[0].CurrentCount != 20 {
		t.Fatalf("count = %d, want 20 from the newer fetch", snap.Locations[0].CurrentCount)
	}

	// A stale failure must not raise the offline flag either.
	store.MarkOffline(first)
	if store.Snapshot().Offline {
		t.Fatalf("stale failure raised offline flag")
	}
}

func TestOptimisticClampAtCapacityPlusOne(t *testing.T) {
	store := NewStore()
	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 31)}, time.Now().UTC())

	updated, err := store.ApplyOptimistic(1, +1)
	if err != nil {
		t.Fatalf("optimistic: %v", err)
	}
	if updated.CurrentCount != 31 {
		t.Fatalf("count = %d, want clamp at capacity+1", updated.CurrentCount)
	}
	if updated.Status != domain.StatusCritical || !updated.EntryClosed {
		t.Fatalf("over-capacity location not critical: %+v", updated)
	}
}

func TestOptimisticClampAtZero(t *testing.T) {
	store := NewStore()
	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 0)}, time.Now().UTC())

	updated, err := store.ApplyOptimistic(1, -1)
	if err != nil {
		t.Fatalf("optimistic: %v", err)
	}
	if updated.CurrentCount != 0 {
		t.Fatalf("count = %d, want 0", updated.CurrentCount)
	}
}

func TestOptimisticUnknownLocation(t *testing.T) {
	store := NewStore()
	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 10)}, time.Now().UTC())

	if _, err := store.ApplyOptimistic(42, +1); err != ErrUnknownLocation {
		t.Fatalf("err = %v, want ErrUnknownLocation", err)
	}
}

func TestAuthoritativeReplaceClearsOfflineButNotPending(t *testing.T) {
	store := NewStore()
	first := store.BeginFetch()
	store.ApplyAuthoritative(first, []domain.Location{loc(t, 1, "Cafeteria", 30, 10)}, time.Now().UTC())

	if _, err := store.ApplyOptimistic(1, +1); err != nil {
		t.Fatalf("optimistic: %v", err)
	}
	store.MarkOffline(store.BeginFetch())
	if !store.Snapshot().Offline {
		t.Fatalf("offline flag not raised")
	}

	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 9)}, time.Now().UTC())
	snap := store.Snapshot()
	if snap.Offline {
		t.Fatalf("offline flag survived a successful replace")
	}
	if snap.Locations[0].CurrentCount != 9 {
		t.Fatalf("count = %d, want authoritative 9", snap.Locations[0].CurrentCount)
	}

	// The lock belongs to the in-flight command, not the snapshot: a replace
	// landing mid-command must not let a second command through.
	if !store.Pending(1) {
		t.Fatalf("pending flag dropped by a replace while the command is still in flight")
	}
	if _, err := store.ApplyOptimistic(1, +1); err != ErrCommandInFlight {
		t.Fatalf("err = %v, want ErrCommandInFlight after interleaved replace", err)
	}
	store.ClearPending(1)
	if store.Pending(1) {
		t.Fatalf("pending flag survived ClearPending")
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 10)}, time.Now().UTC())

	select {
	case snap := <-ch:
		if len(snap.Locations) != 1 || snap.Locations[0].CurrentCount != 10 {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification delivered")
	}

	// A slow receiver misses intermediate snapshots but always gets the
	// newest one: the stale buffered snapshot is evicted, never kept.
	store.ApplyOptimistic(1, +1)
	store.ApplyAuthoritative(store.BeginFetch(), []domain.Location{loc(t, 1, "Cafeteria", 30, 12)}, time.Now().UTC())

	select {
	case snap := <-ch:
		if snap.Locations[0].CurrentCount != 12 {
			t.Fatalf("buffered snapshot is stale: count = %d, want 12", snap.Locations[0].CurrentCount)
		}
	case <-time.After(time.Second):
		t.Fatalf("no notification after updates")
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after cancel")
	}
}
