package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

func TestRecordAndListSnapshots(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "campuswatch_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	repo := NewArchiveRepository(db)

	fetchedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	snapshot := domain.Snapshot{
		Generation: 4,
		FetchedAt:  fetchedAt,
		Locations: []domain.Location{
			{ID: 1, Name: "Library", Capacity: 100, CurrentCount: 40, LoadPercentage: 40, AvailableCapacity: 60, Status: domain.StatusNormal},
			{ID: 2, Name: "Cafeteria", Capacity: 30, CurrentCount: 31, LoadPercentage: 103.3, Status: domain.StatusCritical, EntryClosed: true},
			{ID: 3, Name: "Gym", Capacity: 50, CurrentCount: 45, LoadPercentage: 90, AvailableCapacity: 5, Status: domain.StatusWarning},
		},
	}
	alerts := []domain.Alert{
		{ID: "crit-2-1", LocationID: 2, Kind: domain.AlertCritical, Message: "Cafeteria is overloaded (31/30). Entry closed.", Timestamp: fetchedAt},
		{ID: "warn-3-1", LocationID: 3, Kind: domain.AlertWarning, Message: "Gym is approaching capacity (90%).", Timestamp: fetchedAt},
	}

	if err := repo.RecordSnapshot(ctx, snapshot, alerts); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}
	if err := repo.RecordSnapshot(ctx, domain.Snapshot{Generation: 5, FetchedAt: fetchedAt.Add(3 * time.Second)}, nil); err != nil {
		t.Fatalf("record second snapshot: %v", err)
	}

	entries, err := repo.ListSnapshots(ctx, 10)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Generation != 5 || entries[1].Generation != 4 {
		t.Fatalf("ordering wrong: %+v", entries)
	}

	got := entries[1]
	if got.LocationCount != 3 || got.TotalCrowd != 116 {
		t.Fatalf("aggregates = %+v", got)
	}
	if got.WarningCount != 1 || got.CriticalCount != 1 || got.AlertCount != 2 {
		t.Fatalf("status counts = %+v", got)
	}

	locations, err := repo.LocationsForSnapshot(ctx, got.ID)
	if err != nil {
		t.Fatalf("locations for snapshot: %v", err)
	}
	if len(locations) != 3 {
		t.Fatalf("locations = %d, want 3", len(locations))
	}
	if locations[1].ID != 2 || locations[1].Status != domain.StatusCritical || !locations[1].EntryClosed {
		t.Fatalf("cafeteria row = %+v", locations[1])
	}
	if locations[2].AvailableCapacity != 5 {
		t.Fatalf("gym availability = %+v", locations[2])
	}
}

func TestListSnapshotsLimit(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "campuswatch_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	repo := NewArchiveRepository(db)

	for i := 0; i < 5; i++ {
		snap := domain.Snapshot{Generation: uint64(i + 1), FetchedAt: time.Now().UTC()}
		if err := repo.RecordSnapshot(ctx, snap, nil); err != nil {
			t.Fatalf("record snapshot %d: %v", i, err)
		}
	}

	entries, err := repo.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want limit applied", len(entries))
	}
	if entries[0].Generation != 5 {
		t.Fatalf("newest generation = %d, want 5", entries[0].Generation)
	}
}
