package domain

import (
	"context"
	"errors"
)

// Boundary error kinds. Transport failures keep the last good snapshot and
// flip the offline indicator; malformed responses are treated as a no-op for
// that cycle. Neither ever stops the scheduler loop.
var (
	ErrTransport = errors.New("authority unreachable")
	ErrMalformed = errors.New("malformed authority response")
)

// AuthorityClient is the HTTP contract of the remote occupancy authority.
type AuthorityClient interface {
	FetchRoster(ctx context.Context) ([]Location, error)
	FetchAlerts(ctx context.Context) ([]Alert, error)
	RecordEntry(ctx context.Context, locationID int) (CommandResult, error)
	RecordExit(ctx context.Context, locationID int) (CommandResult, error)
	RunSimulation(ctx context.Context) error
	ResetCounts(ctx context.Context) error
	Forecast(ctx context.Context, locationID int) (Forecast, error)
	History(ctx context.Context, locationID *int) ([]HistoryEntry, error)
	Login(ctx context.Context, username, password string) (Session, error)
	UseSession(session Session)
}

// ArchiveRepository records applied snapshots for offline review. Writes are
// best-effort: the refresh path logs failures and moves on.
type ArchiveRepository interface {
	RecordSnapshot(ctx context.Context, snapshot Snapshot, alerts []Alert) error
	ListSnapshots(ctx context.Context, limit int) ([]ArchiveEntry, error)
	LocationsForSnapshot(ctx context.Context, snapshotID uint) ([]Location, error)
}
