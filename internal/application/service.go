package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// MonitorService is the occupancy engine: it reconciles the store against
// the authority, derives alerts, and runs operator commands with optimistic
// local updates followed by an unconditional corrective refresh.
type MonitorService struct {
	authority     domain.AuthorityClient
	store         *Store
	archive       domain.ArchiveRepository
	backendAlerts bool

	mu      sync.RWMutex
	alerts  []domain.Alert
	session domain.Session
}

func NewMonitorService(authority domain.AuthorityClient, store *Store) *MonitorService {
	return &MonitorService{authority: authority, store: store, alerts: []domain.Alert{}}
}

// WithArchive makes the service record every applied snapshot.
func (s *MonitorService) WithArchive(archive domain.ArchiveRepository) *MonitorService {
	s.archive = archive
	return s
}

// WithBackendAlerts switches the alert deriver from local synthesis to the
// authority's /alerts feed.
func (s *MonitorService) WithBackendAlerts(enabled bool) *MonitorService {
	s.backendAlerts = enabled
	return s
}

// Refresh polls the authority's roster and, when the response is not stale,
// replaces the store contents and recomputes the alert list. A transport
// failure keeps the last snapshot and flips the offline indicator.
func (s *MonitorService) Refresh(ctx context.Context) error {
	ticket := s.store.BeginFetch()
	locations, err := s.authority.FetchRoster(ctx)
	if err != nil {
		// A malformed response means the backend is reachable but talking
		// nonsense: the cycle is a no-op, not an outage.
		if errors.Is(err, domain.ErrMalformed) {
			log.Printf("refresh: %v", err)
			return err
		}
		s.store.MarkOffline(ticket)
		return err
	}

	now := time.Now().UTC()
	if !s.store.ApplyAuthoritative(ticket, locations, now) {
		log.Printf("refresh: discarding stale roster (ticket %d)", ticket)
		return nil
	}

	snapshot := s.store.Snapshot()
	alerts, ok := s.deriveAlerts(ctx, snapshot.Locations, now)
	if ok {
		s.mu.Lock()
		s.alerts = alerts
		s.mu.Unlock()
	}

	if s.archive != nil {
		if err := s.archive.RecordSnapshot(ctx, snapshot, s.Alerts()); err != nil {
			log.Printf("archive: record snapshot: %v", err)
		}
	}
	return nil
}

func (s *MonitorService) deriveAlerts(ctx context.Context, locations []domain.Location, now time.Time) ([]domain.Alert, bool) {
	if !s.backendAlerts {
		return DeriveAlerts(locations, now), true
	}
	raw, err := s.authority.FetchAlerts(ctx)
	if err != nil {
		// Keep the previous alert list for this cycle.
		log.Printf("refresh: fetch alerts: %v", err)
		return nil, false
	}
	return FilterBackendAlerts(raw, locations), true
}

// Snapshot returns the current reconciled roster.
func (s *MonitorService) Snapshot() domain.Snapshot {
	return s.store.Snapshot()
}

// Alerts returns the alert list derived from the last applied snapshot.
func (s *MonitorService) Alerts() []domain.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alerts := make([]domain.Alert, len(s.alerts))
	copy(alerts, s.alerts)
	return alerts
}

// Watch subscribes to snapshot-change notifications, for live push surfaces.
func (s *MonitorService) Watch() (<-chan domain.Snapshot, func()) {
	return s.store.Subscribe()
}

// Report aggregates the current snapshot into the campus-wide view.
func (s *MonitorService) Report() domain.CampusReport {
	return BuildReport(s.store.Snapshot().Locations)
}

// Enter records one person entering a location: optimistic +1 locally, the
// command to the authority, then an unconditional corrective refresh. The
// authority's verdict (including reroute suggestions) is passed through.
func (s *MonitorService) Enter(ctx context.Context, locationID int) (domain.CommandResult, error) {
	return s.command(ctx, locationID, +1, s.authority.RecordEntry)
}

// Exit records one person leaving a location, same protocol as Enter.
func (s *MonitorService) Exit(ctx context.Context, locationID int) (domain.CommandResult, error) {
	return s.command(ctx, locationID, -1, s.authority.RecordExit)
}

func (s *MonitorService) command(ctx context.Context, locationID, delta int, send func(context.Context, int) (domain.CommandResult, error)) (domain.CommandResult, error) {
	if _, err := s.store.ApplyOptimistic(locationID, delta); err != nil {
		return domain.CommandResult{}, err
	}
	// The lock covers the command's whole lifetime: a poll landing between
	// the optimistic update and the corrective refresh must not let a second
	// command through for this location.
	defer s.store.ClearPending(locationID)

	result, cmdErr := send(ctx, locationID)

	// The optimistic value is never trusted as final truth: re-sync whether
	// the command succeeded or not.
	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		log.Printf("command: corrective refresh: %v", refreshErr)
	}

	if cmdErr != nil {
		return domain.CommandResult{}, cmdErr
	}
	return result, nil
}

// Simulate asks the authority to run one random crowd-movement tick.
func (s *MonitorService) Simulate(ctx context.Context) error {
	return s.authority.RunSimulation(ctx)
}

// Reset zeroes every counter on the authority, then re-syncs.
func (s *MonitorService) Reset(ctx context.Context) error {
	if err := s.authority.ResetCounts(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Forecast fetches the authority's predicted crowd levels for one location.
func (s *MonitorService) Forecast(ctx context.Context, locationID int) (domain.Forecast, error) {
	return s.authority.Forecast(ctx, locationID)
}

// History fetches the authority's recent entry/exit log.
func (s *MonitorService) History(ctx context.Context, locationID *int) ([]domain.HistoryEntry, error) {
	return s.authority.History(ctx, locationID)
}

// Login exchanges credentials for an opaque session token and installs it on
// the authority client.
func (s *MonitorService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	session, err := s.authority.Login(ctx, username, password)
	if err != nil {
		return domain.Session{}, err
	}
	s.SetSession(session)
	return session, nil
}

// SetSession installs an externally-held credential (e.g. restored by the
// CLI); the engine never reads ambient storage itself.
func (s *MonitorService) SetSession(session domain.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	s.authority.UseSession(session)
}

// ClearSession drops the credential (operator logout).
func (s *MonitorService) ClearSession() {
	s.SetSession(domain.Session{})
}

// Session returns the currently-held credential.
func (s *MonitorService) Session() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// ArchivedSnapshots lists recent rows from the local snapshot archive.
func (s *MonitorService) ArchivedSnapshots(ctx context.Context, limit int) ([]domain.ArchiveEntry, error) {
	if s.archive == nil {
		return nil, errors.New("snapshot archive is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}
	return s.archive.ListSnapshots(ctx, limit)
}

// ArchivedSnapshotDetail returns the per-location rows recorded for one
// archived snapshot.
func (s *MonitorService) ArchivedSnapshotDetail(ctx context.Context, snapshotID uint) ([]domain.Location, error) {
	if s.archive == nil {
		return nil, errors.New("snapshot archive is not configured")
	}
	return s.archive.LocationsForSnapshot(ctx, snapshotID)
}
