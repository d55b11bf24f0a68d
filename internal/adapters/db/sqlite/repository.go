package sqlite

import (
	"context"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// ArchiveRepository persists every applied snapshot for later inspection.
// It is write-only from the engine's point of view; the archive never feeds
// back into reconciliation.
type ArchiveRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) RecordSnapshot(ctx context.Context, snapshot domain.Snapshot, alerts []domain.Alert) error {
	row := SnapshotModel{
		Generation:    snapshot.Generation,
		LocationCount: len(snapshot.Locations),
		AlertCount:    len(alerts),
		FetchedAt:     snapshot.FetchedAt,
	}
	for _, loc := range snapshot.Locations {
		row.TotalCrowd += loc.CurrentCount
		row.TotalCapacity += loc.Capacity
		switch loc.Status {
		case domain.StatusCritical:
			row.CriticalCount++
		case domain.StatusWarning:
			row.WarningCount++
		default:
			row.NormalCount++
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, loc := range snapshot.Locations {
			m := SnapshotLocationModel{
				SnapshotID:     row.ID,
				LocationID:     loc.ID,
				Name:           loc.Name,
				Capacity:       loc.Capacity,
				CurrentCount:   loc.CurrentCount,
				LoadPercentage: loc.LoadPercentage,
				Status:         string(loc.Status),
				EntryClosed:    loc.EntryClosed,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		for _, alert := range alerts {
			m := SnapshotAlertModel{
				SnapshotID: row.ID,
				AlertID:    alert.ID,
				LocationID: alert.LocationID,
				Kind:       string(alert.Kind),
				Message:    alert.Message,
				RaisedAt:   alert.Timestamp,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ArchiveRepository) ListSnapshots(ctx context.Context, limit int) ([]domain.ArchiveEntry, error) {
	rows := make([]SnapshotModel, 0)
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ArchiveEntry, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.ArchiveEntry{
			ID:            m.ID,
			Generation:    m.Generation,
			LocationCount: m.LocationCount,
			TotalCrowd:    m.TotalCrowd,
			WarningCount:  m.WarningCount,
			CriticalCount: m.CriticalCount,
			AlertCount:    m.AlertCount,
			FetchedAt:     m.FetchedAt,
		})
	}
	return result, nil
}

// LocationsForSnapshot returns the archived roster rows of one snapshot,
// ordered the way the engine displayed them.
func (r *ArchiveRepository) LocationsForSnapshot(ctx context.Context, snapshotID uint) ([]domain.Location, error) {
	rows := make([]SnapshotLocationModel, 0)
	if err := r.db.WithContext(ctx).Where("snapshot_id = ?", snapshotID).Order("location_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Location, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Location{
			ID:                m.LocationID,
			Name:              m.Name,
			Capacity:          m.Capacity,
			CurrentCount:      m.CurrentCount,
			LoadPercentage:    m.LoadPercentage,
			AvailableCapacity: maxInt(0, m.Capacity-m.CurrentCount),
			Status:            domain.LocationStatus(m.Status),
			EntryClosed:       m.EntryClosed,
		})
	}
	return result, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
