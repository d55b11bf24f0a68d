package sqlite

import "time"

type SnapshotModel struct {
	ID            uint      `gorm:"primaryKey"`
	Generation    uint64    `gorm:"not null;index"`
	LocationCount int       `gorm:"not null"`
	TotalCrowd    int       `gorm:"not null"`
	TotalCapacity int       `gorm:"not null"`
	NormalCount   int       `gorm:"not null;default:0"`
	WarningCount  int       `gorm:"not null;default:0"`
	CriticalCount int       `gorm:"not null;default:0"`
	AlertCount    int       `gorm:"not null;default:0"`
	FetchedAt     time.Time `gorm:"not null;index"`
	CreatedAt     time.Time
}

func (SnapshotModel) TableName() string { return "snapshots" }

type SnapshotLocationModel struct {
	ID             uint    `gorm:"primaryKey"`
	SnapshotID     uint    `gorm:"not null;index"`
	LocationID     int     `gorm:"not null;index"`
	Name           string  `gorm:"not null"`
	Capacity       int     `gorm:"not null"`
	CurrentCount   int     `gorm:"not null"`
	LoadPercentage float64 `gorm:"not null"`
	Status         string  `gorm:"not null"`
	EntryClosed    bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
}

func (SnapshotLocationModel) TableName() string { return "snapshot_locations" }

type SnapshotAlertModel struct {
	ID         uint   `gorm:"primaryKey"`
	SnapshotID uint   `gorm:"not null;index"`
	AlertID    string `gorm:"not null"`
	LocationID int    `gorm:"not null;index"`
	Kind       string `gorm:"not null"`
	Message    string `gorm:"not null"`
	RaisedAt   time.Time
	CreatedAt  time.Time
}

func (SnapshotAlertModel) TableName() string { return "snapshot_alerts" }
