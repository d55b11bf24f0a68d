package domain

import "time"

type LocationStatus string

const (
	StatusNormal   LocationStatus = "NORMAL"
	StatusWarning  LocationStatus = "WARNING"
	StatusCritical LocationStatus = "CRITICAL"
)

type AlertKind string

const (
	AlertWarning  AlertKind = "warning"
	AlertCritical AlertKind = "critical"
)

type RecommendationKind string

const (
	RecommendationCritical RecommendationKind = "critical"
	RecommendationWarning  RecommendationKind = "warning"
	RecommendationInfo     RecommendationKind = "info"
)

// Location is one monitored physical area. Identity and counters come from
// the authority; the derived fields are recomputed locally and never stored
// on their own.
type Location struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	Capacity          int            `json:"capacity"`
	CurrentCount      int            `json:"current_count"`
	LoadPercentage    float64        `json:"load_percentage"`
	AvailableCapacity int            `json:"available_capacity"`
	Status            LocationStatus `json:"status"`
	EntryClosed       bool           `json:"entry_closed"`
}

// Alert is a live projection of one location's current status, regenerated
// wholesale on every snapshot change.
type Alert struct {
	ID           string    `json:"id"`
	LocationID   int       `json:"location_id"`
	LocationName string    `json:"location_name"`
	Kind         AlertKind `json:"alert_type"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// Snapshot is the reconciled roster plus bookkeeping for staleness guards.
type Snapshot struct {
	Locations  []Location `json:"locations"`
	Generation uint64     `json:"generation"`
	FetchedAt  time.Time  `json:"fetched_at"`
	Offline    bool       `json:"offline"`
}

type Recommendation struct {
	Kind    RecommendationKind `json:"kind"`
	Title   string             `json:"title"`
	Message string             `json:"message"`
}

// CampusReport is the aggregate view over one snapshot.
type CampusReport struct {
	LocationCount     int              `json:"location_count"`
	TotalCrowd        int              `json:"total_crowd"`
	TotalCapacity     int              `json:"total_capacity"`
	AvailableCapacity int              `json:"available_capacity"`
	UtilizationRate   float64          `json:"utilization_rate"`
	AverageLoad       float64          `json:"average_load"`
	NormalCount       int              `json:"normal_count"`
	WarningCount      int              `json:"warning_count"`
	CriticalCount     int              `json:"critical_count"`
	Safest            *Location        `json:"safest,omitempty"`
	Crowded           []Location       `json:"crowded"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// CommandResult is the outcome of an entry/exit command. A rejected entry is
// not a transport error; the authority may suggest a reroute destination.
type CommandResult struct {
	Accepted     bool   `json:"accepted"`
	Message      string `json:"message"`
	CurrentCount *int   `json:"current_count,omitempty"`
	Reroute      string `json:"reroute,omitempty"`
}

type ForecastPoint struct {
	Time           string `json:"time"`
	PredictedCount int    `json:"predicted_count"`
	Capacity       int    `json:"capacity"`
	LoadPercentage int    `json:"load_percentage"`
}

type Forecast struct {
	LocationName string          `json:"location"`
	Points       []ForecastPoint `json:"forecast"`
}

type HistoryEntry struct {
	ID         int       `json:"id"`
	LocationID int       `json:"location_id"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// Session is the opaque credential obtained from the authority at login.
// The engine only cares whether one is present.
type Session struct {
	Token string `json:"token"`
}

func (s Session) Present() bool { return s.Token != "" }

// ArchiveEntry is one row of the local snapshot archive.
type ArchiveEntry struct {
	ID            uint
	Generation    uint64
	LocationCount int
	TotalCrowd    int
	WarningCount  int
	CriticalCount int
	AlertCount    int
	FetchedAt     time.Time
}
