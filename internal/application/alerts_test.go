package application

import (
	"fmt"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

func TestDeriveAlertsOnePerLocation(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	alerts := DeriveAlerts([]domain.Location{
		loc(t, 1, "Library", 100, 40),         // NORMAL: no alert
		loc(t, 2, "Cafeteria", 30, 31),        // CRITICAL
		loc(t, 3, "Basketball Court", 20, 17), // WARNING
	}, now)

	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}

	crit := alerts[0]
	if crit.LocationID != 2 || crit.Kind != domain.AlertCritical {
		t.Fatalf("first alert = %+v, want critical for Cafeteria", crit)
	}
	if crit.Message != "Cafeteria is overloaded (31/30). Entry closed." {
		t.Fatalf("critical message = %q", crit.Message)
	}
	if want := fmt.Sprintf("crit-2-%d", now.UnixMilli()); crit.ID != want {
		t.Fatalf("critical id = %q, want %q", crit.ID, want)
	}

	warn := alerts[1]
	if warn.LocationID != 3 || warn.Kind != domain.AlertWarning {
		t.Fatalf("second alert = %+v, want warning for Basketball Court", warn)
	}
	if warn.Message != "Basketball Court is approaching capacity (85%)." {
		t.Fatalf("warning message = %q", warn.Message)
	}
	if !warn.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", warn.Timestamp, now)
	}
}

func TestDeriveAlertsEmptyForCalmCampus(t *testing.T) {
	alerts := DeriveAlerts([]domain.Location{
		loc(t, 1, "Library", 100, 10),
		loc(t, 2, "Gym", 50, 20),
	}, time.Now().UTC())
	if len(alerts) != 0 {
		t.Fatalf("alerts = %+v, want none", alerts)
	}
}

func TestFilterBackendAlertsDedupKeepsFirst(t *testing.T) {
	roster := []domain.Location{
		loc(t, 7, "Cafeteria", 30, 31),
		loc(t, 9, "Gym", 50, 45),
	}
	raw := []domain.Alert{
		{ID: "b-1", LocationID: 7, Kind: domain.AlertCritical, Message: "keep me"},
		{ID: "b-2", LocationID: 7, Kind: domain.AlertCritical, Message: "drop me"},
		{ID: "b-3", LocationID: 9, Kind: domain.AlertWarning, Message: "gym busy"},
	}

	alerts := FilterBackendAlerts(raw, roster)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
	if alerts[0].ID != "b-1" || alerts[0].Message != "keep me" {
		t.Fatalf("dedup kept %+v, want the first id-7 alert", alerts[0])
	}
	if alerts[1].ID != "b-3" {
		t.Fatalf("second alert = %+v, want the id-9 alert", alerts[1])
	}
}

func TestFilterBackendAlertsDropsRecoveredLocations(t *testing.T) {
	roster := []domain.Location{loc(t, 5, "Library", 100, 10)}
	raw := []domain.Alert{
		{ID: "b-1", LocationID: 5, Kind: domain.AlertWarning, Message: "stale"},
		{ID: "b-2", LocationID: 99, Kind: domain.AlertCritical, Message: "unknown location"},
	}
	if alerts := FilterBackendAlerts(raw, roster); len(alerts) != 0 {
		t.Fatalf("alerts = %+v, want none", alerts)
	}
}
