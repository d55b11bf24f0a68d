package application

import (
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// DeriveAlerts synthesizes the active alert list from the current roster:
// at most one alert per location, only for WARNING or CRITICAL locations,
// stamped with capture time. Alerts for recovered locations simply stop
// being generated.
func DeriveAlerts(locations []domain.Location, now time.Time) []domain.Alert {
	alerts := make([]domain.Alert, 0)
	for _, loc := range locations {
		switch loc.Status {
		case domain.StatusCritical:
			alerts = append(alerts, domain.Alert{
				ID:           fmt.Sprintf("crit-%d-%d", loc.ID, now.UnixMilli()),
				LocationID:   loc.ID,
				LocationName: loc.Name,
				Kind:         domain.AlertCritical,
				Message:      fmt.Sprintf("%s is overloaded (%d/%d). Entry closed.", loc.Name, loc.CurrentCount, loc.Capacity),
				Timestamp:    now,
			})
		case domain.StatusWarning:
			alerts = append(alerts, domain.Alert{
				ID:           fmt.Sprintf("warn-%d-%d", loc.ID, now.UnixMilli()),
				LocationID:   loc.ID,
				LocationName: loc.Name,
				Kind:         domain.AlertWarning,
				Message:      fmt.Sprintf("%s is approaching capacity (%.0f%%).", loc.Name, loc.LoadPercentage),
				Timestamp:    now,
			})
		}
	}
	return alerts
}

// FilterBackendAlerts narrows authority-sourced alerts to locations that are
// WARNING or CRITICAL in the current roster. The authority emits historical
// rows, so the same location can appear more than once: only the first
// occurrence per location id survives, in input order. Location names are
// filled in from the roster when the authority omits them.
func FilterBackendAlerts(raw []domain.Alert, locations []domain.Location) []domain.Alert {
	byID := make(map[int]domain.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}

	seen := make(map[int]bool, len(raw))
	alerts := make([]domain.Alert, 0)
	for _, a := range raw {
		loc, ok := byID[a.LocationID]
		if !ok || (loc.Status != domain.StatusWarning && loc.Status != domain.StatusCritical) {
			continue
		}
		if seen[a.LocationID] {
			continue
		}
		seen[a.LocationID] = true
		if a.LocationName == "" {
			a.LocationName = loc.Name
		}
		alerts = append(alerts, a)
	}
	return alerts
}
