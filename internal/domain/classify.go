package domain

import "errors"

// Thresholds for crowd-level classification, as fractions of capacity.
const (
	WarningThreshold  = 0.80
	CriticalThreshold = 1.0
)

var ErrInvalidCapacity = errors.New("capacity must be positive")

// Derived holds the fields recomputed from a location's counters.
type Derived struct {
	LoadPercentage    float64
	AvailableCapacity int
	Status            LocationStatus
	EntryClosed       bool
}

// Classify maps a location's counters to its derived fields. A count above
// capacity is CRITICAL and closes entry; a load of 80-100% is WARNING;
// anything below is NORMAL. Counts above capacity are legal input (the
// optimistic-update path clamps to capacity+1), a non-positive capacity is
// not: callers must reject such rosters at ingestion.
func Classify(capacity, currentCount int) (Derived, error) {
	if capacity <= 0 {
		return Derived{}, ErrInvalidCapacity
	}
	if currentCount < 0 {
		currentCount = 0
	}

	d := Derived{
		LoadPercentage:    float64(currentCount) / float64(capacity) * 100,
		AvailableCapacity: capacity - currentCount,
	}
	if d.AvailableCapacity < 0 {
		d.AvailableCapacity = 0
	}

	switch {
	case currentCount > capacity:
		d.Status = StatusCritical
		d.EntryClosed = true
	case d.LoadPercentage >= WarningThreshold*100:
		d.Status = StatusWarning
	default:
		d.Status = StatusNormal
	}
	return d, nil
}

// Reclassify returns a copy of the location with its derived fields
// recomputed from the counters it carries.
func Reclassify(loc Location) (Location, error) {
	d, err := Classify(loc.Capacity, loc.CurrentCount)
	if err != nil {
		return Location{}, err
	}
	loc.LoadPercentage = d.LoadPercentage
	loc.AvailableCapacity = d.AvailableCapacity
	loc.Status = d.Status
	loc.EntryClosed = d.EntryClosed
	return loc, nil
}
