package application

import (
	"fmt"
	"math"
	"sort"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// BuildReport computes the campus-wide aggregate view from one roster
// snapshot. An empty roster yields a neutral report.
func BuildReport(locations []domain.Location) domain.CampusReport {
	report := domain.CampusReport{
		Crowded:         []domain.Location{},
		Recommendations: []domain.Recommendation{},
	}
	if len(locations) == 0 {
		return report
	}

	report.LocationCount = len(locations)
	var loadSum float64
	safestIdx := 0
	for i, loc := range locations {
		report.TotalCrowd += loc.CurrentCount
		report.TotalCapacity += loc.Capacity
		report.AvailableCapacity += loc.AvailableCapacity
		loadSum += loc.LoadPercentage

		switch loc.Status {
		case domain.StatusCritical:
			report.CriticalCount++
		case domain.StatusWarning:
			report.WarningCount++
		default:
			report.NormalCount++
		}

		if loc.LoadPercentage >= 80 {
			report.Crowded = append(report.Crowded, loc)
		}
		if loc.LoadPercentage < locations[safestIdx].LoadPercentage {
			safestIdx = i
		}
	}
	sort.SliceStable(report.Crowded, func(i, j int) bool {
		return report.Crowded[i].LoadPercentage > report.Crowded[j].LoadPercentage
	})

	report.AverageLoad = roundTenth(loadSum / float64(len(locations)))
	if report.TotalCapacity > 0 {
		report.UtilizationRate = roundTenth(float64(report.TotalCrowd) / float64(report.TotalCapacity) * 100)
	}
	safest := locations[safestIdx]
	report.Safest = &safest

	// Recommendation rules are independent; all applicable ones fire.
	if report.AverageLoad > 80 {
		report.Recommendations = append(report.Recommendations, domain.Recommendation{
			Kind:    domain.RecommendationCritical,
			Title:   "Campus at High Capacity",
			Message: fmt.Sprintf("Average load is %.1f%%. Consider redirecting visitors to off-peak locations.", report.AverageLoad),
		})
	}
	if len(report.Crowded) == len(locations) {
		report.Recommendations = append(report.Recommendations, domain.Recommendation{
			Kind:    domain.RecommendationWarning,
			Title:   "All Locations Crowded",
			Message: "All monitored locations are above 80% capacity. Implement crowd control measures.",
		})
	}
	if float64(safest.AvailableCapacity) > 0.3*float64(report.TotalCapacity) {
		report.Recommendations = append(report.Recommendations, domain.Recommendation{
			Kind:    domain.RecommendationInfo,
			Title:   "Capacity Available",
			Message: fmt.Sprintf("%s has significant availability. Recommend visitors there.", safest.Name),
		})
	}

	return report
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
