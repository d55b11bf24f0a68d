package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatLoad(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func printSnapshot(snap domain.Snapshot) {
	link := "online"
	if snap.Offline {
		link = "OFFLINE (showing last known state)"
	}
	printKV([][2]string{
		{"link", link},
		{"generation", strconv.FormatUint(snap.Generation, 10)},
		{"fetched_at", formatTime(snap.FetchedAt)},
	})
	fmt.Println()
	printLocations(snap.Locations)
}

func printLocations(items []domain.Location) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		entry := "open"
		if item.EntryClosed {
			entry = "CLOSED"
		}
		rows = append(rows, []string{
			strconv.Itoa(item.ID),
			item.Name,
			fmt.Sprintf("%d/%d", item.CurrentCount, item.Capacity),
			formatLoad(item.LoadPercentage),
			string(item.Status),
			entry,
		})
	}
	printTable([]string{"ID", "NAME", "OCCUPANCY", "LOAD", "STATUS", "ENTRY"}, rows)
}

func printAlerts(items []domain.Alert) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			string(item.Kind),
			item.LocationName,
			item.Message,
			formatTime(item.Timestamp),
		})
	}
	printTable([]string{"ID", "KIND", "LOCATION", "MESSAGE", "AT"}, rows)
}

func printReport(report domain.CampusReport) {
	safest := "-"
	if report.Safest != nil {
		safest = fmt.Sprintf("%s (%s)", report.Safest.Name, formatLoad(report.Safest.LoadPercentage))
	}
	printKV([][2]string{
		{"locations", strconv.Itoa(report.LocationCount)},
		{"total_crowd", fmt.Sprintf("%d/%d", report.TotalCrowd, report.TotalCapacity)},
		{"available", strconv.Itoa(report.AvailableCapacity)},
		{"utilization", formatLoad(report.UtilizationRate)},
		{"average_load", formatLoad(report.AverageLoad)},
		{"normal/warning/critical", fmt.Sprintf("%d/%d/%d", report.NormalCount, report.WarningCount, report.CriticalCount)},
		{"safest", safest},
	})
	if len(report.Crowded) > 0 {
		fmt.Println()
		fmt.Println("crowded:")
		printLocations(report.Crowded)
	}
	for _, rec := range report.Recommendations {
		fmt.Printf("[%s] %s: %s\n", rec.Kind, rec.Title, rec.Message)
	}
}

func printCommandResult(result domain.CommandResult) {
	rows := [][2]string{
		{"accepted", strconv.FormatBool(result.Accepted)},
		{"message", result.Message},
	}
	if result.CurrentCount != nil {
		rows = append(rows, [2]string{"current_count", strconv.Itoa(*result.CurrentCount)})
	}
	if result.Reroute != "" {
		rows = append(rows, [2]string{"try_instead", result.Reroute})
	}
	printKV(rows)
}

func printForecast(forecast domain.Forecast) {
	rows := make([][]string, 0, len(forecast.Points))
	for _, point := range forecast.Points {
		rows = append(rows, []string{
			point.Time,
			fmt.Sprintf("%d/%d", point.PredictedCount, point.Capacity),
			strconv.Itoa(point.LoadPercentage) + "%",
		})
	}
	fmt.Printf("forecast for %s\n", forecast.LocationName)
	printTable([]string{"TIME", "PREDICTED", "LOAD"}, rows)
}

func printHistory(items []domain.HistoryEntry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.ID),
			strconv.Itoa(item.LocationID),
			item.Action,
			formatTime(item.Timestamp),
		})
	}
	printTable([]string{"ID", "LOCATION_ID", "ACTION", "AT"}, rows)
}

func printArchiveEntries(items []domain.ArchiveEntry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			strconv.FormatUint(item.Generation, 10),
			strconv.Itoa(item.LocationCount),
			strconv.Itoa(item.TotalCrowd),
			strconv.Itoa(item.WarningCount),
			strconv.Itoa(item.CriticalCount),
			strconv.Itoa(item.AlertCount),
			formatTime(item.FetchedAt),
		})
	}
	printTable([]string{"ID", "GEN", "LOCATIONS", "CROWD", "WARN", "CRIT", "ALERTS", "FETCHED_AT"}, rows)
}
