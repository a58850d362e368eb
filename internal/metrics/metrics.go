// Package metrics derives weekly performance counters from a ledger snapshot.
// Counters are pure functions of the entries passed in; nothing here keeps
// running totals.
package metrics

import (
	"strings"
	"time"

	"jobos/internal/ledger"
)

// Weekly holds the counters shown on the dashboard for the current week.
type Weekly struct {
	Apps           int `json:"apps"`
	Outreach       int `json:"outreach"`
	CompletedTasks int `json:"completed_tasks"`
}

// StartOfWeek returns the most recent Monday 00:00:00 in now's location.
// Sunday counts as day 7 of the prior week, so it maps to the Monday six days
// earlier.
func StartOfWeek(now time.Time) time.Time {
	days := int(now.Weekday()) - int(time.Monday)
	if now.Weekday() == time.Sunday {
		days = 6
	}
	d := now.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

// ComputeWeekly classifies entries created at or after the current week's
// Monday. The apps counter intentionally keeps the original substring
// heuristic over the details text; its exact matching is part of the
// observable contract.
func ComputeWeekly(entries []ledger.Entry, now time.Time) Weekly {
	var w Weekly
	start := StartOfWeek(now)
	for _, e := range entries {
		created, err := time.Parse(time.RFC3339, e.CreatedAt)
		if err != nil {
			continue
		}
		if created.Before(start) {
			continue
		}
		switch e.ActionType {
		case ledger.ActionMovedStage:
			if strings.Contains(e.Details, "SUBMITTED") || strings.Contains(e.Details, "Application") {
				w.Apps++
			}
		case ledger.ActionCreatedOpp:
			if strings.Contains(e.Details, "Application") {
				w.Apps++
			}
		case ledger.ActionCreatedContact, ledger.ActionOutreachSent:
			w.Outreach++
		case ledger.ActionCompletedTask:
			w.CompletedTasks++
		}
	}
	return w
}
