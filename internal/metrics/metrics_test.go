package metrics

import (
	"testing"
	"time"

	"jobos/internal/ledger"
)

func TestStartOfWeek(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "wednesday",
			now:  time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC), // Wed
			want: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),   // Mon
		},
		{
			name: "monday stays",
			now:  time.Date(2024, 6, 10, 0, 0, 1, 0, time.UTC),
			want: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday is day seven",
			now:  time.Date(2024, 6, 16, 23, 0, 0, 0, time.UTC), // Sun
			want: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),  // prior Mon
		},
	}
	for _, c := range cases {
		if got := StartOfWeek(c.now); !got.Equal(c.want) {
			t.Errorf("%s: StartOfWeek(%v) = %v, want %v", c.name, c.now, got, c.want)
		}
	}
}

func TestComputeWeeklyEmpty(t *testing.T) {
	w := ComputeWeekly(nil, time.Now())
	if w.Apps != 0 || w.Outreach != 0 || w.CompletedTasks != 0 {
		t.Fatalf("expected zero metrics, got %+v", w)
	}
}

func TestComputeWeeklyCounts(t *testing.T) {
	now := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC) // Friday
	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string {
		return monday.Add(d).Format(time.RFC3339)
	}
	entries := []ledger.Entry{
		{ActionType: ledger.ActionCreatedContact, CreatedAt: at(24 * time.Hour)},
		{ActionType: ledger.ActionCompletedTask, CreatedAt: at(48 * time.Hour)},
		{ActionType: ledger.ActionMovedStage, Details: "Moved opp to SUBMITTED", CreatedAt: at(72 * time.Hour)},
	}
	w := ComputeWeekly(entries, now)
	if w.Apps != 1 || w.Outreach != 1 || w.CompletedTasks != 1 {
		t.Fatalf("got %+v, want {1 1 1}", w)
	}
}

func TestComputeWeeklyExcludesPriorWeek(t *testing.T) {
	// A Thursday entry computed against the following Monday must be excluded
	// even though it falls within the trailing seven days.
	thursday := time.Date(2024, 6, 6, 12, 0, 0, 0, time.UTC)
	followingMonday := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{ActionType: ledger.ActionCompletedTask, CreatedAt: thursday.Format(time.RFC3339)},
	}
	w := ComputeWeekly(entries, followingMonday)
	if w.CompletedTasks != 0 {
		t.Fatalf("prior-week entry counted: %+v", w)
	}
}

func TestComputeWeeklyAppsHeuristic(t *testing.T) {
	now := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	entries := []ledger.Entry{
		{ActionType: ledger.ActionMovedStage, Details: ledger.MovedOppDetail("SUBMITTED"), CreatedAt: ts},
		{ActionType: ledger.ActionMovedStage, Details: ledger.ConvertedOppDetail("Firmware Engineer"), CreatedAt: ts},
		{ActionType: ledger.ActionMovedStage, Details: ledger.MovedOppDetail("INTERVIEWING"), CreatedAt: ts},
		{ActionType: ledger.ActionCreatedOpp, Details: ledger.CreatedOppDetail("IoT Developer", "Bosch"), CreatedAt: ts},
	}
	w := ComputeWeekly(entries, now)
	// SUBMITTED move and the conversion summary ("Application pipeline") count;
	// INTERVIEWING and a plain created_opp do not.
	if w.Apps != 2 {
		t.Fatalf("apps = %d, want 2", w.Apps)
	}
}
