package timetable

import (
	"bytes"
	"strings"
	"testing"

	"meetcal/internal/model"
)

func sampleLists() ([]model.ScheduleEntry, []model.Reservation) {
	entries := []model.ScheduleEntry{
		{Week: 0, Day: model.Monday, Start: 10, Name: "Late", Category: model.Review, Duration: 1, Recurrence: model.Monthly},
		{Week: 0, Day: model.Monday, Start: 2, Name: "Early", Category: model.OneToOne, Duration: 1, Recurrence: model.Weekly},
		{Week: 2, Day: model.Tuesday, Start: 0, Name: "Mgmt", Category: model.Management, Duration: 2, Recurrence: model.Fortnightly},
	}
	reservations := []model.Reservation{{Day: model.Monday, Start: 8, Duration: 2}}
	return entries, reservations
}

func TestBuildOrdersRowsByStart(t *testing.T) {
	entries, reservations := sampleLists()
	v := Build(entries, reservations)

	rows := v.Weeks[0][model.Monday]
	if len(rows) != 3 {
		t.Fatalf("expected 3 Monday rows in week 1, got %d", len(rows))
	}
	names := []string{rows[0].Name, rows[1].Name, rows[2].Name}
	want := []string{"Early", "Reserved (External)", "Late"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("row order %v, want %v", names, want)
		}
	}
	for week := 1; week < model.Weeks; week++ {
		if len(v.Weeks[week][model.Monday]) != 1 {
			t.Fatalf("week %d: reservation should be the only Monday row", week+1)
		}
	}
}

func TestBuildSummaryDividesByCycle(t *testing.T) {
	entries, reservations := sampleLists()
	v := Build(entries, reservations)

	if got := v.Summary.MeetingHours[model.Monday]; got != 0.25 {
		t.Fatalf("Monday meeting hours: got %.2f, want 0.25", got)
	}
	if got := v.Summary.TotalHours[model.Monday]; got != 1.25 {
		t.Fatalf("Monday total hours: got %.2f, want 1.25", got)
	}
	if got := v.Summary.MeetingHours[model.Tuesday]; got != 0.25 {
		t.Fatalf("Tuesday meeting hours: got %.2f, want 0.25", got)
	}
}

func TestRenderFormat(t *testing.T) {
	entries, reservations := sampleLists()
	var buf bytes.Buffer
	if err := Render(&buf, entries, reservations); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, line := range []string{
		"10:00–10:30 - Early (one-to-one, 30 min, weekly)",
		"14:00–15:00 - Reserved (External) (reserved, 60 min, weekly)",
		"15:00–15:30 - Late (review, 30 min, monthly)",
		"09:00–10:00 - Mgmt (management, 60 min, fortnightly)",
		"Week 4",
		"No meetings.",
		"Average meeting hours per day: Monday: 0.2 Tuesday: 0.2 Wednesday: 0.0 Thursday: 0.0",
		"Total hours per day (meetings + reservations): Monday: 1.2",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("output missing %q:\n%s", line, out)
		}
	}
	if strings.Index(out, "Early") > strings.Index(out, "Late") {
		t.Fatalf("rows not sorted by start:\n%s", out)
	}
}
