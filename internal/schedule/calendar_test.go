package schedule

import (
	"errors"
	"testing"

	"meetcal/internal/model"
)

func TestCalendarBookable(t *testing.T) {
	cal := NewCalendar()
	cal.Commit(1, model.Tuesday, 3, 2, true)

	cases := []struct {
		name     string
		week     int
		day      model.Day
		start    model.Slot
		duration int
		want     bool
	}{
		{"free morning", 0, model.Monday, 0, 3, true},
		{"occupied in that week", 1, model.Tuesday, 4, 1, false},
		{"overlaps tail", 1, model.Tuesday, 2, 2, false},
		{"same cells other week", 0, model.Tuesday, 3, 2, true},
		{"crosses lunch break", 0, model.Monday, 5, 2, false},
		{"runs past closing", 0, model.Monday, 13, 2, false},
		{"last slot", 0, model.Monday, 13, 1, true},
		{"bad week", model.Weeks, model.Monday, 0, 1, false},
		{"bad day", 0, model.Day(4), 0, 1, false},
	}
	for _, tc := range cases {
		if got := cal.Bookable(tc.week, tc.day, tc.start, tc.duration); got != tc.want {
			t.Fatalf("%s: Bookable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCalendarCommitCountsLoad(t *testing.T) {
	cal := NewCalendar()
	cal.Commit(0, model.Monday, 0, 3, true)
	cal.Commit(2, model.Monday, 6, 1, false)

	if got := cal.MeetingLoad(model.Monday); got != 1.5 {
		t.Fatalf("expected 1.5h meeting load, got %.2f", got)
	}
	if got := cal.TotalLoad(model.Monday); got != 2.0 {
		t.Fatalf("expected 2.0h total load, got %.2f", got)
	}
	for i := 0; i < 3; i++ {
		if !cal.Occupied(0, model.Monday, model.Slot(i)) {
			t.Fatalf("slot %d should be occupied", i)
		}
	}
	if cal.Occupied(1, model.Monday, 0) {
		t.Fatalf("commit must only touch its own week")
	}
}

func TestCalendarCommitAllWeeksIsAtomic(t *testing.T) {
	cal := NewCalendar()
	cal.Commit(3, model.Wednesday, 9, 1, true)

	err := cal.CommitAllWeeks(model.Wednesday, 8, 2)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	for week := 0; week < 3; week++ {
		if cal.Occupied(week, model.Wednesday, 8) || cal.Occupied(week, model.Wednesday, 9) {
			t.Fatalf("week %d was partially committed", week)
		}
	}

	if err := cal.CommitAllWeeks(model.Wednesday, 0, 2); err != nil {
		t.Fatalf("CommitAllWeeks: %v", err)
	}
	for week := 0; week < model.Weeks; week++ {
		if !cal.Occupied(week, model.Wednesday, 0) || !cal.Occupied(week, model.Wednesday, 1) {
			t.Fatalf("week %d not blocked", week)
		}
	}
}

func TestCalendarLoadsSnapshot(t *testing.T) {
	cal := NewCalendar()
	cal.Commit(0, model.Thursday, 0, 2, true)
	loads := cal.Loads()
	if len(loads) != model.DaysPerWeek {
		t.Fatalf("expected %d day loads, got %d", model.DaysPerWeek, len(loads))
	}
	if loads[model.Thursday].MeetingHours != 1 || loads[model.Thursday].DayName != "Thursday" {
		t.Fatalf("unexpected Thursday load: %+v", loads[model.Thursday])
	}
}
