package ics

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "meetcal/internal/log"
)

const defaultMaxPerEvent = 1000

// Occurrence is one concrete busy interval.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	AllDay   bool
	Start    time.Time
	End      time.Time
}

// Window bounds an expansion. Occurrences overlapping [From, To) are kept
// and reported in Location (time.Local when nil).
type Window struct {
	From     time.Time
	To       time.Time
	Location *time.Location

	// MaxPerEvent caps the instances of a single recurring event.
	MaxPerEvent int
}

// Expand turns parsed events into occurrences inside the window, applying
// RRULE, EXDATE and RECURRENCE-ID overrides. The result is sorted by start.
func Expand(events []Event, w Window) ([]Occurrence, error) {
	if !w.To.After(w.From) {
		return nil, errors.New("ics: expansion window is empty")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxPerEvent <= 0 {
		w.MaxPerEvent = defaultMaxPerEvent
	}

	overrides := make(map[string][]Event)
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []Occurrence
	for _, ev := range bases {
		for _, inst := range instances(ev, w) {
			// Overridden instances are emitted from the override below,
			// wherever it moved to.
			if _, ok := overrideFor(overrides[ev.UID], inst.Start); ok {
				continue
			}
			if overlaps(inst, w) {
				out = append(out, occurrence(inst, w.Location))
			}
		}
	}
	for _, evs := range overrides {
		for _, o := range evs {
			if overlaps(o, w) {
				out = append(out, occurrence(o, w.Location))
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})
	return out, nil
}

// instances returns one Event per start of ev, with RRule cleared.
func instances(ev Event, w Window) []Event {
	if ev.RRule == "" {
		return []Event{ev}
	}

	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Warn("unparseable RRULE; using first instance only", "uid", ev.UID, "rrule", ev.RRule, "err", err)
		return []Event{ev}
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	length := ev.End.Sub(ev.Start)
	// Widen by the event length so instances starting before the window
	// but still running into it are found.
	starts := set.Between(w.From.Add(-length).In(ev.Start.Location()), w.To.In(ev.Start.Location()), true)
	if len(starts) > w.MaxPerEvent {
		appLog.Warn("recurring event truncated", "uid", ev.UID, "cap", w.MaxPerEvent)
		starts = starts[:w.MaxPerEvent]
	}

	out := make([]Event, 0, len(starts))
	for _, s := range starts {
		inst := ev
		inst.RRule = ""
		inst.Start = s
		inst.End = s.Add(length)
		out = append(out, inst)
	}
	return out
}

func overlaps(ev Event, w Window) bool {
	return ev.End.After(w.From) && ev.Start.Before(w.To)
}

func overrideFor(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func occurrence(ev Event, loc *time.Location) Occurrence {
	return Occurrence{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		AllDay:   ev.AllDay,
		Start:    ev.Start.In(loc),
		End:      ev.End.In(loc),
	}
}
