package ics

import (
	"cmp"
	"slices"
	"time"

	"meetcal/internal/model"
)

// CycleDays is the length of the planning cycle in calendar days.
const CycleDays = model.Weeks * 7

// CycleWindow returns the expansion window for a cycle starting at epoch.
func CycleWindow(epoch time.Time) Window {
	return Window{From: epoch, To: epoch.AddDate(0, 0, CycleDays), Location: epoch.Location()}
}

// BusyReservations folds busy occurrences into reservation requests. An
// occurrence qualifies when it is timed, starts inside the cycle on Monday
// to Thursday exactly on a grid slot, and lasts 30, 60 or 90 minutes within
// one band of the day. Each distinct day/start/length is returned once, in
// day and time order; the rest come back as skipped.
func BusyReservations(occs []Occurrence, epoch time.Time) (specs []model.ReservationSpec, skipped []Occurrence) {
	end := epoch.AddDate(0, 0, CycleDays)
	seen := make(map[model.ReservationSpec]bool)

	type keyed struct {
		day   model.Day
		start model.Slot
		spec  model.ReservationSpec
	}
	var found []keyed

	for _, o := range occs {
		start := o.Start.In(epoch.Location())
		if o.AllDay || start.Before(epoch) || !start.Before(end) {
			skipped = append(skipped, o)
			continue
		}
		day, ok := model.DayFromWeekday(start.Weekday())
		if !ok {
			skipped = append(skipped, o)
			continue
		}
		slot, ok := model.SlotAt(start.Hour()*60 + start.Minute())
		if !ok || start.Second() != 0 {
			skipped = append(skipped, o)
			continue
		}
		minutes := int(o.End.Sub(o.Start) / time.Minute)
		duration, err := model.DurationSlots(minutes)
		if err != nil || !model.Fits(slot, duration) {
			skipped = append(skipped, o)
			continue
		}

		spec := model.ReservationSpec{Day: day.String(), Start: slot.Clock(), Minutes: minutes}
		if seen[spec] {
			continue
		}
		seen[spec] = true
		spec.Source = o.SourceID
		found = append(found, keyed{day: day, start: slot, spec: spec})
	}

	slices.SortStableFunc(found, func(a, b keyed) int {
		if c := cmp.Compare(a.day, b.day); c != 0 {
			return c
		}
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.spec.Minutes, b.spec.Minutes)
	})
	for _, k := range found {
		specs = append(specs, k.spec)
	}
	return specs, skipped
}
