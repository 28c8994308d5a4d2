package schedule

import (
	"fmt"

	"meetcal/internal/model"
)

// Audit rebuilds occupancy from the entry and reservation lists alone and
// reports the first cell claimed twice.
func Audit(entries []model.ScheduleEntry, reservations []model.Reservation) error {
	var owner [model.Weeks][model.DaysPerWeek][model.SlotsPerDay]string

	claim := func(week int, day model.Day, start model.Slot, duration int, who string) error {
		if week < 0 || week >= model.Weeks || !day.Valid() || !model.Fits(start, duration) {
			return fmt.Errorf("schedule: %s at week %d %s %s +%d is off the grid", who, week+1, day, start, duration)
		}
		for i := 0; i < duration; i++ {
			slot := int(start) + i
			if prev := owner[week][day][slot]; prev != "" {
				return fmt.Errorf("%w: week %d %s %s claimed by %s and %s",
					ErrSlotConflict, week+1, day, model.Slot(slot), prev, who)
			}
			owner[week][day][slot] = who
		}
		return nil
	}

	for i, r := range reservations {
		who := fmt.Sprintf("reservation #%d", i+1)
		for week := 0; week < model.Weeks; week++ {
			if err := claim(week, r.Day, r.Start, r.Duration, who); err != nil {
				return err
			}
		}
	}
	for _, e := range entries {
		if err := claim(e.Week, e.Day, e.Start, e.Duration, fmt.Sprintf("%q", e.Name)); err != nil {
			return err
		}
	}
	return nil
}
