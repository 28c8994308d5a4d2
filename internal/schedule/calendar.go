package schedule

import (
	"fmt"

	"meetcal/internal/model"
)

// Calendar is the occupancy grid for one scheduling run: week × day × slot,
// plus per-day load counters kept in step with every commit so the
// placement search never has to rescan the grid.
//
// Loads are hours summed over all weeks of the cycle. meetingLoad counts
// committed meetings only; totalLoad adds reservations.
type Calendar struct {
	occupied    [model.Weeks][model.DaysPerWeek][model.SlotsPerDay]bool
	meetingLoad [model.DaysPerWeek]float64
	totalLoad   [model.DaysPerWeek]float64
}

// NewCalendar returns an empty grid.
func NewCalendar() *Calendar {
	return &Calendar{}
}

// Bookable reports whether duration slots starting at start are inside the
// grid, stay within one band, end by closing time and are free in week.
// It has no side effects.
func (c *Calendar) Bookable(week int, day model.Day, start model.Slot, duration int) bool {
	if week < 0 || week >= model.Weeks || !day.Valid() {
		return false
	}
	if !model.Fits(start, duration) {
		return false
	}
	for i := 0; i < duration; i++ {
		if c.occupied[week][day][int(start)+i] {
			return false
		}
	}
	return true
}

// Commit marks the span occupied in a single week and books its hours.
// The caller must have seen Bookable return true for the same arguments;
// Commit does not check again.
func (c *Calendar) Commit(week int, day model.Day, start model.Slot, duration int, meeting bool) {
	for i := 0; i < duration; i++ {
		c.occupied[week][day][int(start)+i] = true
	}
	hours := float64(duration) * 0.5
	c.totalLoad[day] += hours
	if meeting {
		c.meetingLoad[day] += hours
	}
}

// CommitAllWeeks marks the span occupied in every week. If any week has a
// conflict nothing is marked and the error wraps ErrSlotConflict. Loads are
// left to the caller.
func (c *Calendar) CommitAllWeeks(day model.Day, start model.Slot, duration int) error {
	if !day.Valid() || !model.Fits(start, duration) {
		return fmt.Errorf("%w: span %s %s +%d slots is outside the grid", ErrInvalidInput, day, start, duration)
	}
	for week := 0; week < model.Weeks; week++ {
		for i := 0; i < duration; i++ {
			slot := model.Slot(int(start) + i)
			if c.occupied[week][day][slot] {
				return fmt.Errorf("%w: %s %s already taken in week %d", ErrSlotConflict, day, slot, week+1)
			}
		}
	}
	for week := 0; week < model.Weeks; week++ {
		for i := 0; i < duration; i++ {
			c.occupied[week][day][int(start)+i] = true
		}
	}
	return nil
}

// Occupied reports a single cell. Out-of-range cells read as free.
func (c *Calendar) Occupied(week int, day model.Day, slot model.Slot) bool {
	if week < 0 || week >= model.Weeks || !day.Valid() || !slot.Valid() {
		return false
	}
	return c.occupied[week][day][slot]
}

// MeetingLoad is the meeting-only hours booked on day across the cycle.
func (c *Calendar) MeetingLoad(day model.Day) float64 { return c.meetingLoad[day] }

// TotalLoad is meetings plus reservations on day across the cycle.
func (c *Calendar) TotalLoad(day model.Day) float64 { return c.totalLoad[day] }

// DayLoad is a snapshot of one day's counters.
type DayLoad struct {
	Day          model.Day `json:"-"`
	DayName      string    `json:"day"`
	MeetingHours float64   `json:"meeting_hours"`
	TotalHours   float64   `json:"total_hours"`
}

// Loads snapshots all day counters in day order.
func (c *Calendar) Loads() []DayLoad {
	out := make([]DayLoad, 0, model.DaysPerWeek)
	for _, d := range model.Days() {
		out = append(out, DayLoad{
			Day:          d,
			DayName:      d.String(),
			MeetingHours: c.meetingLoad[d],
			TotalHours:   c.totalLoad[d],
		})
	}
	return out
}

// CheckLoads verifies the incremental counters against the hours derivable
// from the committed entries and reservations.
func (c *Calendar) CheckLoads(entries []model.ScheduleEntry, reservations []model.Reservation) error {
	var meeting, total [model.DaysPerWeek]float64
	for _, e := range entries {
		meeting[e.Day] += float64(e.Duration) * 0.5
		total[e.Day] += float64(e.Duration) * 0.5
	}
	for _, r := range reservations {
		total[r.Day] += float64(r.Duration) * 0.5 * model.Weeks
	}
	for _, d := range model.Days() {
		if meeting[d] != c.meetingLoad[d] {
			return fmt.Errorf("schedule: %s meeting load %.1fh, entries give %.1fh", d, c.meetingLoad[d], meeting[d])
		}
		if total[d] != c.totalLoad[d] {
			return fmt.Errorf("schedule: %s total load %.1fh, entries give %.1fh", d, c.totalLoad[d], total[d])
		}
	}
	return nil
}
