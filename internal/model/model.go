package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Recurrence says how many weeks of the cycle a meeting occupies.
type Recurrence int

const (
	Weekly Recurrence = iota
	Fortnightly
	ThirdWeek
	Monthly
)

var recurrenceNames = [...]string{"weekly", "fortnightly", "third_week", "monthly"}

func (r Recurrence) Valid() bool { return r >= Weekly && r <= Monthly }

func (r Recurrence) String() string {
	if !r.Valid() {
		return "Recurrence(" + strconv.Itoa(int(r)) + ")"
	}
	return recurrenceNames[r]
}

// Occurrences is the number of distinct weeks the meeting needs per cycle.
func (r Recurrence) Occurrences() int {
	switch r {
	case Weekly:
		return 4
	case Fortnightly:
		return 2
	default:
		return 1
	}
}

// Interval is the week interval written to the exported RRULE. For
// third_week and monthly this over-approximates the single placed occurrence.
func (r Recurrence) Interval() int {
	return int(r) + 1
}

func ParseRecurrence(s string) (Recurrence, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range recurrenceNames {
		if n == name {
			return Recurrence(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown recurrence %q", ErrInvalid, s)
}

// Category labels a meeting. Reserved marks external commitments and is
// never accepted as meeting input.
type Category int

const (
	OneToOne Category = iota
	Management
	Review
	ClientUpdate
	Reserved
)

var categoryNames = [...]string{"one-to-one", "management", "review", "client update", "reserved"}

func (c Category) Valid() bool { return c >= OneToOne && c <= Reserved }

func (c Category) String() string {
	if !c.Valid() {
		return "Category(" + strconv.Itoa(int(c)) + ")"
	}
	return categoryNames[c]
}

func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", " ")
	for i, n := range categoryNames {
		if n == name || strings.ReplaceAll(n, "-", " ") == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrInvalid, s)
}

// Reservation is an external commitment that blocks the same span in every
// week of the cycle.
type Reservation struct {
	Day      Day
	Start    Slot
	Duration int // slots
}

func (r Reservation) Minutes() int { return r.Duration * SlotMinutes }

// MeetingRequest is one catalogue item to be placed.
type MeetingRequest struct {
	Name     string
	Category Category
	Duration int // slots, 1..MaxDurationSlots

	// Preferred lists acceptable start slots in priority order. Empty means
	// any slot of the day.
	Preferred []Slot

	FixedDay  *Day
	FixedTime *Slot

	Recurrence Recurrence
}

// ScheduleEntry is one committed occurrence of a meeting.
type ScheduleEntry struct {
	Week       int // 0-based
	Day        Day
	Start      Slot
	Name       string
	Category   Category
	Duration   int // slots
	Recurrence Recurrence
}

func (e ScheduleEntry) Minutes() int { return e.Duration * SlotMinutes }

// Span returns the start-end wall-clock range, e.g. "10:00–10:30".
func (e ScheduleEntry) Span() string {
	return e.Start.Clock() + "–" + e.Start.EndClock(e.Duration)
}
