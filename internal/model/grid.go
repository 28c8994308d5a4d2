package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Grid geometry. A working day is a morning band and an afternoon band of
// half-hour slots with the lunch break between them. The break is not part
// of the grid: slot index 6 is 13:00, not 12:00.
const (
	Weeks            = 4
	SlotMinutes      = 30
	MorningSlots     = 6
	AfternoonSlots   = 8
	SlotsPerDay      = MorningSlots + AfternoonSlots
	MaxDurationSlots = 3

	dayStartMinute = 9 * 60
	breakMinutes   = 60
	closingMinute  = 17 * 60
)

// ErrInvalid is wrapped by every parse/validation failure in this package.
var ErrInvalid = errors.New("invalid input")

// Day is a working day of the cycle. Only Monday–Thursday are bookable.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
)

// DaysPerWeek is the number of bookable days in a week.
const DaysPerWeek = 4

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday"}

// Days returns all bookable days in natural order.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday}
}

func (d Day) Valid() bool { return d >= Monday && d <= Thursday }

func (d Day) String() string {
	if !d.Valid() {
		return "Day(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

// Offset is the number of calendar days from the Monday of the same week.
func (d Day) Offset() int { return int(d) }

// ParseDay resolves a working-day name (case-insensitive).
func ParseDay(s string) (Day, error) {
	name := strings.TrimSpace(s)
	for i, n := range dayNames {
		if strings.EqualFold(n, name) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown day %q", ErrInvalid, s)
}

// DayFromWeekday maps a time.Weekday onto the grid; Friday–Sunday report false.
func DayFromWeekday(w time.Weekday) (Day, bool) {
	if w < time.Monday || w > time.Thursday {
		return 0, false
	}
	return Day(w - time.Monday), true
}

// Slot is an index into a day's half-hour grid, 0..SlotsPerDay-1.
type Slot int

func (s Slot) Valid() bool { return s >= 0 && s < SlotsPerDay }

// Minute returns the wall-clock start of the slot in minutes after midnight.
// The lunch break is skipped for afternoon slots.
func (s Slot) Minute() int {
	m := dayStartMinute + int(s)*SlotMinutes
	if s >= MorningSlots {
		m += breakMinutes
	}
	return m
}

// Clock formats the slot start as "HH:MM".
func (s Slot) Clock() string { return formatClock(s.Minute()) }

func (s Slot) String() string {
	if !s.Valid() {
		return "Slot(" + strconv.Itoa(int(s)) + ")"
	}
	return s.Clock()
}

// EndClock is the wall-clock end of a span of duration slots starting at s.
func (s Slot) EndClock(duration int) string {
	return formatClock(s.Minute() + duration*SlotMinutes)
}

// SlotAt returns the slot starting exactly at minute (after midnight).
func SlotAt(minute int) (Slot, bool) {
	for s := Slot(0); s < SlotsPerDay; s++ {
		if s.Minute() == minute {
			return s, true
		}
	}
	return 0, false
}

// ParseSlot resolves "HH:MM" to the grid slot starting at that time.
// Times inside the lunch break and times off the half-hour grid fail.
func ParseSlot(hhmm string) (Slot, error) {
	minute, err := parseClock(hhmm)
	if err != nil {
		return 0, err
	}
	if IsBreakMinute(minute) {
		return 0, fmt.Errorf("%w: %s falls in the lunch break", ErrInvalid, hhmm)
	}
	s, ok := SlotAt(minute)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a slot start", ErrInvalid, hhmm)
	}
	return s, nil
}

// IsBreakMinute reports whether minute (after midnight) lies in the lunch break.
func IsBreakMinute(minute int) bool {
	start := dayStartMinute + MorningSlots*SlotMinutes
	return minute >= start && minute < start+breakMinutes
}

// CrossesBreak reports whether a span starts in the morning band and runs
// into the afternoon band.
func CrossesBreak(start Slot, duration int) bool {
	return start < MorningSlots && int(start)+duration > MorningSlots
}

// Fits reports whether a span of duration slots starting at start lies
// entirely inside one band of the grid and ends by closing time.
func Fits(start Slot, duration int) bool {
	if !start.Valid() || duration < 1 {
		return false
	}
	if int(start)+duration > SlotsPerDay {
		return false
	}
	if start.Minute()+duration*SlotMinutes > closingMinute {
		return false
	}
	return !CrossesBreak(start, duration)
}

// DurationSlots converts minutes to slots. Only 30, 60 and 90 are accepted.
func DurationSlots(minutes int) (int, error) {
	if minutes <= 0 || minutes%SlotMinutes != 0 || minutes/SlotMinutes > MaxDurationSlots {
		return 0, fmt.Errorf("%w: duration %d min (want 30, 60 or 90)", ErrInvalid, minutes)
	}
	return minutes / SlotMinutes, nil
}

func parseClock(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("%w: time %q: want HH:MM", ErrInvalid, hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
