package schedule

import (
	"fmt"

	"meetcal/internal/model"
)

// Book records external commitments. Each reservation occupies its span in
// every week of the cycle or not at all.
type Book struct {
	cal          *Calendar
	reservations []model.Reservation
}

// NewBook wires a reservation book to the calendar it blocks.
func NewBook(cal *Calendar) *Book {
	return &Book{cal: cal}
}

// Reserve parses a textual reservation and adds it.
func (b *Book) Reserve(spec model.ReservationSpec) (model.Reservation, error) {
	day, start, err := spec.Parse()
	if err != nil {
		return model.Reservation{}, err
	}
	return b.Add(day, start, spec.Minutes)
}

// Add validates the span and blocks it for all weeks. Conflicts in any week
// abort the whole reservation with no cells changed.
func (b *Book) Add(day model.Day, start model.Slot, minutes int) (model.Reservation, error) {
	if !day.Valid() {
		return model.Reservation{}, fmt.Errorf("%w: day %d", ErrInvalidInput, day)
	}
	if !start.Valid() {
		return model.Reservation{}, fmt.Errorf("%w: slot %d", ErrInvalidInput, start)
	}
	duration, err := model.DurationSlots(minutes)
	if err != nil {
		return model.Reservation{}, err
	}
	if model.CrossesBreak(start, duration) {
		return model.Reservation{}, fmt.Errorf("%w: %s %s +%dmin runs into the lunch break", ErrInvalidInput, day, start, minutes)
	}
	if !model.Fits(start, duration) {
		return model.Reservation{}, fmt.Errorf("%w: %s %s +%dmin runs past closing", ErrInvalidInput, day, start, minutes)
	}

	if err := b.cal.CommitAllWeeks(day, start, duration); err != nil {
		return model.Reservation{}, err
	}

	r := model.Reservation{Day: day, Start: start, Duration: duration}
	b.reservations = append(b.reservations, r)
	b.cal.totalLoad[day] += float64(duration) * 0.5 * model.Weeks
	return r, nil
}

// Reservations returns the accepted reservations in insertion order.
func (b *Book) Reservations() []model.Reservation {
	out := make([]model.Reservation, len(b.reservations))
	copy(out, b.reservations)
	return out
}
