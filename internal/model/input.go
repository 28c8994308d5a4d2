package model

import (
	"fmt"
	"strings"
)

// ReservationSpec is the textual form of a reservation as it arrives from
// configuration or an imported calendar.
type ReservationSpec struct {
	Day     string `yaml:"day" json:"day"`
	Start   string `yaml:"start" json:"start"`
	Minutes int    `yaml:"minutes" json:"minutes"`

	// Source names where the reservation came from (config, calendar ID).
	Source string `yaml:"-" json:"source,omitempty"`
}

// Parse resolves the day and start time. Span checks are left to the
// reservation book.
func (r ReservationSpec) Parse() (Day, Slot, error) {
	day, err := ParseDay(r.Day)
	if err != nil {
		return 0, 0, err
	}
	start, err := ParseSlot(r.Start)
	if err != nil {
		return 0, 0, err
	}
	return day, start, nil
}

func (r ReservationSpec) String() string {
	return fmt.Sprintf("%s %s %dmin", r.Day, r.Start, r.Minutes)
}

// MeetingSpec is the textual form of a meeting request.
type MeetingSpec struct {
	Name       string   `yaml:"name" json:"name"`
	Category   string   `yaml:"category" json:"category"`
	Minutes    int      `yaml:"minutes" json:"minutes"`
	Preferred  []string `yaml:"preferred,omitempty" json:"preferred,omitempty"`
	FixedDay   string   `yaml:"fixed_day,omitempty" json:"fixed_day,omitempty"`
	FixedTime  string   `yaml:"fixed_time,omitempty" json:"fixed_time,omitempty"`
	Recurrence string   `yaml:"recurrence" json:"recurrence"`
}

// Request converts the spec into a MeetingRequest. Every failure wraps
// ErrInvalid.
func (m MeetingSpec) Request() (MeetingRequest, error) {
	req := MeetingRequest{Name: strings.TrimSpace(m.Name)}
	if req.Name == "" {
		return req, fmt.Errorf("%w: meeting name is empty", ErrInvalid)
	}

	cat, err := ParseCategory(m.Category)
	if err != nil {
		return req, err
	}
	if cat == Reserved {
		return req, fmt.Errorf("%w: category %q is reserved for external commitments", ErrInvalid, m.Category)
	}
	req.Category = cat

	if req.Duration, err = DurationSlots(m.Minutes); err != nil {
		return req, err
	}
	if req.Recurrence, err = ParseRecurrence(m.Recurrence); err != nil {
		return req, err
	}

	for _, p := range m.Preferred {
		s, err := ParseSlot(p)
		if err != nil {
			return req, fmt.Errorf("preferred time: %w", err)
		}
		req.Preferred = append(req.Preferred, s)
	}

	if strings.TrimSpace(m.FixedDay) != "" {
		d, err := ParseDay(m.FixedDay)
		if err != nil {
			return req, fmt.Errorf("fixed day: %w", err)
		}
		req.FixedDay = &d
	}
	if strings.TrimSpace(m.FixedTime) != "" {
		s, err := ParseSlot(m.FixedTime)
		if err != nil {
			return req, fmt.Errorf("fixed time: %w", err)
		}
		req.FixedTime = &s
	}
	return req, nil
}
