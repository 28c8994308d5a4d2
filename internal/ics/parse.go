package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "meetcal/internal/log"
)

// Event is a VEVENT from a busy calendar, before recurrence expansion.
type Event struct {
	Source Source

	UID     string
	Summary string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time

	// RecurrenceID is set on overrides of a single recurring instance.
	RecurrenceID *time.Time
}

// ParseICS decodes a VCALENDAR payload. Malformed VEVENTs are logged and
// skipped; only an unreadable calendar is an error.
func ParseICS(src Source, body []byte) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty calendar body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, err := parseEvent(src, ve)
		if err != nil {
			appLog.Warn("skipping VEVENT", "id", src.ID, "err", err)
			continue
		}
		events = append(events, ev)
	}
	appLog.Debug("busy calendar parsed", "id", src.ID, "events", len(events))
	return events, nil
}

func parseEvent(src Source, ve *ical.VEvent) (Event, error) {
	ev := Event{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return ev, fmt.Errorf("%s: missing DTSTART", ev.UID)
	}
	ev.AllDay = !strings.Contains(dtstart.Value, "T")
	if vals := dtstart.ICalParameters[string(ical.ParameterValue)]; len(vals) > 0 && strings.EqualFold(vals[0], "DATE") {
		ev.AllDay = true
	}

	var err error
	if ev.AllDay {
		ev.Start, err = ve.GetAllDayStartAt()
	} else {
		ev.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, fmt.Errorf("%s: DTSTART: %w", ev.UID, err)
	}

	switch end, endErr := ve.GetEndAt(); {
	case endErr == nil:
		ev.End = end
	case ve.GetProperty(ical.ComponentPropertyDuration) != nil:
		d, err := parseDuration(ve.GetProperty(ical.ComponentPropertyDuration).Value)
		if err != nil {
			return ev, fmt.Errorf("%s: DURATION: %w", ev.UID, err)
		}
		ev.End = ev.Start.Add(d)
	case ev.AllDay:
		ev.End = ev.Start.AddDate(0, 0, 1)
	default:
		ev.End = ev.Start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := ev.Start.Location()
		if tz := p.ICalParameters["TZID"]; len(tz) == 1 {
			if l, err := time.LoadLocation(tz[0]); err == nil {
				loc = l
			}
		}
		for _, v := range strings.Split(p.Value, ",") {
			if t, err := parseStamp(v, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		loc := ev.Start.Location()
		if tz := p.ICalParameters["TZID"]; len(tz) == 1 {
			if l, err := time.LoadLocation(tz[0]); err == nil {
				loc = l
			}
		}
		if t, err := parseStamp(p.Value, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

// parseStamp reads the DATE / DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. Values without a Z suffix are taken in loc.
func parseStamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty timestamp")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// parseDuration handles the RFC 5545 dur-value subset feeds actually use:
// weeks, days, hours, minutes and seconds.
func parseDuration(v string) (time.Duration, error) {
	s := strings.TrimSpace(v)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("bad duration %q", v)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	n := 0
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
			digits = true
			continue
		case r == 'T':
			inTime = true
			continue
		}
		if !digits {
			return 0, fmt.Errorf("bad duration %q", v)
		}
		unit := time.Duration(n)
		switch {
		case r == 'W' && !inTime:
			total += unit * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			total += unit * 24 * time.Hour
		case r == 'H' && inTime:
			total += unit * time.Hour
		case r == 'M' && inTime:
			total += unit * time.Minute
		case r == 'S' && inTime:
			total += unit * time.Second
		default:
			return 0, fmt.Errorf("bad duration %q", v)
		}
		n, digits = 0, false
	}
	if digits {
		return 0, fmt.Errorf("bad duration %q", v)
	}
	if neg {
		total = -total
	}
	return total, nil
}
