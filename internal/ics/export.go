package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"meetcal/internal/model"
)

// ProductID is written as the calendar PRODID.
const ProductID = "-//meetcal//Meeting Scheduler//EN"

var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://meetcal.invalid/events"))

// ExportOptions anchors the 4-week cycle in real time.
type ExportOptions struct {
	// Epoch is the Monday that starts week 1. Its date is used in Location.
	Epoch time.Time
	// Location, when set, writes DTSTART as wall-clock time with a TZID
	// parameter and a matching VTIMEZONE, so recurrences keep their local
	// time across DST changes. UTC is written with a Z suffix. Nil (or
	// time.Local) writes floating local times.
	Location *time.Location
	// Now stamps DTSTAMP; zero means time.Now().
	Now time.Time
}

type group struct {
	key   string
	first model.ScheduleEntry
}

// Export builds a VCALENDAR with one VEVENT per (name, category, duration,
// recurrence) group, anchored at the group's earliest week, and one weekly
// VEVENT per reservation.
//
// The RRULE interval is Recurrence.Interval(). For third_week and monthly
// it does not stop after the single placed occurrence, so calendar clients
// show more instances than were scheduled.
func Export(entries []model.ScheduleEntry, reservations []model.Reservation, opts ExportOptions) (*ical.Calendar, error) {
	if opts.Epoch.IsZero() {
		return nil, errors.New("ics: export epoch is not set")
	}
	if opts.Epoch.Weekday() != time.Monday {
		return nil, fmt.Errorf("ics: export epoch %s is a %s, want a Monday", opts.Epoch.Format(time.DateOnly), opts.Epoch.Weekday())
	}
	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendarFor("meetcal")
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	zone := zoneID(opts.Location)
	if zone != "" && zone != "UTC" {
		cal.SetXWRTimezone(zone)
		addTimezone(cal, opts.Location, opts.Epoch)
	}

	for _, g := range groupEntries(entries) {
		e := g.first
		ev := cal.AddEvent(eventUID("meeting", g.key))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(fmt.Sprintf("%s (%s)", e.Name, e.Category))
		setStart(ev, slotTime(opts, e.Week, e.Day, e.Start), zone)
		ev.SetProperty(ical.ComponentPropertyDuration, isoMinutes(e.Minutes()))
		rule := rrule.ROption{Freq: rrule.WEEKLY, Interval: e.Recurrence.Interval()}
		ev.AddRrule(rule.RRuleString())
		ev.AddCategory(e.Category.String())
		ev.SetDescription(fmt.Sprintf("Type: %s, Duration: %d min, Frequency: %s", e.Category, e.Minutes(), e.Recurrence))
	}

	for i, r := range reservations {
		key := fmt.Sprintf("%d|%s|%s|%d", i, r.Day, r.Start, r.Duration)
		ev := cal.AddEvent(eventUID("reservation", key))
		ev.SetDtStampTime(stamp)
		ev.SetSummary("Reserved (External)")
		setStart(ev, slotTime(opts, 0, r.Day, r.Start), zone)
		ev.SetProperty(ical.ComponentPropertyDuration, isoMinutes(r.Minutes()))
		rule := rrule.ROption{Freq: rrule.WEEKLY}
		ev.AddRrule(rule.RRuleString())
		ev.AddCategory(model.Reserved.String())
		ev.SetDescription(fmt.Sprintf("External commitment, Duration: %d min", r.Minutes()))
	}
	return cal, nil
}

// Serialize renders cal with CRLF line endings.
func Serialize(cal *ical.Calendar) string {
	return cal.Serialize(ical.WithNewLineWindows)
}

// WriteFile exports to path via a temp file and rename.
func WriteFile(path string, entries []model.ScheduleEntry, reservations []model.Reservation, opts ExportOptions) error {
	cal, err := Export(entries, reservations, opts)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".meetcal-export-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := cal.SerializeTo(tmp, ical.WithNewLineWindows); err != nil {
		tmp.Close()
		return fmt.Errorf("ics: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// groupEntries keeps groups in order of first appearance and, per group, the
// entry with the earliest week.
func groupEntries(entries []model.ScheduleEntry) []group {
	index := make(map[string]int)
	var groups []group
	for _, e := range entries {
		key := fmt.Sprintf("%s|%s|%d|%s", e.Name, e.Category, e.Duration, e.Recurrence)
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, group{key: key, first: e})
			continue
		}
		if e.Week < groups[i].first.Week {
			groups[i].first = e
		}
	}
	return groups
}

func slotTime(opts ExportOptions, week int, day model.Day, start model.Slot) time.Time {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := opts.Epoch.Date()
	minute := start.Minute()
	return time.Date(y, m, d+day.Offset()+week*7, minute/60, minute%60, 0, 0, loc)
}

func setStart(ev *ical.VEvent, t time.Time, zone string) {
	switch zone {
	case "":
		ev.SetProperty(ical.ComponentPropertyDtStart, t.Format(localStamp))
	case "UTC":
		ev.SetStartAt(t)
	default:
		ev.SetProperty(ical.ComponentPropertyDtStart, t.Format(localStamp), ical.WithTZID(zone))
	}
}

const localStamp = "20060102T150405"

// zoneID is the TZID written for loc; empty means floating.
func zoneID(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}

// addTimezone writes a VTIMEZONE for loc with one observance per offset
// change from the start of the epoch's year through two years later. A
// zone without changes in that span gets a single STANDARD observance.
func addTimezone(cal *ical.Calendar, loc *time.Location, epoch time.Time) {
	tz := cal.AddTimezone(loc.String())
	from := time.Date(epoch.Year(), time.January, 1, 0, 0, 0, 0, loc)
	until := from.AddDate(2, 0, 0)

	t := from
	added := false
	for {
		_, end := t.ZoneBounds()
		if end.IsZero() || !end.Before(until) {
			break
		}
		before := end.Add(-time.Second)
		_, prevOffset := before.Zone()
		name, offset := end.Zone()
		onset := end.In(time.FixedZone("", prevOffset))

		obs := ical.ComponentBase{}
		obs.SetProperty(ical.ComponentPropertyDtStart, onset.Format(localStamp))
		obs.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), utcOffset(prevOffset))
		obs.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), utcOffset(offset))
		obs.SetProperty(ical.ComponentProperty(ical.PropertyTzname), name)
		if end.IsDST() {
			tz.Components = append(tz.Components, &ical.Daylight{ComponentBase: obs})
		} else {
			tz.Components = append(tz.Components, &ical.Standard{ComponentBase: obs})
		}
		added = true
		t = end
	}
	if added {
		return
	}
	name, offset := from.Zone()
	std := tz.AddStandard()
	std.SetProperty(ical.ComponentPropertyDtStart, "19700101T000000")
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), utcOffset(offset))
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), utcOffset(offset))
	std.SetProperty(ical.ComponentProperty(ical.PropertyTzname), name)
}

// utcOffset formats seconds east of UTC as +hhmm.
func utcOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, seconds%3600/60)
}

func eventUID(kind, key string) string {
	return uuid.NewSHA1(uidSpace, []byte(kind+"|"+key)).String() + "@meetcal"
}

func isoMinutes(m int) string {
	return "PT" + strconv.Itoa(m) + "M"
}
