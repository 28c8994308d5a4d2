package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"meetcal/internal/model"
)

var testEpoch = time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC)

func exportFixture() ([]model.ScheduleEntry, []model.Reservation) {
	var entries []model.ScheduleEntry
	for _, w := range []int{2, 0, 1, 3} {
		entries = append(entries, model.ScheduleEntry{
			Week: w, Day: model.Tuesday, Start: 2, Name: "One-to-one with Ian",
			Category: model.OneToOne, Duration: 1, Recurrence: model.Weekly,
		})
	}
	for _, w := range []int{3, 1} {
		entries = append(entries, model.ScheduleEntry{
			Week: w, Day: model.Thursday, Start: 0, Name: "BIM Review",
			Category: model.Review, Duration: 2, Recurrence: model.Fortnightly,
		})
	}
	reservations := []model.Reservation{{Day: model.Monday, Start: 8, Duration: 2}}
	return entries, reservations
}

func TestExportFloatingCalendar(t *testing.T) {
	entries, reservations := exportFixture()
	cal, err := Export(entries, reservations, ExportOptions{Epoch: testEpoch, Now: testEpoch})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out := Serialize(cal)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:" + ProductID,
		"SUMMARY:One-to-one with Ian (one-to-one)",
		"DTSTART:20250415T100000\r\n",
		"DURATION:PT30M",
		"RRULE:FREQ=WEEKLY;INTERVAL=1\r\n",
		"SUMMARY:BIM Review (review)",
		"DTSTART:20250424T090000\r\n",
		"RRULE:FREQ=WEEKLY;INTERVAL=2\r\n",
		"SUMMARY:Reserved (External)",
		"DTSTART:20250414T140000\r\n",
		"RRULE:FREQ=WEEKLY\r\n",
		"END:VCALENDAR",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 3 {
		t.Fatalf("expected 3 VEVENTs, got %d", n)
	}
}

func TestExportParsesBack(t *testing.T) {
	entries, reservations := exportFixture()
	cal, err := Export(entries, reservations, ExportOptions{Epoch: testEpoch, Now: testEpoch})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	parsed, err := ical.ParseCalendar(strings.NewReader(Serialize(cal)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	events := parsed.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	desc := events[0].GetProperty(ical.ComponentPropertyDescription)
	if desc == nil || desc.Value != "Type: one-to-one, Duration: 30 min, Frequency: weekly" {
		t.Fatalf("unexpected description %+v", desc)
	}
	cat := events[1].GetProperty(ical.ComponentPropertyCategories)
	if cat == nil || cat.Value != "review" {
		t.Fatalf("unexpected categories %+v", cat)
	}
	rr := events[1].GetProperty(ical.ComponentPropertyRrule)
	if rr == nil {
		t.Fatalf("missing RRULE")
	}
	opt, err := rrule.StrToROption(rr.Value)
	if err != nil {
		t.Fatalf("rrule: %v", err)
	}
	if opt.Freq != rrule.WEEKLY || opt.Interval != 2 {
		t.Fatalf("unexpected rule %+v", opt)
	}
	for _, ev := range events {
		if ev.Id() == "" || !strings.HasSuffix(ev.Id(), "@meetcal") {
			t.Fatalf("unexpected UID %q", ev.Id())
		}
	}
}

func TestExportUIDsAreStable(t *testing.T) {
	entries, reservations := exportFixture()
	a, _ := Export(entries, reservations, ExportOptions{Epoch: testEpoch})
	b, _ := Export(entries, reservations, ExportOptions{Epoch: testEpoch})
	ea, eb := a.Events(), b.Events()
	for i := range ea {
		if ea[i].Id() != eb[i].Id() {
			t.Fatalf("event %d UID changed between exports: %s vs %s", i, ea[i].Id(), eb[i].Id())
		}
	}
}

func TestExportRejectsNonMondayEpoch(t *testing.T) {
	if _, err := Export(nil, nil, ExportOptions{Epoch: testEpoch.AddDate(0, 0, 1)}); err == nil {
		t.Fatalf("expected an error for a Tuesday epoch")
	}
	if _, err := Export(nil, nil, ExportOptions{}); err == nil {
		t.Fatalf("expected an error for a zero epoch")
	}
}

func TestExportZonedRoundTripThroughBusyImport(t *testing.T) {
	entries, reservations := exportFixture()
	cal, err := Export(entries, reservations, ExportOptions{Epoch: testEpoch, Location: time.UTC, Now: testEpoch})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body := Serialize(cal)
	if !strings.Contains(body, "DTSTART:20250415T100000Z") {
		t.Fatalf("zoned export should write UTC DTSTART:\n%s", body)
	}

	events, err := ParseICS(Source{ID: "self"}, []byte(body))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	occs, err := Expand(events, CycleWindow(testEpoch))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// 4 weekly, 2 fortnightly, 4 reservation instances.
	if len(occs) != 10 {
		t.Fatalf("expected 10 occurrences in the cycle, got %d", len(occs))
	}
	for _, o := range occs {
		if o.End.Sub(o.Start) != 30*time.Minute && o.End.Sub(o.Start) != time.Hour {
			t.Fatalf("%s: DURATION not applied, got %s", o.UID, o.End.Sub(o.Start))
		}
	}

	specs, skipped := BusyReservations(occs, testEpoch)
	if len(skipped) != 0 {
		t.Fatalf("expected nothing skipped, got %d", len(skipped))
	}
	want := []string{"Monday 14:00 60min", "Tuesday 10:00 30min", "Thursday 09:00 60min"}
	if len(specs) != len(want) {
		t.Fatalf("expected %v, got %v", want, specs)
	}
	for i := range want {
		if specs[i].String() != want[i] || specs[i].Source != "self" {
			t.Fatalf("spec %d: got %s from %q, want %s", i, specs[i], specs[i].Source, want[i])
		}
	}
}

func TestExportZoneKeepsWallClockAcrossDST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	epoch := time.Date(2025, time.April, 14, 0, 0, 0, 0, london)
	entries, reservations := exportFixture()
	cal, err := Export(entries, reservations, ExportOptions{Epoch: epoch, Location: london, Now: testEpoch})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body := Serialize(cal)
	for _, want := range []string{
		"X-WR-TIMEZONE:Europe/London\r\n",
		"BEGIN:VTIMEZONE\r\nTZID:Europe/London\r\n",
		"BEGIN:DAYLIGHT",
		"TZOFFSETFROM:+0000\r\nTZOFFSETTO:+0100\r\nTZNAME:BST",
		"TZOFFSETFROM:+0100\r\nTZOFFSETTO:+0000\r\nTZNAME:GMT",
		"DTSTART;TZID=Europe/London:20250415T100000\r\n",
		"DTSTART;TZID=Europe/London:20250414T140000\r\n",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("export missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "DTSTART:20250415") {
		t.Fatalf("zoned export must not write UTC or floating DTSTART:\n%s", body)
	}

	events, err := ParseICS(Source{ID: "self"}, []byte(body))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	// Runs past the end of British Summer Time on 26 October.
	occs, err := Expand(events, Window{
		From:     epoch,
		To:       time.Date(2025, time.December, 1, 0, 0, 0, 0, london),
		Location: london,
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	var sawWinter bool
	for _, o := range occs {
		if !strings.HasPrefix(o.Summary, "One-to-one with Ian") {
			continue
		}
		if o.Start.Weekday() != time.Tuesday || o.Start.Hour() != 10 || o.Start.Minute() != 0 {
			t.Fatalf("occurrence drifted to %s", o.Start)
		}
		if o.Start.Month() == time.November {
			sawWinter = true
		}
	}
	if !sawWinter {
		t.Fatalf("expected November occurrences, got %d total", len(occs))
	}
}
