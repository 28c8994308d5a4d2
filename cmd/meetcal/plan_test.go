package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meetcal/internal/config"
	"meetcal/internal/model"
	"meetcal/internal/schedule"
)

const tuesdayStandup = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//busy//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@test\r\n" +
	"DTSTART:20250415T100000Z\r\n" +
	"DTEND:20250415T103000Z\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"SUMMARY:Client standup\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const londonStandup = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//busy//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:london@test\r\n" +
	"DTSTART;TZID=Europe/London:20250415T100000\r\n" +
	"DURATION:PT30M\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func testConfig(t *testing.T, feedURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.CacheDir = t.TempDir()
	cfg.ExportPath = filepath.Join(t.TempDir(), "out", "schedule.ics")
	if feedURL != "" {
		cfg.BusyCalendars = []config.BusyCalendarConfig{{ID: "client", Name: "Client", URL: feedURL}}
	}
	return cfg
}

func TestPlanImportsBusyCalendars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(tuesdayStandup))
	}))
	defer srv.Close()

	p := newPlanner(testConfig(t, srv.URL))
	plan, err := p.plan(context.Background(), 42)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	res := plan.Result
	if plan.FailedFeeds != 0 {
		t.Fatalf("expected no failed feeds, got %d", plan.FailedFeeds)
	}
	if len(res.Reservations) != 3 {
		t.Fatalf("expected the imported standup plus 2 configured reservations, got %d", len(res.Reservations))
	}
	first := res.Reservations[0]
	if first.Day != model.Tuesday || first.Start.Clock() != "10:00" || first.Duration != 1 {
		t.Fatalf("imported reservation should come first, got %+v", first)
	}
	for _, e := range res.Entries {
		if e.Day == model.Tuesday && e.Start == first.Start {
			t.Fatalf("%q placed on the imported busy slot", e.Name)
		}
	}
	if err := schedule.Audit(res.Entries, res.Reservations); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func TestPlanSurvivesUnreachableCalendar(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := newPlanner(testConfig(t, srv.URL+"/missing.ics"))
	plan, err := p.plan(context.Background(), 42)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.FailedFeeds != 1 {
		t.Fatalf("unreachable calendar should be counted, got %d", plan.FailedFeeds)
	}
	if len(plan.Result.Reservations) != 2 || plan.Result.Failed() != 0 {
		t.Fatalf("expected the plain sample run, got %d reservations and %d failures",
			len(plan.Result.Reservations), plan.Result.Failed())
	}
}

func TestExportWritesFile(t *testing.T) {
	cfg := testConfig(t, "")
	plan, err := newPlanner(cfg).plan(context.Background(), 42)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := export(cfg, plan); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(cfg.ExportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "BEGIN:VCALENDAR\r\n") || strings.Count(string(data), "BEGIN:VEVENT") != 11 {
		t.Fatalf("unexpected export:\n%s", data)
	}
}

func TestSeedOrClock(t *testing.T) {
	if seedOrClock(5) != 5 {
		t.Fatalf("explicit seed must be kept")
	}
	if seedOrClock(0) == 0 {
		t.Fatalf("zero seed should be replaced from the clock")
	}
}

func TestPlanFoldsBusyEventsInLocalTimeWhenFloating(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	saved := time.Local
	time.Local = london
	t.Cleanup(func() { time.Local = saved })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(londonStandup))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Timezone = ""
	plan, err := newPlanner(cfg).plan(context.Background(), 42)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	first := plan.Result.Reservations[0]
	if first.Day != model.Tuesday || first.Start.Clock() != "10:00" || first.Duration != 1 {
		t.Fatalf("standup should block Tuesday 10:00 local time, got %s %s", first.Day, first.Start.Clock())
	}
	if plan.Location != nil {
		t.Fatalf("floating config should export floating times, got %v", plan.Location)
	}
}
