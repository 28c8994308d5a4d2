package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meetcal.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Meetings) != 9 || len(cfg.Reservations) != 2 {
		t.Fatalf("default catalogue not used: %d meetings, %d reservations", len(cfg.Meetings), len(cfg.Reservations))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Meetings[4].FixedDay != "Tuesday" || again.Meetings[7].Recurrence != "monthly" {
		t.Fatalf("catalogue did not round-trip: %+v", again.Meetings)
	}
	if again.Reservations[0].Source != "config" {
		t.Fatalf("reloaded reservations should be tagged as config, got %q", again.Reservations[0].Source)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetcal.yaml")
	body := strings.Join([]string{
		"seed: 42",
		"meetings:",
		"  - name: Standup",
		"    category: management",
		"    minutes: 30",
		"    preferred: [\"09:00\", \"09:30\"]",
		"    recurrence: weekly",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != 42 || cfg.Listen != defaultListen || cfg.Epoch != defaultEpoch {
		t.Fatalf("unexpected normalized config %+v", cfg)
	}
	if cfg.MeetingCapHours != 2.5 {
		t.Fatalf("expected default cap 2.5, got %v", cfg.MeetingCapHours)
	}
	cat := cfg.Catalogue()
	if len(cat.Meetings) != 1 || len(cat.Meetings[0].Preferred) != 2 || len(cat.Reservations) != 0 {
		t.Fatalf("unexpected catalogue %+v", cat)
	}
}

func TestLoadRejectsBadEpoch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetcal.yaml")
	if err := os.WriteFile(path, []byte("epoch: \"2025-04-15\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "Monday") {
		t.Fatalf("expected a Monday error, got %v", err)
	}
}

func TestEpochTimeUsesTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	epoch, err := cfg.EpochTime()
	if err != nil {
		t.Fatalf("epoch: %v", err)
	}
	if epoch.Location().String() != "UTC" || epoch.Weekday() != time.Monday {
		t.Fatalf("unexpected epoch %s", epoch)
	}

	cfg.Timezone = ""
	loc, err := cfg.Location()
	if err != nil || loc != nil {
		t.Fatalf("empty timezone should mean floating times, got %v, %v", loc, err)
	}
	epoch, err = cfg.EpochTime()
	if err != nil {
		t.Fatalf("epoch: %v", err)
	}
	if epoch.Location() != time.Local || epoch.Format(time.DateOnly) != defaultEpoch {
		t.Fatalf("floating epoch should be local midnight, got %s", epoch)
	}
}

func TestValidateBusyCalendars(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BusyCalendars = []BusyCalendarConfig{
		{ID: "work", URL: "https://example.com/a.ics"},
		{ID: "work", URL: "https://example.com/b.ics"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	cfg.BusyCalendars[1].ID = "home"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if srcs := cfg.Sources(); len(srcs) != 2 || srcs[1].ID != "home" {
		t.Fatalf("unexpected sources %+v", srcs)
	}
}
