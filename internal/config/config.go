package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"meetcal/internal/ics"
	"meetcal/internal/model"
	"meetcal/internal/schedule"
)

const (
	defaultListen  = "127.0.0.1:8080"
	defaultEpoch   = "2025-04-14"
	defaultRefresh = "0 6 * * 1"
)

// BusyCalendarConfig is an external ICS feed whose events become
// reservations.
type BusyCalendarConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address in server mode.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone, when set, makes exported DTSTART values absolute (UTC)
	// instead of floating local times.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// Epoch is the Monday (YYYY-MM-DD) that starts week 1 of the cycle.
	Epoch string `yaml:"epoch" json:"epoch"`

	// Refresh is the cron schedule for replanning in server mode.
	Refresh string `yaml:"refresh" json:"refresh"`

	// Seed drives the week shuffle. 0 picks one from the clock.
	Seed int64 `yaml:"seed" json:"seed"`

	ExportPath      string  `yaml:"export_path,omitempty" json:"export_path,omitempty"`
	MeetingCapHours float64 `yaml:"meeting_cap_hours" json:"meeting_cap_hours"`
	LogLevel        string  `yaml:"log_level" json:"log_level"`

	Reservations  []model.ReservationSpec `yaml:"reservations" json:"reservations"`
	Meetings      []model.MeetingSpec     `yaml:"meetings" json:"meetings"`
	BusyCalendars []BusyCalendarConfig    `yaml:"busy_calendars" json:"busy_calendars"`

	// CacheDir holds the busy-calendar HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns the built-in configuration with the sample
// catalogue.
func DefaultConfig() *Config {
	sample := schedule.SampleCatalogue()
	return &Config{
		Listen:          defaultListen,
		Epoch:           defaultEpoch,
		Refresh:         defaultRefresh,
		ExportPath:      "schedule.ics",
		MeetingCapHours: schedule.DefaultMeetingCapHours,
		LogLevel:        "info",
		Reservations:    sample.Reservations,
		Meetings:        sample.Meetings,
		BusyCalendars:   []BusyCalendarConfig{},
		CacheDir:        filepath.Join("var", "ics-cache"),
	}
}

// Normalize fills zero values with defaults so older or partial files keep
// working.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Epoch == "" {
		c.Epoch = defaultEpoch
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
	if c.MeetingCapHours <= 0 {
		c.MeetingCapHours = schedule.DefaultMeetingCapHours
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join("var", "ics-cache")
	}
	if c.BusyCalendars == nil {
		c.BusyCalendars = []BusyCalendarConfig{}
	}
	for i := range c.Reservations {
		if c.Reservations[i].Source == "" {
			c.Reservations[i].Source = "config"
		}
	}
}

// Validate checks the fields that cannot be defaulted. Catalogue items are
// validated per item when the plan runs.
func (c *Config) Validate() error {
	if _, err := c.EpochTime(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i, b := range c.BusyCalendars {
		if b.URL == "" {
			return fmt.Errorf("config: busy_calendars[%d]: url is empty", i)
		}
		if b.ID == "" {
			return fmt.Errorf("config: busy_calendars[%d]: id is empty", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("config: busy_calendars: duplicate id %q", b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

// Location resolves Timezone. Empty means floating export times (nil).
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// WallLocation is the zone grid times are read in: Timezone when set,
// otherwise time.Local, matching the floating times of the export.
func (c *Config) WallLocation() (*time.Location, error) {
	loc, err := c.Location()
	if err != nil || loc != nil {
		return loc, err
	}
	return time.Local, nil
}

// EpochTime parses Epoch in WallLocation and checks it is a Monday. Busy
// calendar occurrences are folded onto the grid in the epoch's zone.
func (c *Config) EpochTime() (time.Time, error) {
	loc, err := c.WallLocation()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(time.DateOnly, c.Epoch, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: epoch %q: %w", c.Epoch, err)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("config: epoch %s is a %s, want a Monday", c.Epoch, t.Weekday())
	}
	return t, nil
}

// Catalogue returns the configured reservations and meetings in file order.
func (c *Config) Catalogue() schedule.Catalogue {
	return schedule.Catalogue{
		Reservations: append([]model.ReservationSpec(nil), c.Reservations...),
		Meetings:     append([]model.MeetingSpec(nil), c.Meetings...),
	}
}

// Sources converts BusyCalendars for the ICS fetcher.
func (c *Config) Sources() []ics.Source {
	out := make([]ics.Source, 0, len(c.BusyCalendars))
	for _, b := range c.BusyCalendars {
		out = append(out, ics.Source{ID: b.ID, Name: b.Name, URL: b.URL})
	}
	return out
}

// Load reads the YAML file at path. A missing file is created with the
// defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file in the same directory, then
// rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meetcal-config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
