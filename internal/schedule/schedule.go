// Package schedule resolves shop business hours from the weekly schedule
// configuration and answers next-open-day lookups.
package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// nextOpenDayHorizon bounds the forward scan for the next open business day.
// Seven calendar days covers weekends and single holidays; a schedule with no
// open day inside the horizon is treated as unschedulable.
const nextOpenDayHorizon = 7

var weekdayNames = map[string]struct{}{
	"monday":    {},
	"tuesday":   {},
	"wednesday": {},
	"thursday":  {},
	"friday":    {},
	"saturday":  {},
	"sunday":    {},
}

// DayHours is one weekday's configured open/close pair. A missing or
// partially filled entry means the shop is closed that day.
type DayHours struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// Config is the shop schedule configuration loaded from YAML.
type Config struct {
	BusinessHours              map[string]*DayHours `yaml:"business_hours"`
	DefaultSlotDurationMinutes int                  `yaml:"default_slot_duration_minutes"`
	SlotIntervalMinutes        int                  `yaml:"slot_interval_minutes"`
	BufferMinutes              map[string]int       `yaml:"buffer_minutes"`
}

// Load reads and validates a schedule configuration file. Any validation
// failure is fatal for the caller: a bad schedule affects every request
// identically and must not be diagnosed per-request.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("schedule: parse config %s: %w", path, err)
	}
	if cfg.SlotIntervalMinutes == 0 {
		cfg.SlotIntervalMinutes = 60
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every configured weekday and time string plus the numeric
// defaults. Errors name the offending key or value.
func (c *Config) Validate() error {
	for day, hours := range c.BusinessHours {
		if _, ok := weekdayNames[day]; !ok {
			return fmt.Errorf("schedule: unrecognized weekday %q in business_hours", day)
		}
		if hours == nil {
			continue
		}
		if hours.Open != "" {
			if _, err := ParseClock(hours.Open); err != nil {
				return fmt.Errorf("schedule: %s open time %q: %w", day, hours.Open, err)
			}
		}
		if hours.Close != "" {
			if _, err := ParseClock(hours.Close); err != nil {
				return fmt.Errorf("schedule: %s close time %q: %w", day, hours.Close, err)
			}
		}
		if hours.Open != "" && hours.Close != "" {
			open, _ := ParseClock(hours.Open)
			close, _ := ParseClock(hours.Close)
			if close <= open {
				return fmt.Errorf("schedule: %s close %q is not after open %q", day, hours.Close, hours.Open)
			}
		}
	}
	if c.DefaultSlotDurationMinutes <= 0 {
		return fmt.Errorf("schedule: default_slot_duration_minutes must be positive, got %d", c.DefaultSlotDurationMinutes)
	}
	if c.SlotIntervalMinutes <= 0 {
		return fmt.Errorf("schedule: slot_interval_minutes must be positive, got %d", c.SlotIntervalMinutes)
	}
	for label, minutes := range c.BufferMinutes {
		if minutes < 0 {
			return fmt.Errorf("schedule: buffer_minutes[%q] must not be negative, got %d", label, minutes)
		}
	}
	return nil
}

// BusinessHours is the resolved open/close window for one date, in minutes
// of day. The zero value is closed.
type BusinessHours struct {
	OpenMinute  int
	CloseMinute int
	open        bool
}

// OpenHours builds an open window. Intended for resolved schedules and tests.
func OpenHours(openMinute, closeMinute int) BusinessHours {
	return BusinessHours{OpenMinute: openMinute, CloseMinute: closeMinute, open: true}
}

// Closed returns a closed-day result.
func Closed() BusinessHours {
	return BusinessHours{}
}

// IsOpen reports whether both bounds are present.
func (h BusinessHours) IsOpen() bool {
	return h.open
}

// OpenMinutes returns the total minutes between open and close.
func (h BusinessHours) OpenMinutes() int {
	if !h.open {
		return 0
	}
	return h.CloseMinute - h.OpenMinute
}

// Resolve maps a calendar date to that weekday's business hours. A weekday
// with no entry, or an entry missing either bound, resolves closed. Time
// strings are trusted here; Validate rejects malformed ones at load time.
func (c *Config) Resolve(date time.Time) BusinessHours {
	day := strings.ToLower(date.Weekday().String())
	hours, ok := c.BusinessHours[day]
	if !ok || hours == nil || hours.Open == "" || hours.Close == "" {
		return Closed()
	}
	open, err := ParseClock(hours.Open)
	if err != nil {
		return Closed()
	}
	close, err := ParseClock(hours.Close)
	if err != nil {
		return Closed()
	}
	return OpenHours(open, close)
}

// NextOpenDay scans forward from the day after `from`, returning the first
// date that resolves open. ok is false when no open day exists within the
// horizon, which callers treat as "service cannot be scheduled".
func (c *Config) NextOpenDay(from time.Time) (time.Time, bool) {
	next := from.AddDate(0, 0, 1)
	for i := 0; i < nextOpenDayHorizon; i++ {
		if c.Resolve(next).IsOpen() {
			return next, true
		}
		next = next.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// BufferForLabel returns the configured extra minutes (cure/dry time) for a
// service label, zero when none is configured.
func (c *Config) BufferForLabel(label string) int {
	if c.BufferMinutes == nil {
		return 0
	}
	return c.BufferMinutes[label]
}

// ParseClock parses a zero-padded 24-hour "HH:MM" string into minutes of day.
func ParseClock(v string) (int, error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes of day as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
