/*
clock.go - Time normalization between UTC and the configured local zone

PURPOSE:
  Every user-facing date boundary in the engine (rollover, "jobs on date X",
  workload for a day) is a LOCAL calendar boundary in one configured IANA
  zone. This file centralizes the conversions so nothing else in the engine
  ever compares against a raw UTC midnight; with the app zone offset by up
  to 11 hours, a UTC-midnight comparison is off by a day near midnight and
  near DST changes.

CONTRACTS:
  - ToUTC(ToLocal(x)) == x for every UTC instant x.
  - An invalid zone name falls back to UTC with a logged warning. Startup
    never fails on timezone configuration.
  - A wall-clock time inside a DST spring-forward gap does not exist in the
    zone; ParseLocal and ToUTC resolve it the way Go's time.Date does, by
    normalizing the instant forward past the gap.

SEE ALSO:
  - rollover.go: uses LocalToday for the date-passed comparison
  - api/dto.go: formats instants for display through ToLocal
*/
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Clock converts between UTC instants and wall-clock values in the single
// configured application zone. The zero value is unusable; construct with
// NewClock.
type Clock struct {
	loc *time.Location

	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewClock resolves an IANA zone identifier. Unknown identifiers fall back
// to UTC with a warning rather than failing, so a misconfigured deployment
// still schedules correctly (in UTC) instead of crashing.
func NewClock(zone string, logger *zap.Logger) *Clock {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid timezone configured, falling back to UTC",
				zap.String("timezone", zone),
				zap.Error(fmt.Errorf("%w: %v", ErrInvalidTimezone, err)))
		}
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// NewClockAt builds a clock with a fixed "now", for tests.
func NewClockAt(zone string, at time.Time) *Clock {
	c := NewClock(zone, nil)
	c.now = func() time.Time { return at }
	return c
}

// Location returns the resolved zone.
func (c *Clock) Location() *time.Location { return c.loc }

// LocalToday returns the current calendar date in the configured zone.
func (c *Clock) LocalToday() Date {
	return DateOf(c.now().In(c.loc))
}

// ToLocal converts a UTC instant to the configured zone.
func (c *Clock) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// ToUTC normalizes an instant to UTC. The instant is unchanged, so
// ToUTC(ToLocal(x)) == x always holds. To interpret a bare date and
// wall-clock time in the configured zone, use At.
func (c *Clock) ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// At combines a local calendar date and time-of-day into the UTC instant
// they name in the configured zone. Spring-forward gap times normalize
// forward past the gap.
func (c *Clock) At(d Date, tod TimeOfDay) time.Time {
	local := time.Date(d.Year, d.Month, d.Day, tod.Hour(), tod.Minute(), 0, 0, c.loc)
	return local.UTC()
}

// ParseLocal parses a wall-clock string in the configured zone and returns
// the equivalent UTC instant.
func (c *Clock) ParseLocal(value, layout string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, value, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q as %q: %w", value, layout, err)
	}
	return t.UTC(), nil
}

// =============================================================================
// DATE - local calendar date (no time, no zone)
// =============================================================================

// DateLayout is the wire/storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date in the application zone. Comparisons are plain
// calendar comparisons; no instant semantics are attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// Normalize through time.Date so Feb 30 etc. roll over consistently.
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf extracts the calendar date of an already-localized time.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) ref() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool { return d.ref().Before(other.ref()) }
func (d Date) After(other Date) bool  { return d.ref().After(other.ref()) }
func (d Date) Equal(other Date) bool  { return d == other }
func (d Date) IsZero() bool           { return d == Date{} }

func (d Date) AddDays(n int) Date { return DateOf(d.ref().AddDate(0, 0, n)) }

func (d Date) String() string { return d.ref().Format(DateLayout) }

// =============================================================================
// TIME OF DAY - local wall-clock time as minutes from midnight
// =============================================================================

// TimeOfDayLayout is the wire/storage format for times of day.
const TimeOfDayLayout = "15:04"

// TimeOfDay is minutes from local midnight, 0..1439.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }

// MinutesUntil is the signed gap in minutes from t to other on the same
// calendar day.
func (t TimeOfDay) MinutesUntil(other TimeOfDay) int { return int(other) - int(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
