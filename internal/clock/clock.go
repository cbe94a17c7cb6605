// Package clock anchors "now" and all civil date arithmetic to a single
// fixed timezone, independent of the host or client local time.
package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// DefaultLayout renders "Nov 13, 2025, 9:00 AM" before the zone suffix.
const DefaultLayout = "Jan 2, 2006, 3:04 PM"

// Clock is the source of the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Anchor expresses instants from a Clock in the application's civil zone.
type Anchor struct {
	loc   *time.Location
	clock Clock
}

// NewAnchor binds c to loc. A nil clock reads the wall clock.
func NewAnchor(loc *time.Location, c Clock) *Anchor {
	if loc == nil {
		loc = time.UTC
	}
	if c == nil {
		c = System{}
	}
	return &Anchor{loc: loc, clock: c}
}

// Now returns the current instant in the anchored zone.
func (a *Anchor) Now() time.Time {
	return a.clock.Now().In(a.loc)
}

// Location returns the anchored zone.
func (a *Anchor) Location() *time.Location {
	return a.loc
}

// In re-expresses t in the anchored zone.
func (a *Anchor) In(t time.Time) time.Time {
	return t.In(a.loc)
}

// offsetless layouts are read as civil time in the anchored zone.
var offsetless = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse reads an ISO-8601 string and returns it in the anchored zone.
func (a *Anchor) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(a.loc), nil
	}
	for _, layout := range offsetless {
		if t, err := time.ParseInLocation(layout, s, a.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Format renders t as civil time in the anchored zone. An empty layout
// uses DefaultLayout followed by the zone's UTC offset.
func (a *Anchor) Format(t time.Time, layout string) string {
	t = t.In(a.loc)
	if layout == "" {
		return t.Format(DefaultLayout) + " " + OffsetLabel(t)
	}
	return t.Format(layout)
}

// OffsetLabel renders the UTC offset of t as "UTC+8" or "UTC-5:30".
func OffsetLabel(t time.Time) string {
	_, secs := t.Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}

// LoadLocation resolves an IANA zone name or a fixed offset such as
// "UTC+8" or "UTC-05:30".
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	upper := strings.ToUpper(name)
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(upper, prefix) && len(upper) > len(prefix) {
			if offset, ok := parseOffset(upper[len(prefix):]); ok {
				return time.FixedZone(name, offset), nil
			}
		}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// parseOffset reads "+8", "-05:30" or "+0530" into seconds east of UTC.
func parseOffset(s string) (int, bool) {
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := s[1:]
	var hours, minutes int
	var err error
	switch {
	case strings.Contains(body, ":"):
		parts := strings.SplitN(body, ":", 2)
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
	case len(body) == 4:
		if hours, err = strconv.Atoi(body[:2]); err != nil {
			return 0, false
		}
		if minutes, err = strconv.Atoi(body[2:]); err != nil {
			return 0, false
		}
	default:
		if hours, err = strconv.Atoi(body); err != nil {
			return 0, false
		}
	}
	if hours > 14 || minutes > 59 {
		return 0, false
	}
	return sign * (hours*3600 + minutes*60), true
}
