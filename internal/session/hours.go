package session

import (
	"fmt"
	"time"
)

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustClock is ParseClock for constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ClockOf returns the wall clock of t in its own location, truncated to the minute.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// Hours describes an exchange's regular session and its opening (IB) window.
type Hours struct {
	Location *time.Location
	Open     Clock
	Close    Clock
	IBStart  Clock
	IBEnd    Clock // exclusive
}

// IST is India Standard Time. India observes no DST, so a fixed zone is exact.
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE returns regular hours of the National Stock Exchange: 09:15-15:30, IB 09:15-10:15.
func NSE() Hours {
	return Hours{
		Location: IST,
		Open:     MustClock("09:15"),
		Close:    MustClock("15:30"),
		IBStart:  MustClock("09:15"),
		IBEnd:    MustClock("10:15"),
	}
}

// Validate checks the windows are ordered and the IB lies inside the session.
func (h Hours) Validate() error {
	if h.Location == nil {
		return fmt.Errorf("hours: location is required")
	}
	if h.Open >= h.Close {
		return fmt.Errorf("hours: open %s must be before close %s", h.Open, h.Close)
	}
	if h.IBStart >= h.IBEnd {
		return fmt.Errorf("hours: ib start %s must be before ib end %s", h.IBStart, h.IBEnd)
	}
	if h.IBStart < h.Open || h.IBEnd > h.Close {
		return fmt.Errorf("hours: ib window %s-%s outside session %s-%s", h.IBStart, h.IBEnd, h.Open, h.Close)
	}
	return nil
}

// InIB reports whether t falls in [IBStart, IBEnd) exchange-local.
func (h Hours) InIB(t time.Time) bool {
	c := ClockOf(t.In(h.Location))
	return c >= h.IBStart && c < h.IBEnd
}

// InSession reports whether t falls in [Open, Close] exchange-local.
func (h Hours) InSession(t time.Time) bool {
	c := ClockOf(t.In(h.Location))
	return c >= h.Open && c <= h.Close
}

// At returns the instant of clock c on the calendar date of day, in the exchange zone.
func (h Hours) At(day time.Time, c Clock) time.Time {
	d := day.In(h.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), int(c)/60, int(c)%60, 0, 0, h.Location)
}
