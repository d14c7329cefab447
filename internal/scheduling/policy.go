package scheduling

import "time"

// Policy carries the clinic's booking rules. Two separate duration bounds
// exist on purpose: BookingMinDuration/BookingMaxDuration constrain directly
// requested appointments, while SearchMaxDuration is the wider cap applied
// only when searching availability windows.
type Policy struct {
	BookingMinDuration time.Duration
	BookingMaxDuration time.Duration
	SearchMaxDuration  time.Duration

	OpenHour  int // inclusive, appointments may start at this hour
	CloseHour int // appointments must end by this hour

	MaxAlternatives   int
	SearchHorizonDays int
}

// DefaultPolicy matches the clinic defaults: Mon-Fri 08:00-17:00, bookings of
// 15 minutes to 3 hours, searches up to 8 hours, 3 alternative suggestions,
// 30-day search horizon.
func DefaultPolicy() Policy {
	return Policy{
		BookingMinDuration: 15 * time.Minute,
		BookingMaxDuration: 180 * time.Minute,
		SearchMaxDuration:  8 * time.Hour,
		OpenHour:           8,
		CloseHour:          17,
		MaxAlternatives:    3,
		SearchHorizonDays:  30,
	}
}

// MaxDuration returns the bound that applies to the given checking context.
func (p Policy) MaxDuration(forSearch bool) time.Duration {
	if forSearch {
		return p.SearchMaxDuration
	}
	return p.BookingMaxDuration
}

// WithinBusinessHours reports whether [start, end) falls inside a single
// business day: a weekday, starting no earlier than opening and ending no
// later than closing. Overnight spans always fail.
func (p Policy) WithinBusinessHours(start, end time.Time) bool {
	switch start.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return false
	}

	open := time.Date(start.Year(), start.Month(), start.Day(), p.OpenHour, 0, 0, 0, start.Location())
	close := time.Date(start.Year(), start.Month(), start.Day(), p.CloseHour, 0, 0, 0, start.Location())
	return !start.Before(open) && !end.After(close)
}

// dayOpen returns the opening instant of t's day in t's location.
func (p Policy) dayOpen(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), p.OpenHour, 0, 0, 0, t.Location())
}

// dayClose returns the closing instant of t's day in t's location.
func (p Policy) dayClose(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), p.CloseHour, 0, 0, 0, t.Location())
}
