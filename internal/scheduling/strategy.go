package scheduling

import "time"

// Strategy enumerates free windows of a requested length within policy
// bounds. Implementations are pure over the active-appointment snapshot they
// are handed.
type Strategy interface {
	FindAvailableSlots(active []Appointment, duration time.Duration, searchStart time.Time, maxSlots int) []Slot
	FindNextAvailableSlot(active []Appointment, duration time.Duration, from time.Time) *Slot
}

// FirstAvailableStrategy walks forward from the search start through
// business-hour windows only, skipping weekends and rolling to the next
// weekday's opening time when a day is exhausted, and returns the earliest
// conflict-free windows in chronological order.
type FirstAvailableStrategy struct {
	policy Policy
}

func NewFirstAvailableStrategy(policy Policy) *FirstAvailableStrategy {
	return &FirstAvailableStrategy{policy: policy}
}

func (f *FirstAvailableStrategy) FindNextAvailableSlot(active []Appointment, duration time.Duration, from time.Time) *Slot {
	slots := f.FindAvailableSlots(active, duration, from, 1)
	if len(slots) == 0 {
		return nil
	}
	return &slots[0]
}

func (f *FirstAvailableStrategy) FindAvailableSlots(active []Appointment, duration time.Duration, searchStart time.Time, maxSlots int) []Slot {
	if maxSlots <= 0 || duration <= 0 || duration > f.policy.SearchMaxDuration {
		return nil
	}

	occupied := make([]Appointment, 0, len(active))
	for _, appt := range active {
		if appt.Active() {
			occupied = append(occupied, appt)
		}
	}
	sortByStart(occupied)

	var slots []Slot
	cursor := searchStart
	horizon := searchStart.AddDate(0, 0, f.policy.SearchHorizonDays)

	for len(slots) < maxSlots {
		cursor = f.clampToBusinessHours(cursor)
		if !cursor.Before(horizon) {
			break
		}

		end := cursor.Add(duration)
		if end.After(f.policy.dayClose(cursor)) {
			// Window does not fit before closing; roll to the next weekday.
			cursor = f.nextWeekdayOpen(cursor)
			continue
		}

		if blocker := firstOverlap(occupied, cursor, end); blocker != nil {
			// Jump straight past the booking instead of crawling through it.
			cursor = blocker.End
			continue
		}

		slots = append(slots, Slot{
			Start:     cursor,
			End:       end,
			IsOptimal: f.isOptimal(occupied, cursor, end),
		})
		cursor = end
	}

	return slots
}

// clampToBusinessHours moves the cursor forward to the nearest instant at
// which an appointment may start: a weekday no earlier than opening and
// strictly before closing.
func (f *FirstAvailableStrategy) clampToBusinessHours(t time.Time) time.Time {
	for {
		switch t.Weekday() {
		case time.Saturday, time.Sunday:
			t = f.nextWeekdayOpen(t)
			continue
		}
		if t.Before(f.policy.dayOpen(t)) {
			return f.policy.dayOpen(t)
		}
		if !t.Before(f.policy.dayClose(t)) {
			t = f.nextWeekdayOpen(t)
			continue
		}
		return t
	}
}

// nextWeekdayOpen returns opening time on the next business day after t's
// day.
func (f *FirstAvailableStrategy) nextWeekdayOpen(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for {
		day = day.AddDate(0, 0, 1)
		switch day.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		return f.policy.dayOpen(day)
	}
}

// firstOverlap returns the earliest-starting appointment overlapping
// [start, end), or nil. The slice must be sorted by start time.
func firstOverlap(sorted []Appointment, start, end time.Time) *Appointment {
	for i := range sorted {
		appt := sorted[i]
		if !appt.Start.Before(end) {
			break
		}
		if appt.Overlaps(start, end) {
			return &sorted[i]
		}
	}
	return nil
}

// isOptimal flags slots that pack the schedule: flush against the end of an
// existing booking, the start of the next one, or the opening hour. Purely a
// ranking hint for callers choosing between alternatives.
func (f *FirstAvailableStrategy) isOptimal(occupied []Appointment, start, end time.Time) bool {
	if start.Equal(f.policy.dayOpen(start)) {
		return true
	}
	for _, appt := range occupied {
		if appt.End.Equal(start) || appt.Start.Equal(end) {
			return true
		}
	}
	return false
}
