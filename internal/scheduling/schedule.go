package scheduling

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PhysicianSchedule owns every appointment for one physician. Reads copy out
// under RLock; mutations happen under the write lock, and the scheduler
// service additionally serializes its check-then-commit sequences through the
// per-physician Locker so two bookings can never validate against the same
// stale snapshot.
type PhysicianSchedule struct {
	physicianID  uuid.UUID
	mu           sync.RWMutex
	appointments map[uuid.UUID]*Appointment
}

func NewPhysicianSchedule(physicianID uuid.UUID) *PhysicianSchedule {
	return &PhysicianSchedule{
		physicianID:  physicianID,
		appointments: make(map[uuid.UUID]*Appointment),
	}
}

func (ps *PhysicianSchedule) PhysicianID() uuid.UUID {
	return ps.physicianID
}

// Get returns a copy of the appointment, or false if it is not on this
// schedule.
func (ps *PhysicianSchedule) Get(id uuid.UUID) (Appointment, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	appt, ok := ps.appointments[id]
	if !ok {
		return Appointment{}, false
	}
	return *appt, true
}

// Put inserts or replaces the appointment.
func (ps *PhysicianSchedule) Put(appt Appointment) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	stored := appt
	ps.appointments[appt.ID] = &stored
}

// Remove hard-deletes the appointment and reports whether it existed.
func (ps *PhysicianSchedule) Remove(id uuid.UUID) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, ok := ps.appointments[id]; !ok {
		return false
	}
	delete(ps.appointments, id)
	return true
}

// All returns every appointment, cancelled ones included, sorted by start
// time.
func (ps *PhysicianSchedule) All() []Appointment {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]Appointment, 0, len(ps.appointments))
	for _, appt := range ps.appointments {
		out = append(out, *appt)
	}
	sortByStart(out)
	return out
}

// Active returns the non-cancelled appointments sorted by start time; these
// are the ones that occupy schedule windows.
func (ps *PhysicianSchedule) Active() []Appointment {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]Appointment, 0, len(ps.appointments))
	for _, appt := range ps.appointments {
		if appt.Active() {
			out = append(out, *appt)
		}
	}
	sortByStart(out)
	return out
}

// InRange returns appointments overlapping [start, end), sorted by start
// time.
func (ps *PhysicianSchedule) InRange(start, end time.Time) []Appointment {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var out []Appointment
	for _, appt := range ps.appointments {
		if appt.Overlaps(start, end) {
			out = append(out, *appt)
		}
	}
	sortByStart(out)
	return out
}

// OnDate returns appointments whose window touches the given calendar day.
func (ps *PhysicianSchedule) OnDate(date time.Time) []Appointment {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return ps.InRange(dayStart, dayStart.AddDate(0, 0, 1))
}

func sortByStart(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Start.Equal(appts[j].Start) {
			return appts[i].ID.String() < appts[j].ID.String()
		}
		return appts[i].Start.Before(appts[j].Start)
	})
}
