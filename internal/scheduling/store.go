package scheduling

import (
	"sync"

	"github.com/google/uuid"
)

// Store holds every physician's schedule plus a reverse index from
// appointment id to owning physician, so id-only operations (lookup, update,
// cancel) can resolve the right schedule without scanning all of them.
type Store struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]*PhysicianSchedule
	owners    map[uuid.UUID]uuid.UUID // appointment id -> physician id
}

func NewStore() *Store {
	return &Store{
		schedules: make(map[uuid.UUID]*PhysicianSchedule),
		owners:    make(map[uuid.UUID]uuid.UUID),
	}
}

// Schedule returns the physician's schedule, creating an empty one on first
// use. A physician with no bookings simply has an empty schedule.
func (st *Store) Schedule(physicianID uuid.UUID) *PhysicianSchedule {
	st.mu.RLock()
	ps, ok := st.schedules[physicianID]
	st.mu.RUnlock()
	if ok {
		return ps
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if ps, ok := st.schedules[physicianID]; ok {
		return ps
	}
	ps = NewPhysicianSchedule(physicianID)
	st.schedules[physicianID] = ps
	return ps
}

// Insert stores the appointment on its physician's schedule and indexes it.
func (st *Store) Insert(appt Appointment) {
	st.Schedule(appt.PhysicianID).Put(appt)

	st.mu.Lock()
	st.owners[appt.ID] = appt.PhysicianID
	st.mu.Unlock()
}

// Delete removes the appointment and its index entry, reporting whether it
// existed.
func (st *Store) Delete(physicianID, id uuid.UUID) bool {
	st.mu.RLock()
	ps, ok := st.schedules[physicianID]
	st.mu.RUnlock()
	if !ok {
		return false
	}
	if !ps.Remove(id) {
		return false
	}

	st.mu.Lock()
	delete(st.owners, id)
	st.mu.Unlock()
	return true
}

// Owner resolves which physician an appointment belongs to.
func (st *Store) Owner(id uuid.UUID) (uuid.UUID, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	physicianID, ok := st.owners[id]
	return physicianID, ok
}

// Find returns a copy of the appointment with the given id.
func (st *Store) Find(id uuid.UUID) (Appointment, bool) {
	physicianID, ok := st.Owner(id)
	if !ok {
		return Appointment{}, false
	}
	return st.Schedule(physicianID).Get(id)
}

// PhysicianIDs lists every physician that has a schedule.
func (st *Store) PhysicianIDs() []uuid.UUID {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(st.schedules))
	for id := range st.schedules {
		out = append(out, id)
	}
	return out
}

// All returns every appointment across all physicians, sorted by start time.
func (st *Store) All() []Appointment {
	st.mu.RLock()
	schedules := make([]*PhysicianSchedule, 0, len(st.schedules))
	for _, ps := range st.schedules {
		schedules = append(schedules, ps)
	}
	st.mu.RUnlock()

	var out []Appointment
	for _, ps := range schedules {
		out = append(out, ps.All()...)
	}
	sortByStart(out)
	return out
}
