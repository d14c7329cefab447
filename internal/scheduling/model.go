package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Terminal reports whether the status permits no further transitions.
// Cancelled records stay in the schedule for audit but cannot be reopened.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type ConflictType string

const (
	ConflictDoubleBooking          ConflictType = "double_booking"
	ConflictBusinessHoursViolation ConflictType = "business_hours_violation"
	ConflictDurationViolation      ConflictType = "duration_violation"
	ConflictPastTime               ConflictType = "past_time"
)

// Appointment is one booked interval for a patient with a physician.
// Patient and physician IDs are opaque here; resolving them to people is the
// identity layer's job.
type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	PhysicianID uuid.UUID
	Start       time.Time
	End         time.Time
	Status      AppointmentStatus

	ReasonForVisit     string
	Notes              string
	RoomNumber         string
	CancellationReason string
	ClinicalDocumentID *uuid.UUID

	CreatedAt  time.Time
	ModifiedAt time.Time
}

func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Active reports whether the appointment still occupies its window.
// Cancelled appointments free their window; every other status blocks it.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// Overlaps uses half-open interval semantics: back-to-back appointments
// (one ending exactly when the next starts) do not overlap.
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.Start.Before(end) && start.Before(a.End)
}

// Conflict is one detected violation of the scheduling rules.
type Conflict struct {
	Type                   ConflictType
	ConflictingAppointment *Appointment
	Description            string
}

// Slot is a candidate free window, distinct from a committed Appointment.
// IsOptimal marks slots that pack the schedule: the slot is flush against an
// existing active appointment or against the opening hour, leaving no
// unusable gap before it. The flag is a ranking hint, not a contract.
type Slot struct {
	Start     time.Time
	End       time.Time
	Reason    string
	IsOptimal bool
}

// OperationResult is the outcome of a mutating scheduler operation.
// Business conflicts are carried as data; only unexpected failures surface
// as errors.
type OperationResult struct {
	Success      bool
	Message      string
	Conflicts    []Conflict
	Alternatives []Slot
	Appointment  *Appointment
}

// HasConflictType reports whether the result carries a conflict of the
// given type.
func (r OperationResult) HasConflictType(t ConflictType) bool {
	for _, c := range r.Conflicts {
		if c.Type == t {
			return true
		}
	}
	return false
}

func failure(msg string, conflicts []Conflict) OperationResult {
	return OperationResult{Success: false, Message: msg, Conflicts: conflicts}
}

func success(msg string, appt *Appointment) OperationResult {
	return OperationResult{Success: true, Message: msg, Appointment: appt}
}

// AppointmentUpdate carries the optional fields of a partial update. Nil
// means "leave unchanged".
type AppointmentUpdate struct {
	ReasonForVisit  *string
	Notes           *string
	DurationMinutes *int
	NewStart        *time.Time
	RoomNumber      *string
}

// TimeChanged reports whether applying the update moves or resizes the
// appointment window, which forces conflict revalidation.
func (u AppointmentUpdate) TimeChanged() bool {
	return u.NewStart != nil || u.DurationMinutes != nil
}

// PhysicianAvailability is one row of an aggregated availability search.
type PhysicianAvailability struct {
	PhysicianID   uuid.UUID
	Slot          Slot
	MatchesWindow bool // slot fits entirely inside the requested window
}
