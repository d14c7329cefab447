package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service orchestrates every booking workflow. Each mutating operation runs
// its conflict check and commit inside the per-physician lock so concurrent
// requests for one physician serialize, while different physicians proceed
// in parallel.
type Service struct {
	store    *Store
	locker   Locker
	detector *Detector
	strategy Strategy
	policy   Policy
	log      *zap.Logger

	now func() time.Time // swapped in tests
}

func NewService(store *Store, locker Locker, strategy Strategy, policy Policy, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		locker:   locker,
		detector: NewDetector(policy),
		strategy: strategy,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// BookingInput is a caller's request for a new appointment. Patient and
// physician ids are opaque; existence checks belong to the profile layer.
type BookingInput struct {
	PatientID          uuid.UUID
	PhysicianID        uuid.UUID
	Start              time.Time
	DurationMinutes    int
	ReasonForVisit     string
	Notes              string
	RoomNumber         string
	ClinicalDocumentID *uuid.UUID
}

// ScheduleAppointment validates the requested interval against the target
// physician's schedule and commits it if clean. A rejected request carries
// every detected conflict, and double-booking rejections additionally carry
// up to the configured number of alternative slots at or after the requested
// start.
func (s *Service) ScheduleAppointment(ctx context.Context, in BookingInput) (OperationResult, error) {
	if in.PatientID == uuid.Nil {
		return OperationResult{}, validationError("patient_id is required")
	}
	if in.PhysicianID == uuid.Nil {
		return OperationResult{}, validationError("physician_id is required")
	}
	if in.Start.IsZero() {
		return OperationResult{}, validationError("start is required")
	}
	if in.DurationMinutes <= 0 {
		return OperationResult{}, validationError("duration_minutes must be positive")
	}

	start := in.Start.UTC()
	proposed := Appointment{
		ID:                 uuid.New(),
		PatientID:          in.PatientID,
		PhysicianID:        in.PhysicianID,
		Start:              start,
		End:                start.Add(time.Duration(in.DurationMinutes) * time.Minute),
		Status:             StatusScheduled,
		ReasonForVisit:     in.ReasonForVisit,
		Notes:              in.Notes,
		RoomNumber:         in.RoomNumber,
		ClinicalDocumentID: in.ClinicalDocumentID,
	}

	var result OperationResult
	err := s.locker.WithPhysicianLock(ctx, in.PhysicianID, func(ctx context.Context) error {
		now := s.now()
		active := s.store.Schedule(in.PhysicianID).Active()

		check := s.detector.Check(proposed, active, CheckOptions{Now: now})
		if check.HasConflicts() {
			result = failure("appointment conflicts with the physician's schedule", check.Conflicts)
			if check.HasType(ConflictDoubleBooking) {
				result.Alternatives = s.alternatives(active, proposed.Duration(), start, now)
			}
			return nil
		}

		proposed.CreatedAt = now
		proposed.ModifiedAt = now
		s.store.Insert(proposed)

		committed := proposed
		result = success("appointment scheduled", &committed)
		return nil
	})
	if err != nil {
		return OperationResult{}, err
	}

	if result.Success {
		s.log.Info("appointment scheduled",
			zap.String("appointment_id", proposed.ID.String()),
			zap.String("physician_id", in.PhysicianID.String()),
			zap.Time("start", proposed.Start))
	}
	return result, nil
}

// UpdateAppointment merges the supplied fields into a proposed copy,
// revalidates it when the window moved or resized, and commits only if the
// proposal is clean. On any conflict nothing changes.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (OperationResult, error) {
	if id == uuid.Nil {
		return OperationResult{}, validationError("appointment_id is required")
	}
	if upd.DurationMinutes != nil && *upd.DurationMinutes <= 0 {
		return OperationResult{}, validationError("duration_minutes must be positive")
	}

	physicianID, ok := s.store.Owner(id)
	if !ok {
		return OperationResult{}, ErrAppointmentNotFound
	}

	var result OperationResult
	err := s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
		current, ok := s.store.Schedule(physicianID).Get(id)
		if !ok {
			return ErrAppointmentNotFound
		}
		if current.Status.Terminal() {
			return ErrAppointmentFinal
		}

		proposed := current
		if upd.ReasonForVisit != nil {
			proposed.ReasonForVisit = *upd.ReasonForVisit
		}
		if upd.Notes != nil {
			proposed.Notes = *upd.Notes
		}
		if upd.RoomNumber != nil {
			proposed.RoomNumber = *upd.RoomNumber
		}
		if upd.NewStart != nil {
			start := upd.NewStart.UTC()
			proposed.End = start.Add(proposed.End.Sub(proposed.Start))
			proposed.Start = start
		}
		if upd.DurationMinutes != nil {
			proposed.End = proposed.Start.Add(time.Duration(*upd.DurationMinutes) * time.Minute)
		}

		now := s.now()
		if upd.TimeChanged() {
			active := s.store.Schedule(physicianID).Active()
			check := s.detector.Check(proposed, active, CheckOptions{ExcludeID: id, Now: now})
			if check.HasConflicts() {
				result = failure("proposed change conflicts with the physician's schedule", check.Conflicts)
				if check.HasType(ConflictDoubleBooking) {
					result.Alternatives = s.alternatives(active, proposed.Duration(), proposed.Start, now)
				}
				return nil
			}
		}

		proposed.ModifiedAt = now
		s.store.Insert(proposed)

		committed := proposed
		result = success("appointment updated", &committed)
		return nil
	})
	if err != nil {
		return OperationResult{}, err
	}
	return result, nil
}

// RescheduleAppointment moves an appointment to a new window, keeping every
// other field. Past starts are rejected like any new booking.
func (s *Service) RescheduleAppointment(ctx context.Context, physicianID, id uuid.UUID, newStart, newEnd time.Time) (OperationResult, error) {
	if newStart.IsZero() || newEnd.IsZero() {
		return OperationResult{}, validationError("new_start and new_end are required")
	}
	if !newEnd.After(newStart) {
		return OperationResult{}, validationError("new_end must be after new_start")
	}

	var result OperationResult
	err := s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
		current, ok := s.store.Schedule(physicianID).Get(id)
		if !ok {
			return ErrAppointmentNotFound
		}
		if current.Status.Terminal() {
			return ErrAppointmentFinal
		}

		proposed := current
		proposed.Start = newStart.UTC()
		proposed.End = newEnd.UTC()

		now := s.now()
		active := s.store.Schedule(physicianID).Active()
		check := s.detector.Check(proposed, active, CheckOptions{ExcludeID: id, Now: now})
		if check.HasConflicts() {
			result = failure("new window conflicts with the physician's schedule", check.Conflicts)
			if check.HasType(ConflictDoubleBooking) {
				result.Alternatives = s.alternatives(active, proposed.Duration(), proposed.Start, now)
			}
			return nil
		}

		proposed.ModifiedAt = now
		s.store.Insert(proposed)

		committed := proposed
		result = success("appointment rescheduled", &committed)
		return nil
	})
	if err != nil {
		return OperationResult{}, err
	}
	return result, nil
}

// CancelAppointment soft-cancels: the record stays for audit with the reason
// recorded, and the window becomes immediately bookable by others.
func (s *Service) CancelAppointment(ctx context.Context, physicianID, id uuid.UUID, reason string) error {
	return s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
		sched := s.store.Schedule(physicianID)
		current, ok := sched.Get(id)
		if !ok {
			return ErrAppointmentNotFound
		}
		if current.Status.Terminal() {
			return ErrAppointmentFinal
		}

		current.Status = StatusCancelled
		current.CancellationReason = reason
		current.ModifiedAt = s.now()
		sched.Put(current)

		s.log.Info("appointment cancelled",
			zap.String("appointment_id", id.String()),
			zap.String("physician_id", physicianID.String()),
			zap.String("reason", reason))
		return nil
	})
}

// CompleteAppointment marks a scheduled appointment as completed, optionally
// attaching the clinical document written during the visit.
func (s *Service) CompleteAppointment(ctx context.Context, physicianID, id uuid.UUID, clinicalDocumentID *uuid.UUID) error {
	return s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
		sched := s.store.Schedule(physicianID)
		current, ok := sched.Get(id)
		if !ok {
			return ErrAppointmentNotFound
		}
		if current.Status.Terminal() {
			return ErrAppointmentFinal
		}

		current.Status = StatusCompleted
		if clinicalDocumentID != nil {
			current.ClinicalDocumentID = clinicalDocumentID
		}
		current.ModifiedAt = s.now()
		sched.Put(current)
		return nil
	})
}

// DeleteAppointment permanently removes the record. This is an
// administrative correction, not a cancellation: nothing is retained.
func (s *Service) DeleteAppointment(ctx context.Context, physicianID, id uuid.UUID) error {
	return s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
		if !s.store.Delete(physicianID, id) {
			return ErrAppointmentNotFound
		}
		s.log.Info("appointment deleted",
			zap.String("appointment_id", id.String()),
			zap.String("physician_id", physicianID.String()))
		return nil
	})
}

// MarkOverdueNoShows flips scheduled appointments whose window ended before
// the cutoff to no_show. Called by the sweeper; returns how many were
// flipped.
func (s *Service) MarkOverdueNoShows(ctx context.Context, cutoff time.Time) (int, error) {
	flipped := 0
	for _, physicianID := range s.store.PhysicianIDs() {
		err := s.locker.WithPhysicianLock(ctx, physicianID, func(ctx context.Context) error {
			sched := s.store.Schedule(physicianID)
			for _, appt := range sched.Active() {
				if appt.Status != StatusScheduled || appt.End.After(cutoff) {
					continue
				}
				appt.Status = StatusNoShow
				appt.ModifiedAt = s.now()
				sched.Put(appt)
				flipped++
			}
			return nil
		})
		if err != nil {
			return flipped, err
		}
	}
	return flipped, nil
}

// FindAppointmentByID looks the appointment up across all physicians.
func (s *Service) FindAppointmentByID(id uuid.UUID) (Appointment, error) {
	appt, ok := s.store.Find(id)
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

// GetDailySchedule returns the physician's appointments touching the given
// calendar day, cancelled ones included.
func (s *Service) GetDailySchedule(physicianID uuid.UUID, date time.Time) []Appointment {
	return s.store.Schedule(physicianID).OnDate(date)
}

// GetScheduleInRange returns the physician's appointments overlapping
// [start, end).
func (s *Service) GetScheduleInRange(physicianID uuid.UUID, start, end time.Time) []Appointment {
	return s.store.Schedule(physicianID).InRange(start, end)
}

// GetPatientAppointments returns every appointment for one patient across
// all physicians, sorted by start time.
func (s *Service) GetPatientAppointments(patientID uuid.UUID) []Appointment {
	var out []Appointment
	for _, appt := range s.store.All() {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	return out
}

// GetAllAppointments returns every appointment in the store.
func (s *Service) GetAllAppointments() []Appointment {
	return s.store.All()
}

// FindNextAvailableSlot returns the earliest bookable window of the given
// length at or after searchStart, or nil if none exists within the search
// horizon. The search never starts in the past, so a returned slot can be
// booked as-is.
func (s *Service) FindNextAvailableSlot(physicianID uuid.UUID, duration time.Duration, searchStart time.Time) *Slot {
	from := searchStart.UTC()
	if now := s.now(); from.Before(now) {
		from = now
	}
	active := s.store.Schedule(physicianID).Active()
	return s.strategy.FindNextAvailableSlot(active, duration, from)
}

// CheckForConflicts dry-runs the full validation for a proposed interval
// without touching the schedule. With includeSuggestions, double-booking
// conflicts come with alternative slots attached.
func (s *Service) CheckForConflicts(proposed Appointment, excludeID uuid.UUID, includeSuggestions bool) ConflictResult {
	now := s.now()
	active := s.store.Schedule(proposed.PhysicianID).Active()
	check := s.detector.Check(proposed, active, CheckOptions{ExcludeID: excludeID, Now: now})
	if includeSuggestions && check.HasType(ConflictDoubleBooking) {
		check.Alternatives = s.alternatives(active, proposed.Duration(), proposed.Start, now)
	}
	return check
}

// Policy exposes the active policy for read-only callers.
func (s *Service) Policy() Policy {
	return s.policy
}

// alternatives collects replacement slots starting no earlier than the
// requested start and never in the past.
func (s *Service) alternatives(active []Appointment, duration time.Duration, requestedStart, now time.Time) []Slot {
	from := requestedStart
	if from.Before(now) {
		from = now
	}
	return s.strategy.FindAvailableSlots(active, duration, from, s.policy.MaxAlternatives)
}
