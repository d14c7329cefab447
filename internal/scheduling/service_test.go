package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	policy := DefaultPolicy()
	svc := NewService(NewStore(), NewMutexLocker(), NewFirstAvailableStrategy(policy), policy, zap.NewNop())
	svc.now = func() time.Time { return at(monday, 6, 0) }
	return svc
}

func mustBook(t *testing.T, svc *Service, in BookingInput) Appointment {
	t.Helper()

	res, err := svc.ScheduleAppointment(context.Background(), in)
	if err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if !res.Success {
		t.Fatalf("booking failed: %s (%+v)", res.Message, res.Conflicts)
	}
	return *res.Appointment
}

func booking(physicianID uuid.UUID, start time.Time, minutes int) BookingInput {
	return BookingInput{
		PatientID:       uuid.New(),
		PhysicianID:     physicianID,
		Start:           start,
		DurationMinutes: minutes,
		ReasonForVisit:  "checkup",
	}
}

func TestScheduleAppointment_Success(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	if appt.ID == uuid.Nil {
		t.Fatal("expected an assigned id")
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("status = %s, want scheduled", appt.Status)
	}
	if !appt.End.Equal(at(monday, 8, 30)) {
		t.Fatalf("end = %s, want 08:30", appt.End)
	}

	got, err := svc.FindAppointmentByID(appt.ID)
	if err != nil {
		t.Fatalf("FindAppointmentByID error: %v", err)
	}
	if got.ID != appt.ID {
		t.Fatalf("lookup returned wrong appointment")
	}
}

func TestScheduleAppointment_DoubleBookingRejectedWithAlternatives(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	existing := mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	res, err := svc.ScheduleAppointment(context.Background(), booking(physID, at(monday, 9, 15), 30))
	if err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if res.Success {
		t.Fatal("expected rejection")
	}
	if !hasConflictReferencing(res.Conflicts, existing.ID) {
		t.Fatalf("conflicts do not reference the existing appointment: %+v", res.Conflicts)
	}

	if len(res.Alternatives) == 0 || len(res.Alternatives) > 3 {
		t.Fatalf("alternatives = %d, want 1..3", len(res.Alternatives))
	}
	if !res.Alternatives[0].Start.Equal(at(monday, 9, 30)) {
		t.Fatalf("first alternative starts %s, want 09:30", res.Alternatives[0].Start)
	}
	for _, slot := range res.Alternatives {
		if slot.Start.Before(at(monday, 9, 15)) {
			t.Fatalf("alternative %s starts before the requested time", slot.Start)
		}
	}

	// Schedule must be untouched.
	if got := len(svc.GetAllAppointments()); got != 1 {
		t.Fatalf("appointments = %d, want 1", got)
	}
}

func TestScheduleAppointment_ValidationErrors(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		in   BookingInput
	}{
		{"missing patient", BookingInput{PhysicianID: uuid.New(), Start: at(monday, 8, 0), DurationMinutes: 30}},
		{"missing physician", BookingInput{PatientID: uuid.New(), Start: at(monday, 8, 0), DurationMinutes: 30}},
		{"zero start", BookingInput{PatientID: uuid.New(), PhysicianID: uuid.New(), DurationMinutes: 30}},
		{"zero duration", BookingInput{PatientID: uuid.New(), PhysicianID: uuid.New(), Start: at(monday, 8, 0)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ScheduleAppointment(context.Background(), tc.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %T (%v), want *ValidationError", err, err)
			}
		})
	}
}

func TestScheduleAppointment_RoundTripFromSlotSearch(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	mustBook(t, svc, booking(physID, at(monday, 8, 0), 60))
	mustBook(t, svc, booking(physID, at(monday, 9, 30), 45))

	slot := svc.FindNextAvailableSlot(physID, 30*time.Minute, at(monday, 8, 0))
	if slot == nil {
		t.Fatal("expected a slot")
	}

	res, err := svc.ScheduleAppointment(context.Background(), BookingInput{
		PatientID:       uuid.New(),
		PhysicianID:     physID,
		Start:           slot.Start,
		DurationMinutes: int(slot.End.Sub(slot.Start) / time.Minute),
	})
	if err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if !res.Success {
		t.Fatalf("slot from search was rejected: %+v", res.Conflicts)
	}
}

func TestUpdateAppointment_MergesOnlySuppliedFields(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	notes := "bring previous labs"
	res, err := svc.UpdateAppointment(context.Background(), appt.ID, AppointmentUpdate{Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateAppointment error: %v", err)
	}
	if !res.Success {
		t.Fatalf("update failed: %+v", res.Conflicts)
	}

	got := *res.Appointment
	if got.Notes != notes {
		t.Fatalf("notes = %q, want %q", got.Notes, notes)
	}
	if got.ReasonForVisit != appt.ReasonForVisit {
		t.Fatalf("reason changed unexpectedly")
	}
	if !got.Start.Equal(appt.Start) || !got.End.Equal(appt.End) {
		t.Fatalf("window changed unexpectedly")
	}
}

func TestUpdateAppointment_AtomicOnConflict(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	blocker := mustBook(t, svc, booking(physID, at(monday, 10, 0), 30))
	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	notes := "updated notes"
	newStart := at(monday, 10, 15)
	res, err := svc.UpdateAppointment(context.Background(), appt.ID, AppointmentUpdate{
		Notes:    &notes,
		NewStart: &newStart,
	})
	if err != nil {
		t.Fatalf("UpdateAppointment error: %v", err)
	}
	if res.Success {
		t.Fatal("expected conflict rejection")
	}
	if !hasConflictReferencing(res.Conflicts, blocker.ID) {
		t.Fatalf("conflicts do not reference blocker: %+v", res.Conflicts)
	}

	// Nothing changed, notes included.
	got, err := svc.FindAppointmentByID(appt.ID)
	if err != nil {
		t.Fatalf("FindAppointmentByID error: %v", err)
	}
	if got.Notes != appt.Notes || !got.Start.Equal(appt.Start) || !got.End.Equal(appt.End) {
		t.Fatalf("appointment mutated despite conflict: %+v", got)
	}
}

func TestUpdateAppointment_DurationChangeRevalidates(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	mustBook(t, svc, booking(physID, at(monday, 8, 30), 30))
	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	// Stretching to 60 minutes would collide with the 08:30 booking.
	minutes := 60
	res, err := svc.UpdateAppointment(context.Background(), appt.ID, AppointmentUpdate{DurationMinutes: &minutes})
	if err != nil {
		t.Fatalf("UpdateAppointment error: %v", err)
	}
	if res.Success {
		t.Fatal("expected conflict rejection")
	}
	if !res.HasConflictType(ConflictDoubleBooking) {
		t.Fatalf("want double booking conflict, got %+v", res.Conflicts)
	}
}

func TestUpdateAppointment_NotFoundAndTerminal(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	if _, err := svc.UpdateAppointment(context.Background(), uuid.New(), AppointmentUpdate{}); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("error = %v, want ErrAppointmentNotFound", err)
	}

	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))
	if err := svc.CancelAppointment(context.Background(), physID, appt.ID, "patient request"); err != nil {
		t.Fatalf("CancelAppointment error: %v", err)
	}

	notes := "too late"
	if _, err := svc.UpdateAppointment(context.Background(), appt.ID, AppointmentUpdate{Notes: &notes}); !errors.Is(err, ErrAppointmentFinal) {
		t.Fatalf("error = %v, want ErrAppointmentFinal", err)
	}
}

func TestRescheduleAppointment_MovesWindowOnly(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	res, err := svc.RescheduleAppointment(context.Background(), physID, appt.ID, at(monday, 14, 0), at(monday, 14, 30))
	if err != nil {
		t.Fatalf("RescheduleAppointment error: %v", err)
	}
	if !res.Success {
		t.Fatalf("reschedule failed: %+v", res.Conflicts)
	}

	got := *res.Appointment
	if !got.Start.Equal(at(monday, 14, 0)) || !got.End.Equal(at(monday, 14, 30)) {
		t.Fatalf("window = %s-%s, want 14:00-14:30", got.Start, got.End)
	}
	if got.ReasonForVisit != appt.ReasonForVisit || got.PatientID != appt.PatientID {
		t.Fatalf("non-time fields changed")
	}
}

func TestRescheduleAppointment_RejectsPastStart(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))

	// Clock is pinned at 06:00; the previous Friday is in the past.
	friday := monday.AddDate(0, 0, -3)
	res, err := svc.RescheduleAppointment(context.Background(), physID, appt.ID, at(friday, 9, 0), at(friday, 9, 30))
	if err != nil {
		t.Fatalf("RescheduleAppointment error: %v", err)
	}
	if res.Success {
		t.Fatal("expected rejection")
	}
	if !res.HasConflictType(ConflictPastTime) {
		t.Fatalf("want past time conflict, got %+v", res.Conflicts)
	}
}

func TestCancelAppointment_FreesWindowAndKeepsRecord(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	if err := svc.CancelAppointment(context.Background(), physID, appt.ID, "patient request"); err != nil {
		t.Fatalf("CancelAppointment error: %v", err)
	}

	got, err := svc.FindAppointmentByID(appt.ID)
	if err != nil {
		t.Fatalf("cancelled record must be retained: %v", err)
	}
	if got.Status != StatusCancelled || got.CancellationReason != "patient request" {
		t.Fatalf("status=%s reason=%q, want cancelled/patient request", got.Status, got.CancellationReason)
	}

	// The exact former window is bookable again.
	mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	// Cancelling twice is an invariant violation.
	if err := svc.CancelAppointment(context.Background(), physID, appt.ID, "again"); !errors.Is(err, ErrAppointmentFinal) {
		t.Fatalf("error = %v, want ErrAppointmentFinal", err)
	}
}

func TestDeleteAppointment_RemovesRecord(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	if err := svc.DeleteAppointment(context.Background(), physID, appt.ID); err != nil {
		t.Fatalf("DeleteAppointment error: %v", err)
	}
	if _, err := svc.FindAppointmentByID(appt.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("error = %v, want ErrAppointmentNotFound", err)
	}
	if err := svc.DeleteAppointment(context.Background(), physID, appt.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("second delete error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestCompleteAppointment_AttachesDocument(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	appt := mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	docID := uuid.New()
	if err := svc.CompleteAppointment(context.Background(), physID, appt.ID, &docID); err != nil {
		t.Fatalf("CompleteAppointment error: %v", err)
	}

	got, _ := svc.FindAppointmentByID(appt.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ClinicalDocumentID == nil || *got.ClinicalDocumentID != docID {
		t.Fatalf("clinical document not attached")
	}
}

func TestQueries_DailyRangeAndPatient(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()
	patientID := uuid.New()

	in := booking(physID, at(monday, 8, 0), 30)
	in.PatientID = patientID
	mustBook(t, svc, in)
	mustBook(t, svc, booking(physID, at(monday, 10, 0), 30))
	tuesday := monday.AddDate(0, 0, 1)
	mustBook(t, svc, booking(physID, at(tuesday, 8, 0), 30))

	if got := svc.GetDailySchedule(physID, monday); len(got) != 2 {
		t.Fatalf("daily = %d, want 2", len(got))
	}
	if got := svc.GetScheduleInRange(physID, at(monday, 0, 0), at(tuesday, 23, 59)); len(got) != 3 {
		t.Fatalf("range = %d, want 3", len(got))
	}
	if got := svc.GetPatientAppointments(patientID); len(got) != 1 || got[0].PatientID != patientID {
		t.Fatalf("patient appointments = %+v, want exactly the one booking", got)
	}
	if got := svc.GetDailySchedule(uuid.New(), monday); len(got) != 0 {
		t.Fatalf("unknown physician should have an empty schedule")
	}
}

func TestCheckForConflicts_DryRunWithSuggestions(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	mustBook(t, svc, booking(physID, at(monday, 9, 0), 30))

	proposed := testAppointment(physID, at(monday, 9, 0), at(monday, 9, 30))
	res := svc.CheckForConflicts(proposed, uuid.Nil, true)

	if !res.HasType(ConflictDoubleBooking) {
		t.Fatalf("expected double booking, got %+v", res.Conflicts)
	}
	if len(res.Alternatives) == 0 {
		t.Fatal("expected alternative suggestions")
	}
	// Dry run: nothing was committed.
	if got := len(svc.GetAllAppointments()); got != 1 {
		t.Fatalf("appointments = %d, want 1", got)
	}
}

func TestMarkOverdueNoShows(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	past := mustBook(t, svc, booking(physID, at(monday, 8, 0), 30))
	future := mustBook(t, svc, booking(physID, at(monday, 15, 0), 30))

	flipped, err := svc.MarkOverdueNoShows(context.Background(), at(monday, 12, 0))
	if err != nil {
		t.Fatalf("MarkOverdueNoShows error: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("flipped = %d, want 1", flipped)
	}

	got, _ := svc.FindAppointmentByID(past.ID)
	if got.Status != StatusNoShow {
		t.Fatalf("status = %s, want no_show", got.Status)
	}
	got, _ = svc.FindAppointmentByID(future.ID)
	if got.Status != StatusScheduled {
		t.Fatalf("future appointment flipped unexpectedly")
	}
}

// Twenty goroutines race for the same window on one physician; exactly one
// may win, and the no-overlap invariant must hold afterwards.
func TestScheduleAppointment_ConcurrentSameWindow(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	const workers = 20
	var (
		wg        sync.WaitGroup
		successes int64
		mu        sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ScheduleAppointment(context.Background(), booking(physID, at(monday, 9, 0), 30))
			if err != nil {
				t.Errorf("ScheduleAppointment error: %v", err)
				return
			}
			if res.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}

	assertNoOverlaps(t, svc, physID)
}

// Concurrent bookings over a shifting grid of windows: whatever wins, no two
// active appointments on one physician may overlap.
func TestScheduleAppointment_ConcurrentMixedWindows(t *testing.T) {
	svc := newTestService(t)
	physID := uuid.New()

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(monday, 8, 0).Add(time.Duration(i%12) * 15 * time.Minute)
			_, err := svc.ScheduleAppointment(context.Background(), booking(physID, start, 30))
			if err != nil {
				t.Errorf("ScheduleAppointment error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assertNoOverlaps(t, svc, physID)
}

func assertNoOverlaps(t *testing.T, svc *Service, physID uuid.UUID) {
	t.Helper()

	var active []Appointment
	for _, appt := range svc.GetScheduleInRange(physID, monday, monday.AddDate(0, 0, 7)) {
		if appt.Active() {
			active = append(active, appt)
		}
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].Overlaps(active[j].Start, active[j].End) {
				t.Fatalf("double booking committed: %s-%s overlaps %s-%s",
					active[i].Start, active[i].End, active[j].Start, active[j].End)
			}
		}
	}
}

func hasConflictReferencing(conflicts []Conflict, id uuid.UUID) bool {
	for _, c := range conflicts {
		if c.ConflictingAppointment != nil && c.ConflictingAppointment.ID == id {
			return true
		}
	}
	return false
}
