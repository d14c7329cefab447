package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFindAvailability_RanksWindowMatchesFirst(t *testing.T) {
	svc := newTestService(t)
	agg := NewAggregator(svc)

	free := uuid.New()
	busyMorning := uuid.New()
	bookedSolid := uuid.New()

	// busyMorning's first opening is 11:00; bookedSolid has nothing before
	// Tuesday, outside the requested window.
	mustBook(t, svc, booking(busyMorning, at(monday, 8, 0), 180))
	for h := 8; h < 17; h++ {
		mustBook(t, svc, booking(bookedSolid, at(monday, h, 0), 60))
	}

	got, err := agg.FindAvailability(context.Background(), AvailabilityQuery{
		PhysicianIDs: []uuid.UUID{bookedSolid, busyMorning, free},
		WindowStart:  at(monday, 8, 0),
		WindowEnd:    at(monday, 12, 0),
		Duration:     30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("FindAvailability error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("results = %d, want 2 (fully booked physician excluded)", len(got))
	}
	if got[0].PhysicianID != free {
		t.Fatalf("first result = %s, want the free physician", got[0].PhysicianID)
	}
	if !got[0].Slot.Start.Equal(at(monday, 8, 0)) {
		t.Fatalf("free physician slot starts %s, want 08:00", got[0].Slot.Start)
	}
	if got[1].PhysicianID != busyMorning {
		t.Fatalf("second result = %s, want the busy-morning physician", got[1].PhysicianID)
	}
	if !got[1].Slot.Start.Equal(at(monday, 11, 0)) {
		t.Fatalf("busy-morning slot starts %s, want 11:00", got[1].Slot.Start)
	}
	for _, entry := range got {
		if !entry.MatchesWindow {
			t.Fatalf("physician %s slot should fit the window", entry.PhysicianID)
		}
	}
}

func TestFindAvailability_OutsideWindowSortsLast(t *testing.T) {
	svc := newTestService(t)
	agg := NewAggregator(svc)

	free := uuid.New()
	lateOnly := uuid.New()

	// lateOnly's first opening starts inside the window but spills past its
	// end, so it reports as a non-matching fallback.
	mustBook(t, svc, booking(lateOnly, at(monday, 8, 0), 105))

	got, err := agg.FindAvailability(context.Background(), AvailabilityQuery{
		PhysicianIDs: []uuid.UUID{lateOnly, free},
		WindowStart:  at(monday, 8, 0),
		WindowEnd:    at(monday, 10, 0),
		Duration:     30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("FindAvailability error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}
	if got[0].PhysicianID != free || !got[0].MatchesWindow {
		t.Fatalf("first result should be the in-window physician")
	}
	if got[1].PhysicianID != lateOnly || got[1].MatchesWindow {
		t.Fatalf("spill-over physician should sort last as a non-match")
	}
	if !got[1].Slot.Start.Equal(at(monday, 9, 45)) {
		t.Fatalf("spill-over slot starts %s, want 09:45", got[1].Slot.Start)
	}
}

func TestFindAvailability_ValidatesQuery(t *testing.T) {
	agg := NewAggregator(newTestService(t))

	tests := []struct {
		name string
		q    AvailabilityQuery
	}{
		{"no physicians", AvailabilityQuery{
			WindowStart: at(monday, 8, 0), WindowEnd: at(monday, 12, 0), Duration: 30 * time.Minute,
		}},
		{"zero duration", AvailabilityQuery{
			PhysicianIDs: []uuid.UUID{uuid.New()},
			WindowStart:  at(monday, 8, 0), WindowEnd: at(monday, 12, 0),
		}},
		{"inverted window", AvailabilityQuery{
			PhysicianIDs: []uuid.UUID{uuid.New()},
			WindowStart:  at(monday, 12, 0), WindowEnd: at(monday, 8, 0),
			Duration: 30 * time.Minute,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := agg.FindAvailability(context.Background(), tc.q)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %T (%v), want *ValidationError", err, err)
			}
		})
	}
}

func TestFindAvailability_CancelledContext(t *testing.T) {
	agg := NewAggregator(newTestService(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.FindAvailability(ctx, AvailabilityQuery{
		PhysicianIDs: []uuid.UUID{uuid.New()},
		WindowStart:  at(monday, 8, 0),
		WindowEnd:    at(monday, 12, 0),
		Duration:     30 * time.Minute,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
