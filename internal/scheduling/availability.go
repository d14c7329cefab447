package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AvailabilityQuery asks "which of these physicians can see a patient" for a
// window. Physicians come pre-filtered by the caller (e.g. by specialty via
// the profile layer); the aggregator only composes slot searches.
type AvailabilityQuery struct {
	PhysicianIDs []uuid.UUID
	WindowStart  time.Time
	WindowEnd    time.Time
	Duration     time.Duration
}

// Aggregator fans a slot search out across physicians and ranks the results:
// physicians whose earliest slot fits entirely inside the requested window
// sort first, the rest sort by earliest slot start.
type Aggregator struct {
	svc *Service
}

func NewAggregator(svc *Service) *Aggregator {
	return &Aggregator{svc: svc}
}

func (a *Aggregator) FindAvailability(ctx context.Context, q AvailabilityQuery) ([]PhysicianAvailability, error) {
	if len(q.PhysicianIDs) == 0 {
		return nil, validationError("at least one physician_id is required")
	}
	if q.Duration <= 0 {
		return nil, validationError("duration must be positive")
	}
	if !q.WindowEnd.After(q.WindowStart) {
		return nil, validationError("window_end must be after window_start")
	}

	windowStart := q.WindowStart.UTC()
	windowEnd := q.WindowEnd.UTC()

	var (
		mu      sync.Mutex
		results []PhysicianAvailability
		wg      sync.WaitGroup
	)

	for _, physicianID := range q.PhysicianIDs {
		wg.Add(1)
		go func(physicianID uuid.UUID) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			slot := a.svc.FindNextAvailableSlot(physicianID, q.Duration, windowStart)
			if slot == nil || !slot.Start.Before(windowEnd) {
				return
			}

			entry := PhysicianAvailability{
				PhysicianID:   physicianID,
				Slot:          *slot,
				MatchesWindow: !slot.Start.Before(windowStart) && !slot.End.After(windowEnd),
			}

			mu.Lock()
			results = append(results, entry)
			mu.Unlock()
		}(physicianID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].MatchesWindow != results[j].MatchesWindow {
			return results[i].MatchesWindow
		}
		if !results[i].Slot.Start.Equal(results[j].Slot.Start) {
			return results[i].Slot.Start.Before(results[j].Slot.Start)
		}
		return results[i].PhysicianID.String() < results[j].PhysicianID.String()
	})

	return results, nil
}
