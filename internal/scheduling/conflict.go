package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckOptions tune a single conflict evaluation.
type CheckOptions struct {
	// ExcludeID removes one appointment from overlap checks, so an update
	// does not collide with its own prior window.
	ExcludeID uuid.UUID
	// AllowPast skips the past-start check, for loading historical records.
	AllowPast bool
	// ForSearch applies the wider search-horizon duration bound instead of
	// the direct-booking bound.
	ForSearch bool
	// Now overrides the clock; zero means time.Now. Tests and the service
	// pin this so one operation sees one consistent instant.
	Now time.Time
}

// ConflictResult aggregates every violation found for a proposed interval.
type ConflictResult struct {
	Conflicts    []Conflict
	Alternatives []Slot
}

func (r ConflictResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// HasType reports whether a conflict of the given type was recorded.
func (r ConflictResult) HasType(t ConflictType) bool {
	for _, c := range r.Conflicts {
		if c.Type == t {
			return true
		}
	}
	return false
}

// Detector evaluates a proposed interval against the active appointments of
// one physician and the clinic policy. It is stateless: every check runs
// independently and all violations are aggregated rather than stopping at
// the first.
type Detector struct {
	policy Policy
}

func NewDetector(policy Policy) *Detector {
	return &Detector{policy: policy}
}

// Check runs the full rule set: overlap against active appointments,
// business hours, duration bounds, and past start.
func (d *Detector) Check(proposed Appointment, active []Appointment, opts CheckOptions) ConflictResult {
	var res ConflictResult

	for i := range active {
		other := active[i]
		if other.ID == opts.ExcludeID {
			continue
		}
		if !other.Active() {
			continue
		}
		if other.Overlaps(proposed.Start, proposed.End) {
			conflicting := other
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:                   ConflictDoubleBooking,
				ConflictingAppointment: &conflicting,
				Description: fmt.Sprintf("physician already booked %s to %s",
					other.Start.Format(time.RFC3339), other.End.Format(time.RFC3339)),
			})
		}
	}

	if !d.policy.WithinBusinessHours(proposed.Start, proposed.End) {
		res.Conflicts = append(res.Conflicts, Conflict{
			Type: ConflictBusinessHoursViolation,
			Description: fmt.Sprintf("appointments must fall on a weekday between %02d:00 and %02d:00",
				d.policy.OpenHour, d.policy.CloseHour),
		})
	}

	dur := proposed.Duration()
	maxDur := d.policy.MaxDuration(opts.ForSearch)
	if dur < d.policy.BookingMinDuration {
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:        ConflictDurationViolation,
			Description: fmt.Sprintf("duration %s is below the minimum of %s", dur, d.policy.BookingMinDuration),
		})
	} else if dur > maxDur {
		res.Conflicts = append(res.Conflicts, Conflict{
			Type:        ConflictDurationViolation,
			Description: fmt.Sprintf("duration %s exceeds the maximum of %s", dur, maxDur),
		})
	}

	if !opts.AllowPast {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		if proposed.Start.Before(now) {
			res.Conflicts = append(res.Conflicts, Conflict{
				Type:        ConflictPastTime,
				Description: "appointment start is in the past",
			})
		}
	}

	return res
}
