package scheduler

import (
	"context"
	"fmt"

	"github.com/arnavshah/staff-calendar-api-go/pkg/models"
)

// ValidateAssignment rejects an assignment whose range is inverted, whose
// start block belongs to another shift, or which overlaps another active
// assignment of the same person. a.Shift must carry its blocks. Inactive
// assignments skip the overlap check.
func (s *Scheduler) ValidateAssignment(ctx context.Context, a models.CycleAssignment) error {
	if a.PersonID == 0 {
		return models.Invalid("person_id", models.ErrNotFound)
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return models.Invalid("end_date", models.ErrInvalidRange)
	}
	if !a.Shift.HasBlock(a.StartBlock.ID) {
		return models.Invalid("start_block", models.ErrInvalidAssignment)
	}
	if !a.Active {
		return nil
	}

	var exclude *uint
	if a.ID != 0 {
		exclude = &a.ID
	}
	overlaps, err := s.CheckOverlap(ctx, a.PersonID, a.StartDate, a.EndDate, exclude)
	if err != nil {
		return err
	}
	if overlaps {
		s.metrics.OverlapRejected()
		return models.Invalid("start_date", models.ErrAssignmentOverlap)
	}
	return nil
}

// ValidateOverride rejects an override with an inverted range or no state
func ValidateOverride(o models.ManualOverride) error {
	if o.PersonID == 0 {
		return models.Invalid("person_id", models.ErrNotFound)
	}
	if o.State.ID == 0 {
		return models.Invalid("state_id", models.ErrNotFound)
	}
	if o.EndDate.Before(o.StartDate) {
		return models.Invalid("end_date", models.ErrInvalidRange)
	}
	return nil
}

// ValidateState rejects a plain save that would leave two active defaults.
// Moving the default is done with a dedicated operation that clears the
// others atomically.
func ValidateState(st models.State, existing []models.State) error {
	if st.Name == "" {
		return models.Invalid("name", fmt.Errorf("name is required"))
	}
	if st.Priority < 0 {
		return models.Invalid("priority", fmt.Errorf("priority must not be negative"))
	}
	if !st.Default {
		return nil
	}
	for _, other := range existing {
		if other.ID != st.ID && other.Default && other.Active {
			return models.Invalid("default", models.ErrSecondDefault)
		}
	}
	return nil
}

// ValidateShift checks block positions are unique and positive and every
// duration is positive. A shift with no blocks yet is accepted and simply
// resolves to nothing.
func ValidateShift(shift models.Shift) error {
	if shift.Name == "" {
		return models.Invalid("name", fmt.Errorf("name is required"))
	}
	seen := make(map[int]bool, len(shift.Blocks))
	for _, b := range shift.Blocks {
		if b.Position < 1 {
			return models.Invalid("blocks", fmt.Errorf("%w: position %d", models.ErrInvalidShift, b.Position))
		}
		if seen[b.Position] {
			return models.Invalid("blocks", fmt.Errorf("%w: duplicate position %d", models.ErrInvalidShift, b.Position))
		}
		seen[b.Position] = true
		if b.DurationDays < 1 {
			return models.Invalid("blocks", fmt.Errorf("%w: block %d has no duration", models.ErrInvalidShift, b.Position))
		}
		if b.State.ID == 0 {
			return models.Invalid("blocks", fmt.Errorf("%w: block %d has no state", models.ErrInvalidShift, b.Position))
		}
	}
	return nil
}
